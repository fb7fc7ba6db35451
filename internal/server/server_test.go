package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcal/internal/extract"
	"smartcal/internal/models"
	"smartcal/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRegistrar struct {
	result *pipeline.Result
	err    error
	texts  []string
}

func (f *fakeRegistrar) Register(_ context.Context, text string) (*pipeline.Result, error) {
	f.texts = append(f.texts, text)
	return f.result, f.err
}

func (f *fakeRegistrar) Preview(_ context.Context, text string) (*pipeline.Result, error) {
	f.texts = append(f.texts, text)
	return f.result, f.err
}

type fakeAnalyzer struct {
	classifyErr error
}

func (fakeAnalyzer) Summarize(_ context.Context, text string, maxLen int) string {
	return "요약됨"
}

func (f fakeAnalyzer) Classify(context.Context, string) (*extract.Classification, error) {
	if f.classifyErr != nil {
		return nil, f.classifyErr
	}
	return &extract.Classification{Category: "calendar", Confidence: 0.9, Reason: "날짜 포함"}, nil
}

func (fakeAnalyzer) Tags(context.Context, string) ([]string, error) {
	return []string{"회의", "분기"}, nil
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

var created = &pipeline.Result{
	Payload: &models.EventPayload{Summary: "팀 미팅"},
	Event:   &models.CreatedEvent{ID: "evt-1", Summary: "팀 미팅"},
}

func TestHealthAndMetrics(t *testing.T) {
	h := New(discard, &fakeRegistrar{}, nil).Handler()

	w := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRegisterEndpoint(t *testing.T) {
	reg := &fakeRegistrar{result: created}
	h := New(discard, reg, nil).Handler()

	w := do(t, h, http.MethodPost, "/v1/events", TextRequest{Text: "내일 3시 팀 미팅"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp pipeline.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, pipeline.MessageCreated, resp.Message)
	assert.Equal(t, "evt-1", resp.Event.ID)
	assert.Equal(t, []string{"내일 3시 팀 미팅"}, reg.texts)
}

func TestRegisterEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{
			name:     "extraction failure",
			err:      &extract.ExtractionError{Reason: extract.ReasonExtractFailed},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "extract_failed",
		},
		{
			name:     "expired token",
			err:      &models.AuthError{Service: "google-calendar", StatusCode: 401, Kind: models.AuthReauthenticate},
			wantCode: http.StatusUnauthorized,
			wantErr:  pipeline.ErrorReauthenticate,
		},
		{
			name:     "missing scope",
			err:      &models.AuthError{Service: "google-calendar", StatusCode: 403, Kind: models.AuthInsufficientPermission},
			wantCode: http.StatusForbidden,
			wantErr:  pipeline.ErrorInsufficientPermission,
		},
		{
			name:     "upstream",
			err:      &models.APIError{Service: "gemini", StatusCode: 503, Message: "overloaded"},
			wantCode: http.StatusBadGateway,
			wantErr:  "gemini API error (503): overloaded",
		},
		{
			name:     "other",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantErr:  "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(discard, &fakeRegistrar{err: tt.err}, nil).Handler()
			w := do(t, h, http.MethodPost, "/v1/events", TextRequest{Text: "x"})
			assert.Equal(t, tt.wantCode, w.Code)

			var resp pipeline.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestRegisterEndpoint_RejectsEmptyText(t *testing.T) {
	reg := &fakeRegistrar{result: created}
	h := New(discard, reg, nil).Handler()

	for _, body := range []any{TextRequest{Text: "   "}, map[string]string{}} {
		w := do(t, h, http.MethodPost, "/v1/events", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	assert.Empty(t, reg.texts)
}

func TestPreviewEndpoint(t *testing.T) {
	reg := &fakeRegistrar{result: &pipeline.Result{
		Info:    &models.CalendarInfo{Title: "팀 미팅"},
		Payload: &models.EventPayload{Summary: "팀 미팅"},
		DryRun:  true,
	}}
	h := New(discard, reg, nil).Handler()

	w := do(t, h, http.MethodPost, "/v1/extract", TextRequest{Text: "팀 미팅"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp PreviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "팀 미팅", resp.Info.Title)
	assert.Equal(t, "팀 미팅", resp.Payload.Summary)

	reg.err = &extract.ExtractionError{Reason: extract.ReasonExtractFailed}
	w = do(t, h, http.MethodPost, "/v1/extract", TextRequest{Text: "???"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.DetailsExtractFailed, resp.Details)
}

func TestAnalyzerEndpoints(t *testing.T) {
	h := New(discard, &fakeRegistrar{}, fakeAnalyzer{}).Handler()

	w := do(t, h, http.MethodPost, "/v1/summarize", TextRequest{Text: "긴 글", MaxLength: 50})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"summary":"요약됨"}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/v1/classify", TextRequest{Text: "내일 회의"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"category":"calendar","confidence":0.9,"reason":"날짜 포함"}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/v1/tags", TextRequest{Text: "분기 회의"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tags":["회의","분기"]}`, w.Body.String())

	h = New(discard, &fakeRegistrar{}, fakeAnalyzer{classifyErr: &models.APIError{Service: "gemini", StatusCode: 500}}).Handler()
	w = do(t, h, http.MethodPost, "/v1/classify", TextRequest{Text: "x"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAnalyzerEndpoints_AbsentWithoutAnalyzer(t *testing.T) {
	h := New(discard, &fakeRegistrar{}, nil).Handler()
	w := do(t, h, http.MethodPost, "/v1/summarize", TextRequest{Text: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := New(discard, &fakeRegistrar{}, nil).Handler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}
