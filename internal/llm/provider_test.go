package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcal/internal/models"
)

func TestGemini_Generate(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"title\":"},{"text":"\"회의\"}"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "gemini", APIKey: "g-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	assert.Equal(t, "gemini/gemini-2.0-flash", p.Name())

	out, err := p.Generate(context.Background(), "프롬프트", Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"회의"}`, out)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "프롬프트", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.7, got.GenerationConfig.Temperature)
	assert.Equal(t, 1000, got.GenerationConfig.MaxOutputTokens)
}

func TestGemini_LogsThroughConfiguredLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p, err := NewProvider(Config{Provider: "gemini", APIKey: "k", BaseURL: srv.URL, Logger: logger})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "x", Options{})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Sending request to Gemini")
	assert.Contains(t, buf.String(), "Received Gemini response")
	assert.Contains(t, buf.String(), "finishReason=STOP")
}

func TestOpenRouter_LogsThroughConfiguredLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p, err := NewProvider(Config{Provider: "openrouter", APIKey: "k", BaseURL: srv.URL, Logger: logger})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "x", Options{})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Sending request to OpenRouter")
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "http error", status: http.StatusTooManyRequests, body: `quota`, wantStatus: 429},
		{name: "bad envelope", status: http.StatusOK, body: `not json`},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`},
		{name: "no parts", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[]}}]}`},
		{name: "error object", status: http.StatusOK, body: `{"error":{"code":400,"message":"bad"}}`, wantStatus: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, err := NewProvider(Config{Provider: "gemini", APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = p.Generate(context.Background(), "x", Options{})
			var apiErr *models.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "gemini", apiErr.Service)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
		})
	}
}

func TestOpenRouter_Generate(t *testing.T) {
	var got orRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "OpenRouter", Model: "meta/llama", APIKey: "or-key", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "openrouter/meta/llama", p.Name())

	out, err := p.Generate(context.Background(), "hi", Options{Temperature: 0.3, MaxTokens: 200})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	assert.Equal(t, "meta/llama", got.Model)
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, 200, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, orMessage{Role: "user", Content: "hi"}, got.Messages[0])
}

func TestOpenRouter_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(Config{Provider: "openrouter", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), "x", Options{})
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "openrouter", apiErr.Service)
}

func TestNewProvider(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	_, err := NewProvider(Config{Provider: "claude"})
	assert.ErrorContains(t, err, "unknown LLM provider")

	_, err = NewProvider(Config{})
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	_, err = NewProvider(Config{Provider: "openrouter"})
	assert.ErrorContains(t, err, "OPENROUTER_API_KEY")

	t.Setenv("GOOGLE_API_KEY", "fallback")
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	assert.Equal(t, "gemini/gemini-2.0-flash", p.Name())
}

type stubProvider struct{}

func (stubProvider) Generate(context.Context, string, Options) (string, error) { return "", nil }
func (stubProvider) Name() string { return "stub/none" }

func TestRegister(t *testing.T) {
	Register("Stub", func(Config) (Provider, error) { return stubProvider{}, nil })
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "stub")
		registryMu.Unlock()
	})

	assert.Contains(t, Providers(), "stub")
	p, err := NewProvider(Config{Provider: "stub"})
	require.NoError(t, err)
	assert.Equal(t, "stub/none", p.Name())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
