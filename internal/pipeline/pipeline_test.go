package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcal/internal/extract"
	"smartcal/internal/llm"
	"smartcal/internal/models"
	"smartcal/internal/payload"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeExtractor struct {
	info *models.CalendarInfo
	err  error
}

func (f *fakeExtractor) Extract(context.Context, string) (*models.CalendarInfo, error) {
	return f.info, f.err
}

type searchCall struct {
	calendarID, query string
	timeMin, timeMax  time.Time
}

type fakeCalendar struct {
	primaryErr error
	existing   []*models.Event
	searchErr  error
	createErr  error

	searches []searchCall
	created  []*models.EventPayload
}

func (f *fakeCalendar) PrimaryCalendar(context.Context) (*models.CalendarRef, error) {
	if f.primaryErr != nil {
		return nil, f.primaryErr
	}
	return &models.CalendarRef{ID: "me@example.com", Primary: true}, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, calendarID string, p *models.EventPayload) (*models.CreatedEvent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, p)
	return &models.CreatedEvent{ID: "evt-1", Summary: p.Summary, StartTime: p.Start.DateTime, EndTime: p.End.DateTime}, nil
}

func (f *fakeCalendar) SearchEvents(_ context.Context, calendarID, query string, timeMin, timeMax time.Time) ([]*models.Event, error) {
	f.searches = append(f.searches, searchCall{calendarID, query, timeMin, timeMax})
	return f.existing, f.searchErr
}

func newBuilder() *payload.Builder {
	now := time.Date(2026, 10, 19, 14, 30, 0, 0, payload.SeoulLocation())
	return payload.NewBuilder(discard).WithClock(func() time.Time { return now })
}

var meeting = &models.CalendarInfo{
	Title:     "팀 미팅",
	StartDate: "2025-03-01T09:00:00",
	EndDate:   "2025-03-01T10:00:00",
}

func TestRegister_CreatesEvent(t *testing.T) {
	cal := &fakeCalendar{}
	p := New(discard, &fakeExtractor{info: meeting}, newBuilder(), cal, false)

	res, err := p.Register(context.Background(), "팀 미팅")
	require.NoError(t, err)

	require.Len(t, cal.created, 1)
	assert.Equal(t, "evt-1", res.Event.ID)
	assert.False(t, res.Duplicate)
	assert.False(t, res.Event.IsDuplicate)

	require.Len(t, cal.searches, 1)
	s := cal.searches[0]
	assert.Equal(t, "me@example.com", s.calendarID)
	assert.Equal(t, "팀 미팅", s.query)
	assert.True(t, s.timeMin.Equal(time.Date(2025, 3, 1, 8, 30, 0, 0, payload.SeoulLocation())))
	assert.True(t, s.timeMax.Equal(time.Date(2025, 3, 1, 10, 30, 0, 0, payload.SeoulLocation())))

	assert.Equal(t, Response{Success: true, Message: MessageCreated, Event: res.Event}, Respond(res, nil))
}

func TestRegister_DuplicateIsCreatedAndFlagged(t *testing.T) {
	cal := &fakeCalendar{existing: []*models.Event{
		{ID: "old-1", Title: "Team Sync prep"},
		{ID: "old-2", Title: "team sync"},
	}}
	meetingEN := &models.CalendarInfo{Title: "Team Sync", StartDate: "2025-03-01T09:00:00"}

	res, err := New(discard, &fakeExtractor{info: meetingEN}, newBuilder(), cal, false).Register(context.Background(), "x")
	require.NoError(t, err)

	assert.True(t, res.Duplicate)
	assert.True(t, res.Event.IsDuplicate)
	require.Len(t, cal.created, 1)

	resp := Respond(res, nil)
	assert.True(t, resp.Success)
	assert.Equal(t, MessageCreatedDuplicate, resp.Message)
}

func TestRegister_SimilarTitleIsNotDuplicate(t *testing.T) {
	cal := &fakeCalendar{existing: []*models.Event{{ID: "old-1", Title: "팀 미팅 준비"}}}

	res, err := New(discard, &fakeExtractor{info: meeting}, newBuilder(), cal, false).Register(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
}

func TestRegister_SearchFailureIsNotDuplicate(t *testing.T) {
	cal := &fakeCalendar{searchErr: errors.New("timeout")}

	res, err := New(discard, &fakeExtractor{info: meeting}, newBuilder(), cal, false).Register(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Len(t, cal.created, 1)
}

func TestRegister_DryRunSkipsCreate(t *testing.T) {
	cal := &fakeCalendar{}

	res, err := New(discard, &fakeExtractor{info: meeting}, newBuilder(), cal, true).Register(context.Background(), "x")
	require.NoError(t, err)

	assert.Empty(t, cal.created)
	assert.Nil(t, res.Event)
	assert.True(t, res.DryRun)

	resp := Respond(res, nil)
	assert.Equal(t, MessageDryRun, resp.Message)
	assert.Equal(t, "2025-03-01T09:00:00+09:00", resp.Payload.Start.DateTime)
}

func TestRegister_Errors(t *testing.T) {
	authErr := &models.AuthError{Service: "google-calendar", StatusCode: 401, Kind: models.AuthReauthenticate}

	_, err := New(discard, &fakeExtractor{info: meeting}, newBuilder(), &fakeCalendar{primaryErr: authErr}, false).
		Register(context.Background(), "x")
	assert.ErrorIs(t, err, authErr)

	cal := &fakeCalendar{createErr: &models.APIError{Service: "google-calendar", StatusCode: 500, Message: "backend"}}
	_, err = New(discard, &fakeExtractor{info: meeting}, newBuilder(), cal, false).Register(context.Background(), "x")
	var apiErr *models.APIError
	assert.ErrorAs(t, err, &apiErr)

	_, err = New(discard, &fakeExtractor{info: meeting}, newBuilder(), nil, false).Register(context.Background(), "x")
	assert.Error(t, err)
}

func TestRespond_Errors(t *testing.T) {
	resp := Respond(nil, &extract.ExtractionError{Reason: extract.ReasonExtractFailed})
	assert.Equal(t, Response{
		Error:   "extract_failed",
		Message: MessageExtractFailed,
		Details: DetailsExtractFailed,
	}, resp)

	resp = Respond(nil, &models.AuthError{StatusCode: 401, Kind: models.AuthReauthenticate})
	assert.Equal(t, ErrorReauthenticate, resp.Error)
	assert.Contains(t, resp.Message, "다시 인증")

	resp = Respond(nil, &models.AuthError{StatusCode: 403, Kind: models.AuthInsufficientPermission})
	assert.Equal(t, ErrorInsufficientPermission, resp.Error)
	assert.Contains(t, resp.Message, "권한")

	resp = Respond(nil, errors.New("네트워크 오류"))
	assert.False(t, resp.Success)
	assert.Equal(t, "네트워크 오류", resp.Error)
	assert.Equal(t, "네트워크 오류", resp.Message)
}

// fakeProvider returns a canned model answer.
type fakeProvider string

func (f fakeProvider) Name() string { return "fake/test" }

func (f fakeProvider) Generate(context.Context, string, llm.Options) (string, error) {
	return string(f), nil
}

func TestRegister_EndToEndRepairsModelOutput(t *testing.T) {
	raw := `{"title":"팀 미팅","startDate":"2025-03-01T09:00:00","endDate":"2025-03-01T08:00:00","attendees":["a@b.com","notanemail"]}`
	extractor := extract.NewExtractor(fakeProvider(raw), discard)
	cal := &fakeCalendar{}

	_, err := New(discard, extractor, newBuilder(), cal, false).Register(context.Background(), "내일 9시 팀 미팅")
	require.NoError(t, err)

	require.Len(t, cal.created, 1)
	sent := cal.created[0]
	assert.Equal(t, "2025-03-01T10:00:00+09:00", sent.End.DateTime)
	assert.Equal(t, []models.Attendee{{Email: "a@b.com"}}, sent.Attendees)
}
