package icloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"smartcal/internal/models"
)

const (
	// DefaultEndpoint is iCloud's CalDAV root.
	DefaultEndpoint = "https://caldav.icloud.com/"
	serviceName     = "caldav"
)

// authTransport adds Basic Auth to each request and turns 401/403 responses
// into *models.AuthError.
type authTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "smartcal/1.0")

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if authErr := models.AuthErrorFromStatus(serviceName, resp.StatusCode); authErr != nil {
		resp.Body.Close()
		return nil, authErr
	}
	return resp, nil
}

// Config locates the CalDAV account and calendar.
type Config struct {
	Endpoint     string // empty = DefaultEndpoint
	Username     string
	Password     string
	CalendarName string // empty = first calendar found
}

// CalDAVClient is a client for interacting with a CalDAV server (iCloud by default).
type CalDAVClient struct {
	client       *caldav.Client
	logger       *slog.Logger
	calendarName string
	now          func() time.Time

	mu       sync.Mutex
	calendar *models.CalendarRef
}

// NewClient creates a CalDAVClient. Calendar discovery happens on first use.
func NewClient(logger *slog.Logger, cfg Config) (*CalDAVClient, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &authTransport{
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: http.DefaultTransport,
		},
	}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	return &CalDAVClient{
		client:       caldavClient,
		logger:       logger,
		calendarName: cfg.CalendarName,
		now:          time.Now,
	}, nil
}

// PrimaryCalendar discovers the configured calendar. The result is cached.
func (c *CalDAVClient) PrimaryCalendar(ctx context.Context) (*models.CalendarRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calendar != nil {
		return c.calendar, nil
	}

	c.logger.Info("Finding CalDAV calendar", "calendarName", c.calendarName)
	ref, err := c.findCalendar(ctx, c.calendarName)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Successfully found CalDAV calendar", "path", ref.ID)
	c.calendar = ref
	return ref, nil
}

// CreateEvent writes the payload as a new calendar object under calendarID.
func (c *CalDAVClient) CreateEvent(ctx context.Context, calendarID string, p *models.EventPayload) (*models.CreatedEvent, error) {
	uid := GenerateUID()
	cal, err := buildCalendar(uid, p, c.now())
	if err != nil {
		return nil, err
	}

	eventPath := path.Join(calendarID, uid+".ics")
	c.logger.Debug("Creating event on CalDAV server", "summary", p.Summary, "path", eventPath)

	if _, err := c.client.PutCalendarObject(ctx, eventPath, cal); err != nil {
		return nil, mapError(err, "failed to create event on CalDAV server")
	}

	c.logger.Info("Created event on CalDAV server", "uid", uid)
	return &models.CreatedEvent{
		ID:          uid,
		Summary:     p.Summary,
		StartTime:   p.Start.DateTime,
		EndTime:     p.End.DateTime,
		Location:    p.Location,
		Description: p.Description,
	}, nil
}

// SearchEvents returns the events overlapping [timeMin, timeMax] whose summary
// contains query, case-insensitively. Servers differ in text-match support, so
// the query is applied client-side.
func (c *CalDAVClient) SearchEvents(ctx context.Context, calendarID, query string, timeMin, timeMax time.Time) ([]*models.Event, error) {
	q := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompEvent, Start: timeMin, End: timeMax}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, calendarID, q)
	if err != nil {
		return nil, mapError(err, "failed to query calendar")
	}

	var cals []*ical.Calendar
	for _, obj := range objects {
		if obj.Data != nil {
			cals = append(cals, obj.Data)
		}
	}
	events := toInternalEvents(cals, query)
	c.logger.Debug("Fetched events from CalDAV server", "objects", len(objects), "matches", len(events))
	return events, nil
}

// toInternalEvents flattens the VEVENTs of cals, keeping those whose summary
// contains query.
func toInternalEvents(cals []*ical.Calendar, query string) []*models.Event {
	needle := strings.ToLower(query)
	var events []*models.Event
	for _, cal := range cals {
		for _, ev := range cal.Events() {
			summary, _ := ev.Props.Text(ical.PropSummary)
			if needle != "" && !strings.Contains(strings.ToLower(summary), needle) {
				continue
			}
			uid, _ := ev.Props.Text(ical.PropUID)
			description, _ := ev.Props.Text(ical.PropDescription)
			location, _ := ev.Props.Text(ical.PropLocation)
			start, _ := ev.DateTimeStart(time.UTC)
			end, _ := ev.DateTimeEnd(time.UTC)

			event := &models.Event{
				ID:          uid,
				UID:         uid,
				Title:       summary,
				Description: description,
				Location:    location,
				StartTime:   start,
				EndTime:     end,
				Source:      serviceName,
			}
			if org := ev.Props.Get(ical.PropOrganizer); org != nil {
				event.Organizer = strings.TrimPrefix(org.Value, "mailto:")
			}
			for _, a := range ev.Props.Values(ical.PropAttendee) {
				event.Attendees = append(event.Attendees, strings.TrimPrefix(a.Value, "mailto:"))
			}
			events = append(events, event)
		}
	}
	return events
}

// findCalendar discovers the user's calendars and returns the one with the
// matching name, or the first one when name is empty.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (*models.CalendarRef, error) {
	principalPath, err := c.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, mapError(err, "failed to find principal path")
	}

	homeSetPath, err := c.client.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, mapError(err, "failed to find calendar home set")
	}

	calendars, err := c.client.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, mapError(err, "failed to find calendars")
	}

	for _, cal := range calendars {
		if name == "" || cal.Name == name {
			return &models.CalendarRef{ID: cal.Path, Name: cal.Name, Primary: true}, nil
		}
	}
	return nil, fmt.Errorf("no calendar found with name '%s'", name)
}

// mapError keeps *models.AuthError from the transport and reports everything
// else as *models.APIError.
func mapError(err error, action string) error {
	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return &models.APIError{Service: serviceName, Message: fmt.Sprintf("%s: %v", action, err)}
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
