package google

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"smartcal/internal/models"
	"smartcal/internal/store"
)

const (
	credentialsFile = "credentials.json"
	serviceName     = "google-calendar"
	tokenKeyPrefix  = "google.token."
)

var scopes = []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope}

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient creates a Google Calendar client for accountName. The account's
// token is read from st; refreshed tokens are written back to st.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName string, st *store.Store) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	var token oauth2.Token
	found, err := st.Get(tokenKey(accountName), &token)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w", accountName, err)
	}
	if !found {
		return nil, &models.AuthError{Service: serviceName, StatusCode: 401, Kind: models.AuthReauthenticate}
	}

	ts := oauth2.ReuseTokenSource(&token, &persistingTokenSource{
		base:    config.TokenSource(ctx, &token),
		store:   st,
		account: accountName,
		last:    token.AccessToken,
		logger:  logger,
	})
	return NewClientWithOptions(ctx, logger, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
}

// NewClientWithOptions creates a client from raw API options, e.g. an
// endpoint and HTTP client in tests.
func NewClientWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, logger: logger}, nil
}

// PrimaryCalendar returns the account's primary calendar. If the calendar list
// does not flag one, the "primary" alias is returned.
func (c *CalendarClient) PrimaryCalendar(ctx context.Context) (*models.CalendarRef, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, mapError(err, "failed to list calendars")
	}
	for _, item := range list.Items {
		if item.Primary {
			c.logger.Debug("Found primary calendar", "calendarID", item.Id)
			return &models.CalendarRef{ID: item.Id, Name: item.Summary, TimeZone: item.TimeZone, Primary: true}, nil
		}
	}
	c.logger.Warn("No calendar flagged as primary, using alias", "calendars", len(list.Items))
	return &models.CalendarRef{ID: "primary", Name: "primary", Primary: true}, nil
}

// CreateEvent inserts the payload into calendarID.
func (c *CalendarClient) CreateEvent(ctx context.Context, calendarID string, p *models.EventPayload) (*models.CreatedEvent, error) {
	c.logger.Debug("Creating event", "calendarID", calendarID, "summary", p.Summary, "start", p.Start.DateTime)

	created, err := c.service.Events.Insert(calendarID, toGoogleEvent(p)).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err, "failed to create event")
	}

	c.logger.Info("Created event in Google Calendar", "eventID", created.Id, "calendarID", calendarID)
	out := &models.CreatedEvent{
		ID:          created.Id,
		Summary:     created.Summary,
		HTMLLink:    created.HtmlLink,
		Location:    created.Location,
		Description: created.Description,
	}
	if created.Start != nil {
		out.StartTime = created.Start.DateTime
	}
	if created.End != nil {
		out.EndTime = created.End.DateTime
	}
	return out, nil
}

// SearchEvents lists single events in [timeMin, timeMax] matching the free
// text query.
func (c *CalendarClient) SearchEvents(ctx context.Context, calendarID, query string, timeMin, timeMax time.Time) ([]*models.Event, error) {
	c.logger.Debug("Searching events", "calendarID", calendarID, "query", query, "timeMin", timeMin, "timeMax", timeMax)

	events, err := c.service.Events.List(calendarID).
		Context(ctx).
		Q(query).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, mapError(err, "failed to search events")
	}

	c.logger.Debug("Fetched events from Google Calendar", "count", len(events.Items), "calendarID", calendarID)
	return toInternalEvents(events.Items, calendarID), nil
}

func toGoogleEvent(p *models.EventPayload) *calendar.Event {
	ev := &calendar.Event{
		Summary:     p.Summary,
		Description: p.Description,
		Location:    p.Location,
		Start:       &calendar.EventDateTime{DateTime: p.Start.DateTime, TimeZone: p.Start.TimeZone},
		End:         &calendar.EventDateTime{DateTime: p.End.DateTime, TimeZone: p.End.TimeZone},
		Reminders: &calendar.EventReminders{
			UseDefault: p.Reminders.UseDefault,
			// UseDefault=false is dropped from the request unless forced.
			ForceSendFields: []string{"UseDefault"},
		},
	}
	for _, a := range p.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: a.Email})
	}
	for _, o := range p.Reminders.Overrides {
		ev.Reminders.Overrides = append(ev.Reminders.Overrides, &calendar.EventReminder{Method: o.Method, Minutes: int64(o.Minutes)})
	}
	return ev
}

// toInternalEvents converts Google Calendar events to the internal Event model.
func toInternalEvents(googleEvents []*calendar.Event, source string) []*models.Event {
	var internalEvents []*models.Event
	for _, item := range googleEvents {
		if item.Start == nil || item.End == nil {
			continue
		}

		var attendees []string
		for _, a := range item.Attendees {
			attendees = append(attendees, a.Email)
		}

		event := &models.Event{
			ID:          item.Id,
			Title:       item.Summary,
			Description: item.Description,
			StartTime:   parseEventTime(item.Start),
			EndTime:     parseEventTime(item.End),
			Location:    item.Location,
			Attendees:   attendees,
			UID:         item.ICalUID,
			Source:      fmt.Sprintf("google-%s", source),
			HTMLLink:    item.HtmlLink,
		}
		if item.Organizer != nil {
			event.Organizer = item.Organizer.Email
		}
		internalEvents = append(internalEvents, event)
	}
	return internalEvents
}

// parseEventTime handles timed and all-day events.
func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, dt.DateTime)
		return t
	}
	t, _ := time.Parse(time.DateOnly, dt.Date)
	return t
}

// mapError turns 401 and 403 into *models.AuthError and other API failures
// into *models.APIError. An expired refresh token also asks for a new login.
func mapError(err error, action string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if authErr := models.AuthErrorFromStatus(serviceName, gerr.Code); authErr != nil {
			return authErr
		}
		return &models.APIError{Service: serviceName, StatusCode: gerr.Code, Message: gerr.Message}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return &models.AuthError{Service: serviceName, StatusCode: 401, Kind: models.AuthReauthenticate}
	}
	return fmt.Errorf("%s: %w", action, err)
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb exchanges an authorization code for a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, strings.TrimSpace(authCode))
}

// SaveToken stores the token for accountName.
func SaveToken(st *store.Store, accountName string, token *oauth2.Token) error {
	if err := st.Set(tokenKey(accountName), token); err != nil {
		return fmt.Errorf("unable to save token: %w", err)
	}
	return nil
}

// TokenAccounts lists the accounts that have a stored token.
func TokenAccounts(st *store.Store) []string {
	var accounts []string
	for _, key := range st.Keys(tokenKeyPrefix) {
		accounts = append(accounts, strings.TrimPrefix(key, tokenKeyPrefix))
	}
	return accounts
}

func tokenKey(accountName string) string {
	return tokenKeyPrefix + accountName
}

// persistingTokenSource writes every newly minted access token back to the store.
type persistingTokenSource struct {
	base    oauth2.TokenSource
	store   *store.Store
	account string
	last    string
	logger  *slog.Logger
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := SaveToken(p.store, p.account, tok); err != nil {
			p.logger.Error("Failed to persist refreshed token", "account", p.account, "error", err)
		} else {
			p.logger.Info("Refreshed Google token saved", "account", p.account)
		}
	}
	return tok, nil
}
