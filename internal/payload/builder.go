// Package payload turns an extracted CalendarInfo into the event payload a
// calendar backend accepts. Building never fails: invalid input is replaced
// with documented defaults.
package payload

import (
	"log/slog"
	"time"

	"smartcal/internal/attendee"
	"smartcal/internal/jstext"
	"smartcal/internal/models"
)

const (
	// TimeZone is attached to every start and end.
	TimeZone = "Asia/Seoul"

	defaultDuration  = time.Hour
	defaultStartHour = 9
)

// Layouts without a zone are read in the builder's location.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

// Builder converts CalendarInfo records into EventPayloads.
type Builder struct {
	logger   *slog.Logger
	now      func() time.Time
	location *time.Location
}

// NewBuilder returns a Builder that reads the wall clock and works in Asia/Seoul.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger, now: time.Now, location: SeoulLocation()}
}

// WithClock replaces the time source; used to make builds reproducible.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// SeoulLocation loads Asia/Seoul, falling back to a fixed +09:00 zone when the
// tz database is unavailable. Korea has no daylight saving time.
func SeoulLocation() *time.Location {
	loc, err := time.LoadLocation(TimeZone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// Build produces a payload for info.
func (b *Builder) Build(info *models.CalendarInfo) *models.EventPayload {
	if info == nil {
		info = &models.CalendarInfo{}
	}

	start, ok := b.parseDate(info.StartDate)
	if !ok {
		start = b.now().In(b.location)
		b.logger.Warn("Start date is not valid, using current time.", "startDate", info.StartDate)
	}
	end, ok := b.parseDate(info.EndDate)
	if !ok {
		b.logger.Warn("End date is not valid, using start + 1h.", "endDate", info.EndDate)
		end = start.Add(defaultDuration)
	} else if !end.After(start) {
		b.logger.Warn("End is not after start, using start + 1h.", "start", start, "end", end)
		end = start.Add(defaultDuration)
	}

	title := jstext.TrimSpace(info.Title)
	if title == "" {
		title = models.DefaultTitle
	}

	p := &models.EventPayload{
		Summary:     title,
		Description: ImproveFormatting(jstext.TrimSpace(info.Description)),
		Location:    jstext.TrimSpace(info.Location),
		Start:       models.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: TimeZone},
		End:         models.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: TimeZone},
		Attendees:   b.attendees(info.Attendees),
		Reminders: models.Reminders{
			UseDefault: false,
			Overrides: []models.ReminderOverride{
				{Method: "popup", Minutes: ParseReminderTime(info.Reminder)},
			},
		},
	}

	b.logger.Debug("Built event payload",
		"summary", p.Summary,
		"start", p.Start.DateTime,
		"end", p.End.DateTime,
		"attendees", len(p.Attendees),
		"reminderMinutes", p.ReminderMinutes(),
	)
	return p
}

// attendees keeps entries with a valid address. Dropped entries are logged.
func (b *Builder) attendees(list []any) []models.Attendee {
	var out []models.Attendee
	for _, entry := range list {
		email := attendee.EmailOf(entry)
		if !attendee.IsValidEmail(email) {
			b.logger.Info("Dropping attendee without a valid email address.", "attendee", entry)
			continue
		}
		out = append(out, models.Attendee{Email: email})
	}
	return out
}

// parseDate reads the date formats models tend to produce. A bare date is
// placed at 09:00, the same default the extraction prompt asks for.
func (b *Builder) parseDate(s string) (time.Time, bool) {
	s = jstext.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(b.location), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, b.location); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", s, b.location); err == nil {
		return t.Add(defaultStartHour * time.Hour), true
	}
	return time.Time{}, false
}
