// Package pipeline registers an event from free text: extract, build the
// payload, check for a same-titled event nearby, then create it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"smartcal/internal/models"
	"smartcal/internal/payload"
)

// duplicateWindow widens the search around the new event on both sides.
const duplicateWindow = 30 * time.Minute

// Calendar is the capability a calendar backend provides.
type Calendar interface {
	PrimaryCalendar(ctx context.Context) (*models.CalendarRef, error)
	CreateEvent(ctx context.Context, calendarID string, p *models.EventPayload) (*models.CreatedEvent, error)
	SearchEvents(ctx context.Context, calendarID, query string, timeMin, timeMax time.Time) ([]*models.Event, error)
}

// Extractor turns text into a calendar record.
type Extractor interface {
	Extract(ctx context.Context, text string) (*models.CalendarInfo, error)
}

// Result is everything a registration produced.
type Result struct {
	Info      *models.CalendarInfo
	Payload   *models.EventPayload
	Calendar  *models.CalendarRef
	Event     *models.CreatedEvent
	Duplicate bool
	DryRun    bool
}

// Pipeline orchestrates a single text-to-event registration.
type Pipeline struct {
	logger    *slog.Logger
	extractor Extractor
	builder   *payload.Builder
	calendar  Calendar
	dryRun    bool
}

// New creates a Pipeline. calendar may be nil when only Preview is used.
func New(logger *slog.Logger, extractor Extractor, builder *payload.Builder, calendar Calendar, dryRun bool) *Pipeline {
	return &Pipeline{
		logger:    logger,
		extractor: extractor,
		builder:   builder,
		calendar:  calendar,
		dryRun:    dryRun,
	}
}

// Preview extracts and builds the payload without touching a calendar.
func (p *Pipeline) Preview(ctx context.Context, text string) (*Result, error) {
	info, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	built := p.builder.Build(info)
	p.logger.Debug("Built event payload", "summary", built.Summary, "start", built.Start.DateTime, "end", built.End.DateTime)
	return &Result{Info: info, Payload: built, DryRun: true}, nil
}

// Register runs the whole flow. Duplicates are still created and flagged. In
// dry-run mode everything except the final create is performed.
func (p *Pipeline) Register(ctx context.Context, text string) (*Result, error) {
	if p.calendar == nil {
		return nil, fmt.Errorf("no calendar backend configured")
	}

	res, err := p.Preview(ctx, text)
	if err != nil {
		return nil, err
	}
	res.DryRun = p.dryRun

	cal, err := p.calendar.PrimaryCalendar(ctx)
	if err != nil {
		return nil, err
	}
	res.Calendar = cal

	res.Duplicate = p.isDuplicate(ctx, cal.ID, res.Payload)

	if p.dryRun {
		p.logger.Info("[DRY RUN] Would create event", "summary", res.Payload.Summary, "calendarID", cal.ID, "duplicate", res.Duplicate)
		return res, nil
	}

	created, err := p.calendar.CreateEvent(ctx, cal.ID, res.Payload)
	if err != nil {
		return nil, err
	}
	created.IsDuplicate = res.Duplicate
	res.Event = created

	p.logger.Info("Event registered", "eventID", created.ID, "summary", created.Summary, "duplicate", res.Duplicate)
	return res, nil
}

// isDuplicate looks for an event with the same title, compared
// case-insensitively, within 30 minutes of the new one. A failed search
// counts as no duplicate.
func (p *Pipeline) isDuplicate(ctx context.Context, calendarID string, ev *models.EventPayload) bool {
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		p.logger.Warn("Skipping duplicate check, bad start time", "start", ev.Start.DateTime, "error", err)
		return false
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		p.logger.Warn("Skipping duplicate check, bad end time", "end", ev.End.DateTime, "error", err)
		return false
	}

	events, err := p.calendar.SearchEvents(ctx, calendarID, ev.Summary, start.Add(-duplicateWindow), end.Add(duplicateWindow))
	if err != nil {
		p.logger.Warn("Duplicate check failed, continuing", "error", err)
		return false
	}
	for _, existing := range events {
		if strings.EqualFold(existing.Title, ev.Summary) {
			p.logger.Info("Found event with the same title", "summary", ev.Summary, "existingID", existing.ID)
			return true
		}
	}
	return false
}
