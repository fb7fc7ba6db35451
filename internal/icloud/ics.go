package icloud

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"smartcal/internal/models"
)

const productID = "-//smartcal//KO"

// EncodeEvent writes the payload as a standalone iCalendar document.
func EncodeEvent(w io.Writer, uid string, p *models.EventPayload, stamp time.Time) error {
	cal, err := buildCalendar(uid, p, stamp)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	return nil
}

// buildCalendar wraps the VEVENT for p in a VCALENDAR.
func buildCalendar(uid string, p *models.EventPayload, stamp time.Time) (*ical.Calendar, error) {
	vevent, err := toICal(uid, p, stamp)
	if err != nil {
		return nil, err
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, vevent)
	return cal, nil
}

// toICal converts a payload to a VEVENT, with a display VALARM for the reminder.
// Times are written in UTC.
func toICal(uid string, p *models.EventPayload, stamp time.Time) (*ical.Component, error) {
	start, err := time.Parse(time.RFC3339, p.Start.DateTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", p.Start.DateTime, err)
	}
	end, err := time.Parse(time.RFC3339, p.End.DateTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end time %q: %w", p.End.DateTime, err)
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, p.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())

	if p.Description != "" {
		ve.Props.SetText(ical.PropDescription, p.Description)
	}
	if p.Location != "" {
		ve.Props.SetText(ical.PropLocation, p.Location)
	}
	for _, a := range p.Attendees {
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + a.Email
		ve.Props.Add(prop)
	}

	for _, o := range p.Reminders.Overrides {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, p.Summary)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = fmt.Sprintf("-PT%dM", o.Minutes)
		alarm.Props.Set(trigger)
		ve.Children = append(ve.Children, alarm)
	}
	return ve, nil
}
