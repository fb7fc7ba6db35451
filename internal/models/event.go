package models

import "time"

// Event represents an existing calendar event returned by a calendar backend.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID          string    // Unique identifier for the event in the source calendar
	Title       string    // Summary or title of the event
	Description string    // Detailed description of the event
	StartTime   time.Time // Start time of the event
	EndTime     time.Time // End time of the event
	Location    string    // Location of the event
	Organizer   string    // Organizer's email
	Attendees   []string  // List of attendee emails
	Source      string    // The source of the event (e.g., "google-primary")
	UID         string    // The iCalendar UID
	HTMLLink    string    // Link to the event in the provider's web UI, if any
}

// CalendarRef identifies a calendar on a backend.
type CalendarRef struct {
	ID       string
	Name     string
	TimeZone string
	Primary  bool
}

// CreatedEvent is what a backend reports back after inserting an event.
type CreatedEvent struct {
	ID          string `json:"eventId"`
	Summary     string `json:"summary"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	HTMLLink    string `json:"htmlLink,omitempty"`
	Location    string `json:"location"`
	Description string `json:"description"`
	IsDuplicate bool   `json:"isDuplicate"`
}
