package models

// EventPayload is the request body sent to a calendar backend. Field names
// follow the Google Calendar v3 wire format.
type EventPayload struct {
	Summary     string        `json:"summary"`
	Description string        `json:"description,omitempty"`
	Location    string        `json:"location,omitempty"`
	Start       EventDateTime `json:"start"`
	End         EventDateTime `json:"end"`
	Attendees   []Attendee    `json:"attendees,omitempty"`
	Reminders   Reminders     `json:"reminders"`
}

// EventDateTime is an RFC 3339 timestamp plus the IANA zone it should be shown in.
type EventDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type Attendee struct {
	Email string `json:"email"`
}

type Reminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []ReminderOverride `json:"overrides"`
}

type ReminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

// ReminderMinutes returns the first override's lead time, or 0 if none is set.
func (p *EventPayload) ReminderMinutes() int {
	if len(p.Reminders.Overrides) == 0 {
		return 0
	}
	return p.Reminders.Overrides[0].Minutes
}

// AttendeeEmails flattens the attendee list.
func (p *EventPayload) AttendeeEmails() []string {
	emails := make([]string, 0, len(p.Attendees))
	for _, a := range p.Attendees {
		emails = append(emails, a.Email)
	}
	return emails
}
