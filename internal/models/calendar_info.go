package models

import "smartcal/internal/jstext"

// DefaultTitle is the placeholder title models fall back to. An extraction that
// yields it is treated as having found no title.
const DefaultTitle = "새로운 일정"

// CalendarInfo is the structured record extracted from free text. Dates are kept
// as the model produced them; normalization happens when building a payload.
type CalendarInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Location    string `json:"location"`
	// Attendees holds strings, {"email": ...} objects or arbitrary objects.
	// Objects decoded from model output are Object values.
	Attendees []any  `json:"attendees"`
	Reminder  string `json:"reminder"`

	// Set only when a detailed analysis was merged in.
	EventType  string  `json:"eventType,omitempty"`
	Priority   string  `json:"priority,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// HasUsableTitle reports whether the title is neither empty nor the placeholder.
func (c *CalendarInfo) HasUsableTitle() bool {
	if c == nil {
		return false
	}
	title := jstext.TrimSpace(c.Title)
	return title != "" && title != DefaultTitle
}

// CalendarInfoFromMap coerces a decoded JSON object into a CalendarInfo.
// Fields of the wrong type are left empty rather than rejected.
func CalendarInfoFromMap(m map[string]any) *CalendarInfo {
	info := &CalendarInfo{
		Title:       stringField(m, "title"),
		Description: stringField(m, "description"),
		StartDate:   stringField(m, "startDate"),
		EndDate:     stringField(m, "endDate"),
		Location:    stringField(m, "location"),
		Reminder:    stringField(m, "reminder"),
		Attendees:   []any{},
	}
	if list, ok := m["attendees"].([]any); ok {
		info.Attendees = list
	}
	return info
}

// Event types, priorities and location kinds accepted from a detailed analysis.
var (
	EventTypes    = []string{"meeting", "appointment", "event", "reminder", "deadline"}
	Priorities    = []string{"urgent", "important", "normal", "low"}
	LocationTypes = []string{"physical", "online", "hybrid"}
)

// TimeAnalysis captures how the text expresses time. All fields are free text.
type TimeAnalysis struct {
	ExplicitTime string `json:"explicitTime,omitempty"`
	RelativeTime string `json:"relativeTime,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Recurring    string `json:"recurring,omitempty"`
}

// Participants lists who is mentioned in the text.
type Participants struct {
	Names []string `json:"names"`
	// Count is either a number or free text such as "여러 명".
	Count  any      `json:"count"`
	Emails []string `json:"emails"`
}

// LocationInfo describes where the event happens.
type LocationInfo struct {
	Type     string `json:"type"`
	Address  string `json:"address"`
	Room     string `json:"room"`
	Platform string `json:"platform"`
}

// FirstNonEmpty returns address, room or platform, whichever is set first.
func (l LocationInfo) FirstNonEmpty() string {
	for _, v := range []string{l.Address, l.Room, l.Platform} {
		if v != "" {
			return v
		}
	}
	return ""
}

// DetailedAnalysis is the optional secondary extraction result.
type DetailedAnalysis struct {
	EventType    string       `json:"eventType"`
	TimeAnalysis TimeAnalysis `json:"timeAnalysis"`
	Participants Participants `json:"participants"`
	Location     LocationInfo `json:"location"`
	Priority     string       `json:"priority"`
	Confidence   float64      `json:"confidence"`
}

// DefaultDetailedAnalysis is used when the analysis response cannot be decoded.
func DefaultDetailedAnalysis() *DetailedAnalysis {
	return &DetailedAnalysis{
		EventType:    "meeting",
		Participants: Participants{Names: []string{}, Count: 0, Emails: []string{}},
		Location:     LocationInfo{Type: "physical"},
		Priority:     "normal",
		Confidence:   0.5,
	}
}

// DetailedAnalysisFromMap coerces a decoded JSON object into a DetailedAnalysis.
// Missing or malformed fields take their defaults.
func DetailedAnalysisFromMap(m map[string]any) *DetailedAnalysis {
	a := DefaultDetailedAnalysis()
	a.EventType = enumField(m, "eventType", EventTypes, a.EventType)
	a.Priority = enumField(m, "priority", Priorities, a.Priority)

	if c, ok := m["confidence"].(float64); ok && c > 0 {
		a.Confidence = min(c, 1)
	}

	if t, ok := m["timeAnalysis"].(map[string]any); ok {
		a.TimeAnalysis = TimeAnalysis{
			ExplicitTime: stringField(t, "explicitTime"),
			RelativeTime: stringField(t, "relativeTime"),
			Duration:     stringField(t, "duration"),
			Recurring:    stringField(t, "recurring"),
		}
	}

	if p, ok := m["participants"].(map[string]any); ok {
		a.Participants.Names = stringSlice(p["names"])
		a.Participants.Emails = stringSlice(p["emails"])
		switch c := p["count"].(type) {
		case float64, string:
			a.Participants.Count = c
		}
	}

	if l, ok := m["location"].(map[string]any); ok {
		a.Location = LocationInfo{
			Type:     enumField(l, "type", LocationTypes, "physical"),
			Address:  stringField(l, "address"),
			Room:     stringField(l, "room"),
			Platform: stringField(l, "platform"),
		}
	}
	return a
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func enumField(m map[string]any, key string, allowed []string, def string) string {
	s := stringField(m, key)
	for _, v := range allowed {
		if s == v {
			return s
		}
	}
	return def
}

func stringSlice(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
