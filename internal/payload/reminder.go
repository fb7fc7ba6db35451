package payload

import (
	"regexp"
	"strconv"
	"strings"

	"smartcal/internal/jstext"
)

const (
	DefaultReminderMinutes = 15
	MinReminderMinutes     = 1
	// Google Calendar rejects overrides longer than four weeks.
	MaxReminderMinutes = 40320
)

// Units are tried in this order, not by position in the text.
var reminderUnits = []struct {
	pattern    *regexp.Regexp
	multiplier int
}{
	{jstext.MustCompile(`(\d+)\s*분`), 1},
	{jstext.MustCompile(`(\d+)\s*시간`), 60},
	{jstext.MustCompile(`(\d+)\s*일`), 24 * 60},
	{jstext.MustCompile(`(\d+)\s*주`), 7 * 24 * 60},
}

// ParseReminderTime turns text like "30분 전" or "2시간 전" into minutes.
// Empty or unrecognized text yields 15; results are clamped to [1, 40320].
func ParseReminderTime(text string) int {
	if text == "" {
		return DefaultReminderMinutes
	}
	text = strings.ToLower(text)
	for _, u := range reminderUnits {
		m := u.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n > MaxReminderMinutes {
			// Out of int range or already past the cap in any unit.
			return MaxReminderMinutes
		}
		return clampReminder(n * u.multiplier)
	}
	return DefaultReminderMinutes
}

func clampReminder(minutes int) int {
	return max(MinReminderMinutes, min(minutes, MaxReminderMinutes))
}
