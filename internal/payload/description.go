package payload

import (
	"regexp"

	"smartcal/internal/jstext"
)

// The passes run in this order; changing it changes the output.
var descriptionPasses = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{jstext.MustCompile(`\.\s+`), ".\n"},
	// A hyphen followed by a digit is part of a date and stays put.
	{jstext.MustCompile(`([^\n])\s*-\s*([^\d])`), "${1}\n- ${2}"},
	{jstext.MustCompile(`:\s+`), ":\n"},
	{regexp.MustCompile(`([^\n])(\()`), "${1}\n${2}"},
	{regexp.MustCompile(`(진행\))(,)`), "${1}\n${2}"},
	{regexp.MustCompile(`\n\n\n+`), "\n\n"},
}

// ImproveFormatting breaks a one-line description into readable lines. It is a
// heuristic prettifier, not a grammar-aware formatter.
func ImproveFormatting(text string) string {
	if text == "" {
		return text
	}
	for _, p := range descriptionPasses {
		text = p.pattern.ReplaceAllString(text, p.repl)
	}
	return jstext.TrimSpace(text)
}
