package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"smartcal/internal/jstext"
	"smartcal/internal/models"
)

// Stage names the decode attempt that produced a record.
type Stage string

const (
	StageDirect    Stage = "direct"
	StageJSONFence Stage = "json_fence"
	StageFence     Stage = "fence"
	StageBalanced  Stage = "balanced"
	StageLazyBrace Stage = "lazy_brace"
	StageArray     Stage = "array"
	StageSlice     Stage = "slice"
	StageCleaned   Stage = "cleaned"
	StageHeuristic Stage = "heuristic"
)

var (
	jsonFencePattern = jstext.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fencePattern     = jstext.MustCompile("(?s)```\\s*(.*?)\\s*```")
	balancedPattern  = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
	lazyBracePattern = regexp.MustCompile(`(?s)\{.*?\}`)
	arrayPattern     = regexp.MustCompile(`(?s)\[.*\]`)

	fenceMarkerPattern = regexp.MustCompile("```[a-zA-Z]*\\n?")
	outerBracePattern  = regexp.MustCompile(`(?s)^[^{]*(\{.*\})[^}]*$`)
)

// ExtractJSON recovers a JSON object from model output that may be wrapped in
// prose or code fences. It returns nil when no candidate decodes.
//
// Candidates are tried in this order, and a candidate that fails to decode
// falls through to the next one:
//
//  1. the interior of a ```json fenced block
//  2. any fenced block whose trimmed interior is wrapped in braces
//  3. the longest balanced-brace substring (one nesting level; the later one on ties)
//  4. the first non-greedy {...}
//  5. the greedy [...], using its first element when that is an object
//  6. everything from the first { to the last }
//
// When several JSON-like fragments are present there is no guarantee the
// chosen one is the intended record.
func ExtractJSON(raw string) map[string]any {
	obj, _, _ := extractJSONStage(raw)
	return obj
}

type candidate struct {
	stage Stage
	find  func(s string) (string, bool)
}

var candidates = []candidate{
	{StageJSONFence, func(s string) (string, bool) {
		m := jsonFencePattern.FindStringSubmatch(s)
		if m == nil {
			return "", false
		}
		return m[1], true
	}},
	{StageFence, func(s string) (string, bool) {
		m := fencePattern.FindStringSubmatch(s)
		if m == nil {
			return "", false
		}
		block := jstext.TrimSpace(m[1])
		if !strings.HasPrefix(block, "{") || !strings.HasSuffix(block, "}") {
			return "", false
		}
		return block, true
	}},
	{StageBalanced, func(s string) (string, bool) {
		matches := balancedPattern.FindAllString(s, -1)
		if len(matches) == 0 {
			return "", false
		}
		longest := matches[0]
		for _, m := range matches[1:] {
			if utf8.RuneCountInString(m) >= utf8.RuneCountInString(longest) {
				longest = m
			}
		}
		return longest, true
	}},
	{StageLazyBrace, func(s string) (string, bool) {
		m := lazyBracePattern.FindString(s)
		return m, m != ""
	}},
	{StageArray, func(s string) (string, bool) {
		m := arrayPattern.FindString(s)
		return m, m != ""
	}},
	{StageSlice, func(s string) (string, bool) {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start == -1 || end <= start {
			return "", false
		}
		return s[start : end+1], true
	}},
}

// extractJSONStage is ExtractJSON that also reports which stage won and the
// decode failures of the stages tried before it.
func extractJSONStage(raw string) (map[string]any, Stage, []*ParseError) {
	s := jstext.TrimSpace(raw)
	var failures []*ParseError
	for _, c := range candidates {
		text, ok := c.find(s)
		if !ok {
			continue
		}
		var (
			obj map[string]any
			err error
		)
		if c.stage == StageArray {
			obj, err = decodeFirstObject(text)
		} else {
			obj, err = decodeObject(text)
		}
		if err != nil {
			failures = append(failures, &ParseError{Stage: c.stage, Err: err})
			continue
		}
		return obj, c.stage, failures
	}
	return nil, "", failures
}

// decodeObject decodes s and requires the top-level value to be an object.
// Object entries of "attendees" keep their key order.
func decodeObject(s string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	orderAttendees(s, obj)
	return obj, nil
}

func orderAttendees(s string, obj map[string]any) {
	list, ok := obj["attendees"].([]any)
	if !ok {
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(fields["attendees"], &raw); err != nil || len(raw) != len(list) {
		return
	}
	for i, item := range list {
		if _, ok := item.(map[string]any); !ok {
			continue
		}
		if o, err := models.DecodeObject(raw[i]); err == nil {
			list[i] = o
		}
	}
}

func decodeFirstObject(s string) (map[string]any, error) {
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errNotObject
	}
	return decodeObject(string(list[0]))
}

// CleanResponse is a best-effort rewrite of raw model output for one more
// decode attempt: it trims, drops fence markers, keeps only the outermost
// {...} when prose surrounds it and unescapes \", \n and \t.
func CleanResponse(raw string) string {
	cleaned := jstext.TrimSpace(raw)
	cleaned = fenceMarkerPattern.ReplaceAllString(cleaned, "")
	cleaned = outerBracePattern.ReplaceAllString(cleaned, "$1")
	cleaned = strings.ReplaceAll(cleaned, `\"`, `"`)
	cleaned = strings.ReplaceAll(cleaned, `\n`, "\n")
	cleaned = strings.ReplaceAll(cleaned, `\t`, "\t")
	return cleaned
}
