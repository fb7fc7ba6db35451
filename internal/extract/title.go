package extract

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"smartcal/internal/jstext"
)

const (
	minTitleLen   = 2
	maxTitleLen   = 30
	maxKeywords   = 5
	titleKeywords = 2
)

var (
	colonTitlePattern = regexp.MustCompile(`^([^:]+):`)

	// Tried in order against the first line.
	titlePatterns = []*regexp.Regexp{
		jstext.MustCompile(`(?i)(팀\s*미팅)`),
		jstext.MustCompile(`(?i)(고객\s*상담)`),
		jstext.MustCompile(`(?i)(프로젝트\s*[가-힣a-zA-Z]+)`),
		jstext.MustCompile(`(?i)([가-힣a-zA-Z]+\s*미팅)`),
		jstext.MustCompile(`(?i)([가-힣a-zA-Z]+\s*회의)`),
		jstext.MustCompile(`(?i)([가-힣a-zA-Z]+\s*이벤트)`),
		jstext.MustCompile(`(?i)([가-힣a-zA-Z]+\s*배포)`),
		jstext.MustCompile(`(?i)([가-힣a-zA-Z]+\s*마감일)`),
		jstext.MustCompile(`(?i)(Zoom\s*미팅)`),
		jstext.MustCompile(`(?i)(Teams\s*미팅)`),
	}

	leadingRunPattern = jstext.MustCompile(`^([가-힣a-zA-Z0-9\s\-\(\)]{2,20})`)

	timeExpressionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,2}시`),
		regexp.MustCompile(`^\d{1,2}분`),
		regexp.MustCompile(`^오전`),
		regexp.MustCompile(`^오후`),
		regexp.MustCompile(`^내일`),
		regexp.MustCompile(`^오늘`),
		regexp.MustCompile(`^다음주`),
		regexp.MustCompile(`^\d{4}년`),
		regexp.MustCompile(`^\d{1,2}월`),
		regexp.MustCompile(`^\d{1,2}일`),
		regexp.MustCompile(`^월요일`),
		regexp.MustCompile(`^화요일`),
		regexp.MustCompile(`^수요일`),
		regexp.MustCompile(`^목요일`),
		regexp.MustCompile(`^금요일`),
		regexp.MustCompile(`^토요일`),
		regexp.MustCompile(`^일요일`),
	}

	koreanWordPattern  = regexp.MustCompile(`[가-힣]{2,}`)
	englishWordPattern = regexp.MustCompile(`[a-zA-Z]{3,}`)
	numberWordPattern  = regexp.MustCompile(`[가-힣a-zA-Z]*[0-9]+[가-힣a-zA-Z]*`)
)

// Particles, pronouns and calendar-generic nouns that never make a title.
var commonWords = map[string]struct{}{
	"이": {}, "그": {}, "저": {}, "이것": {}, "그것": {}, "저것": {},
	"있": {}, "없": {}, "하": {}, "되": {}, "보": {}, "들": {}, "것": {},
	"일": {}, "때": {}, "곳": {}, "수": {}, "말": {}, "년": {}, "월": {},
	"시": {}, "분": {}, "초": {}, "오전": {}, "오후": {}, "내일": {}, "오늘": {},
	"회의": {}, "미팅": {}, "약속": {}, "일정": {}, "이벤트": {},
}

// ExtractTitle derives an event title from raw text without a model. Only the
// first non-empty line is considered by the first three rules:
//
//  1. the text before the first colon, if 2-30 characters and not a common word
//  2. the first domain keyword pattern match (meeting, consultation, project, ...)
//  3. a leading run of up to 20 word characters that is neither a common word
//     nor a time expression
//
// Otherwise the two longest keywords of the whole text are joined. ok is false
// when nothing usable was found.
func ExtractTitle(text string) (title string, ok bool) {
	if firstLine, found := firstNonEmptyLine(text); found {
		if m := colonTitlePattern.FindStringSubmatch(firstLine); m != nil {
			t := jstext.TrimSpace(m[1])
			if titleLength(t) && !IsCommonWord(t) {
				return t, true
			}
		}

		for _, p := range titlePatterns {
			if m := p.FindStringSubmatch(firstLine); m != nil {
				t := jstext.TrimSpace(m[1])
				if titleLength(t) {
					return t, true
				}
			}
		}

		if m := leadingRunPattern.FindStringSubmatch(firstLine); m != nil {
			t := jstext.TrimSpace(m[1])
			if !IsCommonWord(t) && !IsTimeExpression(t) {
				return t, true
			}
		}
	}

	var meaningful []string
	for _, k := range Keywords(text) {
		if !IsCommonWord(k) && !IsTimeExpression(k) {
			meaningful = append(meaningful, k)
		}
	}
	if len(meaningful) == 0 {
		return "", false
	}
	return strings.Join(meaningful[:min(titleKeywords, len(meaningful))], " "), true
}

func firstNonEmptyLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := jstext.TrimSpace(line); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

func titleLength(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= minTitleLen && n <= maxTitleLen
}

// IsCommonWord reports whether word is on the stoplist.
func IsCommonWord(word string) bool {
	_, ok := commonWords[strings.ToLower(word)]
	return ok
}

// IsTimeExpression reports whether s starts like a date, time or weekday.
func IsTimeExpression(s string) bool {
	for _, p := range timeExpressionPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Keywords returns up to five distinct noun-like tokens of text, longest
// first: Hangul runs of two or more, English words of three or more letters
// and tokens containing digits.
func Keywords(text string) []string {
	var all []string
	all = append(all, koreanWordPattern.FindAllString(text, -1)...)
	all = append(all, englishWordPattern.FindAllString(text, -1)...)
	all = append(all, numberWordPattern.FindAllString(text, -1)...)

	seen := make(map[string]struct{}, len(all))
	unique := make([]string, 0, len(all))
	for _, k := range all {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return utf8.RuneCountInString(unique[i]) > utf8.RuneCountInString(unique[j])
	})
	return slices.Clip(unique[:min(maxKeywords, len(unique))])
}
