// Package extract turns free text into a CalendarInfo record. A language model
// does the heavy lifting; JSON recovery and title heuristics cover the cases
// where its answer is not clean JSON.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"smartcal/internal/attendee"
	"smartcal/internal/jstext"
	"smartcal/internal/llm"
	"smartcal/internal/models"
)

const (
	extractTemperature  = 0.3
	classifyTemperature = 0.2
	defaultSummaryLen   = 200
	summaryFallbackLen  = 100
)

// Extractor calls the model and normalizes its answer.
type Extractor struct {
	provider llm.Provider
	logger   *slog.Logger
	now      func() time.Time
	detailed bool
}

// NewExtractor creates an extractor backed by provider.
func NewExtractor(provider llm.Provider, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for prompts and heuristic records.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// WithDetailedAnalysis enables the secondary analysis request whose result is
// merged into every extracted record.
func (e *Extractor) WithDetailedAnalysis(enabled bool) *Extractor {
	e.detailed = enabled
	return e
}

// Extract returns the calendar record described by text. Model failures are
// returned wrapped (errors.As reaches *models.APIError). When no usable title
// can be found the error is an *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, text string) (*models.CalendarInfo, error) {
	if jstext.TrimSpace(text) == "" {
		extractionsTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, &ExtractionError{Reason: ReasonExtractFailed}
	}

	now := e.now()
	var (
		raw      string
		analysis *models.DetailedAnalysis
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := e.generate(gctx, "extract", extractionPrompt(text, now), llm.Options{Temperature: extractTemperature})
		if err != nil {
			return fmt.Errorf("일정 정보 추출 실패: %w", err)
		}
		raw = r
		return nil
	})
	if e.detailed {
		g.Go(func() error {
			a, err := e.Analyze(gctx, text)
			if err != nil {
				e.logger.Warn("Detailed analysis failed, keeping base record", "error", err)
				return nil
			}
			analysis = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		extractionsTotal.WithLabelValues(outcomeError).Inc()
		return nil, err
	}

	info, stage := e.decode(raw)
	if info != nil && !info.HasUsableTitle() {
		e.logger.Info("Model returned no usable title", "title", info.Title, "stage", stage)
		info = nil
	}

	outcome := outcomeSuccess
	if info == nil {
		title, ok := ExtractTitle(text)
		if !ok {
			e.logger.Warn("No title could be derived from text", "textLen", utf8.RuneCountInString(text))
			extractionsTotal.WithLabelValues(outcomeFailed).Inc()
			return nil, &ExtractionError{Reason: ReasonExtractFailed}
		}
		e.logger.Info("Using heuristic title", "title", title)
		info = &models.CalendarInfo{
			Title:       title,
			Description: text,
			StartDate:   now.Format(time.RFC3339),
			EndDate:     now.Add(time.Hour).Format(time.RFC3339),
			Attendees:   []any{},
		}
		stage = StageHeuristic
		outcome = outcomeHeuristic
	}
	recoveryStageTotal.WithLabelValues(string(stage)).Inc()
	extractionsTotal.WithLabelValues(outcome).Inc()

	if analysis != nil {
		mergeAnalysis(info, analysis)
		e.logger.Debug("Merged detailed analysis",
			"eventType", info.EventType,
			"priority", info.Priority,
			"attendees", len(info.Attendees),
		)
	}
	return info, nil
}

// decode runs the recovery chain: direct decode, the six fallback stages, then
// one more attempt on the cleaned response.
func (e *Extractor) decode(raw string) (*models.CalendarInfo, Stage) {
	obj, err := decodeObject(jstext.TrimSpace(raw))
	if err == nil {
		return models.CalendarInfoFromMap(obj), StageDirect
	}
	e.logger.Debug("Direct decode failed", "error", err, "responseLen", len(raw))

	obj, stage, failures := extractJSONStage(raw)
	for _, f := range failures {
		e.logger.Debug("Recovery stage failed", "stage", f.Stage, "error", f.Err)
	}
	if obj != nil {
		return models.CalendarInfoFromMap(obj), stage
	}

	if cleaned := CleanResponse(raw); cleaned != raw {
		obj, err := decodeObject(cleaned)
		if err == nil {
			return models.CalendarInfoFromMap(obj), StageCleaned
		}
		e.logger.Debug("Cleaned response did not decode", "error", err)
	}
	return nil, ""
}

// mergeAnalysis folds a detailed analysis into info.
func mergeAnalysis(info *models.CalendarInfo, a *models.DetailedAnalysis) {
	info.EventType = a.EventType
	info.Priority = a.Priority
	info.Confidence = a.Confidence
	info.Attendees = attendee.Strings(attendee.MergeAndValidate(info.Attendees, attendee.Strings(a.Participants.Emails)))
	if loc := a.Location.FirstNonEmpty(); loc != "" {
		info.Location = loc
	}
}

// Analyze asks the model for a DetailedAnalysis. An answer that cannot be
// decoded yields the default analysis rather than an error.
func (e *Extractor) Analyze(ctx context.Context, text string) (*models.DetailedAnalysis, error) {
	raw, err := e.generate(ctx, "analyze", analysisPrompt(text, e.now()), llm.Options{Temperature: extractTemperature})
	if err != nil {
		return nil, fmt.Errorf("일정 분석 실패: %w", err)
	}
	obj, err := decodeObject(jstext.TrimSpace(raw))
	if err != nil {
		obj = ExtractJSON(raw)
	}
	if obj == nil {
		e.logger.Warn("Analysis response did not decode, using defaults")
		return models.DefaultDetailedAnalysis(), nil
	}
	return models.DetailedAnalysisFromMap(obj), nil
}

// Summarize returns a summary of at most maxLen characters. On any model
// failure it falls back to the first hundred characters of text.
func (e *Extractor) Summarize(ctx context.Context, text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = defaultSummaryLen
	}
	summary, err := e.generate(ctx, "summarize", summaryPrompt(text, maxLen), llm.Options{Temperature: extractTemperature})
	if err != nil {
		e.logger.Error("Summary generation failed", "error", err)
		return fallbackSummary(text)
	}
	return jstext.TrimSpace(summary)
}

func fallbackSummary(text string) string {
	runes := []rune(text)
	return "요약: " + string(runes[:min(summaryFallbackLen, len(runes))]) + "..."
}

// Classification is the model's guess at what kind of text it was given.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Categories accepted from Classify.
var Categories = []string{"calendar", "note", "message", "other"}

// Classify sorts text into one of Categories. An undecodable answer becomes
// {other, 0.5, "분류 실패"}; model errors are returned.
func (e *Extractor) Classify(ctx context.Context, text string) (*Classification, error) {
	raw, err := e.generate(ctx, "classify", classifyPrompt(text), llm.Options{Temperature: classifyTemperature})
	if err != nil {
		return nil, fmt.Errorf("텍스트 분류 실패: %w", err)
	}
	fallback := &Classification{Category: "other", Confidence: 0.5, Reason: "분류 실패"}

	obj, err := decodeObject(jstext.TrimSpace(raw))
	if err != nil {
		obj = ExtractJSON(raw)
	}
	if obj == nil {
		return fallback, nil
	}

	c := &Classification{Category: "other", Confidence: 0.5}
	if cat, ok := obj["category"].(string); ok {
		for _, allowed := range Categories {
			if cat == allowed {
				c.Category = cat
			}
		}
	}
	if conf, ok := obj["confidence"].(float64); ok && conf >= 0 && conf <= 1 {
		c.Confidence = conf
	}
	c.Reason, _ = obj["reason"].(string)
	return c, nil
}

// Tags asks the model for three to five comma-separated topic tags.
func (e *Extractor) Tags(ctx context.Context, text string) ([]string, error) {
	raw, err := e.generate(ctx, "tags", tagsPrompt(text), llm.Options{Temperature: extractTemperature})
	if err != nil {
		return nil, fmt.Errorf("태그 추출 실패: %w", err)
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = jstext.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

func (e *Extractor) generate(ctx context.Context, operation, prompt string, opts llm.Options) (string, error) {
	start := time.Now()
	resp, err := e.provider.Generate(ctx, prompt, opts)
	llmLatencySeconds.WithLabelValues(e.provider.Name(), operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	e.logger.Debug("LLM response received", "operation", operation, "provider", e.provider.Name(), "responseLen", len(resp))
	return resp, nil
}
