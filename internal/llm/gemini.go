package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"smartcal/internal/models"
)

const (
	geminiDefaultModel   = "gemini-2.0-flash"
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// geminiProvider calls the Gemini generateContent REST API.
type geminiProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func newGeminiProvider(cfg Config) (Provider, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		return nil, errors.New("gemini provider requires an API key (GEMINI_API_KEY)")
	}
	model := cfg.Model
	if model == "" {
		model = geminiDefaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	return &geminiProvider{
		logger:     cfg.logger(),
		httpClient: cfg.httpClient(),
		apiKey:     key,
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (g *geminiProvider) Name() string {
	return "gemini/" + g.model
}

func (g *geminiProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     opts.temperature(),
			MaxOutputTokens: opts.maxTokens(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	g.logger.Debug("Sending request to Gemini", "model", g.model, "promptLen", len(prompt))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &models.APIError{Service: "gemini", StatusCode: resp.StatusCode, Message: truncate(string(respBody), 500)}
	}

	var gResp geminiResponse
	if err := json.Unmarshal(respBody, &gResp); err != nil {
		return "", &models.APIError{Service: "gemini", Message: "API 응답 형식이 올바르지 않습니다: " + err.Error()}
	}
	if gResp.Error != nil {
		return "", &models.APIError{Service: "gemini", StatusCode: gResp.Error.Code, Message: gResp.Error.Message}
	}
	if len(gResp.Candidates) == 0 || gResp.Candidates[0].Content == nil || len(gResp.Candidates[0].Content.Parts) == 0 {
		return "", &models.APIError{Service: "gemini", Message: "API 응답 형식이 올바르지 않습니다."}
	}

	var sb strings.Builder
	for _, part := range gResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	g.logger.Debug("Received Gemini response",
		"model", g.model,
		"responseLen", sb.Len(),
		"finishReason", gResp.Candidates[0].FinishReason,
	)
	return sb.String(), nil
}
