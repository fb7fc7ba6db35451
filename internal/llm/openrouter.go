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
	openRouterDefaultModel   = "openai/gpt-4o-mini"
	openRouterDefaultBaseURL = "https://openrouter.ai/api/v1"
)

// openRouterProvider speaks the OpenAI-compatible chat completions API.
type openRouterProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

type orRequest struct {
	Model       string      `json:"model"`
	Messages    []orMessage `json:"messages"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float64     `json:"temperature"`
}

type orMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type orResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newOpenRouterProvider(cfg Config) (Provider, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENROUTER_API_KEY")
	}
	if key == "" {
		return nil, errors.New("openrouter provider requires an API key (OPENROUTER_API_KEY)")
	}
	model := cfg.Model
	if model == "" {
		model = openRouterDefaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openRouterDefaultBaseURL
	}
	return &openRouterProvider{
		logger:     cfg.logger(),
		httpClient: cfg.httpClient(),
		apiKey:     key,
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (o *openRouterProvider) Name() string {
	return "openrouter/" + o.model
}

func (o *openRouterProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	body, err := json.Marshal(orRequest{
		Model:       o.model,
		Messages:    []orMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.maxTokens(),
		Temperature: opts.temperature(),
	})
	if err != nil {
		return "", fmt.Errorf("openrouter: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openrouter: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("X-Title", "smartcal")

	o.logger.Debug("Sending request to OpenRouter", "model", o.model, "promptLen", len(prompt))

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter: sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openrouter: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &models.APIError{Service: "openrouter", StatusCode: resp.StatusCode, Message: truncate(string(respBody), 500)}
	}

	var orResp orResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return "", &models.APIError{Service: "openrouter", Message: "malformed response envelope: " + err.Error()}
	}
	if orResp.Error != nil {
		return "", &models.APIError{Service: "openrouter", Message: orResp.Error.Message}
	}
	if len(orResp.Choices) == 0 || orResp.Choices[0].Message.Content == "" {
		return "", &models.APIError{Service: "openrouter", Message: "response has no message content"}
	}
	return orResp.Choices[0].Message.Content, nil
}
