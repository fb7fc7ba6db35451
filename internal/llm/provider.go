// Package llm is the text-generation capability the extractor depends on.
// Providers register a factory under a name; adding one does not touch the
// extraction or payload code.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Provider generates text for a prompt.
type Provider interface {
	// Generate sends prompt and returns the model's text. Non-2xx responses and
	// envelopes without content fail with *models.APIError.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	// Name returns "provider/model".
	Name() string
}

// Options tunes a single request. Zero values select the provider default.
type Options struct {
	Temperature float64
	MaxTokens   int
}

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
	defaultTimeout     = 60 * time.Second
)

func (o Options) temperature() float64 {
	if o.Temperature == 0 {
		return defaultTemperature
	}
	return o.Temperature
}

func (o Options) maxTokens() int {
	if o.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return o.MaxTokens
}

// Config selects and configures a provider.
type Config struct {
	Provider string // registry key, e.g. "gemini"
	Model    string // empty = provider default
	APIKey   string // empty = read from the provider's env var
	BaseURL  string // optional override, used by tests
	Timeout  time.Duration
	Logger   *slog.Logger // nil = slog.Default()
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c Config) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Factory builds a provider from its config.
type Factory func(cfg Config) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"gemini":     newGeminiProvider,
		"openrouter": newOpenRouterProvider,
	}
)

// Register makes a provider available to NewProvider under name.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// Providers lists the registered provider names in sorted order.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider creates the provider registered under cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "gemini"
	}
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider %q (supported: %s)", cfg.Provider, strings.Join(Providers(), ", "))
	}
	return f(cfg)
}

// truncate keeps error bodies readable in logs and messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
