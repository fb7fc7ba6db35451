package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"smartcal/internal/config"
	"smartcal/internal/extract"
	"smartcal/internal/google"
	"smartcal/internal/icloud"
	"smartcal/internal/llm"
	"smartcal/internal/payload"
	"smartcal/internal/pipeline"
	"smartcal/internal/store"
)

// env holds what every command needs: resolved config, a logger and the store.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
}

func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	st, err := store.Open(cfg.StorePath, logger)
	if err != nil {
		return nil, err
	}
	cfg.ApplyStore(st)

	return &env{cfg: cfg, logger: logger, store: st}, nil
}

func (e *env) extractor() (*extract.Extractor, error) {
	if err := e.cfg.ValidateLLM(); err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(llm.Config{
		Provider: e.cfg.LLM.Provider,
		Model:    e.cfg.LLM.Model,
		APIKey:   e.cfg.LLM.APIKey,
		Timeout:  e.cfg.LLM.Timeout,
		Logger:   e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	e.logger.Debug("Using LLM provider", "provider", provider.Name())
	return extract.NewExtractor(provider, e.logger).WithDetailedAnalysis(e.cfg.DetailedAnalysis), nil
}

func (e *env) calendar(ctx context.Context) (pipeline.Calendar, error) {
	if err := e.cfg.ValidateCalendar(); err != nil {
		return nil, err
	}
	switch e.cfg.Calendar {
	case config.BackendCalDAV:
		client, err := icloud.NewClient(e.logger, icloud.Config{
			Endpoint:     e.cfg.CalDAV.Endpoint,
			Username:     e.cfg.CalDAV.Username,
			Password:     e.cfg.CalDAV.Password,
			CalendarName: e.cfg.CalDAV.CalendarName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		return client, nil
	default:
		client, err := google.NewClient(ctx, e.logger, e.cfg.Google.ClientID, e.cfg.Google.ClientSecret, e.cfg.Google.Account, e.store)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client for account %s (run 'smartcal auth'?): %w", e.cfg.Google.Account, err)
		}
		return client, nil
	}
}

func (e *env) pipeline(ex pipeline.Extractor, cal pipeline.Calendar, dryRun bool) *pipeline.Pipeline {
	return pipeline.New(e.logger, ex, payload.NewBuilder(e.logger), cal, dryRun)
}

// readText takes the text from --file, the arguments, or stdin, in that order.
func readText(c *cli.Context) (string, error) {
	var text string
	switch {
	case c.String("file") != "":
		b, err := os.ReadFile(c.String("file"))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", c.String("file"), err)
		}
		text = string(b)
	case c.NArg() > 0:
		text = strings.Join(c.Args().Slice(), " ")
	default:
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no text given; pass it as arguments, with --file, or on stdin")
	}
	return text, nil
}

var settingKeys = []string{config.StoreKeyLLMProvider, config.StoreKeyLLMModel, config.StoreKeyLLMAPIKey}

func isSettingKey(key string) bool {
	for _, k := range settingKeys {
		if k == key {
			return true
		}
	}
	return false
}

func isProvider(name string) bool {
	for _, p := range llm.Providers() {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

func displaySetting(key, value string) string {
	if key != config.StoreKeyLLMAPIKey || value == "" {
		return value
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}
