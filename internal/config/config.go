// Package config loads settings from an optional YAML file, then environment
// variables, then values saved in the key-value store.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"smartcal/internal/store"
)

// Calendar backends.
const (
	BackendGoogle = "google"
	BackendCalDAV = "caldav"
)

// Store keys that config reads as a last fallback.
const (
	StoreKeyLLMProvider = "llm.provider"
	StoreKeyLLMModel    = "llm.model"
	StoreKeyLLMAPIKey   = "llm.apiKey"
)

type Config struct {
	LLM              LLMConfig    `yaml:"llm"`
	Calendar         string       `yaml:"calendar"`
	Google           GoogleConfig `yaml:"google"`
	CalDAV           CalDAVConfig `yaml:"caldav"`
	DetailedAnalysis bool         `yaml:"detailed_analysis"`
	StorePath        string       `yaml:"store"`
	Listen           string       `yaml:"listen"`
	LogLevel         string       `yaml:"log_level"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Account      string `yaml:"account"`
}

type CalDAVConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	CalendarName string `yaml:"calendar_name"`
}

// DefaultDir is where the config file and store live unless overridden.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smartcal"
	}
	return filepath.Join(home, ".smartcal")
}

// Default returns the built-in settings.
func Default() *Config {
	dir := DefaultDir()
	return &Config{
		LLM:       LLMConfig{Provider: "gemini", Timeout: 60 * time.Second},
		Calendar:  BackendGoogle,
		Google:    GoogleConfig{Account: "default"},
		StorePath: filepath.Join(dir, "store.json"),
		Listen:    "127.0.0.1:8787",
		LogLevel:  "info",
	}
}

// Load reads path (or the default config file when path is empty) and applies
// environment overrides. Only an explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(DefaultDir(), "config.yaml")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.LLM.Provider, "SMARTCAL_LLM_PROVIDER")
	setString(&c.LLM.Model, "SMARTCAL_LLM_MODEL")
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini":
		setString(&c.LLM.APIKey, "GEMINI_API_KEY")
	case "openrouter":
		setString(&c.LLM.APIKey, "OPENROUTER_API_KEY")
	}
	setString(&c.Calendar, "SMARTCAL_CALENDAR")
	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.Account, "SMARTCAL_ACCOUNT")
	setString(&c.CalDAV.Endpoint, "CALDAV_ENDPOINT")
	setString(&c.CalDAV.Username, "CALDAV_USERNAME")
	setString(&c.CalDAV.Password, "CALDAV_PASSWORD")
	setString(&c.CalDAV.CalendarName, "CALDAV_CALENDAR_NAME")
	setString(&c.StorePath, "SMARTCAL_STORE")
	setString(&c.Listen, "SMARTCAL_LISTEN")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("SMARTCAL_DETAILED_ANALYSIS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SMARTCAL_DETAILED_ANALYSIS %q: %w", v, err)
		}
		c.DetailedAnalysis = b
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// ApplyStore fills LLM settings still unset from values saved with the
// settings command.
func (c *Config) ApplyStore(st *store.Store) {
	if c.LLM.APIKey == "" {
		if p := st.GetString(StoreKeyLLMProvider); p != "" {
			c.LLM.Provider = p
		}
		c.LLM.APIKey = st.GetString(StoreKeyLLMAPIKey)
	}
	if c.LLM.Model == "" {
		c.LLM.Model = st.GetString(StoreKeyLLMModel)
	}
}

// ValidateLLM reports missing settings needed to call the model.
func (c *Config) ValidateLLM() error {
	var missing []string
	if c.LLM.Provider == "" {
		missing = append(missing, "llm.provider (SMARTCAL_LLM_PROVIDER)")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key ("+apiKeyEnv(c.LLM.Provider)+")")
	}
	return missingError(missing)
}

// ValidateCalendar reports missing settings needed by the selected backend.
func (c *Config) ValidateCalendar() error {
	var missing []string
	switch c.Calendar {
	case BackendGoogle:
		if c.Google.Account == "" {
			missing = append(missing, "google.account (SMARTCAL_ACCOUNT)")
		}
	case BackendCalDAV:
		if c.CalDAV.Username == "" {
			missing = append(missing, "caldav.username (CALDAV_USERNAME)")
		}
		if c.CalDAV.Password == "" {
			missing = append(missing, "caldav.password (CALDAV_PASSWORD)")
		}
	default:
		return fmt.Errorf("unknown calendar backend %q (supported: %s, %s)", c.Calendar, BackendGoogle, BackendCalDAV)
	}
	return missingError(missing)
}

func apiKeyEnv(provider string) string {
	if strings.ToLower(provider) == "openrouter" {
		return "OPENROUTER_API_KEY"
	}
	return "GEMINI_API_KEY"
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}
