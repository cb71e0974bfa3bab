package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	LLM           LLMConfig           `yaml:"llm"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Respond       RespondConfig       `yaml:"respond"`
	Calendar      CalendarConfig      `yaml:"calendar"`
	Conversation  ConversationConfig  `yaml:"conversation"`
}

// ServerConfig holds HTTP server settings. The server only serves health,
// metrics and the OAuth redirect.
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// TelegramConfig holds chat transport settings.
type TelegramConfig struct {
	Token              string `yaml:"token"`
	PollTimeoutSeconds int    `yaml:"poll_timeout_seconds"`
	DedupSize          int    `yaml:"dedup_size"`
}

// LLMConfig holds the language model used to interpret messages.
type LLMConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TranscriptionConfig holds voice transcription settings. Empty fields fall
// back to the LLM settings.
type TranscriptionConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// RespondConfig controls how replies are phrased.
type RespondConfig struct {
	Generative bool `yaml:"generative"`
}

// CalendarConfig holds calendar backend and OAuth client settings.
type CalendarConfig struct {
	CalendarID       string `yaml:"calendar_id"`
	Timezone         string `yaml:"timezone"`
	TokenFile        string `yaml:"token_file"`
	ClientID         string `yaml:"client_id"`
	ClientSecret     string `yaml:"client_secret"`
	ListRangeDays    int    `yaml:"list_range_days"`
	LookupMaxResults int    `yaml:"lookup_max_results"`
	ListMaxResults   int    `yaml:"list_max_results"`
}

// Location loads the configured time zone.
func (c CalendarConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ConversationConfig holds conversation state settings.
type ConversationConfig struct {
	PendingTTLMinutes int `yaml:"pending_ttl_minutes"`
}

// PendingTTL returns how long an unanswered confirmation is kept.
func (c ConversationConfig) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLMinutes) * time.Minute
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			BaseURL: "http://localhost:8000",
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			RetentionDays: 30,
		},
		Telegram: TelegramConfig{
			PollTimeoutSeconds: 60,
			DedupSize:          2048,
		},
		LLM: LLMConfig{
			Provider:       "gemini",
			Model:          "gemini-2.5-flash",
			MaxRetries:     1,
			TimeoutSeconds: 30,
		},
		Calendar: CalendarConfig{
			CalendarID:       "primary",
			Timezone:         "America/Bogota",
			TokenFile:        "token.json",
			ListRangeDays:    7,
			LookupMaxResults: 10,
			ListMaxResults:   5,
		},
		Conversation: ConversationConfig{
			PendingTTLMinutes: 30,
		},
	}
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Substitute environment variables
	data = envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyFallbacks()
	return cfg, nil
}

func (c *Config) applyFallbacks() {
	if c.Transcription.Model == "" {
		c.Transcription.Model = c.LLM.Model
	}
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = c.LLM.APIKey
	}
}

// Validate reports every missing or invalid setting needed to serve.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required"))
	}
	switch c.LLM.Provider {
	case "gemini", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if _, err := c.Calendar.Location(); err != nil {
		errs = append(errs, fmt.Errorf("calendar.timezone: %w", err))
	}
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port %d is invalid", c.Server.Port))
	}
	return errors.Join(errs...)
}
