// Package config loads the bot's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds every setting the bot reads at startup.
type Config struct {
	SlackToken         string  `env:"AUTOREACT_SLACK_BOT_TOKEN"`
	Prefix             string  `env:"AUTOREACT_PREFIX" default:"!"`
	DataFile           string  `env:"AUTOREACT_DATA_FILE" default:"autoreact_data.json"`
	GCPProject         string  `env:"AUTOREACT_GCP_PROJECT"`
	HTTPAddr           string  `env:"AUTOREACT_HTTP_ADDR" default:":8080"`
	ReactionsPerSecond float64 `env:"AUTOREACT_REACTIONS_PER_SECOND" default:"1"`
	DevMode            bool    `env:"AUTOREACT_DEV_MODE" default:"false"`
}

// ErrMissingToken is returned by Load when no Slack token is configured.
var ErrMissingToken = errors.New("slack token must be set in the AUTOREACT_SLACK_BOT_TOKEN environment variable")

// Load reads a .env file from the working directory when there is one and
// then the process environment. Variables already set in the environment win
// over the .env file.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	cfg.SlackToken = strings.TrimSpace(cfg.SlackToken)
	if cfg.SlackToken == "" {
		return ErrMissingToken
	}
	if strings.TrimSpace(cfg.Prefix) == "" || strings.ContainsAny(cfg.Prefix, " \t\n") {
		return fmt.Errorf("AUTOREACT_PREFIX must be a non-empty word, got %q", cfg.Prefix)
	}
	if cfg.GCPProject == "" && cfg.DataFile == "" {
		return errors.New("AUTOREACT_DATA_FILE is required when AUTOREACT_GCP_PROJECT is not set")
	}
	if cfg.ReactionsPerSecond < 0 {
		return fmt.Errorf("AUTOREACT_REACTIONS_PER_SECOND must not be negative, got %v", cfg.ReactionsPerSecond)
	}
	return nil
}
