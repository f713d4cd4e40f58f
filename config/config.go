// Package config loads tournament settings from CRIBBAGE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"cribbage/game"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RandomBot = "random"
	GreedyBot = "greedy"
)

// Config holds tournament configuration.
type Config struct {
	Name        string   `env:"CRIBBAGE_NAME"         envDefault:"tournament"`
	Players     int      `env:"CRIBBAGE_PLAYERS"      envDefault:"2"`
	Games       int      `env:"CRIBBAGE_GAMES"        envDefault:"10"`
	TargetScore int      `env:"CRIBBAGE_TARGET_SCORE" envDefault:"121"`
	Seed        uint64   `env:"CRIBBAGE_SEED"`
	Bots        []string `env:"CRIBBAGE_BOTS"         envDefault:"greedy,random" envSeparator:","`
	MaxAttempts int      `env:"CRIBBAGE_MAX_ATTEMPTS" envDefault:"3"`
	LogLevel    string   `env:"CRIBBAGE_LOG_LEVEL"    envDefault:"info"`
	LogFormat   string   `env:"CRIBBAGE_LOG_FORMAT"   envDefault:"console"`
	SQLitePath  string   `env:"CRIBBAGE_SQLITE_PATH"`
	OutputDir   string   `env:"CRIBBAGE_OUTPUT_DIR"   envDefault:"results"`
}

// Parse reads the environment and validates the result.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	for i, bot := range c.Bots {
		c.Bots[i] = strings.ToLower(strings.TrimSpace(bot))
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.SQLitePath = strings.TrimSpace(c.SQLitePath)
}

func (c Config) Validate() error {
	var errs []error
	if c.Players < game.MinPlayers || c.Players > game.MaxPlayers {
		errs = append(errs, fmt.Errorf("players must be between %d and %d, got %d", game.MinPlayers, game.MaxPlayers, c.Players))
	}
	if c.Games <= 0 {
		errs = append(errs, fmt.Errorf("games must be positive, got %d", c.Games))
	}
	if c.TargetScore <= 0 {
		errs = append(errs, fmt.Errorf("target score must be positive, got %d", c.TargetScore))
	}
	if c.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max attempts must not be negative, got %d", c.MaxAttempts))
	}
	if len(c.Bots) == 0 {
		errs = append(errs, errors.New("at least one bot kind is required"))
	}
	for _, bot := range c.Bots {
		if bot != RandomBot && bot != GreedyBot {
			errs = append(errs, fmt.Errorf("unknown bot kind %q", bot))
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Bot returns the bot kind for a seat. Seats past the configured list reuse
// the kinds in order.
func (c Config) Bot(seat int) string {
	return c.Bots[seat%len(c.Bots)]
}

// SetupLogging points the global logger at out with the configured level and
// format.
func SetupLogging(cfg Config, out io.Writer) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}
