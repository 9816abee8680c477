// internal/config/config.go
//
// Typed server configuration, read from the environment (and .env via
// godotenv in main). Every key has a development default so `go run .` works
// out of the box.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	// HTTP
	Port         string `env:"PORT" envDefault:"5175"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	NodeEnv      string `env:"NODE_ENV" envDefault:"development"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Storage
	DBPath    string `env:"DB_PATH" envDefault:"./data/app.db"`
	WordsFile string `env:"WORDS_FILE"`

	// Auth
	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"wordripple_token"`
	AutoVerify     bool   `env:"AUTO_VERIFY" envDefault:"true"`

	// Game
	ClassicSeconds int           `env:"CLASSIC_SECONDS" envDefault:"300"`
	TickInterval   time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	FadeGrace      time.Duration `env:"FADE_GRACE" envDefault:"3s"`
	ScoreAward     int           `env:"SCORE_AWARD" envDefault:"10"`
	Timezone       string        `env:"TIMEZONE"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"3h"`

	// Relatedness
	DatamuseURL        string        `env:"DATAMUSE_URL" envDefault:"https://api.datamuse.com/words"`
	RelatednessTimeout time.Duration `env:"RELATEDNESS_TIMEOUT" envDefault:"5s"`

	// Limits and workers
	SubmitRPS      float64 `env:"SUBMIT_RPS" envDefault:"2"`
	SubmitBurst    int     `env:"SUBMIT_BURST" envDefault:"5"`
	PersistWorkers int     `env:"PERSIST_WORKERS" envDefault:"2"`

	// Tracing
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the game cannot run with.
func (c Config) Validate() error {
	switch {
	case c.ClassicSeconds < 1:
		return fmt.Errorf("config: CLASSIC_SECONDS must be positive, got %d", c.ClassicSeconds)
	case c.TickInterval <= 0:
		return fmt.Errorf("config: TICK_INTERVAL must be positive, got %s", c.TickInterval)
	case c.FadeGrace < 0:
		return fmt.Errorf("config: FADE_GRACE must not be negative, got %s", c.FadeGrace)
	case c.ScoreAward < 1:
		return fmt.Errorf("config: SCORE_AWARD must be positive, got %d", c.ScoreAward)
	case c.SubmitRPS <= 0 || c.SubmitBurst < 1:
		return fmt.Errorf("config: SUBMIT_RPS/SUBMIT_BURST must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TIMEZONE; empty means the host's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: TIMEZONE: %w", err)
	}
	return loc, nil
}

// IsProduction reports whether cookies should be Secure/SameSite=None.
func (c Config) IsProduction() bool { return c.NodeEnv == "production" }
