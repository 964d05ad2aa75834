// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the tracker service.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	TrackerID string `env:"TRACKER_ID" envDefault:"default"`
	// delivery, workshop or auto
	Mode string `env:"TRACKER_MODE" envDefault:"auto"`

	MoveIntervalMin  time.Duration `env:"MOVE_INTERVAL_MIN" envDefault:"30s"`
	MoveIntervalMax  time.Duration `env:"MOVE_INTERVAL_MAX" envDefault:"60s"`
	PresentsMin      int           `env:"PRESENTS_PER_STOP_MIN" envDefault:"10000"`
	PresentsMax      int           `env:"PRESENTS_PER_STOP_MAX" envDefault:"50000"`
	PathSegments     int           `env:"PATH_SEGMENTS" envDefault:"50"`
	RandomSeed       int64         `env:"RANDOM_SEED"`
	SeasonTZ         string        `env:"SEASON_TZ" envDefault:"Local"`
	CatalogPath      string        `env:"CATALOG_PATH"`
	AdvanceOnStart   bool          `env:"ADVANCE_ON_START" envDefault:"true"`
	SeasonCheckEvery time.Duration `env:"SEASON_CHECK_INTERVAL" envDefault:"1m"`

	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`
	RedisURL    string `env:"REDIS_URL"`

	AuthMode       string `env:"AUTH_MODE" envDefault:"dev"`
	AuthHMACSecret string `env:"AUTH_HMAC_SECRET"`

	WebhookURLs        []string `env:"WEBHOOK_URLS" envSeparator:","`
	WebhookSecret      string   `env:"WEBHOOK_SECRET"`
	WebhookMaxAttempts int      `env:"WEBHOOK_MAX_ATTEMPTS" envDefault:"5"`
	WebhookRPS         float64  `env:"WEBHOOK_RPS" envDefault:"5"`
}

// Load reads an optional .env file, then parses and validates the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found (using environment variables)")
	}
	return Parse()
}

// Parse reads the process environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the tracker cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case "delivery", "workshop", "auto":
	default:
		errs = append(errs, fmt.Errorf("TRACKER_MODE %q: want delivery, workshop or auto", c.Mode))
	}
	if c.MoveIntervalMin <= 0 || c.MoveIntervalMax < c.MoveIntervalMin {
		errs = append(errs, fmt.Errorf("MOVE_INTERVAL_MIN/MAX %s..%s: need 0 < min <= max", c.MoveIntervalMin, c.MoveIntervalMax))
	}
	if c.PresentsMin < 0 || c.PresentsMax < c.PresentsMin {
		errs = append(errs, fmt.Errorf("PRESENTS_PER_STOP_MIN/MAX %d..%d: need 0 <= min <= max", c.PresentsMin, c.PresentsMax))
	}
	if c.PathSegments < 1 {
		errs = append(errs, fmt.Errorf("PATH_SEGMENTS %d: must be >= 1", c.PathSegments))
	}
	if c.SeasonCheckEvery <= 0 {
		errs = append(errs, fmt.Errorf("SEASON_CHECK_INTERVAL %s: must be > 0", c.SeasonCheckEvery))
	}
	switch c.AuthMode {
	case "dev", "none":
	case "hmac":
		if c.AuthHMACSecret == "" {
			errs = append(errs, errors.New("AUTH_HMAC_SECRET is required when AUTH_MODE=hmac"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE %q: want dev, none or hmac", c.AuthMode))
	}
	if c.WebhookMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("WEBHOOK_MAX_ATTEMPTS %d: must be >= 1", c.WebhookMaxAttempts))
	}
	if c.WebhookRPS <= 0 {
		errs = append(errs, fmt.Errorf("WEBHOOK_RPS %v: must be > 0", c.WebhookRPS))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location resolves SeasonTZ, which decides when Christmas Day begins.
func (c Config) Location() (*time.Location, error) {
	if c.SeasonTZ == "" || strings.EqualFold(c.SeasonTZ, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.SeasonTZ)
	if err != nil {
		return nil, fmt.Errorf("SEASON_TZ %q: %w", c.SeasonTZ, err)
	}
	return loc, nil
}
