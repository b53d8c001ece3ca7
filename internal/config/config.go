// Package config reads client settings from the environment, after loading
// an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"booking-calendar/internal/logger"
)

type Config struct {
	APIBaseURL  string
	StateDB     string
	Location    *time.Location
	SlotUnit    time.Duration
	RateLimit   float64
	RateBurst   int
	HTTPTimeout time.Duration
	LogLevel    slog.Level
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over .env.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv parses the current environment without touching .env.
func FromEnv() (Config, error) {
	cfg := Config{
		StateDB:     env("CALENDAR_STATE_DB", "calendar-state.db"),
		Location:    time.Local,
		SlotUnit:    15 * time.Minute,
		RateLimit:   5,
		RateBurst:   10,
		HTTPTimeout: 15 * time.Second,
		LogLevel:    slog.LevelWarn,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if v := lookup("CALENDAR_API_BASE_URL"); v == "" {
		missing = append(missing, "CALENDAR_API_BASE_URL")
	} else if u, err := url.Parse(v); err != nil || u.Scheme == "" || u.Host == "" {
		invalid = append(invalid, "CALENDAR_API_BASE_URL")
	} else {
		cfg.APIBaseURL = v
	}

	if v := lookup("CALENDAR_TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			invalid = append(invalid, "CALENDAR_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if v := lookup("CALENDAR_SLOT_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (n != 15 && n != 30 && n != 60) {
			invalid = append(invalid, "CALENDAR_SLOT_MINUTES")
		} else {
			cfg.SlotUnit = time.Duration(n) * time.Minute
		}
	}

	if v := lookup("CALENDAR_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			invalid = append(invalid, "CALENDAR_RATE_LIMIT")
		} else {
			cfg.RateLimit = f
		}
	}

	if v := lookup("CALENDAR_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			invalid = append(invalid, "CALENDAR_RATE_BURST")
		} else {
			cfg.RateBurst = n
		}
	}

	if v := lookup("CALENDAR_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "CALENDAR_HTTP_TIMEOUT")
		} else {
			cfg.HTTPTimeout = d
		}
	}

	if v := lookup("CALENDAR_LOG_LEVEL"); v != "" {
		l, err := logger.ParseLevel(v)
		if err != nil {
			invalid = append(invalid, "CALENDAR_LOG_LEVEL")
		} else {
			cfg.LogLevel = l
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func env(key, fallback string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return fallback
}
