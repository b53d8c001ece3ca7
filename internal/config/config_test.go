package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"CALENDAR_API_BASE_URL",
	"CALENDAR_STATE_DB",
	"CALENDAR_TIMEZONE",
	"CALENDAR_SLOT_MINUTES",
	"CALENDAR_RATE_LIMIT",
	"CALENDAR_RATE_BURST",
	"CALENDAR_HTTP_TIMEOUT",
	"CALENDAR_LOG_LEVEL",
}

// clearEnv blanks every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALENDAR_API_BASE_URL", "https://booking.example.com/api")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.APIBaseURL != "https://booking.example.com/api" {
		t.Errorf("base url = %q", cfg.APIBaseURL)
	}
	if cfg.StateDB != "calendar-state.db" {
		t.Errorf("state db = %q", cfg.StateDB)
	}
	if cfg.SlotUnit != 15*time.Minute || cfg.RateBurst != 10 || cfg.LogLevel != slog.LevelWarn {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALENDAR_API_BASE_URL", "http://localhost:8080/api")
	t.Setenv("CALENDAR_TIMEZONE", "UTC")
	t.Setenv("CALENDAR_SLOT_MINUTES", "30")
	t.Setenv("CALENDAR_RATE_LIMIT", "2.5")
	t.Setenv("CALENDAR_HTTP_TIMEOUT", "3s")
	t.Setenv("CALENDAR_LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Location != time.UTC || cfg.SlotUnit != 30*time.Minute || cfg.RateLimit != 2.5 ||
		cfg.HTTPTimeout != 3*time.Second || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestMissingBaseURL(t *testing.T) {
	clearEnv(t)
	_, err := FromEnv()
	if err == nil || err.Error() != "missing required environment variables: CALENDAR_API_BASE_URL" {
		t.Fatalf("err = %v", err)
	}
}

func TestInvalidValuesReported(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALENDAR_API_BASE_URL", "https://booking.example.com/api")
	t.Setenv("CALENDAR_SLOT_MINUTES", "20")
	t.Setenv("CALENDAR_RATE_BURST", "0")
	t.Setenv("CALENDAR_TIMEZONE", "Mars/Olympus")

	_, err := FromEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, k := range []string{"CALENDAR_SLOT_MINUTES", "CALENDAR_RATE_BURST", "CALENDAR_TIMEZONE"} {
		if !strings.Contains(err.Error(), k) {
			t.Errorf("error %q does not name %s", err, k)
		}
	}
}
