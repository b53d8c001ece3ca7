// Package testutil holds helpers shared by package tests: credential minting,
// quiet loggers and a fake booking API server.
package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Secret signs every credential minted by tests and the fake server.
const Secret = "test-secret"

// MakeToken returns a signed credential expiring at exp.
func MakeToken(t testing.TB, exp time.Time) string {
	t.Helper()
	c := jwt.MapClaims{
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// Logger discards output unless -v is set.
func Logger(t testing.TB) *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(&tlog{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type tlog struct{ t testing.TB }

func (w *tlog) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
