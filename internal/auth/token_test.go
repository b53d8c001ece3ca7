package auth_test

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"booking-calendar/internal/auth"
	"booking-calendar/internal/testutil"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestExpiryOfRoundTrip(t *testing.T) {
	cred := segment(`{"alg":"HS256","typ":"JWT"}`) + "." + segment(`{"exp":1700000000}`) + ".c2ln"

	exp, err := auth.ExpiryOf(cred)
	if err != nil {
		t.Fatalf("expiry: %v", err)
	}
	if want := time.UnixMilli(1700000000 * 1000); !exp.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", exp, want)
	}
}

func TestDecode(t *testing.T) {
	cred := testutil.MakeToken(t, time.Unix(1700000000, 0))

	c, err := auth.Decode(cred)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Header["alg"] != "HS256" {
		t.Errorf("alg = %v", c.Header["alg"])
	}
	if c.Signature == "" {
		t.Error("empty signature segment")
	}
	if _, ok := c.Payload["exp"]; !ok {
		t.Error("payload has no exp")
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		cred string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", segment(`{}`) + "." + segment(`{"exp":1}`)},
		{"bad base64", "!!!." + segment(`{"exp":1}`) + ".sig"},
		{"bad json", segment("not json") + "." + segment(`{"exp":1}`) + ".sig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.Decode(tt.cred); !errors.Is(err, auth.ErrMalformedCredential) {
				t.Fatalf("expected ErrMalformedCredential, got %v", err)
			}
		})
	}
}

func TestExpiryOfMissingExp(t *testing.T) {
	cred := segment(`{"alg":"HS256"}`) + "." + segment(`{"iat":1}`) + ".sig"
	if _, err := auth.ExpiryOf(cred); !errors.Is(err, auth.ErrMalformedCredential) {
		t.Fatalf("expected ErrMalformedCredential, got %v", err)
	}
}
