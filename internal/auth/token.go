package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedCredential = errors.New("malformed credential")

// Claims is a decoded credential. The signature is kept as its raw segment;
// the client never holds the signing secret.
type Claims struct {
	Header    map[string]any
	Payload   jwt.MapClaims
	Signature string
}

// Decode splits a header.payload.signature credential and decodes the first
// two segments. It does not verify the signature.
func Decode(credential string) (*Claims, error) {
	tok, parts, err := jwt.NewParser().ParseUnverified(credential, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	payload, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedCredential
	}
	return &Claims{Header: tok.Header, Payload: payload, Signature: parts[2]}, nil
}

// ExpiryOf reads the exp claim (epoch seconds).
func ExpiryOf(credential string) (time.Time, error) {
	c, err := Decode(credential)
	if err != nil {
		return time.Time{}, err
	}
	exp, err := c.Payload.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("%w: no exp claim", ErrMalformedCredential)
	}
	return exp.Time, nil
}
