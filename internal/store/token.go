package store

import (
	"context"
	"errors"
)

// Tokens persists the raw session credential. Nothing is validated on load;
// the credential is checked when it is used.
type Tokens struct {
	kv KV
}

func NewTokens(kv KV) *Tokens {
	return &Tokens{kv: kv}
}

func (t *Tokens) Persist(ctx context.Context, credential string) error {
	return t.kv.Set(ctx, KeyAuthToken, credential)
}

// Load returns the stored credential, or ok=false when none is stored.
func (t *Tokens) Load(ctx context.Context) (credential string, ok bool, err error) {
	v, err := t.kv.Get(ctx, KeyAuthToken)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (t *Tokens) Clear(ctx context.Context) error {
	return t.kv.Delete(ctx, KeyAuthToken)
}
