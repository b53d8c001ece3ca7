package store

import (
	"context"
	"errors"

	"booking-calendar/internal/model"
)

// Prefs keeps the last-used booking form values for prefill.
type Prefs struct {
	kv KV
}

func NewPrefs(kv KV) *Prefs {
	return &Prefs{kv: kv}
}

func (p *Prefs) Save(ctx context.Context, v model.Prefill) error {
	for key, val := range map[string]string{
		KeyFirstName: v.FirstName,
		KeyLastName:  v.LastName,
		KeyEmail:     v.Email,
	} {
		if err := p.kv.Set(ctx, key, val); err != nil {
			return err
		}
	}
	return nil
}

// Load returns whatever was saved; missing keys stay empty.
func (p *Prefs) Load(ctx context.Context) (model.Prefill, error) {
	var out model.Prefill
	for key, dst := range map[string]*string{
		KeyFirstName: &out.FirstName,
		KeyLastName:  &out.LastName,
		KeyEmail:     &out.Email,
	} {
		v, err := p.kv.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return model.Prefill{}, err
		}
		*dst = v
	}
	return out, nil
}
