package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"booking-calendar/internal/model"
	"booking-calendar/internal/store"
)

func openSQLite(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func backends(t *testing.T) map[string]store.KV {
	return map[string]store.KV{
		"memory": store.NewMemory(),
		"sqlite": openSQLite(t),
	}
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := kv.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := kv.Set(ctx, "k", "v1"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := kv.Set(ctx, "k", "v2"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := kv.Get(ctx, "k")
			if err != nil || got != "v2" {
				t.Fatalf("get = %q, %v; want v2", got, err)
			}
			if err := kv.Delete(ctx, "k"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := kv.Get(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := store.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.NewTokens(s).Persist(ctx, "a.b.c"); err != nil {
		t.Fatalf("persist: %v", err)
	}
	s.Close()

	s, err = store.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	cred, ok, err := store.NewTokens(s).Load(ctx)
	if err != nil || !ok || cred != "a.b.c" {
		t.Fatalf("load = %q %v %v", cred, ok, err)
	}
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	tokens := store.NewTokens(store.NewMemory())

	if _, ok, err := tokens.Load(ctx); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	// no validation on load
	if err := tokens.Persist(ctx, "not-a-jwt"); err != nil {
		t.Fatal(err)
	}
	cred, ok, _ := tokens.Load(ctx)
	if !ok || cred != "not-a-jwt" {
		t.Fatalf("load = %q %v", cred, ok)
	}
	if err := tokens.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := tokens.Load(ctx); ok {
		t.Fatal("credential still present after clear")
	}
}

func TestPrefs(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	prefs := store.NewPrefs(kv)

	empty, err := prefs.Load(ctx)
	if err != nil || empty != (model.Prefill{}) {
		t.Fatalf("empty load = %+v, %v", empty, err)
	}

	want := model.Prefill{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	if err := prefs.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := prefs.Load(ctx)
	if err != nil || got != want {
		t.Fatalf("load = %+v, %v", got, err)
	}
	if v, _ := kv.Get(ctx, store.KeyEmail); v != want.Email {
		t.Fatalf("email stored under %s = %q", store.KeyEmail, v)
	}
}
