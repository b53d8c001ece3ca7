package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"booking-calendar/internal/auth"
	"booking-calendar/internal/model"
	"booking-calendar/internal/store"
	"booking-calendar/internal/testutil"
)

type fakeAuthAPI struct {
	mu         sync.Mutex
	loginTok   string
	refreshTok string
	err        error
	gotBearer  string
	block      chan struct{}
}

func (f *fakeAuthAPI) Login(ctx context.Context, username, password string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.loginTok, nil
}

func (f *fakeAuthAPI) RefreshToken(ctx context.Context, credential string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotBearer = credential
	if f.err != nil {
		return "", f.err
	}
	return f.refreshTok, nil
}

func newManager(t *testing.T, api auth.AuthAPI, kv store.KV) *auth.Manager {
	t.Helper()
	return auth.NewManager(context.Background(), api, store.NewTokens(kv), testutil.Logger(t))
}

func TestNewManagerSeedsFromStore(t *testing.T) {
	kv := store.NewMemory()
	expired := testutil.MakeToken(t, time.Now().Add(-time.Hour))
	_ = store.NewTokens(kv).Persist(context.Background(), expired)

	m := newManager(t, &fakeAuthAPI{}, kv)

	s := m.Session()
	if s.State() != model.Authenticated {
		t.Fatalf("state = %v, want authenticated even though expired", s.State())
	}
	if s.Token.Credential != expired {
		t.Fatal("seeded credential mismatch")
	}
	if !s.Token.Expired(time.Now()) {
		t.Fatal("seeded token should report expired")
	}
}

func TestNewManagerDiscardsGarbage(t *testing.T) {
	kv := store.NewMemory()
	_ = store.NewTokens(kv).Persist(context.Background(), "garbage")

	m := newManager(t, &fakeAuthAPI{}, kv)
	if m.Session().State() != model.Anonymous {
		t.Fatalf("state = %v", m.Session().State())
	}
	if _, ok, _ := store.NewTokens(kv).Load(context.Background()); ok {
		t.Fatal("garbage credential should be cleared")
	}
}

func TestLoginSuccess(t *testing.T) {
	kv := store.NewMemory()
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	cred := testutil.MakeToken(t, exp)
	m := newManager(t, &fakeAuthAPI{loginTok: cred}, kv)

	var states []model.SessionState
	m.Subscribe(func(s model.Session) { states = append(states, s.State()) })

	tok, err := m.Login(context.Background(), "admin", "admin")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !tok.ExpiresAt.Equal(exp) {
		t.Errorf("expiresAt = %v, want %v", tok.ExpiresAt, exp)
	}
	if got, _, _ := store.NewTokens(kv).Load(context.Background()); got != cred {
		t.Error("credential not persisted")
	}
	want := []model.SessionState{model.Loading, model.Authenticated}
	if len(states) != len(want) || states[0] != want[0] || states[1] != want[1] {
		t.Errorf("transitions = %v, want %v", states, want)
	}
}

func TestLoginFailure(t *testing.T) {
	kv := store.NewMemory()
	m := newManager(t, &fakeAuthAPI{err: errors.New("401 invalid login")}, kv)

	tok, err := m.Login(context.Background(), "admin", "wrong")
	if tok != nil {
		t.Fatal("expected no token")
	}
	var aerr *auth.AuthError
	if !errors.As(err, &aerr) || aerr.Op != "login" {
		t.Fatalf("expected AuthError(login), got %v", err)
	}
	s := m.Session()
	if s.State() != model.Anonymous || s.Err == nil {
		t.Fatalf("session = %+v, want anonymous with error", s)
	}
}

func TestLoginMalformedResponse(t *testing.T) {
	m := newManager(t, &fakeAuthAPI{loginTok: "nope"}, store.NewMemory())

	_, err := m.Login(context.Background(), "admin", "admin")
	if !errors.Is(err, auth.ErrMalformedCredential) {
		t.Fatalf("expected malformed credential, got %v", err)
	}
	if m.Session().State() != model.Anonymous {
		t.Fatal("expected anonymous")
	}
}

func TestRefreshUsesCurrentCredential(t *testing.T) {
	kv := store.NewMemory()
	old := testutil.MakeToken(t, time.Now().Add(-time.Minute))
	_ = store.NewTokens(kv).Persist(context.Background(), old)
	fresh := testutil.MakeToken(t, time.Now().Add(time.Hour))
	api := &fakeAuthAPI{refreshTok: fresh}
	m := newManager(t, api, kv)

	tok, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if api.gotBearer != old {
		t.Error("refresh did not carry the current credential")
	}
	if tok.Credential != fresh || m.Token().Credential != fresh {
		t.Error("refreshed token not installed")
	}
}

func TestRefreshFailureClears(t *testing.T) {
	kv := store.NewMemory()
	_ = store.NewTokens(kv).Persist(context.Background(), testutil.MakeToken(t, time.Now().Add(-time.Minute)))
	m := newManager(t, &fakeAuthAPI{err: errors.New("refresh rejected")}, kv)

	if _, err := m.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if m.Session().State() != model.Anonymous {
		t.Fatal("expected anonymous after failed refresh")
	}
	if _, ok, _ := store.NewTokens(kv).Load(context.Background()); ok {
		t.Fatal("credential should be destroyed on refresh failure")
	}
}

func TestLogout(t *testing.T) {
	kv := store.NewMemory()
	_ = store.NewTokens(kv).Persist(context.Background(), testutil.MakeToken(t, time.Now().Add(time.Hour)))
	m := newManager(t, &fakeAuthAPI{}, kv)

	var last model.Session
	unsubscribe := m.Subscribe(func(s model.Session) { last = s })
	m.Logout(context.Background())
	unsubscribe()

	if last.State() != model.Anonymous || m.Token() != nil {
		t.Fatal("expected anonymous after logout")
	}
	if _, ok, _ := store.NewTokens(kv).Load(context.Background()); ok {
		t.Fatal("credential still persisted")
	}
}

func TestLoginNotReentrant(t *testing.T) {
	api := &fakeAuthAPI{loginTok: testutil.MakeToken(t, time.Now().Add(time.Hour)), block: make(chan struct{})}
	m := newManager(t, api, store.NewMemory())

	loading := make(chan struct{})
	unsubscribe := m.Subscribe(func(s model.Session) {
		if s.Loading {
			close(loading)
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := m.Login(context.Background(), "admin", "admin")
		done <- err
	}()
	<-loading
	unsubscribe()

	if _, err := m.Login(context.Background(), "admin", "admin"); !errors.Is(err, auth.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(api.block)
	if err := <-done; err != nil {
		t.Fatalf("first login: %v", err)
	}
}
