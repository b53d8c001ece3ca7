package auth

import (
	"context"
	"log/slog"
	"sync"

	"booking-calendar/internal/model"
	"booking-calendar/internal/store"
)

// AuthAPI is the un-intercepted transport the manager talks to. It must not
// route through the request interceptor, which itself depends on the manager.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (string, error)
	RefreshToken(ctx context.Context, credential string) (string, error)
}

// Manager owns the session: login, refresh, logout and the persisted
// credential. All transitions are published to subscribers.
type Manager struct {
	api    AuthAPI
	tokens *store.Tokens
	logger *slog.Logger

	mu      sync.Mutex
	session model.Session
	subs    map[int]func(model.Session)
	nextSub int
}

// NewManager seeds the session from the persisted credential. A decodable
// credential yields an authenticated session even when it has already
// expired; staleness is detected when the token is used.
func NewManager(ctx context.Context, api AuthAPI, tokens *store.Tokens, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		api:    api,
		tokens: tokens,
		logger: logger.With("component", "session"),
		subs:   make(map[int]func(model.Session)),
	}

	raw, ok, err := tokens.Load(ctx)
	switch {
	case err != nil:
		m.logger.Warn("load persisted credential", "error", err)
	case ok:
		exp, err := ExpiryOf(raw)
		if err != nil {
			m.logger.Warn("discarding persisted credential", "error", err)
			if err := tokens.Clear(ctx); err != nil {
				m.logger.Warn("clear persisted credential", "error", err)
			}
			break
		}
		m.session.Token = &model.Token{Credential: raw, ExpiresAt: exp}
	}
	return m
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.session)
}

// Token returns the current token or nil.
func (m *Manager) Token() *model.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Token == nil {
		return nil
	}
	t := *m.session.Token
	return &t
}

// Subscribe registers fn for every session transition.
func (m *Manager) Subscribe(fn func(model.Session)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) Login(ctx context.Context, username, password string) (*model.Token, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	raw, err := m.api.Login(ctx, username, password)
	return m.complete(ctx, "login", raw, err)
}

// Refresh renews the credential on the authority of the current session.
func (m *Manager) Refresh(ctx context.Context) (*model.Token, error) {
	current := ""
	if t := m.Token(); t != nil {
		current = t.Credential
	}
	if err := m.begin(); err != nil {
		return nil, err
	}
	raw, err := m.api.RefreshToken(ctx, current)
	return m.complete(ctx, "refresh", raw, err)
}

// Logout drops the token unconditionally. No network call is made.
func (m *Manager) Logout(ctx context.Context) {
	m.set(model.Session{})
	if err := m.tokens.Clear(ctx); err != nil {
		m.logger.Warn("clear persisted credential", "error", err)
	}
	m.logger.Info("logged out")
}

func (m *Manager) begin() error {
	m.mu.Lock()
	if m.session.Loading {
		m.mu.Unlock()
		return ErrBusy
	}
	m.session.Loading = true
	snap := copySession(m.session)
	subs := m.subscribers()
	m.mu.Unlock()
	publish(subs, snap)
	return nil
}

func (m *Manager) complete(ctx context.Context, op, raw string, err error) (*model.Token, error) {
	if err == nil {
		var tok *model.Token
		if tok, err = tokenFrom(raw); err == nil {
			m.set(model.Session{Token: tok})
			if err := m.tokens.Persist(ctx, raw); err != nil {
				m.logger.Warn("persist credential", "error", err)
			}
			m.logger.Info(op+" succeeded", "expires_at", tok.ExpiresAt)
			out := *tok
			return &out, nil
		}
	}

	aerr := &AuthError{Op: op, Err: err}
	m.set(model.Session{Err: aerr})
	if err := m.tokens.Clear(ctx); err != nil {
		m.logger.Warn("clear persisted credential", "error", err)
	}
	m.logger.Warn(op+" failed", "error", err)
	return nil, aerr
}

func tokenFrom(raw string) (*model.Token, error) {
	exp, err := ExpiryOf(raw)
	if err != nil {
		return nil, err
	}
	return &model.Token{Credential: raw, ExpiresAt: exp}, nil
}

func (m *Manager) set(s model.Session) {
	m.mu.Lock()
	m.session = s
	snap := copySession(s)
	subs := m.subscribers()
	m.mu.Unlock()
	publish(subs, snap)
}

// subscribers must be called with mu held.
func (m *Manager) subscribers() []func(model.Session) {
	out := make([]func(model.Session), 0, len(m.subs))
	for i := 0; i < m.nextSub; i++ {
		if fn, ok := m.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func publish(subs []func(model.Session), s model.Session) {
	for _, fn := range subs {
		fn(s)
	}
}

func copySession(s model.Session) model.Session {
	if s.Token != nil {
		t := *s.Token
		s.Token = &t
	}
	return s
}
