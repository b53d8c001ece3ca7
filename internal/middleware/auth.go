package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"booking-calendar/internal/metrics"
	"booking-calendar/internal/model"
	"booking-calendar/internal/notify"
)

// ErrForcedLogout aborts a request whose expired credential could not be
// refreshed. The session has been logged out by the time it is returned.
var ErrForcedLogout = errors.New("session expired and could not be refreshed")

// SessionSource is what Auth needs from the session manager.
type SessionSource interface {
	Token() *model.Token
	Refresh(ctx context.Context) (*model.Token, error)
	Logout(ctx context.Context)
}

type AuthOptions struct {
	Metrics metrics.Recorder
	Logger  *slog.Logger
	Now     func() time.Time
}

// Auth attaches the session credential to every request. An expired
// credential is refreshed before the request is sent; concurrent requests
// share a single refresh. If the refresh fails the session is logged out and
// the request is not sent.
func Auth(session SessionSource, sink notify.Sink, opts AuthOptions) Interceptor {
	if sink == nil {
		sink = notify.Discard
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &authenticator{
		session: session,
		sink:    sink,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("component", "auth-interceptor"),
		now:     opts.Now,
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			return a.roundTrip(next, req)
		})
	}
}

type authenticator struct {
	session SessionSource
	sink    notify.Sink
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
	group   singleflight.Group
}

func (a *authenticator) roundTrip(next http.RoundTripper, req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return next.RoundTrip(req)
	}

	tok := a.session.Token()
	if tok == nil {
		return next.RoundTrip(req)
	}
	if tok.Expired(a.now()) {
		var err error
		if tok, err = a.refresh(req.Context()); err != nil {
			return nil, err
		}
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+tok.Credential)
	return next.RoundTrip(out)
}

func (a *authenticator) refresh(ctx context.Context) (*model.Token, error) {
	// the flight is shared; one caller giving up must not end the session
	ctx = context.WithoutCancel(ctx)
	v, err, _ := a.group.Do("refresh", func() (any, error) {
		// a flight that finished just before this one may already have
		// renewed the credential
		if cur := a.session.Token(); cur != nil && !cur.Expired(a.now()) {
			return cur, nil
		}
		tok, err := a.session.Refresh(ctx)
		if err != nil {
			a.metrics.RecordRefresh(false)
			a.metrics.RecordForcedLogout()
			a.logger.Warn("refresh failed, logging out", "error", err)
			a.session.Logout(ctx)
			a.sink.Notify(notify.New(notify.Warning, notify.ForcedLogout))
			return nil, fmt.Errorf("%w: %v", ErrForcedLogout, err)
		}
		a.metrics.RecordRefresh(true)
		a.logger.Debug("credential refreshed", "expires_at", tok.ExpiresAt)
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Token), nil
}
