package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"

	"github.com/prometheus/client_golang/prometheus"

	"booking-calendar/internal/api"
	"booking-calendar/internal/auth"
	"booking-calendar/internal/calendar"
	"booking-calendar/internal/config"
	"booking-calendar/internal/logger"
	"booking-calendar/internal/metrics"
	"booking-calendar/internal/middleware"
	"booking-calendar/internal/notify"
	"booking-calendar/internal/store"
)

// app holds everything a command needs.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *store.SQLite
	prefs     *store.Prefs
	session   *auth.Manager
	cache     *calendar.Cache
	projector calendar.Projector
	registry  *prometheus.Registry
	stdin     io.Reader
	stdout    io.Writer
}

func newApp(ctx context.Context, cfg config.Config, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	log := logger.Setup(stderr, cfg.LogLevel)

	db, err := store.OpenSQLite(ctx, cfg.StateDB)
	if err != nil {
		return nil, err
	}
	log.Debug("state opened", "path", cfg.StateDB)

	// both clients share cookies, like a browser talking to one origin
	jar, err := cookiejar.New(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	plain, err := api.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout, Jar: jar}, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	session := auth.NewManager(ctx, plain, store.NewTokens(db), log)

	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)
	sink := notify.Multi{&notify.Writer{W: stderr}, notify.LogSink{Logger: log}}

	transport := middleware.Chain(http.DefaultTransport,
		middleware.RequestID(),
		middleware.Logging(log),
		middleware.Metrics(col),
		middleware.Status(sink),
		middleware.Auth(session, sink, middleware.AuthOptions{Metrics: col, Logger: log}),
		middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)),
	)
	client, err := api.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout, Jar: jar, Transport: transport}, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	prefs := store.NewPrefs(db)
	cache := calendar.NewCache(client, calendar.Options{
		Location: cfg.Location,
		Sink:     sink,
		Prefs:    prefs,
		Metrics:  col,
		Logger:   log,
	})

	return &app{
		cfg:       cfg,
		logger:    log,
		db:        db,
		prefs:     prefs,
		session:   session,
		cache:     cache,
		projector: calendar.Projector{Unit: cfg.SlotUnit, Location: cfg.Location},
		registry:  reg,
		stdin:     stdin,
		stdout:    stdout,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close state", "error", err)
	}
}
