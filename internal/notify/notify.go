// Package notify is the user-facing notification sink (toasts in a UI,
// stderr lines in the CLI).
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	Success Level = "success"
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

// Kind identifies the message independent of its wording.
type Kind string

const (
	FetchFailed      Kind = "calendar.fetch-failed"
	CreateSucceeded  Kind = "calendar.create-succeeded"
	CreateConflict   Kind = "calendar.create-conflict"
	CreateFailed     Kind = "calendar.create-failed"
	SeriesSucceeded  Kind = "calendar.series-succeeded"
	DeleteSucceeded  Kind = "calendar.delete-succeeded"
	DeleteFailed     Kind = "calendar.delete-failed"
	UserDeleted      Kind = "admin.user-deleted"
	UserDeleteFailed Kind = "admin.user-delete-failed"
	ForcedLogout     Kind = "api.logout"
	NotAuthorized    Kind = "api.401"
	Forbidden        Kind = "api.403"
	LoginFailed      Kind = "auth.login-failed"
)

var messages = map[Kind]string{
	FetchFailed:      "Could not load the calendar entries.",
	CreateSucceeded:  "Your booking was saved.",
	CreateConflict:   "That time slot overlaps an existing booking.",
	CreateFailed:     "Your booking could not be saved.",
	SeriesSucceeded:  "Your recurring booking was saved.",
	DeleteSucceeded:  "The booking was deleted.",
	DeleteFailed:     "The booking could not be deleted.",
	UserDeleted:      "The user's data was deleted.",
	UserDeleteFailed: "The user's data could not be deleted.",
	ForcedLogout:     "Your session expired. Please log in again.",
	NotAuthorized:    "You are not logged in.",
	Forbidden:        "You are not allowed to do that.",
	LoginFailed:      "Login failed.",
}

type Notification struct {
	ID       uuid.UUID
	Level    Level
	Kind     Kind
	Message  string
	Duration time.Duration
}

// New builds a notification with the default message for kind.
func New(level Level, kind Kind) Notification {
	msg, ok := messages[kind]
	if !ok {
		msg = string(kind)
	}
	n := Notification{ID: uuid.New(), Level: level, Kind: kind, Message: msg}
	if level == Success {
		n.Duration = 5 * time.Second
	}
	return n
}

type Sink interface {
	Notify(Notification)
}

type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops everything.
var Discard Sink = Func(func(Notification) {})

// LogSink writes notifications to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(n Notification) {
	level := slog.LevelInfo
	switch n.Level {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	s.Logger.Log(context.Background(), level, n.Message, "kind", n.Kind, "id", n.ID)
}

// Writer prints one line per notification, e.g. to stderr.
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

func (s *Writer) Notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.W, "[%s] %s\n", n.Level, n.Message)
}

// Multi fans out to every sink in order.
type Multi []Sink

func (m Multi) Notify(n Notification) {
	for _, s := range m {
		s.Notify(n)
	}
}

// Recorder keeps every notification; used by tests.
type Recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

// Kinds lists the recorded kinds in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.got))
	for i, n := range r.got {
		out[i] = n.Kind
	}
	return out
}
