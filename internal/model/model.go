package model

import (
	"errors"
	"fmt"
	"time"
)

// NewEntryID marks an entry that has not been created on the server yet.
const NewEntryID = -1

// MaxEntryDuration is the longest span a single entry may cover.
const MaxEntryDuration = 24 * time.Hour

var (
	ErrEntryOrder    = errors.New("start must be before end")
	ErrEntryTooLong  = errors.New("duration may not exceed 24 hours")
	ErrEntryInPast   = errors.New("start time must be in the future")
	ErrBadRecurrence = errors.New("invalid recurrence interval")
	ErrRepetitions   = errors.New("repetitions must be between 1 and 100")
)

type Token struct {
	Credential string
	ExpiresAt  time.Time
}

// Expired reports whether the token can no longer be attached to a request.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

type SessionState int

const (
	Anonymous SessionState = iota
	Loading
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

type Session struct {
	Loading bool
	Token   *Token
	Err     error
}

func (s Session) State() SessionState {
	switch {
	case s.Loading:
		return Loading
	case s.Token != nil:
		return Authenticated
	default:
		return Anonymous
	}
}

// CalendarEntry mirrors the wire format of /calendar/entries. LastName and
// Email are only returned to authenticated administrators.
type CalendarEntry struct {
	ID        int       `json:"Id"`
	FirstName string    `json:"FirstName"`
	LastName  string    `json:"LastName,omitempty"`
	Email     string    `json:"Email,omitempty"`
	Start     time.Time `json:"Start"`
	End       time.Time `json:"End"`
	SeriesID  *int      `json:"SeriesId,omitempty"`
	IsBlocker bool      `json:"IsBlocker"`
}

func (e CalendarEntry) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// InSeries reports whether the entry belongs to series id.
func (e CalendarEntry) InSeries(id int) bool {
	return e.SeriesID != nil && *e.SeriesID == id
}

// Validate checks the invariants enforced before an entry is submitted.
func (e CalendarEntry) Validate(now time.Time) error {
	if e.Start.Before(now) {
		return ErrEntryInPast
	}
	if !e.Start.Before(e.End) {
		return ErrEntryOrder
	}
	if e.Duration() > MaxEntryDuration {
		return ErrEntryTooLong
	}
	return nil
}

type RecurrenceUnit string

const (
	Daily   RecurrenceUnit = "daily"
	Weekly  RecurrenceUnit = "weekly"
	Monthly RecurrenceUnit = "monthly"
)

func ParseRecurrenceUnit(s string) (RecurrenceUnit, error) {
	switch u := RecurrenceUnit(s); u {
	case Daily, Weekly, Monthly:
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadRecurrence, s)
}

// Series is a creation request only; the server materializes the entries.
type Series struct {
	Interval    RecurrenceUnit `json:"Interval"`
	Repetitions int            `json:"Repetitions"`
}

func (s Series) Validate() error {
	if _, err := ParseRecurrenceUnit(string(s.Interval)); err != nil {
		return err
	}
	if s.Repetitions < 1 || s.Repetitions > 100 {
		return ErrRepetitions
	}
	return nil
}

type SeriesRequest struct {
	Series Series        `json:"Series"`
	Entry  CalendarEntry `json:"Entry"`
}

// WeekKey is the ISO date (2006-01-02) of the local Monday starting a week.
type WeekKey string

// Bucket holds every entry overlapping one week, keyed by entry id. A loaded
// bucket is complete: a missing id does not exist.
type Bucket map[int]CalendarEntry

func (b Bucket) Clone() Bucket {
	out := make(Bucket, len(b))
	for id, e := range b {
		out[id] = e
	}
	return out
}

type CacheState struct {
	Loading bool
	Err     error
	Buckets map[WeekKey]Bucket
}

// UserRef identifies the personal data erased by DELETE /admin/user.
type UserRef struct {
	FirstName string
	LastName  string
	Email     string
}

// Prefill holds the last-used booking form values.
type Prefill struct {
	FirstName string
	LastName  string
	Email     string
}
