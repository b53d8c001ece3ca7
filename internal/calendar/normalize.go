package calendar

import (
	"time"

	"booking-calendar/internal/model"
)

// The API stores wall-clock times: the local time of day is written with a
// UTC designator and read back the same way. These helpers convert between
// that encoding and real instants in loc.

// EncodeWallClock prepares e for the wire.
func EncodeWallClock(e model.CalendarEntry, loc *time.Location) model.CalendarEntry {
	e.Start = toWall(e.Start, loc)
	e.End = toWall(e.End, loc)
	return e
}

// Normalize turns a decoded entry into local instants.
func Normalize(e model.CalendarEntry, loc *time.Location) model.CalendarEntry {
	e.Start = fromWall(e.Start, loc)
	e.End = fromWall(e.End, loc)
	return e
}

func toWall(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), time.UTC)
}

func fromWall(t time.Time, loc *time.Location) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), loc)
}
