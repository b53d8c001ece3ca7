// Package calendar holds the week-bucketed entry cache and the slot
// projection used to lay a week out as a grid.
package calendar

import (
	"fmt"
	"time"

	"booking-calendar/internal/model"
)

const keyLayout = "2006-01-02"

// StartOfWeek returns local midnight of the Monday on or before t. Sunday
// belongs to the week that started six days earlier.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	back := (int(lt.Weekday()) + 6) % 7
	return time.Date(lt.Year(), lt.Month(), lt.Day()-back, 0, 0, 0, 0, loc)
}

func KeyFor(t time.Time, loc *time.Location) model.WeekKey {
	return model.WeekKey(StartOfWeek(t, loc).Format(keyLayout))
}

// ParseKey returns the local Monday midnight named by key.
func ParseKey(key model.WeekKey, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(keyLayout, string(key), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("week key %q: %w", key, err)
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("week key %q: not a Monday", key)
	}
	return t, nil
}

// Days returns local midnight of each day of the week, Monday first.
func Days(key model.WeekKey, loc *time.Location) ([7]time.Time, error) {
	var out [7]time.Time
	start, err := ParseKey(key, loc)
	if err != nil {
		return out, err
	}
	for i := range out {
		out[i] = time.Date(start.Year(), start.Month(), start.Day()+i, 0, 0, 0, 0, loc)
	}
	return out, nil
}
