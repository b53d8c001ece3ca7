package calendar

import (
	"sort"
	"time"

	"booking-calendar/internal/model"
)

// DefaultUnit is the slot length used when Projector.Unit is zero.
const DefaultUnit = 15 * time.Minute

// Segment is the part of an entry that falls on one local day.
type Segment struct {
	Entry model.CalendarEntry
	Start time.Time
	End   time.Time
	// Slots is the whole number of units the segment covers, rounded down.
	Slots int
}

func (s Segment) Span() time.Duration { return s.End.Sub(s.Start) }

// Projector lays entries out on a grid of fixed-size slots. It holds no
// state and is safe to share.
type Projector struct {
	Unit     time.Duration
	Location *time.Location
}

func (p Projector) unit() time.Duration {
	if p.Unit <= 0 {
		return DefaultUnit
	}
	return p.Unit
}

func (p Projector) loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Split cuts each entry at every local midnight it crosses. Pieces of zero
// length are dropped. The result is ordered the way Cell picks winners.
func (p Projector) Split(entries []model.CalendarEntry) []Segment {
	loc, unit := p.loc(), p.unit()
	var out []Segment
	for _, e := range entries {
		start, end := e.Start.In(loc), e.End.In(loc)
		for start.Before(end) {
			midnight := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, loc)
			stop := end
			if midnight.Before(end) {
				stop = midnight
			}
			out = append(out, Segment{
				Entry: e,
				Start: start,
				End:   stop,
				Slots: int(stop.Sub(start) / unit),
			})
			start = stop
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return before(out[i], out[j]) })
	return out
}

// before orders overlapping candidates: earliest start, then longest span,
// then lowest entry id.
func before(a, b Segment) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if a.Span() != b.Span() {
		return a.Span() > b.Span()
	}
	return a.Entry.ID < b.Entry.ID
}

// Cell returns the segment drawn in the cell starting at cellStart: the one
// whose start lies in [cellStart, cellStart+Unit). When several qualify the
// earliest start wins, then the longest span, then the lowest id.
func (p Projector) Cell(segments []Segment, cellStart time.Time) (Segment, bool) {
	cellEnd := cellStart.Add(p.unit())
	var (
		best  Segment
		found bool
	)
	for _, s := range segments {
		if s.Start.Before(cellStart) || !s.Start.Before(cellEnd) {
			continue
		}
		if !found || before(s, best) {
			best, found = s, true
		}
	}
	return best, found
}

// Slot is one cell of the grid. Covered marks a cell that lies under a
// segment drawn in an earlier cell of the same day.
type Slot struct {
	Start   time.Time
	Segment *Segment
	Covered bool
}

type Day struct {
	Date  time.Time
	Slots []Slot
}

type Grid struct {
	Week model.WeekKey
	Unit time.Duration
	Days [7]Day
}

// Rows is the number of slots per day.
func (p Projector) Rows() int {
	return int(24 * time.Hour / p.unit())
}

// Week projects bucket onto a 7 x Rows grid for the week named by key.
func (p Projector) Week(key model.WeekKey, bucket model.Bucket) (Grid, error) {
	loc, unit := p.loc(), p.unit()
	days, err := Days(key, loc)
	if err != nil {
		return Grid{}, err
	}

	entries := make([]model.CalendarEntry, 0, len(bucket))
	for _, e := range bucket {
		entries = append(entries, e)
	}
	segments := p.Split(entries)

	g := Grid{Week: key, Unit: unit}
	rows := p.Rows()
	for d, date := range days {
		day := Day{Date: date, Slots: make([]Slot, rows)}
		var coveredUntil time.Time
		for r := range rows {
			start := time.Date(date.Year(), date.Month(), date.Day(), 0, r*int(unit/time.Minute), 0, 0, loc)
			slot := Slot{Start: start}
			if s, ok := p.Cell(segments, start); ok {
				slot.Segment = &s
				if s.End.After(coveredUntil) {
					coveredUntil = s.End
				}
			} else if start.Before(coveredUntil) {
				slot.Covered = true
			}
			day.Slots[r] = slot
		}
		g.Days[d] = day
	}
	return g, nil
}
