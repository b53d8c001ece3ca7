package calendar

import (
	"fmt"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"booking-calendar/internal/model"
)

const icsProductID = "-//booking-calendar//EN"

// WriteICS writes entries as an iCalendar document. Blockers are exported
// with a fixed summary; booked entries carry the booker's first name only.
func WriteICS(w io.Writer, entries []model.CalendarEntry, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)

	for _, e := range entries {
		ev := cal.AddEvent(eventUID(e))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(e.Start.UTC())
		ev.SetEndAt(e.End.UTC())
		if e.IsBlocker {
			ev.SetSummary("Blocked")
		} else {
			ev.SetSummary(e.FirstName)
		}
		if e.SeriesID != nil {
			ev.SetDescription("Series " + strconv.Itoa(*e.SeriesID))
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write ics: %w", err)
	}
	return nil
}

func eventUID(e model.CalendarEntry) string {
	return "entry-" + strconv.Itoa(e.ID) + "@booking-calendar"
}
