package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"booking-calendar/internal/calendar"
)

// renderWeek prints one block per day listing the segments drawn on it.
func renderWeek(w io.Writer, g calendar.Grid) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "week of %s (%s slots)\n", g.Week, g.Unit)
	for _, day := range g.Days {
		fmt.Fprintf(tw, "\n%s\n", day.Date.Format("Mon 02 Jan"))
		n := 0
		for _, s := range day.Slots {
			if s.Segment == nil {
				continue
			}
			n++
			seg := s.Segment
			who := seg.Entry.FirstName
			if seg.Entry.IsBlocker {
				who = "(blocked)"
			}
			series := ""
			if seg.Entry.SeriesID != nil {
				series = fmt.Sprintf("series %d", *seg.Entry.SeriesID)
			}
			fmt.Fprintf(tw, "  %s-%s\t#%d\t%s\t%d slots\t%s\n",
				seg.Start.Format("15:04"), seg.End.Format("15:04"),
				seg.Entry.ID, who, seg.Slots, series)
		}
		if n == 0 {
			fmt.Fprintln(tw, "  free")
		}
	}
	return tw.Flush()
}
