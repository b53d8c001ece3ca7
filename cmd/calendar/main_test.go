package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"booking-calendar/internal/model"
	"booking-calendar/internal/testutil"
)

func setupEnv(t *testing.T) *testutil.FakeServer {
	t.Helper()
	srv := testutil.NewFakeServer(t)
	t.Setenv("CALENDAR_API_BASE_URL", srv.Base())
	t.Setenv("CALENDAR_STATE_DB", filepath.Join(t.TempDir(), "state.db"))
	t.Setenv("CALENDAR_TIMEZONE", "UTC")
	t.Setenv("CALENDAR_SLOT_MINUTES", "")
	t.Setenv("CALENDAR_LOG_LEVEL", "error")
	return srv
}

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestUsage(t *testing.T) {
	out, _, err := runCmd(t, "")
	if err != nil || !strings.Contains(out, "usage: calendar") {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if _, _, err := runCmd(t, "", "frobnicate"); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestSessionPersistsAcrossRuns(t *testing.T) {
	setupEnv(t)

	if _, _, err := runCmd(t, "admin\n", "login", "-u", "admin"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, _, err := runCmd(t, "", "status")
	if err != nil || !strings.Contains(out, "session: authenticated") {
		t.Fatalf("status: %q %v", out, err)
	}

	if _, _, err := runCmd(t, "", "logout"); err != nil {
		t.Fatal(err)
	}
	out, _, _ = runCmd(t, "", "status")
	if !strings.Contains(out, "session: anonymous") {
		t.Fatalf("status after logout: %q", out)
	}
}

func TestBookThenShowWeek(t *testing.T) {
	srv := setupEnv(t)
	day := time.Now().UTC().AddDate(0, 0, 8)
	date := day.Format("2006-01-02")

	_, stderr, err := runCmd(t, "", "book",
		"-start", date+" 09:00", "-end", date+" 10:30",
		"-first", "Ada", "-last", "Lovelace", "-email", "ada@example.com")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if !strings.Contains(stderr, "Your booking was saved.") {
		t.Errorf("stderr = %q", stderr)
	}
	if got := srv.Entries(); len(got) != 1 || got[0].Start.Hour() != 9 {
		t.Fatalf("server entries = %+v", got)
	}

	out, _, err := runCmd(t, "", "week", "-date", date)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if !strings.Contains(out, "09:00-10:30") || !strings.Contains(out, "Ada") || !strings.Contains(out, "6 slots") {
		t.Fatalf("week output:\n%s", out)
	}

	// the next booking is prefilled from the last one
	_, _, err = runCmd(t, "", "book", "-start", date+" 11:00", "-end", date+" 12:00")
	if err != nil {
		t.Fatalf("prefilled book: %v", err)
	}
	if got := srv.Entries(); len(got) != 2 || got[1].FirstName != "Ada" {
		t.Fatalf("server entries = %+v", got)
	}
}

func TestBookConflict(t *testing.T) {
	setupEnv(t)
	date := time.Now().UTC().AddDate(0, 0, 8).Format("2006-01-02")
	args := []string{"book", "-start", date + " 09:00", "-end", date + " 10:00", "-first", "Ada"}

	if _, _, err := runCmd(t, "", args...); err != nil {
		t.Fatal(err)
	}
	_, stderr, err := runCmd(t, "", args...)
	if err == nil || !strings.Contains(stderr, "overlaps") {
		t.Fatalf("err=%v stderr=%q", err, stderr)
	}
}

func TestExport(t *testing.T) {
	srv := setupEnv(t)
	day := time.Now().UTC().AddDate(0, 0, 8)
	start := time.Date(day.Year(), day.Month(), day.Day(), 14, 0, 0, 0, time.UTC)
	srv.Seed(testEntry(start))

	path := filepath.Join(t.TempDir(), "week.ics")
	if _, _, err := runCmd(t, "", "export", "-date", day.Format("2006-01-02"), "-o", path); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "SUMMARY:Grace") {
		t.Fatalf("ics:\n%s", b)
	}
}

func testEntry(start time.Time) model.CalendarEntry {
	return model.CalendarEntry{FirstName: "Grace", Start: start, End: start.Add(time.Hour)}
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
}

func (f *failingCloser) Close() error { return f.closeErr }

func TestWriteAndCloseReportsCloseError(t *testing.T) {
	closeErr := errors.New("disk full")
	wc := &failingCloser{closeErr: closeErr}

	err := writeAndClose(wc, func(w io.Writer) error {
		_, err := io.WriteString(w, "BEGIN:VCALENDAR")
		return err
	})
	if !errors.Is(err, closeErr) {
		t.Fatalf("err = %v, want close error", err)
	}

	// a write error wins over the close error
	writeErr := errors.New("encode")
	err = writeAndClose(wc, func(io.Writer) error { return writeErr })
	if !errors.Is(err, writeErr) {
		t.Fatalf("err = %v, want write error", err)
	}
}
