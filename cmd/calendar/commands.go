package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"booking-calendar/internal/calendar"
	"booking-calendar/internal/metrics"
	"booking-calendar/internal/model"
)

const inputLayout = "2006-01-02 15:04"

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":         login,
	"logout":        logout,
	"status":        status,
	"week":          week,
	"book":          book,
	"book-series":   bookSeries,
	"delete":        deleteEntry,
	"delete-series": deleteSeries,
	"delete-user":   deleteUser,
	"export":        export,
}

func login(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("u", "admin", "username")
	pass := fs.String("p", "", "password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pass == "" {
		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		*pass = strings.TrimRight(line, "\r\n")
	}

	unsubscribe := a.session.Subscribe(func(s model.Session) {
		a.logger.Debug("session changed", "state", s.State())
	})
	defer unsubscribe()

	tok, err := a.session.Login(ctx, *user, *pass)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "logged in, session valid until %s\n", tok.ExpiresAt.In(a.cfg.Location).Format(inputLayout))
	return nil
}

func logout(ctx context.Context, a *app, _ []string) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.stdout, "logged out")
	return nil
}

func status(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	dump := fs.Bool("metrics", false, "print client metrics")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := a.session.Session()
	fmt.Fprintf(a.stdout, "session: %s\n", s.State())
	if s.Token != nil {
		exp := s.Token.ExpiresAt.In(a.cfg.Location).Format(inputLayout)
		if s.Token.Expired(time.Now()) {
			fmt.Fprintf(a.stdout, "credential expired at %s (refreshed on next request)\n", exp)
		} else {
			fmt.Fprintf(a.stdout, "credential valid until %s\n", exp)
		}
	}
	if *dump {
		return metrics.Dump(a.stdout, a.registry)
	}
	return nil
}

func week(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("week", flag.ContinueOnError)
	date := fs.String("date", "", "any day of the week (YYYY-MM-DD), default today")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := a.weekKey(*date)
	if err != nil {
		return err
	}
	if err := a.cache.FetchWeek(ctx, key); err != nil {
		return err
	}
	b, _ := a.cache.Bucket(key)
	g, err := a.projector.Week(key, b)
	if err != nil {
		return err
	}
	return renderWeek(a.stdout, g)
}

// entryFlags registers the flags shared by book and book-series, defaulting
// the personal fields to the last booking made from this machine.
func entryFlags(ctx context.Context, a *app, fs *flag.FlagSet) func() (model.CalendarEntry, error) {
	prefill, err := a.prefs.Load(ctx)
	if err != nil {
		a.logger.Warn("load prefill", "error", err)
	}
	start := fs.String("start", "", "start, "+inputLayout)
	end := fs.String("end", "", "end, "+inputLayout)
	first := fs.String("first", prefill.FirstName, "first name")
	last := fs.String("last", prefill.LastName, "last name")
	email := fs.String("email", prefill.Email, "email")
	blocker := fs.Bool("blocker", false, "block the slot instead of booking it")

	return func() (model.CalendarEntry, error) {
		s, err := time.ParseInLocation(inputLayout, *start, a.cfg.Location)
		if err != nil {
			return model.CalendarEntry{}, fmt.Errorf("-start: %w", err)
		}
		e, err := time.ParseInLocation(inputLayout, *end, a.cfg.Location)
		if err != nil {
			return model.CalendarEntry{}, fmt.Errorf("-end: %w", err)
		}
		return model.CalendarEntry{
			ID:        model.NewEntryID,
			FirstName: *first,
			LastName:  *last,
			Email:     *email,
			Start:     s,
			End:       e,
			IsBlocker: *blocker,
		}, nil
	}
}

func book(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	entry := entryFlags(ctx, a, fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := entry()
	if err != nil {
		return err
	}
	_, err = a.cache.CreateEntry(ctx, e)
	return err
}

func bookSeries(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("book-series", flag.ContinueOnError)
	entry := entryFlags(ctx, a, fs)
	interval := fs.String("interval", "weekly", "daily, weekly or monthly")
	reps := fs.Int("reps", 2, "number of occurrences (1-100)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := entry()
	if err != nil {
		return err
	}
	unit, err := model.ParseRecurrenceUnit(*interval)
	if err != nil {
		return err
	}
	_, err = a.cache.CreateSeries(ctx, e, model.Series{Interval: unit, Repetitions: *reps})
	return err
}

func deleteEntry(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.Int("id", 0, "entry id")
	email := fs.String("email", "", "email used when booking")
	date := fs.String("date", "", "day of the booking (YYYY-MM-DD), default today")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-id is required")
	}
	key, err := a.weekKey(*date)
	if err != nil {
		return err
	}
	return a.cache.DeleteEntry(ctx, *id, *email, key)
}

func deleteSeries(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("delete-series", flag.ContinueOnError)
	id := fs.Int("series", 0, "series id")
	email := fs.String("email", "", "email used when booking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-series is required")
	}
	return a.cache.DeleteSeries(ctx, *id, *email)
}

func deleteUser(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("delete-user", flag.ContinueOnError)
	var u model.UserRef
	fs.StringVar(&u.FirstName, "first", "", "first name")
	fs.StringVar(&u.LastName, "last", "", "last name")
	fs.StringVar(&u.Email, "email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if u.FirstName == "" || u.LastName == "" || u.Email == "" {
		return errors.New("-first, -last and -email are required")
	}
	return a.cache.DeleteUser(ctx, u)
}

func export(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	date := fs.String("date", "", "any day of the week (YYYY-MM-DD), default today")
	out := fs.String("o", "", "output file, default stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := a.weekKey(*date)
	if err != nil {
		return err
	}
	if err := a.cache.FetchWeek(ctx, key); err != nil {
		return err
	}

	write := func(w io.Writer) error {
		return calendar.WriteICS(w, a.cache.Entries(key), time.Now())
	}
	if *out == "" {
		return write(a.stdout)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	return writeAndClose(f, write)
}

// writeAndClose runs write on wc and closes it. The close error is returned
// unless write already failed.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	err := write(wc)
	if cerr := wc.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	return err
}

func (a *app) weekKey(date string) (model.WeekKey, error) {
	if date == "" {
		return calendar.KeyFor(time.Now(), a.cfg.Location), nil
	}
	d, err := time.ParseInLocation("2006-01-02", date, a.cfg.Location)
	if err != nil {
		return "", fmt.Errorf("-date: %w", err)
	}
	return calendar.KeyFor(d, a.cfg.Location), nil
}
