// Command calendar is a terminal client for the booking calendar API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"booking-calendar/internal/config"
)

const usage = `usage: calendar <command> [flags]

commands:
  login          log in as administrator
  logout         drop the stored session
  status         show session state (-metrics to dump client metrics)
  week           show a week of bookings
  book           create a booking
  book-series    create a recurring booking
  delete         delete a booking
  delete-series  delete every booking of a series
  delete-user    erase a person's data (admin)
  export         write a week as iCalendar
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	return cmd(ctx, a, args[1:])
}
