package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"booking-calendar/internal/model"
)

// ListEntries returns every entry overlapping the week starting at key.
func (c *Client) ListEntries(ctx context.Context, key model.WeekKey) ([]model.CalendarEntry, error) {
	var out []model.CalendarEntry
	err := c.do(ctx, request{
		op:     "list entries",
		method: http.MethodGet,
		path:   "/calendar/entries",
		query:  url.Values{"start": {string(key)}},
	}, &out)
	return out, err
}

func (c *Client) CreateEntry(ctx context.Context, e model.CalendarEntry) (model.CalendarEntry, error) {
	var out model.CalendarEntry
	err := c.do(ctx, request{
		op:     "create entry",
		method: http.MethodPost,
		path:   "/calendar/entries",
		body:   e,
	}, &out)
	return out, err
}

// CreateSeries returns every entry the server materialized for the series.
func (c *Client) CreateSeries(ctx context.Context, e model.CalendarEntry, s model.Series) ([]model.CalendarEntry, error) {
	var out []model.CalendarEntry
	err := c.do(ctx, request{
		op:     "create series",
		method: http.MethodPost,
		path:   "/calendar/series",
		body:   model.SeriesRequest{Series: s, Entry: e},
	}, &out)
	return out, err
}

// DeleteEntry removes one entry. email is checked server-side for ownership.
func (c *Client) DeleteEntry(ctx context.Context, id int, email string) error {
	return c.do(ctx, request{
		op:     "delete entry",
		method: http.MethodDelete,
		path:   "/calendar/entries/" + strconv.Itoa(id),
		query:  url.Values{"email": {email}},
	}, nil)
}

func (c *Client) DeleteSeries(ctx context.Context, seriesID int, email string) error {
	return c.do(ctx, request{
		op:     "delete series",
		method: http.MethodDelete,
		path:   "/calendar/series/" + strconv.Itoa(seriesID),
		query:  url.Values{"email": {email}},
	}, nil)
}
