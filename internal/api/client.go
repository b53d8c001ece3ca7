// Package api is the JSON client for the booking calendar HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody caps how much of an error response is kept in the error text.
const maxErrorBody = 512

type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// New returns a client rooted at baseURL (e.g. "https://host/api"). All
// interception happens in hc's transport.
func New(baseURL string, hc *http.Client, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q: scheme and host required", baseURL)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{base: u, http: hc, logger: logger.With("component", "api")}, nil
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	bearer string
	body   any
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	u := *c.base
	u.Path = c.base.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", r.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api call", "op", r.op, "method", r.method, "path", r.path, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: %w", r.op, ErrConflict)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &NotAuthorizedError{Op: r.op, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &NetworkError{Op: r.op, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(msg)))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: r.op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
