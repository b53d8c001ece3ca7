package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrConflict is returned when the server rejects a booking because it
// overlaps an existing entry (HTTP 409).
var ErrConflict = errors.New("booking overlaps an existing entry")

// NotAuthorizedError reports a 401 or 403 response.
type NotAuthorizedError struct {
	Op     string
	Status int
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, http.StatusText(e.Status))
}

// NetworkError is any other transport or server failure. Status is zero when
// no response was received.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
