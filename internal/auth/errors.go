package auth

import "errors"

// ErrBusy is returned when login or refresh is called while another one is
// still outstanding for the same session.
var ErrBusy = errors.New("auth: login or refresh already in progress")

// AuthError reports a rejected login or refresh.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return "auth: " + e.Op + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }
