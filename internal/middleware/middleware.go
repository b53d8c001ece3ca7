// Package middleware holds the outbound interceptors wrapped around the API
// client's transport: credential attach and inline refresh, status
// notifications, throttling, request ids, logging and metrics.
package middleware

import "net/http"

// Interceptor wraps a transport.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripFunc adapts a function to http.RoundTripper.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain wraps base so that the first interceptor is the outermost: it sees
// the request first and the response last.
func Chain(base http.RoundTripper, interceptors ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		rt = interceptors[i](rt)
	}
	return rt
}
