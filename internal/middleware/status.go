package middleware

import (
	"net/http"

	"booking-calendar/internal/notify"
)

// Status reports 401 and 403 responses to sink. The session is not touched
// and the response is passed through unchanged.
func Status(sink notify.Sink) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil {
				return resp, err
			}
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				sink.Notify(notify.New(notify.Warning, notify.NotAuthorized))
			case http.StatusForbidden:
				sink.Notify(notify.New(notify.Warning, notify.Forbidden))
			}
			return resp, nil
		})
	}
}
