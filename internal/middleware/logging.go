package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"booking-calendar/internal/metrics"
)

// Logging writes one line per call. Failures and error statuses are logged
// at warn, everything else at debug.
func Logging(logger *slog.Logger) Interceptor {
	logger = logger.With("component", "http")
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"duration", time.Since(start),
				"request_id", req.Header.Get(RequestIDHeader),
			}
			switch {
			case err != nil:
				logger.Warn("request failed", append(attrs, "error", err)...)
			case resp.StatusCode >= 400:
				logger.Warn("request", append(attrs, "status", resp.StatusCode)...)
			default:
				logger.Debug("request", append(attrs, "status", resp.StatusCode)...)
			}
			return resp, err
		})
	}
}

// Metrics records method, status and latency per call. Calls that got no
// response are recorded with status 0.
func Metrics(rec metrics.Recorder) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			status := 0
			if err == nil {
				status = resp.StatusCode
			}
			rec.RecordRequest(req.Method, status, time.Since(start))
			return resp, err
		})
	}
}
