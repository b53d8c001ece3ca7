package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// staleAfter is how long an idle host keeps its limiter.
const staleAfter = 3 * time.Minute

type hostLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter throttles outbound requests per host.
type RateLimiter struct {
	mu        sync.Mutex
	hosts     map[string]*hostLimiter
	r         rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		hosts: make(map[string]*hostLimiter),
		r:     rate.Limit(rps),
		burst: burst,
		now:   time.Now,
	}
}

func (rl *RateLimiter) get(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()

	// drop idle hosts at most once a minute
	if now.Sub(rl.lastSweep) > time.Minute {
		for h, c := range rl.hosts {
			if now.Sub(c.seen) > staleAfter {
				delete(rl.hosts, h)
			}
		}
		rl.lastSweep = now
	}

	if c, ok := rl.hosts[host]; ok {
		c.seen = now
		return c.lim
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.hosts[host] = &hostLimiter{lim: l, seen: now}
	return l
}

// RateLimit delays each request until its host's limiter admits it. A
// request whose context ends while waiting fails with the context's error.
func RateLimit(rl *RateLimiter) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			if err := rl.get(req.URL.Host).Wait(req.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(req)
		})
	}
}
