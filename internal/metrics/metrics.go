// Package metrics collects client-side Prometheus metrics for outbound calls,
// session refreshes and calendar cache activity.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is what the interceptors and the cache report to.
type Recorder interface {
	RecordRequest(method string, status int, d time.Duration)
	RecordRefresh(ok bool)
	RecordForcedLogout()
	RecordWeekFetch(result string)
	RecordMutation(op string, ok bool)
}

// Week fetch results.
const (
	FetchLoaded  = "loaded"
	FetchSkipped = "skipped"
	FetchFailed  = "failed"
)

type Collector struct {
	requests     *prometheus.CounterVec
	latency      prometheus.Histogram
	refreshes    *prometheus.CounterVec
	forcedLogout prometheus.Counter
	weekFetches  *prometheus.CounterVec
	mutations    *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_client_requests_total",
			Help: "Outbound API requests by method and status code (0 = not sent or no response).",
		}, []string{"method", "status_code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "booking_client_request_seconds",
			Help:    "Outbound API request latency.",
			Buckets: prometheus.DefBuckets,
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_client_token_refresh_total",
			Help: "Inline credential refreshes by result.",
		}, []string{"result"}),
		forcedLogout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_client_forced_logout_total",
			Help: "Sessions ended because a refresh failed.",
		}),
		weekFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_client_week_fetch_total",
			Help: "Week fetch attempts by result.",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_client_cache_mutations_total",
			Help: "Create/delete operations by kind and result.",
		}, []string{"op", "result"}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.refreshes,
		c.forcedLogout,
		c.weekFetches,
		c.mutations,
	)
	return c
}

func (c *Collector) RecordRequest(method string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.latency.Observe(d.Seconds())
}

func (c *Collector) RecordRefresh(ok bool) {
	c.refreshes.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) RecordForcedLogout() {
	c.forcedLogout.Inc()
}

func (c *Collector) RecordWeekFetch(r string) {
	c.weekFetches.WithLabelValues(r).Inc()
}

func (c *Collector) RecordMutation(op string, ok bool) {
	c.mutations.WithLabelValues(op, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, int, time.Duration) {}
func (Nop) RecordRefresh(bool)                       {}
func (Nop) RecordForcedLogout()                      {}
func (Nop) RecordWeekFetch(string)                   {}
func (Nop) RecordMutation(string, bool)              {}

// Dump writes counters as "name{labels} value" lines, sorted. Histograms are
// reported by sample count.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+strconv.Quote(lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s_count %d", name, m.GetHistogram().GetSampleCount()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
