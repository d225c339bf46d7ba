// Package metrics collects and exposes Prometheus metrics for the API and
// the reconciler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the HTTP middleware and the reconciler report to.
type Recorder interface {
	RecordRequest(method string, status int, duration time.Duration)
	RecordAuthFailure(reason string)
	RecordRebuild(result string)
}

type Collector struct {
	requests     *prometheus.CounterVec
	latency      prometheus.Histogram
	authFailures *prometheus.CounterVec
	rebuilds     *prometheus.CounterVec
}

// NewCollector creates the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloglist_http_requests_total",
			Help: "Number of HTTP requests by method and status code.",
		}, []string{"method", "status_code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloglist_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloglist_auth_failures_total",
			Help: "Rejected authentication attempts by reason.",
		}, []string{"reason"}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloglist_owned_blogs_rebuilds_total",
			Help: "Owned blog list rebuilds by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.authFailures,
		c.rebuilds,
	)

	return c
}

func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.latency.Observe(duration.Seconds())
}

func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordRebuild(result string) {
	c.rebuilds.WithLabelValues(result).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) RecordRequest(string, int, time.Duration) {}
func (NoopRecorder) RecordAuthFailure(string)                 {}
func (NoopRecorder) RecordRebuild(string)                     {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = NoopRecorder{}
)
