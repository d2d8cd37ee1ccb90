package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
	Checkouts         *prometheus.CounterVec
	PartialCommits    *prometheus.CounterVec
	ReconciledDrops   prometheus.Counter
	FailedLineDeletes prometheus.Counter
}

func New(service string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "checkouts_total",
			Help:      "Finished checkouts by terminal step.",
		}, []string{"outcome"}),
		PartialCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "checkout_partial_commits_total",
			Help:      "Best-effort checkout steps that failed after the order was created.",
		}, []string{"step"}),
		ReconciledDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "cart_lines_dropped_total",
			Help:      "Cart lines dropped because the product is missing or discontinued.",
		}),
		FailedLineDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "cart_line_delete_failures_total",
			Help:      "Remote deletes of dropped cart lines that failed.",
		}),
	}

	reg.MustRegister(m.Requests, m.LatencyMS, m.Checkouts, m.PartialCommits, m.ReconciledDrops, m.FailedLineDeletes)
	return m
}

func (m *Metrics) ObserveRequest(route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(took.Milliseconds()))
}

func (m *Metrics) CheckoutFinished(outcome string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PartialCommit(step string) {
	if m == nil {
		return
	}
	m.PartialCommits.WithLabelValues(step).Inc()
}

func (m *Metrics) LineDropped() {
	if m == nil {
		return
	}
	m.ReconciledDrops.Inc()
}

func (m *Metrics) LineDeleteFailed() {
	if m == nil {
		return
	}
	m.FailedLineDeletes.Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
