// Package metrics exposes Prometheus instruments for the HTTP service and the
// runs it executes.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/congo-pay/ledger-engine/internal/ledger"
)

const namespace = "ledger_engine"

// Run outcomes.
const (
	OutcomeCompleted    = "completed"
	OutcomeInvalidInput = "invalid_input"
	OutcomeFailed       = "failed"
)

// Metrics groups the instruments registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RecordsTotal     *prometheus.CounterVec
	RecordRejections *prometheus.CounterVec
}

// New registers every instrument on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time spent applying one input file",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Total number of records by result",
			},
			[]string{"result"},
		),
		RecordRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "record_rejections_total",
				Help:      "Rejected records by record kind and reason",
			},
			[]string{"kind", "reason"},
		),
	}
}

// Registry returns the registry the instruments live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts, latency and in-flight requests.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		err := c.Next()

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		code := strconv.Itoa(status)
		m.HTTPRequestsTotal.WithLabelValues(c.Method(), path, code).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Method(), path, code).Observe(time.Since(start).Seconds())
		return err
	}
}

// ObserveRun records the outcome of one run.
func (m *Metrics) ObserveRun(outcome string, applied, rejected int, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	m.RecordsTotal.WithLabelValues("applied").Add(float64(applied))
	m.RecordsTotal.WithLabelValues("rejected").Add(float64(rejected))
}

// Warn counts a rejected record. It satisfies diagnostics.Reporter.
func (m *Metrics) Warn(_ context.Context, err error) {
	if err == nil {
		return
	}
	kind := "unknown"
	var recErr *ledger.RecordError
	if errors.As(err, &recErr) {
		kind = recErr.Kind.String()
	}
	m.RecordRejections.WithLabelValues(kind, Reason(err)).Inc()
}

var reasons = []struct {
	err    error
	reason string
}{
	{ledger.ErrInsufficientFunds, "insufficient_funds"},
	{ledger.ErrDuplicateTransaction, "duplicate_transaction"},
	{ledger.ErrAccountLocked, "account_locked"},
	{ledger.ErrInvalidAmount, "invalid_amount"},
	{ledger.ErrUnknownTransaction, "unknown_transaction"},
	{ledger.ErrClientMismatch, "client_mismatch"},
	{ledger.ErrInvalidDisputeState, "invalid_dispute_state"},
}

// Reason maps a rejection to a bounded label value.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}
