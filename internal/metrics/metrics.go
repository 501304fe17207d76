// Package metrics records collection query timings and skipped documents
// as Prometheus metrics.
//
// Metrics:
//   - typedmdx_collection_query_duration_seconds: ListAll/GetBySlug latency by folder, op and outcome
//   - typedmdx_collection_skipped_documents_total: documents left out of listings by folder and reason
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/typedmdx/pkg/apperr"
	"github.com/starford/typedmdx/pkg/collection"
)

const namespace = "typedmdx"

// Outcome labels.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeParse      = "parse"
	OutcomeValidation = "validation"
	OutcomeCanceled   = "canceled"
	OutcomeError      = "error"
)

// Collector implements collection.Observer on its own registry.
type Collector struct {
	registry      *prometheus.Registry
	queryDuration *prometheus.HistogramVec
	skipped       *prometheus.CounterVec
}

var _ collection.Observer = (*Collector)(nil)

// New creates a collector with query and skip metrics plus the Go runtime
// and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "collection",
				Name:      "query_duration_seconds",
				Help:      "Collection query latency in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"folder", "op", "outcome"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collection",
				Name:      "skipped_documents_total",
				Help:      "Documents left out of listings because they failed to load",
			},
			[]string{"folder", "reason"},
		),
	}

	c.registry.MustRegister(
		c.queryDuration,
		c.skipped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveQuery records one ListAll or GetBySlug call.
func (c *Collector) ObserveQuery(folder, op string, elapsed time.Duration, err error) {
	c.queryDuration.WithLabelValues(folder, op, Outcome(err)).Observe(elapsed.Seconds())
}

// ObserveSkip records one document left out of a listing.
func (c *Collector) ObserveSkip(folder, _ string, err error) {
	c.skipped.WithLabelValues(folder, Outcome(err)).Inc()
}

// Handler exposes the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Outcome maps an engine error to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch apperr.Kind(err) {
	case apperr.ErrNotFound:
		return OutcomeNotFound
	case apperr.ErrParse:
		return OutcomeParse
	case apperr.ErrValidation:
		return OutcomeValidation
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeCanceled
	}
	return OutcomeError
}
