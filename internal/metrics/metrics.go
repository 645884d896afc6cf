// Package metrics holds the Prometheus collectors shared by the dimension
// backends and the bus consumer.
package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jacentio/dimstore/dimension"
)

const namespace = "dimstore"

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeConflict  = "conflict"
	OutcomeTransient = "transient"
	OutcomeError     = "error"
)

// Metrics records backend and consumer activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	opsTotal       *prometheus.CounterVec
	opLatency      *prometheus.HistogramVec
	allocations    *prometheus.CounterVec
	conflictsTotal *prometheus.CounterVec
	retriesTotal   *prometheus.CounterVec
	messagesTotal  *prometheus.CounterVec
}

// New registers the collectors with reg. Use prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		opsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of repository operations by outcome.",
		}, []string{"backend", "entity", "op", "outcome"}),
		opLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency distribution of repository operations.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5,
			},
		}, []string{"backend", "entity", "op"}),
		allocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_allocations_total",
			Help:      "Total number of surrogate keys issued per sequence.",
		}, []string{"backend", "sequence"}),
		conflictsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Total number of writes rejected by a constraint.",
		}, []string{"backend", "entity", "constraint"}),
		retriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimistic_retries_total",
			Help:      "Total number of writes retried after a concurrent modification.",
		}, []string{"backend", "entity", "op"}),
		messagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_messages_total",
			Help:      "Total number of bus messages handled by result.",
		}, []string{"entity", "op", "result"}),
	}
}

// Outcome maps an operation error to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, dimension.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, dimension.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, dimension.ErrTransient):
		return OutcomeTransient
	default:
		return OutcomeError
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(backend, entity, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.opsTotal.WithLabelValues(backend, entity, op, Outcome(err)).Inc()
	m.opLatency.WithLabelValues(backend, entity, op).Observe(time.Since(start).Seconds())

	var conflict *dimension.ConflictError
	if errors.As(err, &conflict) {
		m.conflictsTotal.WithLabelValues(backend, entity, conflict.Constraint).Inc()
	}
}

// Allocated records one issued key.
func (m *Metrics) Allocated(backend, sequence string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(backend, sequence).Inc()
}

// Retried records one optimistic-concurrency retry.
func (m *Metrics) Retried(backend, entity, op string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(backend, entity, op).Inc()
}

// Message records one handled bus message.
func (m *Metrics) Message(entity, op, result string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(entity, op, result).Inc()
}
