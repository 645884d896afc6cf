package metrics

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jacentio/dimstore/dimension"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{&dimension.NotFoundError{Entity: "city", Key: 1}, OutcomeNotFound},
		{errors.Wrap(&dimension.ConflictError{Entity: "city"}, "add"), OutcomeConflict},
		{&dimension.TransientError{Entity: "city", Op: "insert", Err: errors.New("timeout")}, OutcomeTransient},
		{errors.New("boom"), OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())
	start := time.Now()

	m.Observe("sql", "city", "insert", start, nil)
	m.Observe("sql", "city", "insert", start, &dimension.ConflictError{Entity: "city", Constraint: "uq_city_name_oblast"})
	m.Observe("sql", "city", "insert", start, &dimension.ConflictError{Entity: "city", Constraint: "uq_city_name_oblast"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("sql", "city", "insert", OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("sql", "city", "insert", OutcomeConflict)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.conflictsTotal.WithLabelValues("sql", "city", "uq_city_name_oblast")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.opLatency))
}

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Allocated("dynamodb", "city_id")
	m.Allocated("dynamodb", "city_id")
	m.Retried("dynamodb", "city", "replace")
	m.Message("city", "create", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.allocations.WithLabelValues("dynamodb", "city_id")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retriesTotal.WithLabelValues("dynamodb", "city", "replace")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues("city", "create", "ok")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe("sql", "city", "insert", time.Now(), nil)
		m.Allocated("sql", "city_id")
		m.Retried("sql", "city", "replace")
		m.Message("city", "create", "ok")
	})
}
