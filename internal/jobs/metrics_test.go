package jobmetrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	const job = "documents:submitted"

	assert.NoError(t, m.Track(job).End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track(job).End(boom), boom)
	skip := fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	assert.ErrorIs(t, m.Track(job).End(skip), asynq.SkipRetry)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, StatusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, StatusSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(job)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, StatusSuccess, Outcome(nil))
	assert.Equal(t, StatusFailure, Outcome(errors.New("x")))
	assert.Equal(t, StatusSkipped, Outcome(asynq.SkipRetry))
}

func TestNilMetricsTrackerIsInert(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
}
