package dashboard

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Minute)
}

func TestTickStaysWithinJitter(t *testing.T) {
	ticker := NewTicker(TickerConfig{
		Jitter:  0.05,
		Metrics: []Metric{{Name: "active_users", Value: 1000}},
		Rand:    rand.New(rand.NewPCG(1, 2)),
	})

	prev := 1000.0
	for i := 0; i < 100; i++ {
		snap, err := ticker.Tick(context.Background())
		require.NoError(t, err)
		v := snap.Metrics[0].Value
		assert.InDelta(t, prev, v, prev*0.05+0.01)
		prev = v
	}
	assert.Equal(t, int64(100), ticker.Snapshot().Seq)
}

func TestTickUpdatesSeverity(t *testing.T) {
	ticker := NewTicker(TickerConfig{
		Metrics: []Metric{{Name: "error_rate", Value: 6, Warn: 2, Critical: 5}},
		Rand:    rand.New(rand.NewPCG(3, 4)),
	})
	assert.Equal(t, "critical", ticker.Snapshot().Metrics[0].Severity)
}

func TestTickPublishesToRedis(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	ticker := NewTicker(TickerConfig{Publisher: store, Rand: rand.New(rand.NewPCG(5, 6))})
	snap, err := ticker.Tick(ctx)
	require.NoError(t, err)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Seq, latest.Seq)
	assert.Len(t, latest.Metrics, len(DefaultMetrics()))
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Subscribe(ctx)
	require.NoError(t, err)

	ticker := NewTicker(TickerConfig{Publisher: store, Rand: rand.New(rand.NewPCG(7, 8))})
	_, err = ticker.Tick(ctx)
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, int64(1), snap.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot not delivered")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ticker := NewTicker(TickerConfig{Interval: time.Millisecond, Rand: rand.New(rand.NewPCG(9, 10))})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := ticker.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, ticker.Snapshot().Seq, int64(0))
}

func TestComplianceScore(t *testing.T) {
	assert.Equal(t, 0.0, ComplianceScore(ComplianceCounts{}))
	assert.Equal(t, 100.0, ComplianceScore(ComplianceCounts{Passed: 12}))
	assert.Equal(t, 87.5, ComplianceScore(ComplianceCounts{Passed: 6, Warnings: 2}))
	assert.Equal(t, "low", ComplianceSeverity(92))
	assert.Equal(t, "medium", ComplianceSeverity(87.5))
	assert.Equal(t, "critical", ComplianceSeverity(10))
}

func TestComplianceCardHoldsStill(t *testing.T) {
	ticker := NewTicker(TickerConfig{
		Metrics: []Metric{
			{Name: "document_compliance", Compliance: &ComplianceCounts{Passed: 6, Warnings: 2}},
			{Name: "audit_compliance", Compliance: &ComplianceCounts{Passed: 1, Failed: 3}},
		},
		Rand: rand.New(rand.NewPCG(9, 10)),
	})
	for i := 0; i < 10; i++ {
		_, err := ticker.Tick(context.Background())
		require.NoError(t, err)
	}
	snap := ticker.Snapshot()
	assert.Equal(t, 87.5, snap.Metrics[0].Value)
	assert.Equal(t, "medium", snap.Metrics[0].Severity)
	assert.Equal(t, 25.0, snap.Metrics[1].Value)
	assert.Equal(t, "critical", snap.Metrics[1].Severity)

	snap.Metrics[0].Compliance.Failed = 99
	assert.Zero(t, ticker.Snapshot().Metrics[0].Compliance.Failed)
}

func TestDefaultMetricsIncludeCompliance(t *testing.T) {
	snap := NewTicker(TickerConfig{}).Snapshot()
	var found bool
	for _, m := range snap.Metrics {
		if m.Name == "document_compliance" {
			found = true
			assert.Equal(t, 92.7, m.Value)
			assert.Equal(t, "low", m.Severity)
		}
	}
	assert.True(t, found)
}
