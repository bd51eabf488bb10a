// Package dashboard drives the live metric cards: a ticker nudges each value
// by a random percentage and publishes the snapshot for readers.
package dashboard

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultInterval is the refresh period of the dashboard cards.
const DefaultInterval = 5 * time.Second

// DefaultJitter is the largest relative change applied per tick.
const DefaultJitter = 0.05

// Metric is one dashboard card.
type Metric struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
	Severity string  `json:"severity"`
	// Warn and Critical are thresholds on Value; zero disables them.
	Warn     float64 `json:"-"`
	Critical float64 `json:"-"`
	// Compliance cards derive Value and Severity from the check counts.
	Compliance *ComplianceCounts `json:"compliance,omitempty"`
}

// Snapshot is the published state of every card.
type Snapshot struct {
	At      time.Time `json:"at"`
	Seq     int64     `json:"seq"`
	Metrics []Metric  `json:"metrics"`
}

// Publisher receives every snapshot produced by the ticker.
type Publisher interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// TickerConfig configures a Ticker.
type TickerConfig struct {
	Interval  time.Duration
	Jitter    float64
	Metrics   []Metric
	Publisher Publisher
	Logger    *slog.Logger
	Rand      *rand.Rand
	Now       func() time.Time
}

// Ticker perturbs the metric values on a fixed interval.
type Ticker struct {
	mu       sync.Mutex
	metrics  []Metric
	seq      int64
	interval time.Duration
	jitter   float64
	pub      Publisher
	logger   *slog.Logger
	rnd      *rand.Rand
	now      func() time.Time
}

// DefaultMetrics returns the cards shown on the operations dashboard.
func DefaultMetrics() []Metric {
	return []Metric{
		{Name: "active_users", Label: "Active users", Value: 128},
		{Name: "orders_today", Label: "Orders today", Value: 46},
		{Name: "revenue_today", Label: "Revenue today", Value: 182450, Unit: "MAD"},
		{Name: "api_latency_ms", Label: "API latency", Value: 120, Unit: "ms", Warn: 250, Critical: 500},
		{Name: "error_rate", Label: "Error rate", Value: 0.8, Unit: "%", Warn: 2, Critical: 5},
		{Name: "stock_alerts", Label: "Stock alerts", Value: 3, Warn: 5, Critical: 10},
		{Name: "document_compliance", Label: "Document compliance", Unit: "%",
			Compliance: &ComplianceCounts{Passed: 42, Warnings: 5, Failed: 1}},
	}
}

// NewTicker builds a Ticker, filling defaults for zero config values.
func NewTicker(cfg TickerConfig) *Ticker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = DefaultJitter
	}
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	metrics := append([]Metric(nil), cfg.Metrics...)
	for i := range metrics {
		if c := metrics[i].Compliance; c != nil {
			counts := *c
			metrics[i].Compliance = &counts
			metrics[i].Value = ComplianceScore(counts)
		}
		metrics[i].Severity = severity(metrics[i])
	}
	return &Ticker{
		metrics:  metrics,
		interval: cfg.Interval,
		jitter:   cfg.Jitter,
		pub:      cfg.Publisher,
		logger:   cfg.Logger,
		rnd:      cfg.Rand,
		now:      cfg.Now,
	}
}

// Snapshot returns the current values without changing them.
func (t *Ticker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Tick perturbs every metric once and publishes the result.
func (t *Ticker) Tick(ctx context.Context) (Snapshot, error) {
	t.mu.Lock()
	for i := range t.metrics {
		m := &t.metrics[i]
		if m.Compliance != nil {
			continue
		}
		delta := (t.rnd.Float64()*2 - 1) * t.jitter
		m.Value = math.Max(0, math.Round(m.Value*(1+delta)*100)/100)
		m.Severity = severity(*m)
	}
	t.seq++
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if t.pub == nil {
		return snap, nil
	}
	return snap, t.pub.Publish(ctx, snap)
}

// Run ticks until ctx is cancelled. Publish failures are logged, not fatal.
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := t.Tick(ctx); err != nil {
				t.logger.Warn("publish dashboard snapshot", slog.Any("error", err))
			}
		}
	}
}

func (t *Ticker) snapshotLocked() Snapshot {
	return Snapshot{
		At:      t.now().UTC(),
		Seq:     t.seq,
		Metrics: cloneMetrics(t.metrics),
	}
}

func cloneMetrics(in []Metric) []Metric {
	out := append([]Metric(nil), in...)
	for i := range out {
		if c := out[i].Compliance; c != nil {
			counts := *c
			out[i].Compliance = &counts
		}
	}
	return out
}

func severity(m Metric) string {
	if m.Compliance != nil {
		return ComplianceSeverity(m.Value)
	}
	switch {
	case m.Critical > 0 && m.Value >= m.Critical:
		return "critical"
	case m.Warn > 0 && m.Value >= m.Warn:
		return "warning"
	default:
		return "info"
	}
}
