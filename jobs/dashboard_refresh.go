package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-docs/internal/dashboard"
	jobmetrics "github.com/odyssey-erp/odyssey-docs/internal/jobs"
)

// TaskDashboardRefresh re-publishes the dashboard snapshot on a schedule.
const TaskDashboardRefresh = "dashboard:refresh"

// DashboardRefreshPayload carries scheduling metadata.
type DashboardRefreshPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewDashboardRefreshTask constructs an Asynq task for the dashboard refresh.
func NewDashboardRefreshTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DashboardRefreshPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardRefresh, body, asynq.Queue(QueueDefault)), nil
}

// SnapshotStore reads and republishes dashboard snapshots.
type SnapshotStore interface {
	dashboard.Publisher
	Latest(ctx context.Context) (dashboard.Snapshot, error)
}

// DashboardRefreshJob keeps the published snapshot alive when no live ticker runs.
// When nothing has been published yet the ticker produces a fresh one.
type DashboardRefreshJob struct {
	Store   SnapshotStore
	Ticker  *dashboard.Ticker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDashboardRefreshJob wires dependencies for the refresh handler.
func NewDashboardRefreshJob(store SnapshotStore, ticker *dashboard.Ticker, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardRefreshJob {
	return &DashboardRefreshJob{
		Store:   store,
		Ticker:  ticker,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskDashboardRefresh tasks.
func (j *DashboardRefreshJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("dashboard refresh: handler not configured")
	}
	var payload DashboardRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskDashboardRefresh)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	snap, err := j.Store.Latest(ctx)
	switch {
	case errors.Is(err, dashboard.ErrNoSnapshot):
		if j.Ticker == nil {
			return nil
		}
		if _, err := j.Ticker.Tick(ctx); err != nil {
			return fmt.Errorf("dashboard refresh: tick: %w", err)
		}
		j.log().Info("dashboard snapshot seeded")
		return nil
	case err != nil:
		return fmt.Errorf("dashboard refresh: %w", err)
	}

	snap.At = j.now()
	if err := j.Store.Publish(ctx, snap); err != nil {
		return fmt.Errorf("dashboard refresh: publish: %w", err)
	}
	j.log().Debug("dashboard snapshot republished", slog.Int64("seq", snap.Seq))
	return nil
}

func (j *DashboardRefreshJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *DashboardRefreshJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
