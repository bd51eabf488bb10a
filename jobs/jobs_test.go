package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-docs/internal/dashboard"
	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	jobmetrics "github.com/odyssey-erp/odyssey-docs/internal/jobs"
)

// ============================================================================
// MOCKS
// ============================================================================

type stubLoader struct {
	doc *documents.Document
	err error
}

func (s stubLoader) Load(_ context.Context, _ uuid.UUID) (*documents.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

type memorySnapshots struct {
	latest    *dashboard.Snapshot
	published []dashboard.Snapshot
}

func (m *memorySnapshots) Publish(_ context.Context, snap dashboard.Snapshot) error {
	m.published = append(m.published, snap)
	m.latest = &snap
	return nil
}

func (m *memorySnapshots) Latest(_ context.Context) (dashboard.Snapshot, error) {
	if m.latest == nil {
		return dashboard.Snapshot{}, dashboard.ErrNoSnapshot
	}
	return *m.latest, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleDocument() *documents.Document {
	doc := documents.New(documents.KindQuotation, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	doc.ID = uuid.New()
	doc.Number = "QUO-2026-10-0001"
	doc.PartyName = "Atlas Trading"
	doc.Email = "buyer@atlas.test"
	doc.Currency = "MAD"
	doc.TotalAmount = decimal.RequireFromString("96900")
	doc.UpdatedAt = time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	return doc
}

// ============================================================================
// DOCUMENT SUBMITTED
// ============================================================================

func TestNewDocumentSubmittedTask(t *testing.T) {
	doc := sampleDocument()
	task, err := NewDocumentSubmittedTask(PayloadFor(doc))
	require.NoError(t, err)
	assert.Equal(t, TaskDocumentSubmitted, task.Type())

	var payload DocumentSubmittedPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, doc.ID, payload.DocumentID)
	assert.Equal(t, "QUO-2026-10-0001", payload.Number)
	assert.Equal(t, "buyer@atlas.test", payload.PartyEmail)
	assert.True(t, payload.TotalAmount.Equal(decimal.RequireFromString("96900")))
	assert.True(t, payload.SubmittedAt.Equal(doc.UpdatedAt))
}

func TestNewDocumentSubmittedTaskRequiresID(t *testing.T) {
	_, err := NewDocumentSubmittedTask(DocumentSubmittedPayload{})
	assert.Error(t, err)
}

func TestDocumentSubmittedHandle(t *testing.T) {
	doc := sampleDocument()
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewDocumentSubmittedJob(stubLoader{doc: doc}, quietLogger(), metrics)

	task, err := NewDocumentSubmittedTask(PayloadFor(doc))
	require.NoError(t, err)
	assert.NoError(t, job.Handle(context.Background(), task))
}

func TestDocumentSubmittedHandleBadPayload(t *testing.T) {
	job := NewDocumentSubmittedJob(nil, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	err := job.Handle(context.Background(), asynq.NewTask(TaskDocumentSubmitted, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDocumentSubmittedHandleMissingDocument(t *testing.T) {
	doc := sampleDocument()
	job := NewDocumentSubmittedJob(stubLoader{err: documents.ErrNotFound}, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewDocumentSubmittedTask(PayloadFor(doc))
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestDocumentSubmittedHandleLoadFailureRetries(t *testing.T) {
	doc := sampleDocument()
	boom := errors.New("connection reset")
	job := NewDocumentSubmittedJob(stubLoader{err: boom}, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewDocumentSubmittedTask(PayloadFor(doc))
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

// ============================================================================
// DASHBOARD REFRESH
// ============================================================================

func TestDashboardRefreshSeedsFirstSnapshot(t *testing.T) {
	store := &memorySnapshots{}
	ticker := dashboard.NewTicker(dashboard.TickerConfig{Publisher: store, Logger: quietLogger()})
	job := NewDashboardRefreshJob(store, ticker, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewDashboardRefreshTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, store.published, 1)
	assert.EqualValues(t, 1, store.published[0].Seq)
}

func TestDashboardRefreshRepublishesLatest(t *testing.T) {
	at := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	store := &memorySnapshots{latest: &dashboard.Snapshot{Seq: 7, At: at.Add(-time.Hour)}}
	job := NewDashboardRefreshJob(store, nil, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return at }

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskDashboardRefresh, nil)))
	require.Len(t, store.published, 1)
	assert.EqualValues(t, 7, store.published[0].Seq)
	assert.True(t, store.published[0].At.Equal(at))
}

func TestDashboardRefreshNotConfigured(t *testing.T) {
	var job *DashboardRefreshJob
	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskDashboardRefresh, nil)))
}

// ============================================================================
// WORKER AND HTTP
// ============================================================================

func TestNewWorkerRegistersCron(t *testing.T) {
	task, err := NewDashboardRefreshTask(time.Time{})
	require.NoError(t, err)
	worker, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Logger:    quietLogger(),
		Handlers: []TaskHandler{
			{Type: TaskDocumentSubmitted, Handler: NewDocumentSubmittedJob(nil, quietLogger(), nil).Handle},
			{Type: "", Handler: nil},
		},
		Cron: []CronRegistration{{Spec: "@every 1m", Task: task}},
	})
	require.NoError(t, err)
	assert.NotNil(t, worker.scheduler)
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	task, err := NewDashboardRefreshTask(time.Time{})
	require.NoError(t, err)
	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Cron:      []CronRegistration{{Spec: "not a cron", Task: task}},
	})
	assert.Error(t, err)
}

func TestClientRejectsNilDocument(t *testing.T) {
	c := &Client{}
	assert.Error(t, c.DocumentSaved(context.Background(), nil))
	assert.NoError(t, c.Close())
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, quietLogger()).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var health QueueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, QueueHealth{Queue: QueueDefault}, health)
}

// ============================================================================
// METRICS SERVER
// ============================================================================

func TestMetricsServerExposesJobCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	require.NoError(t, metrics.Track(TaskDocumentSubmitted).End(nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewMetricsServer(ln.Addr().String(), reg, quietLogger()).Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `odyssey_docs_jobs_total{job="documents:submitted",status="success"} 1`)

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestMetricsServerRunReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = NewMetricsServer(ln.Addr().String(), prometheus.NewRegistry(), quietLogger()).Run(context.Background())
	assert.Error(t, err)
}
