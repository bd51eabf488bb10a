package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	jobmetrics "github.com/odyssey-erp/odyssey-docs/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDocumentSubmitted announces a document saved through the form submit path.
	TaskDocumentSubmitted = "documents:submitted"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DocumentSubmittedPayload describes a saved document.
type DocumentSubmittedPayload struct {
	DocumentID  uuid.UUID        `json:"document_id"`
	Kind        documents.Kind   `json:"kind"`
	Number      string           `json:"number"`
	Status      documents.Status `json:"status"`
	PartyName   string           `json:"party_name"`
	PartyEmail  string           `json:"party_email,omitempty"`
	Currency    string           `json:"currency"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

// PayloadFor captures the fields of doc carried by the submitted task.
func PayloadFor(doc *documents.Document) DocumentSubmittedPayload {
	at := doc.UpdatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return DocumentSubmittedPayload{
		DocumentID:  doc.ID,
		Kind:        doc.Kind,
		Number:      doc.Number,
		Status:      doc.Status,
		PartyName:   doc.PartyName,
		PartyEmail:  doc.Email,
		Currency:    doc.Currency,
		TotalAmount: doc.TotalAmount,
		SubmittedAt: at,
	}
}

// NewDocumentSubmittedTask constructs an Asynq task.
func NewDocumentSubmittedTask(payload DocumentSubmittedPayload) (*asynq.Task, error) {
	if payload.DocumentID == uuid.Nil {
		return nil, errors.New("documents submitted: document id required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDocumentSubmitted, data, asynq.Queue(QueueDefault)), nil
}

// DocumentLoader reads the stored copy of a document.
type DocumentLoader interface {
	Load(ctx context.Context, id uuid.UUID) (*documents.Document, error)
}

// DocumentSubmittedJob records submitted documents once they reach the queue.
type DocumentSubmittedJob struct {
	Loader  DocumentLoader
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDocumentSubmittedJob wires dependencies for the handler. loader may be nil.
func NewDocumentSubmittedJob(loader DocumentLoader, logger *slog.Logger, metrics *jobmetrics.Metrics) *DocumentSubmittedJob {
	return &DocumentSubmittedJob{Loader: loader, Logger: logger, Metrics: metrics}
}

// Handle processes TaskDocumentSubmitted tasks.
func (j *DocumentSubmittedJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil {
		return errors.New("documents submitted: handler not configured")
	}
	var payload DocumentSubmittedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.DocumentID == uuid.Nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDocumentSubmitted)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("document_id", payload.DocumentID.String()),
		slog.String("kind", string(payload.Kind)),
		slog.String("number", payload.Number),
	)

	if j.Loader != nil {
		doc, err := j.Loader.Load(ctx, payload.DocumentID)
		if errors.Is(err, documents.ErrNotFound) {
			logger.Warn("submitted document no longer exists")
			return fmt.Errorf("documents submitted: %w", asynq.SkipRetry)
		}
		if err != nil {
			return fmt.Errorf("documents submitted: load: %w", err)
		}
		if !doc.TotalAmount.Equal(payload.TotalAmount) {
			logger.Info("document changed after submit",
				slog.String("submitted_total", payload.TotalAmount.StringFixed(2)),
				slog.String("current_total", doc.TotalAmount.StringFixed(2)))
		}
	}

	logger.Info("document submitted",
		slog.String("status", string(payload.Status)),
		slog.String("party", payload.PartyName),
		slog.String("total", payload.TotalAmount.StringFixed(2)+" "+payload.Currency),
		slog.Time("submitted_at", payload.SubmittedAt))
	return nil
}

func (j *DocumentSubmittedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *DocumentSubmittedJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
