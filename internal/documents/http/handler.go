// Package http exposes the document forms over JSON and HTML endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-docs/internal/dashboard"
	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	"github.com/odyssey-erp/odyssey-docs/internal/forms"
	"github.com/odyssey-erp/odyssey-docs/internal/lineitems"
	"github.com/odyssey-erp/odyssey-docs/internal/mockdata"
	"github.com/odyssey-erp/odyssey-docs/internal/observability"
	"github.com/odyssey-erp/odyssey-docs/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-docs/internal/presentation"
	"github.com/odyssey-erp/odyssey-docs/internal/view"
)

// Store is the document storage the handlers read and write.
type Store interface {
	forms.Store
	List(ctx context.Context, filter documents.ListFilter) ([]documents.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Catalog lists the master data offered by the forms.
type Catalog interface {
	Customers(ctx context.Context) ([]mockdata.Party, error)
	Suppliers(ctx context.Context) ([]mockdata.Party, error)
	Products(ctx context.Context) ([]mockdata.Product, error)
	Warehouses(ctx context.Context) ([]mockdata.Warehouse, error)
}

// SnapshotSource returns the last dashboard snapshot.
type SnapshotSource interface {
	Latest(ctx context.Context) (dashboard.Snapshot, error)
}

// SnapshotStream delivers dashboard snapshots as they are published.
type SnapshotStream interface {
	Subscribe(ctx context.Context) (<-chan dashboard.Snapshot, error)
}

// Exporter renders documents to PDF.
type Exporter interface {
	Export(ctx context.Context, doc *documents.Document) (string, []byte, error)
}

// Config wires the handler collaborators. Only Store is required.
type Config struct {
	Store       Store
	Catalog     Catalog
	Dashboard   SnapshotSource
	Stream      SnapshotStream
	Exporter    Exporter
	Notifier    forms.Notifier
	Templates   *view.Engine
	Metrics     *observability.Metrics
	Policy      documents.Policy
	// SaveTimeout bounds a shared save; zero uses forms.DefaultSaveTimeout.
	SaveTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// Handler serves the document endpoints.
type Handler struct {
	store     Store
	catalog   Catalog
	dashboard SnapshotSource
	stream    SnapshotStream
	exporter  Exporter
	templates *view.Engine
	metrics   *observability.Metrics
	formatter *presentation.Formatter
	logger    *slog.Logger
	now       func() time.Time
	formCfg   forms.Config
}

// NewHandler constructs the handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		store:     cfg.Store,
		catalog:   cfg.Catalog,
		dashboard: cfg.Dashboard,
		stream:    cfg.Stream,
		exporter:  cfg.Exporter,
		templates: cfg.Templates,
		metrics:   cfg.Metrics,
		formatter: presentation.NewFormatter("en"),
		logger:    cfg.Logger,
		now:       cfg.Now,
		formCfg: forms.Config{
			Store:       cfg.Store,
			Policy:      cfg.Policy,
			Notifier:    cfg.Notifier,
			Logger:      cfg.Logger,
			Validator:   forms.NewValidator(),
			Inflight:    &singleflight.Group{},
			SaveTimeout: cfg.SaveTimeout,
		},
	}
}

// MountRoutes registers the JSON API under the caller's prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/documents", h.list)
	r.Post("/documents", h.create)
	r.Post("/documents/preview", h.preview)
	r.Get("/documents/{id}", h.show)
	r.Put("/documents/{id}", h.update)
	r.Delete("/documents/{id}", h.remove)
	r.Post("/documents/{id}/status", h.changeStatus)
	r.Get("/catalog/{name}", h.catalogList)
	r.Get("/dashboard", h.dashboardSnapshot)
	r.Get("/dashboard/stream", h.dashboardStream)
	r.Get("/kinds", h.kinds)
}

// MountPages registers the HTML pages and PDF export.
func (h *Handler) MountPages(r chi.Router) {
	r.Get("/documents", h.indexPage)
	r.Get("/documents/{id}", h.showPage)
	r.Get("/documents/{id}/pdf", h.pdf)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	docs, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Documents: docs, Count: len(docs)})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	doc, err := h.store.Load(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if !req.Kind.Valid() {
		h.respondError(w, r, fmt.Errorf("%w: unknown kind %q", httpx.ErrValidation, req.Kind))
		return
	}
	ctrl := forms.NewController(documents.New(req.Kind, today(h.now())), h.formCfg)
	if err := applyRequest(ctrl, req); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.submit(w, r, ctrl, http.StatusCreated)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req DocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	ctrl, err := forms.Load(r.Context(), id, h.formCfg)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Kind != "" && req.Kind != ctrl.Document().Kind {
		h.respondError(w, r, fmt.Errorf("%w: kind cannot change", httpx.ErrValidation))
		return
	}
	if err := applyRequest(ctrl, req); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.submit(w, r, ctrl, http.StatusOK)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req StatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	ctrl, err := forms.Load(r.Context(), id, h.formCfg)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := ctrl.SetStatus(req.Status); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.submit(w, r, ctrl, http.StatusOK)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	kind := req.Kind
	if kind == "" {
		kind = documents.KindQuotation
	}
	if !kind.Valid() {
		h.respondError(w, r, fmt.Errorf("%w: unknown kind %q", httpx.ErrValidation, req.Kind))
		return
	}
	cfg := h.formCfg
	cfg.Store = nil
	cfg.Notifier = nil
	ctrl := forms.NewController(documents.New(kind, today(h.now())), cfg)
	if err := applyRequest(ctrl, req); err != nil {
		h.respondError(w, r, err)
		return
	}
	fields := ctrl.Errors()
	if len(fields) == 0 {
		fields = ctrl.Validate().FieldErrors()
	}
	doc := ctrl.Document()
	httpx.JSON(w, http.StatusOK, PreviewResponse{Items: doc.Items, Totals: doc.Totals, Errors: fields})
}

func (h *Handler) catalogList(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		h.respondError(w, r, httpx.ErrNotFound)
		return
	}
	ctx := r.Context()
	var (
		data any
		err  error
	)
	switch name := chi.URLParam(r, "name"); name {
	case "customers":
		data, err = h.catalog.Customers(ctx)
	case "suppliers":
		data, err = h.catalog.Suppliers(ctx)
	case "products":
		data, err = h.catalog.Products(ctx)
	case "warehouses":
		data, err = h.catalog.Warehouses(ctx)
	default:
		err = fmt.Errorf("%w: catalog %q", httpx.ErrNotFound, name)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) dashboardSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.dashboard == nil {
		h.respondError(w, r, fmt.Errorf("%w: dashboard not configured", httpx.ErrNotFound))
		return
	}
	snap, err := h.dashboard.Latest(r.Context())
	if errors.Is(err, dashboard.ErrNoSnapshot) {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

// dashboardStream relays published snapshots as server-sent events until the
// client goes away or the request deadline passes.
func (h *Handler) dashboardStream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		h.respondError(w, r, fmt.Errorf("%w: dashboard stream not configured", httpx.ErrNotFound))
		return
	}
	snaps, err := h.stream.Subscribe(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "retry: 5000\n: subscribed\n\n")
	if err := rc.Flush(); err != nil {
		return
	}
	for snap := range snaps {
		raw, err := json.Marshal(snap)
		if err != nil {
			h.logger.Warn("encode dashboard snapshot", slog.Any("error", err))
			continue
		}
		fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Seq, raw)
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

type kindInfo struct {
	Kind      documents.Kind     `json:"kind"`
	PartyType string             `json:"party_type"`
	Statuses  []documents.Status `json:"statuses"`
}

// kinds lists the document kinds with the statuses each one allows.
func (h *Handler) kinds(w http.ResponseWriter, _ *http.Request) {
	out := make([]kindInfo, 0, len(documents.Kinds))
	for _, k := range documents.Kinds {
		out = append(out, kindInfo{Kind: k, PartyType: k.PartyType(), Statuses: documents.Statuses(k)})
	}
	httpx.JSON(w, http.StatusOK, out)
}

// submit saves through the controller and writes the outcome.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, ctrl *forms.Controller, status int) {
	kind := string(ctrl.Document().Kind)
	if pending := ctrl.Errors(); len(pending) > 0 {
		h.metrics.ObserveSubmission(kind, observability.OutcomeInvalid)
		h.respondError(w, r, forms.ErrorsFromMap(pending))
		return
	}
	saved, err := ctrl.Submit(r.Context())
	if err != nil {
		var verrs forms.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			h.metrics.ObserveSubmission(kind, observability.OutcomeInvalid)
		case errors.Is(err, forms.ErrSaveConflict):
			h.metrics.ObserveSubmission(kind, observability.OutcomeConflict)
		default:
			h.metrics.ObserveSubmission(kind, observability.OutcomeFailed)
		}
		h.respondError(w, r, err)
		return
	}
	h.metrics.ObserveSubmission(kind, observability.OutcomeSaved)
	h.metrics.ObserveDocumentAmount(kind, saved.TotalAmount.InexactFloat64())
	httpx.JSON(w, status, saved)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs  forms.ValidationErrors
		subErr *forms.SubmissionError
	)
	switch {
	case errors.As(err, &verrs):
		httpx.RespondError(w, verrs)
	case errors.As(err, &subErr):
		if errors.Is(subErr.Err, documents.ErrDuplicate) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrDuplicate, subErr.Err))
			return
		}
		if errors.Is(subErr.Err, forms.ErrSaveConflict) {
			httpx.Problem(w, http.StatusConflict, "Save Conflict", subErr.Message)
			return
		}
		httpx.Problem(w, http.StatusBadGateway, "Submission Failed", subErr.Message)
	case errors.Is(err, documents.ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, documents.ErrInvalidTransition):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	case errors.Is(err, documents.ErrInvalidStatus),
		errors.Is(err, documents.ErrUnknownKind),
		errors.Is(err, forms.ErrUnknownField),
		errors.Is(err, forms.ErrItemIndex):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, httpx.ErrNotFound),
		errors.Is(err, httpx.ErrValidation),
		errors.Is(err, httpx.ErrConflict),
		errors.Is(err, httpx.ErrDuplicate),
		errors.Is(err, httpx.ErrUpstream):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("documents request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// applyRequest replays the payload onto the controller the way a user edits a form.
func applyRequest(ctrl *forms.Controller, req DocumentRequest) error {
	fields := []struct{ name, value string }{
		{"party_name", req.PartyName},
		{"party_reference", req.PartyReference},
		{"email", req.Email},
		{"notes", req.Notes},
		{"due_date", req.DueDate},
		{"movement_type", req.MovementType},
	}
	if req.Number != "" {
		fields = append(fields, struct{ name, value string }{"number", req.Number})
	}
	if req.Date != "" {
		fields = append(fields, struct{ name, value string }{"date", req.Date})
	}
	if req.Currency != "" {
		fields = append(fields, struct{ name, value string }{"currency", req.Currency})
	}
	for _, f := range fields {
		if err := ctrl.SetField(f.name, f.value); err != nil {
			return err
		}
	}
	if req.Status != "" {
		if err := ctrl.SetStatus(req.Status); err != nil {
			return err
		}
	}
	return replaceItems(ctrl, req.Items)
}

func replaceItems(ctrl *forms.Controller, items []lineitems.LineItem) error {
	current := len(ctrl.Document().Items)
	for i := 0; i < current && i < len(items); i++ {
		if _, err := ctrl.UpdateItem(i, items[i]); err != nil {
			return err
		}
	}
	for i := current - 1; i >= len(items); i-- {
		if _, err := ctrl.RemoveItem(i); err != nil {
			return err
		}
	}
	for i := current; i < len(items); i++ {
		ctrl.AddItem(items[i])
	}
	return nil
}

func documentID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid document id", httpx.ErrValidation)
	}
	return id, nil
}

func parseFilter(r *http.Request) (documents.ListFilter, error) {
	q := r.URL.Query()
	filter := documents.ListFilter{
		Kind:   documents.Kind(q.Get("kind")),
		Status: documents.Status(q.Get("status")),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return filter, fmt.Errorf("%w: unknown kind %q", httpx.ErrValidation, filter.Kind)
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("%w: %s must be a non-negative integer", httpx.ErrValidation, key)
		}
		*dst = n
	}
	return filter, nil
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
