package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	"github.com/odyssey-erp/odyssey-docs/internal/presentation"
	"github.com/odyssey-erp/odyssey-docs/internal/view"
	"github.com/odyssey-erp/odyssey-docs/report"
)

func (h *Handler) indexPage(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	docs, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list documents page", slog.Any("error", err))
		http.Error(w, "Failed to load documents", http.StatusInternalServerError)
		return
	}
	rows := make([]presentation.DocumentView, 0, len(docs))
	for i := range docs {
		rows = append(rows, presentation.NewDocumentView(&docs[i], h.formatter))
	}
	h.render(w, r, "documents/index", view.TemplateData{Title: "Documents", CurrentPath: "/documents", Data: rows})
}

func (h *Handler) showPage(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadForPage(w, r)
	if !ok {
		return
	}
	v := presentation.NewDocumentView(doc, h.formatter)
	h.render(w, r, "documents/show", view.TemplateData{Title: v.Title, CurrentPath: "/documents", Data: v})
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	doc, ok := h.loadForPage(w, r)
	if !ok {
		return
	}
	name, pdf, err := h.exporter.Export(r.Context(), doc)
	if err != nil {
		h.logger.Error("render document pdf", slog.String("id", doc.ID.String()), slog.Any("error", err))
		status := http.StatusBadGateway
		if errors.Is(err, report.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+name)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) loadForPage(w http.ResponseWriter, r *http.Request) (*documents.Document, bool) {
	id, err := documentID(r)
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return nil, false
	}
	doc, err := h.store.Load(r.Context(), id)
	if errors.Is(err, documents.ErrNotFound) {
		http.Error(w, "Document not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Error("load document page", slog.String("id", id.String()), slog.Any("error", err))
		http.Error(w, "Failed to load document", http.StatusInternalServerError)
		return nil, false
	}
	return doc, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data view.TemplateData) {
	if h.templates == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if err := h.templates.Render(w, name, data); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.String("path", r.URL.Path), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
