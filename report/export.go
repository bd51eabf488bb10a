package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	"github.com/odyssey-erp/odyssey-docs/internal/presentation"
	"github.com/odyssey-erp/odyssey-docs/internal/view"
)

const printTemplate = "documents/print"

// Renderer turns an HTML page into a PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// DocumentExporter renders documents through the print template into PDFs.
type DocumentExporter struct {
	renderer  Renderer
	engine    *view.Engine
	formatter *presentation.Formatter
}

// NewDocumentExporter wires the exporter collaborators.
func NewDocumentExporter(renderer Renderer, engine *view.Engine, formatter *presentation.Formatter) *DocumentExporter {
	if formatter == nil {
		formatter = presentation.NewFormatter("en")
	}
	return &DocumentExporter{renderer: renderer, engine: engine, formatter: formatter}
}

// HTML returns the print page for doc.
func (e *DocumentExporter) HTML(doc *documents.Document) (string, error) {
	if doc == nil {
		return "", errors.New("report: nil document")
	}
	v := presentation.NewDocumentView(doc, e.formatter)
	return e.engine.RenderString(printTemplate, view.TemplateData{Title: v.Title, Data: v})
}

// Export renders doc to PDF and returns a download filename with it.
func (e *DocumentExporter) Export(ctx context.Context, doc *documents.Document) (string, []byte, error) {
	html, err := e.HTML(doc)
	if err != nil {
		return "", nil, fmt.Errorf("report: render html: %w", err)
	}
	pdf, err := e.renderer.RenderHTML(ctx, html)
	if err != nil {
		return "", nil, fmt.Errorf("report: render pdf: %w", err)
	}
	return Filename(doc), pdf, nil
}

// Filename is the attachment name used for a document PDF.
func Filename(doc *documents.Document) string {
	name := doc.Number
	if name == "" {
		name = string(doc.Kind) + "-" + doc.ID.String()
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return name + ".pdf"
}
