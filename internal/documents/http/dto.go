package http

import (
	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	"github.com/odyssey-erp/odyssey-docs/internal/lineitems"
)

// DocumentRequest is the form payload for create, update and preview.
// Dates use the YYYY-MM-DD layout of the form inputs.
type DocumentRequest struct {
	Kind           documents.Kind       `json:"kind"`
	Number         string               `json:"number,omitempty"`
	Date           string               `json:"date"`
	DueDate        string               `json:"due_date,omitempty"`
	Status         documents.Status     `json:"status,omitempty"`
	PartyReference string               `json:"party_reference,omitempty"`
	PartyName      string               `json:"party_name"`
	Email          string               `json:"email,omitempty"`
	Currency       string               `json:"currency,omitempty"`
	MovementType   string               `json:"movement_type,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	Items          []lineitems.LineItem `json:"items"`
}

// StatusRequest asks for a status change.
type StatusRequest struct {
	Status documents.Status `json:"status"`
}

// PreviewResponse carries the recomputed lines without saving anything.
type PreviewResponse struct {
	Items  []lineitems.LineItem `json:"items"`
	Totals lineitems.Totals     `json:"totals"`
	Errors map[string]string    `json:"errors,omitempty"`
}

// ListResponse wraps a page of documents.
type ListResponse struct {
	Documents []documents.Document `json:"documents"`
	Count     int                  `json:"count"`
}
