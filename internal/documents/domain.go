package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-docs/internal/lineitems"
)

// Kind identifies the family of an itemized document.
type Kind string

const (
	KindQuotation      Kind = "quotation"
	KindSalesOrder     Kind = "sales_order"
	KindStockMovement  Kind = "stock_movement"
	KindPurchaseReport Kind = "purchase_report"
)

// Kinds lists every supported document kind.
var Kinds = []Kind{KindQuotation, KindSalesOrder, KindStockMovement, KindPurchaseReport}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := transitions[k]
	return ok
}

// PartyType is the kind of counterpart referenced by a document.
func (k Kind) PartyType() string {
	switch k {
	case KindQuotation, KindSalesOrder:
		return "customer"
	case KindStockMovement:
		return "warehouse"
	case KindPurchaseReport:
		return "supplier"
	default:
		return ""
	}
}

// Status is the lifecycle label of a document. Allowed values depend on Kind.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusConverted Status = "converted"
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusPosted    Status = "posted"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusClosed    Status = "closed"
)

// MovementType classifies stock movements.
type MovementType string

const (
	MovementIn       MovementType = "in"
	MovementOut      MovementType = "out"
	MovementTransfer MovementType = "transfer"
	MovementAdjust   MovementType = "adjust"
)

// Document is the editable header and line collection shared by all kinds.
type Document struct {
	ID             uuid.UUID            `json:"id"`
	Kind           Kind                 `json:"kind"`
	Number         string               `json:"number"`
	Date           time.Time            `json:"date"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	Status         Status               `json:"status"`
	PartyReference string               `json:"party_reference"`
	PartyName      string               `json:"party_name"`
	Email          string               `json:"email,omitempty"`
	Currency       string               `json:"currency"`
	MovementType   MovementType         `json:"movement_type,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	Items          []lineitems.LineItem `json:"items"`
	lineitems.Totals
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty draft of the given kind.
func New(kind Kind, date time.Time) *Document {
	doc := &Document{
		ID:       uuid.New(),
		Kind:     kind,
		Date:     date,
		Status:   StatusDraft,
		Currency: "EUR",
		Items:    []lineitems.LineItem{},
	}
	doc.Recalculate()
	return doc
}

// Recalculate refreshes every line total and the document totals.
func (d *Document) Recalculate() {
	d.Items = lineitems.Apply(d.Items)
	d.Totals = lineitems.RecalculateDocument(d.Items)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Items = append([]lineitems.LineItem(nil), d.Items...)
	if d.DueDate != nil {
		due := *d.DueDate
		cp.DueDate = &due
	}
	return &cp
}

// ListFilter narrows document listings.
type ListFilter struct {
	Kind   Kind
	Status Status
	Limit  int
	Offset int
}
