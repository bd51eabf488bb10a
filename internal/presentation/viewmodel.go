package presentation

import (
	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	"github.com/odyssey-erp/odyssey-docs/internal/lineitems"
)

const dateLayout = "02 Jan 2006"

// LineRow is one formatted table row of a document.
type LineRow struct {
	Position    int
	ProductName string
	Description string
	Quantity    string
	UnitPrice   string
	Discount    string
	Tax         string
	Total       string
}

// DocumentView is the display model shared by the HTML page and the PDF export.
type DocumentView struct {
	ID            string
	Kind          string
	Title         string
	Number        string
	Date          string
	DueDate       string
	Status        string
	StatusLabel   string
	BadgeClass    string
	PartyType     string
	PartyName     string
	PartyRef      string
	Currency      string
	MovementType  string
	Notes         string
	Lines         []LineRow
	Subtotal      string
	TotalDiscount string
	TotalTax      string
	TotalAmount   string
}

// NewDocumentView formats doc for display.
func NewDocumentView(doc *documents.Document, f *Formatter) DocumentView {
	if f == nil {
		f = NewFormatter("en")
	}
	view := DocumentView{
		ID:            doc.ID.String(),
		Kind:          string(doc.Kind),
		Title:         Label(string(doc.Kind)) + " " + doc.Number,
		Number:        doc.Number,
		Status:        string(doc.Status),
		StatusLabel:   Label(string(doc.Status)),
		BadgeClass:    BadgeClass(string(doc.Status)),
		PartyType:     Label(doc.Kind.PartyType()),
		PartyName:     doc.PartyName,
		PartyRef:      doc.PartyReference,
		Currency:      doc.Currency,
		MovementType:  Label(string(doc.MovementType)),
		Notes:         doc.Notes,
		Subtotal:      f.Money(doc.Subtotal, doc.Currency),
		TotalDiscount: f.Money(doc.TotalDiscount, doc.Currency),
		TotalTax:      f.Money(doc.TotalTax, doc.Currency),
		TotalAmount:   f.Money(doc.TotalAmount, doc.Currency),
	}
	if !doc.Date.IsZero() {
		view.Date = doc.Date.Format(dateLayout)
	}
	if doc.DueDate != nil {
		view.DueDate = doc.DueDate.Format(dateLayout)
	}
	for i, item := range doc.Items {
		view.Lines = append(view.Lines, newLineRow(i+1, item, f))
	}
	return view
}

func newLineRow(pos int, item lineitems.LineItem, f *Formatter) LineRow {
	total := item.Total
	if total.IsZero() {
		total = lineitems.RecalculateLine(item).Total
	}
	return LineRow{
		Position:    pos,
		ProductName: item.ProductName,
		Description: item.Description,
		Quantity:    f.Quantity(item.Quantity),
		UnitPrice:   f.Amount(item.UnitPrice),
		Discount:    f.Percent(item.DiscountPercent),
		Tax:         f.Percent(item.TaxPercent),
		Total:       f.Amount(total),
	}
}
