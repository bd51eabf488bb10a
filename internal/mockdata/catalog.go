package mockdata

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	"github.com/odyssey-erp/odyssey-docs/internal/lineitems"
)

// Party is a customer or supplier record.
type Party struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Email string `json:"email"`
	City  string `json:"city"`
}

// Product is a catalog entry offered on document lines.
type Product struct {
	ID         string          `json:"id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TaxPercent decimal.Decimal `json:"tax_percent"`
}

// Warehouse is a stock location referenced by stock movements.
type Warehouse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Seeded document identifiers, stable across runs.
var (
	SeedQuotationID      = uuid.MustParse("7d1b6f0e-2f4c-4c64-9a55-0c3b7d0d1a01")
	SeedSalesOrderID     = uuid.MustParse("7d1b6f0e-2f4c-4c64-9a55-0c3b7d0d1a02")
	SeedStockMovementID  = uuid.MustParse("7d1b6f0e-2f4c-4c64-9a55-0c3b7d0d1a03")
	SeedPurchaseReportID = uuid.MustParse("7d1b6f0e-2f4c-4c64-9a55-0c3b7d0d1a04")
)

func seedCustomers() []Party {
	return []Party{
		{ID: "cus-001", Code: "CUST-0001", Name: "Atlas Distribution SARL", Email: "achats@atlas-distribution.ma", City: "Casablanca"},
		{ID: "cus-002", Code: "CUST-0002", Name: "Boulangerie Nour", Email: "contact@nour.ma", City: "Rabat"},
		{ID: "cus-003", Code: "CUST-0003", Name: "Café Medina", Email: "gerant@cafemedina.ma", City: "Fès"},
	}
}

func seedSuppliers() []Party {
	return []Party{
		{ID: "sup-001", Code: "SUPP-0001", Name: "Sahara Packaging", Email: "sales@saharapack.com", City: "Tanger"},
		{ID: "sup-002", Code: "SUPP-0002", Name: "Oriental Foods Import", Email: "orders@orientalfoods.com", City: "Agadir"},
	}
}

func seedProducts() []Product {
	return []Product{
		{ID: "prd-001", SKU: "LAP-14", Name: "Laptop 14\"", Unit: "pcs", UnitPrice: decimal.NewFromInt(8500), TaxPercent: decimal.NewFromInt(20)},
		{ID: "prd-002", SKU: "MON-27", Name: "Monitor 27\"", Unit: "pcs", UnitPrice: decimal.NewFromInt(2300), TaxPercent: decimal.NewFromInt(20)},
		{ID: "prd-003", SKU: "PAP-A4", Name: "A4 paper ream", Unit: "box", UnitPrice: decimal.RequireFromString("45.50"), TaxPercent: decimal.NewFromInt(20)},
		{ID: "prd-004", SKU: "FLR-25", Name: "Flour 25kg", Unit: "bag", UnitPrice: decimal.RequireFromString("189.90"), TaxPercent: decimal.NewFromInt(7)},
	}
}

func seedWarehouses() []Warehouse {
	return []Warehouse{
		{ID: "wh-001", Code: "WH-CASA", Name: "Main warehouse", Location: "Casablanca"},
		{ID: "wh-002", Code: "WH-RBT", Name: "North depot", Location: "Rabat"},
	}
}

func seedDocuments() []*documents.Document {
	day := func(d int) time.Time { return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC) }
	validUntil := day(31)

	quotation := &documents.Document{
		ID:             SeedQuotationID,
		Kind:           documents.KindQuotation,
		Number:         documents.NextNumber(documents.KindQuotation, day(1), 1),
		Date:           day(1),
		DueDate:        &validUntil,
		Status:         documents.StatusSent,
		PartyReference: "cus-001",
		PartyName:      "Atlas Distribution SARL",
		Email:          "achats@atlas-distribution.ma",
		Currency:       "MAD",
		Items: []lineitems.LineItem{
			{ProductID: "prd-001", ProductName: "Laptop 14\"", Quantity: 10, UnitPrice: decimal.NewFromInt(8500), DiscountPercent: decimal.NewFromInt(5), TaxPercent: decimal.NewFromInt(20)},
		},
	}
	order := &documents.Document{
		ID:             SeedSalesOrderID,
		Kind:           documents.KindSalesOrder,
		Number:         documents.NextNumber(documents.KindSalesOrder, day(3), 1),
		Date:           day(3),
		Status:         documents.StatusConfirmed,
		PartyReference: "cus-002",
		PartyName:      "Boulangerie Nour",
		Currency:       "MAD",
		Items: []lineitems.LineItem{
			{ProductID: "prd-004", ProductName: "Flour 25kg", Quantity: 40, UnitPrice: decimal.RequireFromString("189.90"), DiscountPercent: decimal.RequireFromString("2.5"), TaxPercent: decimal.NewFromInt(7)},
			{ProductID: "prd-003", ProductName: "A4 paper ream", Quantity: 3, UnitPrice: decimal.RequireFromString("45.50"), DiscountPercent: decimal.Zero, TaxPercent: decimal.NewFromInt(20)},
		},
	}
	movement := &documents.Document{
		ID:             SeedStockMovementID,
		Kind:           documents.KindStockMovement,
		Number:         documents.NextNumber(documents.KindStockMovement, day(5), 1),
		Date:           day(5),
		Status:         documents.StatusDraft,
		PartyReference: "wh-001",
		PartyName:      "Main warehouse",
		Currency:       "MAD",
		MovementType:   documents.MovementIn,
		Items: []lineitems.LineItem{
			{ProductID: "prd-002", ProductName: "Monitor 27\"", Quantity: 12, UnitPrice: decimal.NewFromInt(2300), DiscountPercent: decimal.Zero, TaxPercent: decimal.Zero},
		},
	}
	report := &documents.Document{
		ID:             SeedPurchaseReportID,
		Kind:           documents.KindPurchaseReport,
		Number:         documents.NextNumber(documents.KindPurchaseReport, day(7), 1),
		Date:           day(7),
		Status:         documents.StatusSubmitted,
		PartyReference: "sup-001",
		PartyName:      "Sahara Packaging",
		Email:          "sales@saharapack.com",
		Currency:       "MAD",
		Items: []lineitems.LineItem{
			{ProductID: "prd-003", ProductName: "A4 paper ream", Quantity: 120, UnitPrice: decimal.RequireFromString("38.75"), DiscountPercent: decimal.NewFromInt(10), TaxPercent: decimal.NewFromInt(20)},
		},
	}

	docs := []*documents.Document{quotation, order, movement, report}
	for _, d := range docs {
		d.CreatedAt = d.Date
		d.UpdatedAt = d.Date
		d.Recalculate()
	}
	return docs
}
