// Package lineitems computes line and document totals for itemized documents.
package lineitems

import "github.com/shopspring/decimal"

// CurrencyPrecision is the number of decimals every amount is rounded to.
const CurrencyPrecision int32 = 2

var hundred = decimal.NewFromInt(100)

// LineItem is one row of a quotation, order, stock movement or purchase report.
type LineItem struct {
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name" validate:"required,max=200"`
	Description     string          `json:"description,omitempty" validate:"max=500"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
	Total           decimal.Decimal `json:"total"`
}

// LineAmounts breaks a line total into the components summed by documents.
type LineAmounts struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Totals aggregates the amounts of every line of a document.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// Round2 rounds half away from zero to CurrencyPrecision decimals.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPrecision)
}

// RecalculateLine returns the amounts of a single line.
//
// Total is round2(qty*price * (1-discount/100) * (1+tax/100)). Tax is derived as
// Total - (Subtotal - Discount) so a line always sums to its own total.
func RecalculateLine(item LineItem) LineAmounts {
	gross := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
	discountRate := item.DiscountPercent.Div(hundred)
	taxRate := item.TaxPercent.Div(hundred)

	subtotal := Round2(gross)
	discount := Round2(gross.Mul(discountRate))
	total := Round2(gross.Mul(decimal.NewFromInt(1).Sub(discountRate)).Mul(decimal.NewFromInt(1).Add(taxRate)))

	return LineAmounts{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      total.Sub(subtotal.Sub(discount)),
		Total:    total,
	}
}

// RecalculateDocument sums the line components of items.
func RecalculateDocument(items []LineItem) Totals {
	totals := Totals{
		Subtotal:      decimal.Zero,
		TotalDiscount: decimal.Zero,
		TotalTax:      decimal.Zero,
		TotalAmount:   decimal.Zero,
	}
	for _, item := range items {
		amounts := RecalculateLine(item)
		totals.Subtotal = totals.Subtotal.Add(amounts.Subtotal)
		totals.TotalDiscount = totals.TotalDiscount.Add(amounts.Discount)
		totals.TotalTax = totals.TotalTax.Add(amounts.Tax)
		totals.TotalAmount = totals.TotalAmount.Add(amounts.Total)
	}
	return totals
}

// Apply returns a copy of items with every Total refreshed.
func Apply(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		item.Total = RecalculateLine(item).Total
		out[i] = item
	}
	return out
}
