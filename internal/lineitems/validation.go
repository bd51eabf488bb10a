package lineitems

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrOutOfRange reports a quantity, price or percentage outside its domain.
var ErrOutOfRange = errors.New("lineitems: value out of range")

// Violation names a numeric field of a line and what is wrong with it.
type Violation struct {
	Field   string
	Message string
	Value   string
}

// Violations checks every numeric field of item with exact decimal
// comparisons. Out-of-range input is never clamped.
func Violations(item LineItem) []Violation {
	var out []Violation
	if item.Quantity < 0 {
		out = append(out, Violation{Field: "quantity", Message: "must not be negative", Value: fmt.Sprint(item.Quantity)})
	}
	if item.UnitPrice.IsNegative() {
		out = append(out, Violation{Field: "unit_price", Message: "must not be negative", Value: item.UnitPrice.String()})
	}
	out = appendPercent(out, "discount_percent", item.DiscountPercent)
	out = appendPercent(out, "tax_percent", item.TaxPercent)
	return out
}

// Validate returns the first violation of item wrapped in ErrOutOfRange.
func Validate(item LineItem) error {
	v := Violations(item)
	if len(v) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s %s %s", ErrOutOfRange, v[0].Field, v[0].Value, v[0].Message)
}

func appendPercent(out []Violation, field string, p decimal.Decimal) []Violation {
	switch {
	case p.IsNegative():
		return append(out, Violation{Field: field, Message: "must not be negative", Value: p.String()})
	case p.GreaterThan(hundred):
		return append(out, Violation{Field: field, Message: "must be at most 100", Value: p.String()})
	}
	return out
}
