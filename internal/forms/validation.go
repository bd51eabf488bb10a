package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	"github.com/odyssey-erp/odyssey-docs/internal/lineitems"
)

type documentForm struct {
	Kind           string               `json:"kind" validate:"required,oneof=quotation sales_order stock_movement purchase_report"`
	Number         string               `json:"number" validate:"max=40"`
	PartyName      string               `json:"party_name" validate:"required,max=200"`
	PartyReference string               `json:"party_reference" validate:"max=64"`
	Email          string               `json:"email" validate:"omitempty,email"`
	Currency       string               `json:"currency" validate:"required,len=3,alpha"`
	MovementType   string               `json:"movement_type" validate:"omitempty,oneof=in out transfer adjust"`
	Notes          string               `json:"notes" validate:"max=2000"`
	Items          []lineitems.LineItem `json:"items" validate:"required,min=1,dive"`
}

// NewValidator returns a validator that reports json field names. Numeric
// line fields are checked separately by lineitems.Violations.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateDocument(v *validator.Validate, doc *documents.Document) ValidationErrors {
	form := documentForm{
		Kind:           string(doc.Kind),
		Number:         doc.Number,
		PartyName:      strings.TrimSpace(doc.PartyName),
		PartyReference: doc.PartyReference,
		Email:          doc.Email,
		Currency:       doc.Currency,
		MovementType:   string(doc.MovementType),
		Notes:          doc.Notes,
		Items:          doc.Items,
	}

	var out ValidationErrors
	if err := v.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return ValidationErrors{{Field: "general", Message: err.Error()}}
		}
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{Field: fieldKey(fe), Message: message(fe)})
		}
	}
	out = appendLineViolations(out, doc.Items)
	if doc.Date.IsZero() {
		out = append(out, ValidationError{Field: "date", Message: "is required"})
	}
	if doc.DueDate != nil && !doc.Date.IsZero() && doc.DueDate.Before(doc.Date) {
		out = append(out, ValidationError{Field: "due_date", Message: "must not be before the document date"})
	}
	if doc.Kind == documents.KindStockMovement && doc.MovementType == "" {
		out = append(out, ValidationError{Field: "movement_type", Message: "is required"})
	}
	if doc.Kind.Valid() && !documents.ValidStatus(doc.Kind, doc.Status) {
		out = append(out, ValidationError{Field: "status", Message: fmt.Sprintf("is not a %s status", doc.Kind)})
	}
	return out.sorted()
}

func appendLineViolations(out ValidationErrors, items []lineitems.LineItem) ValidationErrors {
	for i, item := range items {
		for _, v := range lineitems.Violations(item) {
			out = append(out, ValidationError{Field: fmt.Sprintf("items[%d].%s", i, v.Field), Message: v.Message})
		}
	}
	return out
}

// fieldKey strips the root struct name from the namespace, e.g. items[0].unit_price.
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "items" {
			return "add at least one item"
		}
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "add at least one item"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "alpha":
		return "must contain letters only"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
