package documents

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-docs/internal/lineitems"
)

func TestStrictTransitions(t *testing.T) {
	cases := []struct {
		kind     Kind
		from, to Status
		allowed  bool
	}{
		{KindSalesOrder, StatusDraft, StatusConfirmed, true},
		{KindSalesOrder, StatusConfirmed, StatusDelivered, true},
		{KindSalesOrder, StatusDelivered, StatusDraft, false},
		{KindSalesOrder, StatusDraft, StatusDelivered, false},
		{KindQuotation, StatusSent, StatusAccepted, true},
		{KindQuotation, StatusAccepted, StatusConverted, true},
		{KindQuotation, StatusConverted, StatusDraft, false},
		{KindStockMovement, StatusDraft, StatusPosted, true},
		{KindStockMovement, StatusCancelled, StatusPosted, false},
		{KindPurchaseReport, StatusSubmitted, StatusApproved, true},
		{KindPurchaseReport, StatusDraft, StatusClosed, false},
		{KindPurchaseReport, StatusDraft, StatusDraft, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.allowed, CanTransition(TransitionsStrict, c.kind, c.from, c.to), "%s %s -> %s", c.kind, c.from, c.to)
	}
}

func TestFreePolicyAllowsAnyStatusOfKind(t *testing.T) {
	assert.True(t, CanTransition(TransitionsFree, KindSalesOrder, StatusDelivered, StatusDraft))
	assert.False(t, CanTransition(TransitionsFree, KindSalesOrder, StatusDraft, StatusPosted))
}

func TestTransitionErrors(t *testing.T) {
	doc := New(KindSalesOrder, time.Now())

	err := Transition(TransitionsStrict, doc, StatusPosted)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = Transition(TransitionsStrict, doc, StatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusDraft, doc.Status)

	require.NoError(t, Transition(TransitionsStrict, doc, StatusConfirmed))
	assert.Equal(t, StatusConfirmed, doc.Status)

	doc.Kind = "invoice"
	assert.ErrorIs(t, Transition(TransitionsStrict, doc, StatusDraft), ErrUnknownKind)
}

func TestStatusesOrdered(t *testing.T) {
	assert.Equal(t, []Status{StatusDraft, StatusConfirmed, StatusDelivered, StatusCancelled}, Statuses(KindSalesOrder))
	assert.Nil(t, Statuses("invoice"))
	for _, k := range Kinds {
		assert.True(t, k.Valid())
		assert.NotEmpty(t, k.PartyType())
		assert.Len(t, Statuses(k), len(transitions[k]))
	}
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, TransitionsFree, ParsePolicy("free"))
	assert.Equal(t, TransitionsStrict, ParsePolicy(""))
	assert.Equal(t, TransitionsStrict, ParsePolicy("whatever"))
}

func TestNextNumber(t *testing.T) {
	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SO-2026-03-0042", NextNumber(KindSalesOrder, date, 42))
	assert.Equal(t, "DOC-2026-03-0001", NextNumber("invoice", date, 1))
}

func TestRecalculateAndClone(t *testing.T) {
	doc := New(KindQuotation, time.Now())
	due := doc.Date.AddDate(0, 0, 30)
	doc.DueDate = &due
	doc.Items = []lineitems.LineItem{{
		ProductName:     "Laptop",
		Quantity:        10,
		UnitPrice:       decimal.NewFromInt(8500),
		DiscountPercent: decimal.NewFromInt(5),
		TaxPercent:      decimal.NewFromInt(20),
	}}
	doc.Recalculate()
	assert.Equal(t, "96900.00", doc.Items[0].Total.StringFixed(2))
	assert.Equal(t, "96900.00", doc.TotalAmount.StringFixed(2))

	cp := doc.Clone()
	cp.Items[0].Quantity = 1
	*cp.DueDate = cp.DueDate.AddDate(1, 0, 0)
	assert.Equal(t, int64(10), doc.Items[0].Quantity)
	assert.Equal(t, due, *doc.DueDate)
}
