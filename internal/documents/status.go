package documents

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStatus is returned for a status not defined for the document kind.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition is returned when the policy forbids a status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnknownKind is returned for an unsupported document kind.
	ErrUnknownKind = errors.New("unknown document kind")
)

// Policy selects how status changes are checked.
type Policy string

const (
	// TransitionsStrict only allows the moves listed in the transition table.
	TransitionsStrict Policy = "strict"
	// TransitionsFree allows any status of the kind to follow any other.
	TransitionsFree Policy = "free"
)

// ParsePolicy maps a configuration value to a Policy, defaulting to strict.
func ParsePolicy(v string) Policy {
	if Policy(v) == TransitionsFree {
		return TransitionsFree
	}
	return TransitionsStrict
}

// transitions lists, per kind, the statuses reachable from each status.
var transitions = map[Kind]map[Status][]Status{
	KindQuotation: {
		StatusDraft:     {StatusSent, StatusRejected},
		StatusSent:      {StatusAccepted, StatusRejected, StatusExpired, StatusDraft},
		StatusAccepted:  {StatusConverted},
		StatusRejected:  {StatusDraft},
		StatusExpired:   {StatusDraft},
		StatusConverted: {},
	},
	KindSalesOrder: {
		StatusDraft:     {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusDelivered, StatusCancelled},
		StatusDelivered: {},
		StatusCancelled: {},
	},
	KindStockMovement: {
		StatusDraft:     {StatusPosted, StatusCancelled},
		StatusPosted:    {StatusCancelled},
		StatusCancelled: {},
	},
	KindPurchaseReport: {
		StatusDraft:     {StatusSubmitted},
		StatusSubmitted: {StatusApproved, StatusDraft},
		StatusApproved:  {StatusClosed},
		StatusClosed:    {},
	},
}

// Statuses returns the statuses defined for kind.
func Statuses(kind Kind) []Status {
	table, ok := transitions[kind]
	if !ok {
		return nil
	}
	out := make([]Status, 0, len(table))
	for _, s := range order {
		if _, ok := table[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

var order = []Status{
	StatusDraft, StatusSent, StatusSubmitted, StatusConfirmed, StatusAccepted, StatusApproved,
	StatusPosted, StatusDelivered, StatusConverted, StatusClosed, StatusRejected, StatusExpired,
	StatusCancelled,
}

// ValidStatus reports whether status is defined for kind.
func ValidStatus(kind Kind, status Status) bool {
	_, ok := transitions[kind][status]
	return ok
}

// CanTransition reports whether the policy allows moving from one status to another.
func CanTransition(policy Policy, kind Kind, from, to Status) bool {
	if !ValidStatus(kind, from) || !ValidStatus(kind, to) {
		return false
	}
	if from == to {
		return true
	}
	if policy == TransitionsFree {
		return true
	}
	for _, next := range transitions[kind][from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves doc to status when the policy allows it.
func Transition(policy Policy, doc *Document, status Status) error {
	if !doc.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, doc.Kind)
	}
	if !ValidStatus(doc.Kind, status) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidStatus, status, doc.Kind)
	}
	if !CanTransition(policy, doc.Kind, doc.Status, status) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, doc.Kind, doc.Status, status)
	}
	doc.Status = status
	return nil
}
