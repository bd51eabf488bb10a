package forms

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SubmissionFailedMessage is the static text shown when a save fails.
const SubmissionFailedMessage = "The document could not be saved. Please try again."

// SaveConflictMessage is shown when another save of the document with different
// content won.
const SaveConflictMessage = "The document was changed by another save. Reload it and try again."

var (
	// ErrUnknownField is returned by SetField for a field the form does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrItemIndex is returned for an item index outside the collection.
	ErrItemIndex = errors.New("item index out of range")
	// ErrSaveConflict is wrapped in the SubmissionError of a submit that found
	// the same document already being saved with different content. Its edits
	// were not applied.
	ErrSaveConflict = errors.New("document is being saved with different content")
)

// ValidationError is a message attached to a single form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ValidationErrors collects every field error found by a submit.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldErrors returns the errors keyed by field, as rendered under each input.
func (v ValidationErrors) FieldErrors() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

func (v ValidationErrors) sorted() ValidationErrors {
	sort.SliceStable(v, func(i, j int) bool { return v[i].Field < v[j].Field })
	return v
}

// SubmissionError wraps any failure of the save collaborator.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ErrorsFromMap converts inline field messages back into ValidationErrors.
func ErrorsFromMap(fields map[string]string) ValidationErrors {
	out := make(ValidationErrors, 0, len(fields))
	for field, msg := range fields {
		out = append(out, ValidationError{Field: field, Message: msg})
	}
	return out.sorted()
}
