// Package forms holds the editable state of a document form: header fields,
// line items, derived totals and the inline validation errors.
package forms

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	"github.com/odyssey-erp/odyssey-docs/internal/lineitems"
)

const dateLayout = "2006-01-02"

// DefaultSaveTimeout bounds a shared save.
const DefaultSaveTimeout = 30 * time.Second

// Store is the data-access capability the controller loads from and saves to.
type Store interface {
	Load(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	Save(ctx context.Context, doc *documents.Document) error
}

// Notifier is told about every document saved through Submit.
type Notifier interface {
	DocumentSaved(ctx context.Context, doc *documents.Document) error
}

// Config wires the collaborators of a Controller.
type Config struct {
	Store       Store
	Policy      documents.Policy
	Notifier    Notifier
	Logger      *slog.Logger
	Validator   *validator.Validate
	// Inflight is shared by controllers editing the same documents so that
	// concurrent submits of one document join a single pending save.
	Inflight    *singleflight.Group
	SaveTimeout time.Duration
}

// Controller owns a document being edited and its validation-error map.
type Controller struct {
	mu       sync.Mutex
	doc      *documents.Document
	errors   map[string]string
	store    Store
	policy   documents.Policy
	notifier Notifier
	logger   *slog.Logger
	validate *validator.Validate
	inflight *singleflight.Group
	timeout  time.Duration
}

type savedResult struct {
	doc         *documents.Document
	fingerprint string
}

// NewController starts editing doc, which must not be nil. The controller
// keeps its own copy.
func NewController(doc *documents.Document, cfg Config) *Controller {
	if cfg.Policy == "" {
		cfg.Policy = documents.TransitionsStrict
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Validator == nil {
		cfg.Validator = NewValidator()
	}
	if cfg.Inflight == nil {
		cfg.Inflight = &singleflight.Group{}
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	working := doc.Clone()
	working.Recalculate()
	return &Controller{
		doc:      working,
		errors:   map[string]string{},
		store:    cfg.Store,
		policy:   cfg.Policy,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		validate: cfg.Validator,
		inflight: cfg.Inflight,
		timeout:  cfg.SaveTimeout,
	}
}

// Load fetches a stored document and returns a controller editing it.
func Load(ctx context.Context, id uuid.UUID, cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("forms: store not configured")
	}
	doc, err := cfg.Store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("forms: load %s: %w", id, err)
	}
	return NewController(doc, cfg), nil
}

// Document returns a snapshot of the edited document.
func (c *Controller) Document() *documents.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Clone()
}

// Totals returns the current derived totals.
func (c *Controller) Totals() lineitems.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Totals
}

// Errors returns the inline validation messages keyed by field.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// SetField updates a header field and clears the error shown for it.
func (c *Controller) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case "number":
		c.doc.Number = strings.TrimSpace(value)
	case "party_name":
		c.doc.PartyName = value
	case "party_reference":
		c.doc.PartyReference = strings.TrimSpace(value)
	case "email":
		c.doc.Email = strings.TrimSpace(value)
	case "currency":
		c.doc.Currency = strings.ToUpper(strings.TrimSpace(value))
	case "notes":
		c.doc.Notes = value
	case "movement_type":
		c.doc.MovementType = documents.MovementType(strings.TrimSpace(value))
	case "date":
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			c.errors[name] = "must be a date (YYYY-MM-DD)"
			return nil
		}
		c.doc.Date = t
	case "due_date":
		if strings.TrimSpace(value) == "" {
			c.doc.DueDate = nil
			break
		}
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			c.errors[name] = "must be a date (YYYY-MM-DD)"
			return nil
		}
		c.doc.DueDate = &t
	case "status":
		if err := documents.Transition(c.policy, c.doc, documents.Status(value)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	delete(c.errors, name)
	return nil
}

// SetStatus changes the document status through the transition policy.
func (c *Controller) SetStatus(status documents.Status) error {
	return c.SetField("status", string(status))
}

// AddItem appends a line and refreshes the totals.
func (c *Controller) AddItem(item lineitems.LineItem) lineitems.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := append(append([]lineitems.LineItem(nil), c.doc.Items...), item)
	c.replaceItemsLocked(items)
	delete(c.errors, "items")
	return c.doc.Totals
}

// UpdateItem replaces the line at index and refreshes the totals.
func (c *Controller) UpdateItem(index int, item lineitems.LineItem) (lineitems.Totals, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.doc.Items) {
		return c.doc.Totals, fmt.Errorf("%w: %d", ErrItemIndex, index)
	}
	items := append([]lineitems.LineItem(nil), c.doc.Items...)
	items[index] = item
	c.replaceItemsLocked(items)
	c.clearErrorsLocked(fmt.Sprintf("items[%d].", index))
	return c.doc.Totals, nil
}

// RemoveItem deletes the line at index and refreshes the totals.
func (c *Controller) RemoveItem(index int) (lineitems.Totals, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.doc.Items) {
		return c.doc.Totals, fmt.Errorf("%w: %d", ErrItemIndex, index)
	}
	items := make([]lineitems.LineItem, 0, len(c.doc.Items)-1)
	items = append(items, c.doc.Items[:index]...)
	items = append(items, c.doc.Items[index+1:]...)
	c.replaceItemsLocked(items)
	// indexes shift, so item errors no longer point at the right rows
	c.clearErrorsLocked("items")
	return c.doc.Totals, nil
}

// Validate runs the submit checks without saving and records the errors.
func (c *Controller) Validate() ValidationErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	errs := validateDocument(c.validate, c.doc)
	c.errors = errs.FieldErrors()
	return errs
}

// Submit validates the form and, only when it is clean, saves the document.
// Concurrent submits of the same document share one in-flight save. The save
// ignores caller cancellation and is bounded by SaveTimeout; each caller stops
// waiting when its own ctx is done. A caller that joins a save of different
// content gets a SubmissionError wrapping ErrSaveConflict.
func (c *Controller) Submit(ctx context.Context) (*documents.Document, error) {
	c.mu.Lock()
	errs := validateDocument(c.validate, c.doc)
	c.errors = errs.FieldErrors()
	if len(errs) > 0 {
		c.mu.Unlock()
		return nil, errs
	}
	doc := c.doc.Clone()
	c.mu.Unlock()

	if c.store == nil {
		return nil, &SubmissionError{Message: SubmissionFailedMessage, Err: fmt.Errorf("forms: store not configured")}
	}
	fingerprint := contentFingerprint(doc)

	ch := c.inflight.DoChan(doc.ID.String(), func() (interface{}, error) {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		if err := c.store.Save(saveCtx, doc); err != nil {
			return nil, err
		}
		if c.notifier != nil {
			if err := c.notifier.DocumentSaved(saveCtx, doc); err != nil {
				c.logger.Warn("notify document saved", slog.String("id", doc.ID.String()), slog.Any("error", err))
			}
		}
		return savedResult{doc: doc, fingerprint: fingerprint}, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, &SubmissionError{Message: SubmissionFailedMessage, Err: ctx.Err()}
	case res = <-ch:
	}
	if res.Err != nil {
		c.logger.Error("save document", slog.String("id", doc.ID.String()), slog.Any("error", res.Err))
		return nil, &SubmissionError{Message: SubmissionFailedMessage, Err: res.Err}
	}
	shared := res.Val.(savedResult)
	if shared.fingerprint != fingerprint {
		return nil, &SubmissionError{Message: SaveConflictMessage, Err: fmt.Errorf("%w: %s", ErrSaveConflict, doc.ID)}
	}
	saved := shared.doc.Clone()

	c.mu.Lock()
	c.doc.Number = saved.Number
	c.doc.CreatedAt = saved.CreatedAt
	c.doc.UpdatedAt = saved.UpdatedAt
	c.mu.Unlock()

	return saved, nil
}

// contentFingerprint hashes the user-editable content of doc.
func contentFingerprint(doc *documents.Document) string {
	content := doc.Clone()
	content.CreatedAt = time.Time{}
	content.UpdatedAt = time.Time{}
	raw, err := json.Marshal(content)
	if err != nil {
		return doc.ID.String()
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (c *Controller) replaceItemsLocked(items []lineitems.LineItem) {
	c.doc.Items = items
	c.doc.Recalculate()
}

func (c *Controller) clearErrorsLocked(prefix string) {
	for k := range c.errors {
		if strings.HasPrefix(k, prefix) {
			delete(c.errors, k)
		}
	}
}
