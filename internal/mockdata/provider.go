// Package mockdata stands in for a backend: canned catalog records and an
// in-memory document store whose calls resolve after an artificial delay.
package mockdata

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-docs/internal/documents"
)

// DefaultMinDelay and DefaultMaxDelay bound the simulated round trip.
const (
	DefaultMinDelay = time.Second
	DefaultMaxDelay = 2 * time.Second
)

// Options configures a Provider. Negative delays disable waiting.
type Options struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Now      func() time.Time
	// Empty skips the seeded sample documents.
	Empty bool
}

// Provider holds canned records and the documents saved during a session.
type Provider struct {
	mu         sync.RWMutex
	docs       map[uuid.UUID]*documents.Document
	sequences  map[string]int
	customers  []Party
	suppliers  []Party
	products   []Product
	warehouses []Warehouse
	saveErr    error

	minDelay time.Duration
	maxDelay time.Duration
	now      func() time.Time
}

// New builds a Provider with the seeded catalog.
func New(opts Options) *Provider {
	if opts.MinDelay == 0 && opts.MaxDelay == 0 {
		opts.MinDelay, opts.MaxDelay = DefaultMinDelay, DefaultMaxDelay
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Provider{
		docs:       make(map[uuid.UUID]*documents.Document),
		sequences:  make(map[string]int),
		customers:  seedCustomers(),
		suppliers:  seedSuppliers(),
		products:   seedProducts(),
		warehouses: seedWarehouses(),
		minDelay:   opts.MinDelay,
		maxDelay:   opts.MaxDelay,
		now:        opts.Now,
	}
	if !opts.Empty {
		for _, doc := range seedDocuments() {
			p.docs[doc.ID] = doc
			p.sequences[sequenceKey(doc.Kind, doc.Date)]++
		}
	}
	return p
}

// FailSaves makes every following Save return err. Pass nil to recover.
func (p *Provider) FailSaves(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveErr = err
}

// Load returns a copy of the stored document.
func (p *Provider) Load(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	doc, ok := p.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	return doc.Clone(), nil
}

// Save stores a copy of doc, assigning a number and timestamps when missing.
func (p *Provider) Save(ctx context.Context, doc *documents.Document) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Number == "" {
		doc.Number = p.allocateNumberLocked(doc)
	} else if p.numberTakenLocked(doc.Number, doc.ID) {
		return documents.ErrDuplicate
	}

	now := p.now().UTC()
	if prev, ok := p.docs[doc.ID]; ok {
		doc.CreatedAt = prev.CreatedAt
	} else if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.Recalculate()
	p.docs[doc.ID] = doc.Clone()
	return nil
}

// Delete removes a stored document.
func (p *Provider) Delete(ctx context.Context, id uuid.UUID) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.docs[id]; !ok {
		return documents.ErrNotFound
	}
	delete(p.docs, id)
	return nil
}

// List returns documents matching filter, newest first.
func (p *Provider) List(ctx context.Context, filter documents.ListFilter) ([]documents.Document, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	out := make([]documents.Document, 0, len(p.docs))
	for _, doc := range p.docs {
		if filter.Kind != "" && doc.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		out = append(out, *doc.Clone())
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Number > out[j].Number
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []documents.Document{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Customers returns the canned customer list.
func (p *Provider) Customers(ctx context.Context) ([]Party, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return append([]Party(nil), p.customers...), nil
}

// Suppliers returns the canned supplier list.
func (p *Provider) Suppliers(ctx context.Context) ([]Party, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return append([]Party(nil), p.suppliers...), nil
}

// Products returns the canned product catalog.
func (p *Provider) Products(ctx context.Context) ([]Product, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return append([]Product(nil), p.products...), nil
}

// Warehouses returns the canned warehouse list.
func (p *Provider) Warehouses(ctx context.Context) ([]Warehouse, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return append([]Warehouse(nil), p.warehouses...), nil
}

func (p *Provider) wait(ctx context.Context) error {
	d := p.delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Provider) delay() time.Duration {
	if p.maxDelay <= 0 {
		return 0
	}
	if p.maxDelay == p.minDelay {
		return p.minDelay
	}
	return p.minDelay + rand.N(p.maxDelay-p.minDelay)
}

// allocateNumberLocked advances the kind's monthly sequence past every number
// already in use.
func (p *Provider) allocateNumberLocked(doc *documents.Document) string {
	key := sequenceKey(doc.Kind, doc.Date)
	for {
		p.sequences[key]++
		number := documents.NextNumber(doc.Kind, doc.Date, p.sequences[key])
		if !p.numberTakenLocked(number, doc.ID) {
			return number
		}
	}
}

func (p *Provider) numberTakenLocked(number string, self uuid.UUID) bool {
	for id, existing := range p.docs {
		if id != self && existing.Number == number {
			return true
		}
	}
	return false
}

func sequenceKey(kind documents.Kind, date time.Time) string {
	return string(kind) + ":" + date.Format("2006-01")
}
