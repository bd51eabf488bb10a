package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-docs/internal/lineitems"
	"github.com/odyssey-erp/odyssey-docs/internal/platform/db"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate indicates a document number already taken by another document.
	ErrDuplicate = errors.New("duplicate document number")
)

const uniqueViolation = "23505"

// maxNumberAttempts bounds how many hand-entered numbers allocateNumber skips.
const maxNumberAttempts = 100

// Schema creates the tables used by Repository.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	id              UUID PRIMARY KEY,
	kind            TEXT NOT NULL,
	number          TEXT NOT NULL UNIQUE,
	doc_date        DATE NOT NULL,
	due_date        DATE,
	status          TEXT NOT NULL,
	party_reference TEXT NOT NULL DEFAULT '',
	party_name      TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	currency        CHAR(3) NOT NULL,
	movement_type   TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	subtotal        NUMERIC(18,2) NOT NULL DEFAULT 0,
	total_discount  NUMERIC(18,2) NOT NULL DEFAULT 0,
	total_tax       NUMERIC(18,2) NOT NULL DEFAULT 0,
	total_amount    NUMERIC(18,2) NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS document_lines (
	document_id      UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	line_order       INT NOT NULL,
	product_id       TEXT NOT NULL DEFAULT '',
	product_name     TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	quantity         BIGINT NOT NULL,
	unit_price       NUMERIC(18,4) NOT NULL,
	discount_percent NUMERIC(5,2) NOT NULL,
	tax_percent      NUMERIC(5,2) NOT NULL,
	line_total       NUMERIC(18,2) NOT NULL,
	PRIMARY KEY (document_id, line_order)
);
CREATE TABLE IF NOT EXISTS document_sequences (
	kind   TEXT NOT NULL,
	period CHAR(7) NOT NULL,
	seq    BIGINT NOT NULL,
	PRIMARY KEY (kind, period)
);`

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository persists documents in PostgreSQL.
type Repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// EnsureSchema creates the document tables when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("documents: ensure schema: %w", err)
	}
	return nil
}

// Load fetches a document with its lines.
func (r *Repository) Load(ctx context.Context, id uuid.UUID) (*Document, error) {
	const query = `SELECT id, kind, number, doc_date, due_date, status, party_reference, party_name,
	       email, currency, movement_type, notes, subtotal, total_discount, total_tax, total_amount,
	       created_at, updated_at
	FROM documents WHERE id = $1`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("documents: load %s: %w", id, err)
	}
	items, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Items = items
	return doc, nil
}

// List returns document headers matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	const query = `SELECT id, kind, number, doc_date, due_date, status, party_reference, party_name,
	       email, currency, movement_type, notes, subtotal, total_discount, total_tax, total_amount,
	       created_at, updated_at
	FROM documents
	WHERE ($1 = '' OR kind = $1) AND ($2 = '' OR status = $2)
	ORDER BY doc_date DESC, number DESC
	LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, string(filter.Kind), string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("documents: list: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("documents: scan: %w", err)
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

// Save upserts the header and replaces every line in one transaction.
func (r *Repository) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("documents: nil document")
	}
	doc.Recalculate()
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	// Numbers come from document_sequences outside the save transaction so
	// that concurrent saves never read the same counter value.
	if doc.Number == "" {
		number, err := allocateNumber(ctx, r.db, doc)
		if err != nil {
			return err
		}
		doc.Number = number
	}

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const upsert = `INSERT INTO documents (id, kind, number, doc_date, due_date, status, party_reference,
		    party_name, email, currency, movement_type, notes, subtotal, total_discount, total_tax,
		    total_amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO UPDATE SET
		    number = EXCLUDED.number, doc_date = EXCLUDED.doc_date, due_date = EXCLUDED.due_date,
		    status = EXCLUDED.status, party_reference = EXCLUDED.party_reference,
		    party_name = EXCLUDED.party_name, email = EXCLUDED.email, currency = EXCLUDED.currency,
		    movement_type = EXCLUDED.movement_type, notes = EXCLUDED.notes,
		    subtotal = EXCLUDED.subtotal, total_discount = EXCLUDED.total_discount,
		    total_tax = EXCLUDED.total_tax, total_amount = EXCLUDED.total_amount,
		    updated_at = EXCLUDED.updated_at`
		if _, err := tx.Exec(ctx, upsert,
			doc.ID, string(doc.Kind), doc.Number, doc.Date, doc.DueDate, string(doc.Status), doc.PartyReference,
			doc.PartyName, doc.Email, doc.Currency, string(doc.MovementType), doc.Notes,
			doc.Subtotal, doc.TotalDiscount, doc.TotalTax, doc.TotalAmount, doc.CreatedAt, doc.UpdatedAt,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, doc.ID); err != nil {
			return err
		}
		for i, item := range doc.Items {
			if _, err := tx.Exec(ctx, `INSERT INTO document_lines (document_id, line_order, product_id,
			    product_name, description, quantity, unit_price, discount_percent, tax_percent, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				doc.ID, i+1, item.ProductID, item.ProductName, item.Description, item.Quantity,
				item.UnitPrice, item.DiscountPercent, item.TaxPercent, item.Total,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicate, doc.Number)
		}
		return fmt.Errorf("documents: save %s: %w", doc.ID, err)
	}
	return nil
}

// allocateNumber reserves the next free number for doc's kind and month.
// Sequence values are never handed out twice, and numbers already taken
// by hand are skipped.
func allocateNumber(ctx context.Context, q dbtx, doc *Document) (string, error) {
	period := doc.Date.Format("2006-01")
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		var seq int64
		err := q.QueryRow(ctx, `INSERT INTO document_sequences (kind, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, period) DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq`, string(doc.Kind), period).Scan(&seq)
		if err != nil {
			return "", fmt.Errorf("documents: next number: %w", err)
		}
		number := NextNumber(doc.Kind, doc.Date, int(seq))

		var taken bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE number = $1)`, number).Scan(&taken); err != nil {
			return "", fmt.Errorf("documents: check number %s: %w", number, err)
		}
		if !taken {
			return number, nil
		}
	}
	return "", fmt.Errorf("documents: no free %s number in %s", doc.Kind, period)
}

// Delete removes a document and its lines.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("documents: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) lines(ctx context.Context, id uuid.UUID) ([]lineitems.LineItem, error) {
	rows, err := r.db.Query(ctx, `SELECT product_id, product_name, description, quantity, unit_price,
	    discount_percent, tax_percent, line_total
	FROM document_lines WHERE document_id = $1 ORDER BY line_order`, id)
	if err != nil {
		return nil, fmt.Errorf("documents: lines %s: %w", id, err)
	}
	defer rows.Close()

	items := []lineitems.LineItem{}
	for rows.Next() {
		var item lineitems.LineItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Description, &item.Quantity,
			&item.UnitPrice, &item.DiscountPercent, &item.TaxPercent, &item.Total); err != nil {
			return nil, fmt.Errorf("documents: scan line: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	var kind, status, movement string
	var subtotal, discount, tax, totalAmount decimal.Decimal
	if err := row.Scan(&doc.ID, &kind, &doc.Number, &doc.Date, &doc.DueDate, &status, &doc.PartyReference,
		&doc.PartyName, &doc.Email, &doc.Currency, &movement, &doc.Notes,
		&subtotal, &discount, &tax, &totalAmount, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Kind = Kind(kind)
	doc.Status = Status(status)
	doc.MovementType = MovementType(movement)
	doc.Totals = lineitems.Totals{
		Subtotal:      subtotal,
		TotalDiscount: discount,
		TotalTax:      tax,
		TotalAmount:   totalAmount,
	}
	return &doc, nil
}
