package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FAKE QUERIER
// ============================================================================

type scanRow func(dest ...any) error

func (f scanRow) Scan(dest ...any) error { return f(dest...) }

// sequenceDB plays document_sequences and the number lookup in memory.
type sequenceDB struct {
	seq    map[string]int64
	taken  map[string]bool
	seqErr error
}

func newSequenceDB(taken ...string) *sequenceDB {
	db := &sequenceDB{seq: map[string]int64{}, taken: map[string]bool{}}
	for _, n := range taken {
		db.taken[n] = true
	}
	return db
}

func (d *sequenceDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *sequenceDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (d *sequenceDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	switch {
	case strings.Contains(sql, "document_sequences"):
		return scanRow(func(dest ...any) error {
			if d.seqErr != nil {
				return d.seqErr
			}
			key := args[0].(string) + ":" + args[1].(string)
			d.seq[key]++
			*dest[0].(*int64) = d.seq[key]
			return nil
		})
	case strings.Contains(sql, "EXISTS"):
		return scanRow(func(dest ...any) error {
			*dest[0].(*bool) = d.taken[args[0].(string)]
			return nil
		})
	}
	return scanRow(func(...any) error { return pgx.ErrNoRows })
}

// ============================================================================
// TESTS
// ============================================================================

func TestAllocateNumberNeverReusesSequence(t *testing.T) {
	db := newSequenceDB()
	doc := New(KindQuotation, time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC))

	first, err := allocateNumber(context.Background(), db, doc)
	require.NoError(t, err)
	second, err := allocateNumber(context.Background(), db, doc)
	require.NoError(t, err)

	assert.Equal(t, "QUO-2026-10-0001", first)
	assert.Equal(t, "QUO-2026-10-0002", second)

	// deleting a document does not rewind the counter
	third, err := allocateNumber(context.Background(), db, doc)
	require.NoError(t, err)
	assert.Equal(t, "QUO-2026-10-0003", third)
}

func TestAllocateNumberSkipsHandEnteredNumbers(t *testing.T) {
	db := newSequenceDB("SO-2026-10-0001", "SO-2026-10-0002")
	doc := New(KindSalesOrder, time.Date(2026, time.October, 3, 0, 0, 0, 0, time.UTC))

	number, err := allocateNumber(context.Background(), db, doc)
	require.NoError(t, err)
	assert.Equal(t, "SO-2026-10-0003", number)
}

func TestAllocateNumberSequencePerKindAndMonth(t *testing.T) {
	db := newSequenceDB()
	oct := New(KindQuotation, time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC))
	nov := New(KindQuotation, time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC))
	order := New(KindSalesOrder, time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC))

	for _, doc := range []*Document{oct, nov, order} {
		number, err := allocateNumber(context.Background(), db, doc)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(number, "-0001"), number)
	}
}

func TestAllocateNumberReportsErrors(t *testing.T) {
	db := newSequenceDB()
	db.seqErr = errors.New("connection reset")
	_, err := allocateNumber(context.Background(), db, New(KindQuotation, time.Now()))
	assert.ErrorIs(t, err, db.seqErr)
}
