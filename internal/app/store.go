package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-docs/internal/documents"
	docshttp "github.com/odyssey-erp/odyssey-docs/internal/documents/http"
	"github.com/odyssey-erp/odyssey-docs/internal/mockdata"
	"github.com/odyssey-erp/odyssey-docs/internal/platform/db"
)

// Stores bundles the document store and the catalog it is served with.
type Stores struct {
	Documents docshttp.Store
	Catalog   *mockdata.Provider
	// Persistent reports whether Documents outlives the process.
	Persistent bool
	close      func()
}

// Close releases the underlying connections.
func (s *Stores) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// OpenStores builds the document store selected by STORE_DRIVER. The catalog
// is always the seeded mock provider.
func OpenStores(ctx context.Context, cfg *Config, logger *slog.Logger) (*Stores, error) {
	provider := mockdata.New(mockdata.Options{
		MinDelay: cfg.MockDelayMin,
		MaxDelay: cfg.MockDelayMax,
	})
	switch cfg.StoreDriver {
	case StoreMock, "":
		logger.Info("using mock document store",
			slog.Duration("delay_min", cfg.MockDelayMin), slog.Duration("delay_max", cfg.MockDelayMax))
		return &Stores{Documents: provider, Catalog: provider}, nil
	case StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, err
		}
		repo := documents.NewRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("using postgres document store")
		return &Stores{Documents: repo, Catalog: provider, Persistent: true, close: pool.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
