package repository

import (
	"context"

	"github.com/user/price-intel/internal/entity"
)

// CatalogRepository defines the interface for the source catalog: the
// registry of firms to crawl. The catalog is seeded and administered out of
// band; the pipeline reads it and maintains the failure counters.
type CatalogRepository interface {
	// GetAllActive returns every catalog entry with is_active = true.
	GetAllActive(ctx context.Context) ([]entity.SourceCatalogEntry, error)

	// GetByFirmID returns one entry, or ErrNotFound.
	GetByFirmID(ctx context.Context, propFirmID string) (*entity.SourceCatalogEntry, error)

	// Save upserts a catalog entry.
	Save(ctx context.Context, entry *entity.SourceCatalogEntry) error

	// RecordFailure increments the entry's consecutive-failure counter and
	// deactivates the entry once the counter reaches its configured maximum.
	RecordFailure(ctx context.Context, propFirmID string) error

	// RecordSuccess resets the failure counter and stamps last_checked_at.
	RecordSuccess(ctx context.Context, propFirmID string) error
}
