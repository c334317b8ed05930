package repository

import (
	"context"
	"time"

	"github.com/user/price-intel/internal/entity"
)

// PricingFilters narrows bulk pricing queries.
type PricingFilters struct {
	PropFirmIDs    []string
	AccountSize    *float64
	MinDiscount    *float64
	HasChangedOnly bool
}

// PricingRepository defines the interface for the append-only pricing
// snapshot store. "Current" pricing is always derived as the latest snapshot
// per (firm, account size), never a separately maintained pointer.
type PricingRepository interface {
	// SaveSnapshot appends one immutable snapshot and returns it with its
	// generated ID, creation timestamp and per-(firm, account size) version.
	SaveSnapshot(ctx context.Context, pricing *entity.Pricing) (*entity.PricingSnapshot, error)

	// GetCurrentPricing returns the latest snapshot for a firm, optionally
	// restricted to one account size. Returns ErrNotFound when the firm has
	// no snapshots.
	GetCurrentPricing(ctx context.Context, propFirmID string, accountSize *float64) (*entity.Pricing, error)

	// GetBulkPricing returns the current pricing rows matching the filters,
	// one row per (firm, account size).
	GetBulkPricing(ctx context.Context, filters PricingFilters) ([]entity.Pricing, error)

	// GetPricingHistory returns the snapshots for one (firm, account size)
	// over the trailing number of days, newest first.
	GetPricingHistory(ctx context.Context, propFirmID string, accountSize float64, days int) ([]entity.PricingSnapshot, error)

	// GetRecentlyChanged returns current pricing rows whose last observation
	// was flagged as changed at or after the given instant.
	GetRecentlyChanged(ctx context.Context, since time.Time) ([]entity.Pricing, error)
}
