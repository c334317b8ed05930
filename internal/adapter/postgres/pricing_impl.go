package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/user/price-intel/internal/db"
	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/repository"
)

// pricingColumns is the shared select list for snapshot reads. The firm's
// display name comes from the catalog join; the snapshot row itself carries
// only the firm ID as a denormalized join key.
const pricingColumns = `
	ps.snapshot_id, ps.prop_firm_id, sc.prop_firm_name,
	ps.account_size, ps.account_size_currency,
	ps.current_price, ps.price_currency, ps.discount_percent, ps.discount_label,
	ps.evaluation_fee, ps.activation_fee, ps.reset_fee, ps.monthly_data_fee, ps.true_cost,
	ps.source_url, ps.source_timestamp, ps.last_seen_at,
	ps.has_changed, ps.changed_at, ps.requires_manual_review, ps.is_verified,
	ps.version, ps.snapshot_created_at`

// PricingRepoImpl implements PricingRepository against the append-only
// `pricing_snapshots` table. Rows are never updated or deleted; "current"
// pricing is always the latest snapshot per (firm, account size).
type PricingRepoImpl struct {
	db db.Pool
}

func NewPricingRepo(pool db.Pool) *PricingRepoImpl {
	return &PricingRepoImpl{db: pool}
}

// SaveSnapshot appends one immutable snapshot. The per-(firm, account size)
// version counter is computed in SQL at write time; callers serialize writes
// per key, so the subquery cannot race with itself.
func (r *PricingRepoImpl) SaveSnapshot(ctx context.Context, pricing *entity.Pricing) (*entity.PricingSnapshot, error) {
	query := `
		INSERT INTO pricing_snapshots (
			snapshot_id, prop_firm_id, account_size, account_size_currency,
			current_price, price_currency, discount_percent, discount_label,
			evaluation_fee, activation_fee, reset_fee, monthly_data_fee, true_cost,
			source_url, source_timestamp, last_seen_at,
			has_changed, changed_at, requires_manual_review, is_verified,
			version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20,
			(SELECT COALESCE(MAX(version), 0) + 1
			 FROM pricing_snapshots
			 WHERE prop_firm_id = $2 AND account_size = $3)
		)
		RETURNING version, snapshot_created_at;`

	snapshot := &entity.PricingSnapshot{
		Pricing:    *pricing,
		SnapshotID: uuid.NewString(),
	}

	err := r.db.QueryRow(ctx, query,
		snapshot.SnapshotID,
		pricing.PropFirmID,
		pricing.AccountSize,
		pricing.AccountSizeCurrency,
		pricing.CurrentPrice,
		pricing.PriceCurrency,
		pricing.DiscountPercent,
		nullableString(pricing.DiscountLabel),
		pricing.EvaluationFee,
		pricing.ActivationFee,
		pricing.ResetFee,
		pricing.MonthlyDataFee,
		pricing.TrueCost,
		pricing.SourceURL,
		pricing.SourceTimestamp,
		pricing.LastSeenAt,
		pricing.HasChanged,
		pricing.ChangedAt,
		pricing.RequiresManualReview,
		pricing.IsVerified,
	).Scan(&snapshot.Version, &snapshot.SnapshotCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert pricing snapshot for %s: %w", pricing.PropFirmID, err)
	}

	return snapshot, nil
}

func (r *PricingRepoImpl) GetCurrentPricing(ctx context.Context, propFirmID string, accountSize *float64) (*entity.Pricing, error) {
	query := `
		SELECT DISTINCT ON (ps.prop_firm_id, ps.account_size)` + pricingColumns + `
		FROM pricing_snapshots ps
		JOIN source_catalog sc ON sc.prop_firm_id = ps.prop_firm_id
		WHERE ps.prop_firm_id = $1`
	args := []any{propFirmID}

	if accountSize != nil {
		query += ` AND ps.account_size = $2`
		args = append(args, *accountSize)
	}
	query += ` ORDER BY ps.prop_firm_id, ps.account_size, ps.snapshot_created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query current pricing for %s: %w", propFirmID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, repository.ErrNotFound
	}

	snapshot, err := scanSnapshot(rows)
	if err != nil {
		return nil, err
	}
	return &snapshot.Pricing, nil
}

func (r *PricingRepoImpl) GetBulkPricing(ctx context.Context, filters repository.PricingFilters) ([]entity.Pricing, error) {
	query := `
		SELECT DISTINCT ON (ps.prop_firm_id, ps.account_size)` + pricingColumns + `
		FROM pricing_snapshots ps
		JOIN source_catalog sc ON sc.prop_firm_id = ps.prop_firm_id
		WHERE 1=1`
	var args []any
	idx := 1

	if len(filters.PropFirmIDs) > 0 {
		query += fmt.Sprintf(` AND ps.prop_firm_id = ANY($%d)`, idx)
		args = append(args, filters.PropFirmIDs)
		idx++
	}
	if filters.AccountSize != nil {
		query += fmt.Sprintf(` AND ps.account_size = $%d`, idx)
		args = append(args, *filters.AccountSize)
		idx++
	}
	if filters.MinDiscount != nil {
		query += fmt.Sprintf(` AND ps.discount_percent >= $%d`, idx)
		args = append(args, *filters.MinDiscount)
		idx++
	}
	query += ` ORDER BY ps.prop_firm_id, ps.account_size, ps.snapshot_created_at DESC`

	pricings, err := r.queryPricings(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bulk pricing: %w", err)
	}

	// hasChangedOnly applies to the latest row per group, so it cannot be
	// pushed into the WHERE clause without defeating DISTINCT ON.
	if filters.HasChangedOnly {
		changed := pricings[:0]
		for _, p := range pricings {
			if p.HasChanged {
				changed = append(changed, p)
			}
		}
		pricings = changed
	}
	return pricings, nil
}

func (r *PricingRepoImpl) GetPricingHistory(ctx context.Context, propFirmID string, accountSize float64, days int) ([]entity.PricingSnapshot, error) {
	query := `
		SELECT` + pricingColumns + `
		FROM pricing_snapshots ps
		JOIN source_catalog sc ON sc.prop_firm_id = ps.prop_firm_id
		WHERE ps.prop_firm_id = $1
		  AND ps.account_size = $2
		  AND ps.snapshot_created_at >= NOW() - make_interval(days => $3)
		ORDER BY ps.snapshot_created_at DESC`

	rows, err := r.db.Query(ctx, query, propFirmID, accountSize, days)
	if err != nil {
		return nil, fmt.Errorf("query pricing history for %s: %w", propFirmID, err)
	}
	defer rows.Close()

	var snapshots []entity.PricingSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}
	return snapshots, rows.Err()
}

func (r *PricingRepoImpl) GetRecentlyChanged(ctx context.Context, since time.Time) ([]entity.Pricing, error) {
	query := `
		SELECT * FROM (
			SELECT DISTINCT ON (ps.prop_firm_id, ps.account_size)` + pricingColumns + `
			FROM pricing_snapshots ps
			JOIN source_catalog sc ON sc.prop_firm_id = ps.prop_firm_id
			ORDER BY ps.prop_firm_id, ps.account_size, ps.snapshot_created_at DESC
		) cur
		WHERE cur.has_changed AND cur.changed_at >= $1
		ORDER BY cur.changed_at DESC`

	pricings, err := r.queryPricings(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query recently changed pricing: %w", err)
	}
	return pricings, nil
}

func (r *PricingRepoImpl) queryPricings(ctx context.Context, query string, args ...any) ([]entity.Pricing, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pricings []entity.Pricing
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		pricings = append(pricings, s.Pricing)
	}
	return pricings, rows.Err()
}

func scanSnapshot(row pgx.Row) (*entity.PricingSnapshot, error) {
	var s entity.PricingSnapshot
	var discountLabel *string

	err := row.Scan(
		&s.SnapshotID,
		&s.PropFirmID,
		&s.PropFirmName,
		&s.AccountSize,
		&s.AccountSizeCurrency,
		&s.CurrentPrice,
		&s.PriceCurrency,
		&s.DiscountPercent,
		&discountLabel,
		&s.EvaluationFee,
		&s.ActivationFee,
		&s.ResetFee,
		&s.MonthlyDataFee,
		&s.TrueCost,
		&s.SourceURL,
		&s.SourceTimestamp,
		&s.LastSeenAt,
		&s.HasChanged,
		&s.ChangedAt,
		&s.RequiresManualReview,
		&s.IsVerified,
		&s.Version,
		&s.SnapshotCreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan pricing snapshot: %w", err)
	}

	if discountLabel != nil {
		s.DiscountLabel = *discountLabel
	}
	return &s, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
