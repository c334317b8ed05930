package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/user/price-intel/internal/db"
	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/repository"
)

const catalogColumns = `
	prop_firm_id, prop_firm_name, official_url, pricing_page_url,
	update_strategy, update_frequency, json_config,
	is_active, failure_count, max_consecutive_failures,
	last_checked_at, last_failure_at, notes`

// catalogConfig is the shape of the json_config column: selector
// configuration too sparse and site-specific to deserve its own columns.
type catalogConfig struct {
	HTMLSelectors *entity.HTMLSelectors `json:"htmlSelectors,omitempty"`
}

// CatalogRepoImpl implements CatalogRepository over the `source_catalog`
// table. The table is the single source of truth for the catalog; any cache
// in front of it is read-through only.
type CatalogRepoImpl struct {
	db db.Pool
}

func NewCatalogRepo(pool db.Pool) *CatalogRepoImpl {
	return &CatalogRepoImpl{db: pool}
}

func (r *CatalogRepoImpl) GetAllActive(ctx context.Context) ([]entity.SourceCatalogEntry, error) {
	query := `SELECT` + catalogColumns + ` FROM source_catalog WHERE is_active = TRUE ORDER BY prop_firm_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []entity.SourceCatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *CatalogRepoImpl) GetByFirmID(ctx context.Context, propFirmID string) (*entity.SourceCatalogEntry, error) {
	query := `SELECT` + catalogColumns + ` FROM source_catalog WHERE prop_firm_id = $1`
	return scanCatalogEntry(r.db.QueryRow(ctx, query, propFirmID))
}

func (r *CatalogRepoImpl) Save(ctx context.Context, entry *entity.SourceCatalogEntry) error {
	cfg, err := json.Marshal(catalogConfig{HTMLSelectors: entry.HTMLSelectors})
	if err != nil {
		return fmt.Errorf("marshal catalog config for %s: %w", entry.PropFirmID, err)
	}

	query := `
		INSERT INTO source_catalog (
			prop_firm_id, prop_firm_name, official_url, pricing_page_url,
			update_strategy, update_frequency, json_config,
			is_active, max_consecutive_failures, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (prop_firm_id) DO UPDATE SET
			prop_firm_name = EXCLUDED.prop_firm_name,
			official_url = EXCLUDED.official_url,
			pricing_page_url = EXCLUDED.pricing_page_url,
			update_strategy = EXCLUDED.update_strategy,
			update_frequency = EXCLUDED.update_frequency,
			json_config = EXCLUDED.json_config,
			is_active = EXCLUDED.is_active,
			max_consecutive_failures = EXCLUDED.max_consecutive_failures,
			notes = EXCLUDED.notes,
			updated_at = NOW();`

	_, err = r.db.Exec(ctx, query,
		entry.PropFirmID,
		entry.PropFirmName,
		entry.OfficialURL,
		entry.PricingPageURL,
		string(entry.UpdateStrategy),
		string(entry.UpdateFrequency),
		cfg,
		entry.IsActive,
		entry.MaxConsecutiveFailures,
		entry.Notes,
	)
	if err != nil {
		return fmt.Errorf("upsert catalog entry %s: %w", entry.PropFirmID, err)
	}
	return nil
}

// RecordFailure bumps the consecutive-failure counter and deactivates the
// entry once the counter reaches its configured maximum.
func (r *CatalogRepoImpl) RecordFailure(ctx context.Context, propFirmID string) error {
	query := `
		UPDATE source_catalog SET
			failure_count = failure_count + 1,
			last_failure_at = NOW(),
			is_active = (failure_count + 1 < max_consecutive_failures),
			updated_at = NOW()
		WHERE prop_firm_id = $1;`

	if _, err := r.db.Exec(ctx, query, propFirmID); err != nil {
		return fmt.Errorf("record crawl failure for %s: %w", propFirmID, err)
	}
	return nil
}

func (r *CatalogRepoImpl) RecordSuccess(ctx context.Context, propFirmID string) error {
	query := `
		UPDATE source_catalog SET
			failure_count = 0,
			last_checked_at = NOW(),
			updated_at = NOW()
		WHERE prop_firm_id = $1;`

	if _, err := r.db.Exec(ctx, query, propFirmID); err != nil {
		return fmt.Errorf("record crawl success for %s: %w", propFirmID, err)
	}
	return nil
}

func scanCatalogEntry(row pgx.Row) (*entity.SourceCatalogEntry, error) {
	var entry entity.SourceCatalogEntry
	var cfgJSON []byte
	var notes *string

	err := row.Scan(
		&entry.PropFirmID,
		&entry.PropFirmName,
		&entry.OfficialURL,
		&entry.PricingPageURL,
		&entry.UpdateStrategy,
		&entry.UpdateFrequency,
		&cfgJSON,
		&entry.IsActive,
		&entry.FailureCount,
		&entry.MaxConsecutiveFailures,
		&entry.LastCheckedAt,
		&entry.LastFailureAt,
		&notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan catalog entry: %w", err)
	}

	if len(cfgJSON) > 0 {
		var cfg catalogConfig
		if err := json.Unmarshal(cfgJSON, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal catalog config for %s: %w", entry.PropFirmID, err)
		}
		entry.HTMLSelectors = cfg.HTMLSelectors
	}
	if notes != nil {
		entry.Notes = *notes
	}
	return &entry, nil
}
