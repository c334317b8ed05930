package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/repository"
)

// fakePricingRepo is an in-memory PricingRepository. Snapshots append in
// call order; "current" is the last snapshot per (firm, account size).
type fakePricingRepo struct {
	mu        sync.Mutex
	snapshots []entity.PricingSnapshot

	bulk     []entity.Pricing
	bulkErr  error
	saveErr  error
	currErr  error
	recently []entity.Pricing

	lastFilters repository.PricingFilters
	lastSince   time.Time
}

func (f *fakePricingRepo) SaveSnapshot(_ context.Context, p *entity.Pricing) (*entity.PricingSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}

	version := 0
	for _, s := range f.snapshots {
		if s.PropFirmID == p.PropFirmID && s.AccountSize == p.AccountSize {
			version = s.Version
		}
	}
	snap := entity.PricingSnapshot{
		Pricing:           *p,
		SnapshotID:        "snap-" + p.PropFirmID,
		SnapshotCreatedAt: time.Now(),
		Version:           version + 1,
	}
	f.snapshots = append(f.snapshots, snap)
	return &snap, nil
}

func (f *fakePricingRepo) GetCurrentPricing(_ context.Context, propFirmID string, accountSize *float64) (*entity.Pricing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currErr != nil {
		return nil, f.currErr
	}

	for i := len(f.snapshots) - 1; i >= 0; i-- {
		s := f.snapshots[i]
		if s.PropFirmID != propFirmID {
			continue
		}
		if accountSize != nil && s.AccountSize != *accountSize {
			continue
		}
		p := s.Pricing
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakePricingRepo) GetBulkPricing(_ context.Context, filters repository.PricingFilters) ([]entity.Pricing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilters = filters
	return f.bulk, f.bulkErr
}

func (f *fakePricingRepo) GetPricingHistory(_ context.Context, propFirmID string, accountSize float64, _ int) ([]entity.PricingSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.PricingSnapshot
	for i := len(f.snapshots) - 1; i >= 0; i-- {
		s := f.snapshots[i]
		if s.PropFirmID == propFirmID && s.AccountSize == accountSize {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakePricingRepo) GetRecentlyChanged(_ context.Context, since time.Time) ([]entity.Pricing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSince = since
	return f.recently, nil
}

func (f *fakePricingRepo) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

// fakeCatalogRepo is an in-memory CatalogRepository tracking the failure
// bookkeeping calls the pipeline makes.
type fakeCatalogRepo struct {
	mu      sync.Mutex
	entries []entity.SourceCatalogEntry

	activeErr error

	failures  map[string]int
	successes map[string]int
}

func (f *fakeCatalogRepo) GetAllActive(_ context.Context) ([]entity.SourceCatalogEntry, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.entries, nil
}

func (f *fakeCatalogRepo) GetByFirmID(_ context.Context, propFirmID string) (*entity.SourceCatalogEntry, error) {
	for i := range f.entries {
		if f.entries[i].PropFirmID == propFirmID {
			e := f.entries[i]
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalogRepo) Save(_ context.Context, entry *entity.SourceCatalogEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeCatalogRepo) RecordFailure(_ context.Context, propFirmID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = make(map[string]int)
	}
	f.failures[propFirmID]++
	return nil
}

func (f *fakeCatalogRepo) RecordSuccess(_ context.Context, propFirmID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.successes == nil {
		f.successes = make(map[string]int)
	}
	f.successes[propFirmID]++
	return nil
}

// fakeFetcher serves canned HTML (or errors) per firm ID.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls map[string]int
}

func (f *fakeFetcher) FetchPricingPage(_ context.Context, entry *entity.SourceCatalogEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[entry.PropFirmID]++
	if err, ok := f.errs[entry.PropFirmID]; ok {
		return "", err
	}
	return f.pages[entry.PropFirmID], nil
}
