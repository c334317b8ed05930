package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/monitoring"
	"github.com/user/price-intel/internal/normalizer"
	"github.com/user/price-intel/internal/repository"
)

// ErrFirmNotInCatalog is returned by CrawlFirm when the requested firm is
// not an active catalog entry.
var ErrFirmNotInCatalog = errors.New("firm not found in active catalog")

// Crawler runs the fetch -> normalize -> detect -> persist pipeline.
type Crawler interface {
	// RunBatch processes every active catalog entry. Per-entry failures are
	// logged and isolated; one broken site never blocks the others.
	RunBatch(ctx context.Context)
	// CrawlFirm runs the pipeline synchronously for one firm and returns the
	// snapshots it saved.
	CrawlFirm(ctx context.Context, propFirmID string) ([]entity.PricingSnapshot, error)
}

type crawlUsecase struct {
	catalogRepo repository.CatalogRepository
	fetcher     repository.PageFetcher
	normalizer  *normalizer.Normalizer
	pricingRepo repository.PricingRepository
	metrics     *monitoring.Metrics
	logger      *zap.Logger
	concurrency int

	// Serializes the read-then-write current-pricing sequence per
	// (firm, account size) so concurrent crawls cannot both observe the same
	// stale snapshot and double-classify a "first time seen".
	// Entries are never evicted; the key space is the catalog's set of
	// (firm, account size) pairs, a few hundred mutexes at the outside.
	keyMu sync.Mutex
	keys  map[string]*sync.Mutex
}

// NewCrawlUsecase creates the crawl pipeline use case. Fetches run with up to
// `concurrency` entries in flight at once.
func NewCrawlUsecase(
	catalogRepo repository.CatalogRepository,
	fetcher repository.PageFetcher,
	norm *normalizer.Normalizer,
	pricingRepo repository.PricingRepository,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
	concurrency int,
) Crawler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &crawlUsecase{
		catalogRepo: catalogRepo,
		fetcher:     fetcher,
		normalizer:  norm,
		pricingRepo: pricingRepo,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
		keys:        make(map[string]*sync.Mutex),
	}
}

func (uc *crawlUsecase) RunBatch(ctx context.Context) {
	uc.logger.Info("starting batch crawl")

	entries, err := uc.catalogRepo.GetAllActive(ctx)
	if err != nil {
		uc.logger.Error("failed to load active catalog entries", zap.Error(err))
		return
	}
	uc.logger.Info("loaded active catalog entries", zap.Int("count", len(entries)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if _, err := uc.processEntry(gctx, &entry); err != nil {
				uc.logger.Error("failed to process catalog entry",
					zap.String("prop_firm_id", entry.PropFirmID), zap.Error(err))
			}
			// Never propagate: per-entry failure isolation is mandatory.
			return nil
		})
	}
	_ = g.Wait()

	uc.logger.Info("batch crawl completed")
}

func (uc *crawlUsecase) CrawlFirm(ctx context.Context, propFirmID string) ([]entity.PricingSnapshot, error) {
	entry, err := uc.catalogRepo.GetByFirmID(ctx, propFirmID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFirmNotInCatalog
		}
		return nil, fmt.Errorf("load catalog entry %s: %w", propFirmID, err)
	}
	if !entry.IsActive {
		return nil, ErrFirmNotInCatalog
	}
	return uc.processEntry(ctx, entry)
}

func (uc *crawlUsecase) processEntry(ctx context.Context, entry *entity.SourceCatalogEntry) ([]entity.PricingSnapshot, error) {
	switch entry.UpdateStrategy {
	case entity.StrategyHTML:
		// Only HTML-strategy entries are actionable.
	case entity.StrategyAPI, entity.StrategyManual:
		uc.logger.Info("update strategy not implemented, skipping entry",
			zap.String("prop_firm_id", entry.PropFirmID),
			zap.String("strategy", string(entry.UpdateStrategy)))
		return nil, nil
	case entity.StrategyInactive:
		uc.logger.Debug("skipping inactive entry", zap.String("prop_firm_id", entry.PropFirmID))
		return nil, nil
	default:
		uc.logger.Warn("unknown update strategy, skipping entry",
			zap.String("prop_firm_id", entry.PropFirmID),
			zap.String("strategy", string(entry.UpdateStrategy)))
		return nil, nil
	}

	uc.logger.Info("crawling pricing page",
		zap.String("prop_firm_id", entry.PropFirmID),
		zap.String("url", entry.PricingPageURL))

	start := time.Now()
	html, err := uc.fetcher.FetchPricingPage(ctx, entry)
	uc.metrics.ObserveCrawlDuration(entry.PropFirmID, time.Since(start))

	if err != nil {
		uc.metrics.IncCrawlsTotal("failure", fetchErrorReason(err))
		uc.recordFailure(ctx, entry.PropFirmID)
		return nil, fmt.Errorf("fetch pricing page for %s: %w", entry.PropFirmID, err)
	}

	// The fetch itself succeeded; reset the consecutive-failure counter even
	// if extraction finds nothing below.
	uc.recordSuccess(ctx, entry.PropFirmID)

	pricings := uc.normalizer.NormalizeFromHTML(html, entry)
	if len(pricings) == 0 {
		uc.metrics.IncCrawlsTotal("empty", "")
		uc.logger.Warn("no pricing data extracted", zap.String("prop_firm_id", entry.PropFirmID))
		return nil, nil
	}

	saved := make([]entity.PricingSnapshot, 0, len(pricings))
	changesCount := 0
	for i := range pricings {
		p := &pricings[i]

		snapshot, err := uc.persistRecord(ctx, p, &changesCount)
		if err != nil {
			uc.logger.Error("failed to persist pricing snapshot",
				zap.String("prop_firm_id", p.PropFirmID),
				zap.Float64("account_size", p.AccountSize),
				zap.Error(err))
			continue
		}
		saved = append(saved, *snapshot)
	}

	if len(saved) == 0 {
		// Extraction produced records but none persisted.
		uc.metrics.IncCrawlsTotal("failure", "persist")
	} else {
		uc.metrics.IncCrawlsTotal("success", "")
	}
	uc.logger.Info("finished catalog entry",
		zap.String("prop_firm_id", entry.PropFirmID),
		zap.Int("prices", len(saved)),
		zap.Int("changes", changesCount))
	return saved, nil
}

// persistRecord runs the read-then-write sequence for one pricing record
// under the per-(firm, account size) lock.
func (uc *crawlUsecase) persistRecord(ctx context.Context, p *entity.Pricing, changesCount *int) (*entity.PricingSnapshot, error) {
	unlock := uc.lockKey(p.PropFirmID, p.AccountSize)
	defer unlock()

	oldSnapshot, err := uc.pricingRepo.GetCurrentPricing(ctx, p.PropFirmID, &p.AccountSize)
	switch {
	case err == nil:
		if change := DetectChanges(oldSnapshot, p); change != nil {
			p.HasChanged = true
			p.ChangedAt = &change.CompareTimestamp
			*changesCount++
			for _, reason := range change.ChangeReasons {
				uc.metrics.IncPriceChangesTotal(reason)
			}
		}
	case errors.Is(err, repository.ErrNotFound):
		// First observation for this (firm, account size).
		p.HasChanged = true
		now := time.Now()
		p.ChangedAt = &now
		*changesCount++
	default:
		return nil, fmt.Errorf("look up current pricing: %w", err)
	}

	// Snapshots are saved unconditionally: history is dense, not
	// sparse-on-change.
	snapshot, err := uc.pricingRepo.SaveSnapshot(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return snapshot, nil
}

func (uc *crawlUsecase) lockKey(propFirmID string, accountSize float64) func() {
	key := fmt.Sprintf("%s:%v", propFirmID, accountSize)
	uc.keyMu.Lock()
	mu, ok := uc.keys[key]
	if !ok {
		mu = &sync.Mutex{}
		uc.keys[key] = mu
	}
	uc.keyMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (uc *crawlUsecase) recordFailure(ctx context.Context, propFirmID string) {
	if err := uc.catalogRepo.RecordFailure(ctx, propFirmID); err != nil {
		uc.logger.Warn("failed to record crawl failure",
			zap.String("prop_firm_id", propFirmID), zap.Error(err))
	}
}

func (uc *crawlUsecase) recordSuccess(ctx context.Context, propFirmID string) {
	if err := uc.catalogRepo.RecordSuccess(ctx, propFirmID); err != nil {
		uc.logger.Warn("failed to record crawl success",
			zap.String("prop_firm_id", propFirmID), zap.Error(err))
	}
}

func fetchErrorReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrNavigationFailed):
		return "navigation"
	default:
		return "unknown"
	}
}
