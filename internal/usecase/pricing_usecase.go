package usecase

import (
	"context"
	"time"

	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/repository"
)

// A deal counts as "new" while its last flagged change is younger than this.
const newDealWindow = 24 * time.Hour

// PricingQueries is the read side consumed by the HTTP layer.
type PricingQueries interface {
	GetPricingForFirm(ctx context.Context, propFirmID string, accountSize *float64) (*entity.Pricing, error)
	GetPricingList(ctx context.Context, filters repository.PricingFilters) ([]entity.Pricing, error)
	GetPricingHistory(ctx context.Context, propFirmID string, accountSize float64, days int) ([]entity.PricingSnapshot, error)
	GetNewDeals(ctx context.Context) ([]entity.Pricing, error)
}

type pricingUsecase struct {
	pricingRepo repository.PricingRepository
}

func NewPricingUsecase(pricingRepo repository.PricingRepository) PricingQueries {
	return &pricingUsecase{pricingRepo: pricingRepo}
}

// GetPricingForFirm returns the current pricing for one firm, optionally
// restricted to an account size. Propagates repository.ErrNotFound so the
// API layer can answer 404 instead of zero-valued pricing.
func (uc *pricingUsecase) GetPricingForFirm(ctx context.Context, propFirmID string, accountSize *float64) (*entity.Pricing, error) {
	return uc.pricingRepo.GetCurrentPricing(ctx, propFirmID, accountSize)
}

func (uc *pricingUsecase) GetPricingList(ctx context.Context, filters repository.PricingFilters) ([]entity.Pricing, error) {
	return uc.pricingRepo.GetBulkPricing(ctx, filters)
}

func (uc *pricingUsecase) GetPricingHistory(ctx context.Context, propFirmID string, accountSize float64, days int) ([]entity.PricingSnapshot, error) {
	return uc.pricingRepo.GetPricingHistory(ctx, propFirmID, accountSize, days)
}

// GetNewDeals returns current pricing rows that changed within the trailing
// 24-hour window.
func (uc *pricingUsecase) GetNewDeals(ctx context.Context) ([]entity.Pricing, error) {
	return uc.pricingRepo.GetRecentlyChanged(ctx, time.Now().Add(-newDealWindow))
}
