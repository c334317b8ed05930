package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/repository"
)

// Comparer ranks firms against each other per account size.
type Comparer interface {
	CompareFirms(ctx context.Context, firmIDs []string, accountSize *float64) ([]entity.ComparisonResult, error)
}

type comparisonUsecase struct {
	pricingRepo repository.PricingRepository
}

func NewComparisonUsecase(pricingRepo repository.PricingRepository) Comparer {
	return &comparisonUsecase{pricingRepo: pricingRepo}
}

// CompareFirms groups the requested firms' current pricing by account size,
// ascending, and tags each group with the firm offering the lowest true
// cost. Firms with no current pricing for a size are simply absent from that
// group. When either contender lacks a true cost the comparison degrades to
// the advertised price; that fallback is an intentional policy, not a bug.
func (uc *comparisonUsecase) CompareFirms(ctx context.Context, firmIDs []string, accountSize *float64) ([]entity.ComparisonResult, error) {
	pricings, err := uc.pricingRepo.GetBulkPricing(ctx, repository.PricingFilters{
		PropFirmIDs: firmIDs,
		AccountSize: accountSize,
	})
	if err != nil {
		return nil, fmt.Errorf("load pricing for comparison: %w", err)
	}

	grouped := make(map[float64]*entity.ComparisonResult)
	for _, price := range pricings {
		group, ok := grouped[price.AccountSize]
		if !ok {
			group = &entity.ComparisonResult{
				AccountSize: price.AccountSize,
				Firms:       make(map[string]entity.Pricing),
			}
			grouped[price.AccountSize] = group
		}
		group.Firms[price.PropFirmID] = price

		if group.BestValueFirmID == "" {
			group.BestValueFirmID = price.PropFirmID
			continue
		}
		if beats(price, group.Firms[group.BestValueFirmID]) {
			group.BestValueFirmID = price.PropFirmID
		}
	}

	results := make([]entity.ComparisonResult, 0, len(grouped))
	for _, group := range grouped {
		results = append(results, *group)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].AccountSize < results[j].AccountSize
	})
	return results, nil
}

// beats reports whether candidate offers better value than the current best:
// lower true cost when both carry one, lower advertised price otherwise.
func beats(candidate, currentBest entity.Pricing) bool {
	if candidate.TrueCost != nil && currentBest.TrueCost != nil {
		return *candidate.TrueCost < *currentBest.TrueCost
	}
	return candidate.CurrentPrice < currentBest.CurrentPrice
}
