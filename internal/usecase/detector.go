package usecase

import (
	"time"

	"github.com/user/price-intel/internal/entity"
)

// Tracked field names reported in PriceChange.FieldChanges.
const (
	fieldCurrentPrice    = "currentPrice"
	fieldDiscountPercent = "discountPercent"
)

// DetectChanges compares the prior current snapshot against a freshly
// normalized record for the same (firm, account size). It is a pure function
// over exactly two tracked fields: currentPrice and discountPercent.
//
// Returns nil when neither tracked field differs; callers must treat nil as
// "no history entry needed", not as an error.
func DetectChanges(oldSnapshot, newSnapshot *entity.Pricing) *entity.PriceChange {
	now := time.Now()
	var changes []entity.FieldChange

	if oldSnapshot.CurrentPrice != newSnapshot.CurrentPrice {
		changes = append(changes, entity.FieldChange{
			FieldName: fieldCurrentPrice,
			OldValue:  oldSnapshot.CurrentPrice,
			NewValue:  newSnapshot.CurrentPrice,
			ChangedAt: now,
		})
	}

	if oldSnapshot.DiscountPercent != newSnapshot.DiscountPercent {
		changes = append(changes, entity.FieldChange{
			FieldName: fieldDiscountPercent,
			OldValue:  oldSnapshot.DiscountPercent,
			NewValue:  newSnapshot.DiscountPercent,
			ChangedAt: now,
		})
	}

	if len(changes) == 0 {
		return nil
	}

	// Deal-hunting significance: a price drop or a discount increase, each
	// checked independently with strict inequality. Increases in price and
	// cuts in discount are recorded but never flagged significant.
	isPriceDrop := newSnapshot.CurrentPrice < oldSnapshot.CurrentPrice
	isDiscountIncrease := newSnapshot.DiscountPercent > oldSnapshot.DiscountPercent

	reasons := []string{}
	if isPriceDrop {
		reasons = append(reasons, entity.ReasonPriceDrop)
	}
	if isDiscountIncrease {
		reasons = append(reasons, entity.ReasonDiscountIncrease)
	}

	return &entity.PriceChange{
		PropFirmID:           newSnapshot.PropFirmID,
		AccountSize:          newSnapshot.AccountSize,
		FieldChanges:         changes,
		HasSignificantChange: isPriceDrop || isDiscountIncrease,
		ChangeReasons:        reasons,
		CompareTimestamp:     now,
	}
}
