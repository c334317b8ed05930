package entity

import "time"

// Change reasons attached to a PriceChange. Both may fire on one comparison.
const (
	ReasonPriceDrop        = "price_drop"
	ReasonDiscountIncrease = "discount_increase"
)

// FieldChange records one tracked field moving between two snapshots.
type FieldChange struct {
	FieldName string
	OldValue  float64
	NewValue  float64
	ChangedAt time.Time
}

// PriceChange is the diff between the prior current snapshot and a freshly
// normalized record for the same (firm, account size). It is produced
// transiently per comparison and never persisted itself; only its boolean
// residue ends up on the Pricing record as HasChanged.
type PriceChange struct {
	PropFirmID  string
	AccountSize float64

	FieldChanges []FieldChange

	// HasSignificantChange is true iff the price dropped or the discount
	// increased. Price increases and discount cuts are recorded but never
	// flagged significant.
	HasSignificantChange bool
	ChangeReasons        []string

	CompareTimestamp time.Time
}
