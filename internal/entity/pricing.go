package entity

import (
	"math"
	"time"
)

// Pricing is the canonical view of one (firm, account size) pricing point.
type Pricing struct {
	PropFirmID   string
	PropFirmName string

	AccountSize         float64
	AccountSizeCurrency string

	CurrentPrice    float64
	PriceCurrency   string
	DiscountPercent float64 // 0-100, 0 = no discount
	DiscountLabel   string  // e.g. "Black Friday"

	// Optional fee breakdown used for the true-cost calculation.
	EvaluationFee  *float64
	ActivationFee  *float64
	ResetFee       *float64
	MonthlyDataFee *float64
	TrueCost       *float64

	SourceURL       string
	SourceTimestamp time.Time
	LastSeenAt      time.Time

	HasChanged bool
	ChangedAt  *time.Time

	RequiresManualReview bool
	IsVerified           bool
	Notes                string
}

// PricingSnapshot is an immutable, append-only observation of a Pricing.
// It mirrors the `pricing_snapshots` PostgreSQL table; Version increases
// monotonically per (firm, account size).
type PricingSnapshot struct {
	Pricing

	SnapshotID        string
	SnapshotCreatedAt time.Time
	Version           int
}

// ComputeTrueCost returns the advertised price plus all mandatory ancillary
// fees, rounded to 2 decimal places. Absent fees count as zero. One month of
// data fees is assumed mandatory for comparison purposes.
func ComputeTrueCost(p *Pricing) float64 {
	cost := p.CurrentPrice
	if p.ActivationFee != nil {
		cost += *p.ActivationFee
	}
	if p.EvaluationFee != nil {
		cost += *p.EvaluationFee
	}
	if p.MonthlyDataFee != nil {
		cost += *p.MonthlyDataFee
	}
	return math.Round(cost*100) / 100
}
