package entity

// ComparisonResult groups the current pricing of several firms for one
// account size, with the firm offering the lowest true cost singled out.
type ComparisonResult struct {
	AccountSize     float64
	Firms           map[string]Pricing
	BestValueFirmID string
}
