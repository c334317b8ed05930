package entity

import "time"

// UpdateStrategy describes how pricing for a firm is obtained.
type UpdateStrategy string

const (
	StrategyAPI      UpdateStrategy = "api"
	StrategyHTML     UpdateStrategy = "html"
	StrategyManual   UpdateStrategy = "manual"
	StrategyInactive UpdateStrategy = "inactive"
)

// UpdateFrequency is the desired re-crawl cadence for a catalog entry.
// The scheduler currently runs one global daily job; the field is stored and
// surfaced so per-entry scheduling can be layered on later.
type UpdateFrequency string

const (
	FrequencyRealtime UpdateFrequency = "realtime"
	FrequencyHourly   UpdateFrequency = "hourly"
	Frequency4Hourly  UpdateFrequency = "4hourly"
	FrequencyDaily    UpdateFrequency = "daily"
	FrequencyWeekly   UpdateFrequency = "weekly"
	FrequencyManual   UpdateFrequency = "manual"
)

// HTMLSelectors holds the CSS selectors used to pull pricing fields out of a
// rendered pricing page. ContainerSelector matches one node per offer/tier;
// the field selectors are resolved relative to each container node. Every
// selector is optional: a missing field selector yields an empty string for
// that field during normalization.
type HTMLSelectors struct {
	ContainerSelector      string `json:"containerSelector,omitempty"`
	AccountSizeSelector    string `json:"accountSizeSelector,omitempty"`
	PriceSelector          string `json:"priceSelector,omitempty"`
	DiscountSelector       string `json:"discountSelector,omitempty"`
	DiscountLabelSelector  string `json:"discountLabelSelector,omitempty"`
	EvaluationFeeSelector  string `json:"evaluationFeeSelector,omitempty"`
	ActivationFeeSelector  string `json:"activationFeeSelector,omitempty"`
	ResetFeeSelector       string `json:"resetFeeSelector,omitempty"`
	MonthlyDataFeeSelector string `json:"monthlyDataFeeSelector,omitempty"`
}

// SourceCatalogEntry mirrors the `source_catalog` PostgreSQL table and
// describes how and where to fetch pricing data for one prop firm.
type SourceCatalogEntry struct {
	PropFirmID   string
	PropFirmName string

	OfficialURL    string
	PricingPageURL string

	UpdateStrategy  UpdateStrategy
	UpdateFrequency UpdateFrequency

	HTMLSelectors *HTMLSelectors

	IsActive               bool
	FailureCount           int
	MaxConsecutiveFailures int
	LastCheckedAt          *time.Time
	LastFailureAt          *time.Time

	Notes string
}
