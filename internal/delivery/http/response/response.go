// Package response holds the JSON DTOs served by the API layer.
package response

import (
	"fmt"
	"time"

	"github.com/user/price-intel/internal/entity"
)

const newDealWindow = 24 * time.Hour

// Pricing is the API shape of one current (firm, account size) pricing row.
type Pricing struct {
	PropFirmID          string   `json:"propFirmId"`
	PropFirmName        string   `json:"propFirmName"`
	AccountSize         float64  `json:"accountSize"`
	AccountSizeCurrency string   `json:"accountSizeCurrency"`
	CurrentPrice        float64  `json:"currentPrice"`
	PriceCurrency       string   `json:"priceCurrency"`
	DiscountPercent     float64  `json:"discountPercent"`
	DiscountLabel       string   `json:"discountLabel,omitempty"`
	TrueCost            *float64 `json:"trueCost,omitempty"`

	LastUpdatedAt  time.Time `json:"lastUpdatedAt"`
	LastUpdatedAgo string    `json:"lastUpdatedAgo"`
	IsNewDeal      bool      `json:"isNewDeal"`

	RequiresManualReview bool   `json:"requiresManualReview"`
	SourceURL            string `json:"sourceUrl"`
}

// Snapshot is the API shape of one immutable pricing observation.
type Snapshot struct {
	Pricing
	SnapshotID        string    `json:"snapshotId"`
	SnapshotCreatedAt time.Time `json:"snapshotCreatedAt"`
	Version           int       `json:"version"`
}

// ComparisonResult is one account-size group of a firm comparison.
type ComparisonResult struct {
	AccountSize     float64            `json:"accountSize"`
	Firms           map[string]Pricing `json:"firms"`
	BestValueFirmID string             `json:"bestValueFirmId,omitempty"`
}

// PricingList wraps a bulk pricing response.
type PricingList struct {
	Data []Pricing `json:"data"`
	Meta ListMeta  `json:"meta"`
}

type ListMeta struct {
	Total int `json:"total"`
}

// CrawlResult is the admin manual-trigger response.
type CrawlResult struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Data    []Snapshot `json:"data"`
}

func FromPricing(p entity.Pricing) Pricing {
	now := time.Now()
	isNewDeal := false
	if p.HasChanged && p.ChangedAt != nil {
		isNewDeal = now.Sub(*p.ChangedAt) < newDealWindow
	}

	return Pricing{
		PropFirmID:           p.PropFirmID,
		PropFirmName:         p.PropFirmName,
		AccountSize:          p.AccountSize,
		AccountSizeCurrency:  p.AccountSizeCurrency,
		CurrentPrice:         p.CurrentPrice,
		PriceCurrency:        p.PriceCurrency,
		DiscountPercent:      p.DiscountPercent,
		DiscountLabel:        p.DiscountLabel,
		TrueCost:             p.TrueCost,
		LastUpdatedAt:        p.LastSeenAt,
		LastUpdatedAgo:       humanizeAgo(now.Sub(p.LastSeenAt)),
		IsNewDeal:            isNewDeal,
		RequiresManualReview: p.RequiresManualReview,
		SourceURL:            p.SourceURL,
	}
}

func FromPricings(pricings []entity.Pricing) []Pricing {
	out := make([]Pricing, 0, len(pricings))
	for _, p := range pricings {
		out = append(out, FromPricing(p))
	}
	return out
}

func FromSnapshot(s entity.PricingSnapshot) Snapshot {
	return Snapshot{
		Pricing:           FromPricing(s.Pricing),
		SnapshotID:        s.SnapshotID,
		SnapshotCreatedAt: s.SnapshotCreatedAt,
		Version:           s.Version,
	}
}

func FromSnapshots(snapshots []entity.PricingSnapshot) []Snapshot {
	out := make([]Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, FromSnapshot(s))
	}
	return out
}

func FromComparison(results []entity.ComparisonResult) []ComparisonResult {
	out := make([]ComparisonResult, 0, len(results))
	for _, r := range results {
		firms := make(map[string]Pricing, len(r.Firms))
		for id, p := range r.Firms {
			firms[id] = FromPricing(p)
		}
		out = append(out, ComparisonResult{
			AccountSize:     r.AccountSize,
			Firms:           firms,
			BestValueFirmID: r.BestValueFirmID,
		})
	}
	return out
}

func humanizeAgo(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	return fmt.Sprintf("%dh ago", minutes/60)
}
