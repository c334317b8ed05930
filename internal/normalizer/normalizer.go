// Package normalizer turns raw pricing-page HTML into canonical Pricing
// records using the selectors configured on a catalog entry.
package normalizer

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/user/price-intel/internal/entity"
)

const defaultCurrency = "USD"

type Normalizer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// NormalizeFromHTML extracts zero or more Pricing records from rendered HTML.
// It never fails: malformed HTML or missing selectors yield an empty slice.
// A record is emitted only when both the parsed account size and the parsed
// price are positive; anything else is dropped rather than stored as a
// garbage zero.
func (n *Normalizer) NormalizeFromHTML(html string, entry *entity.SourceCatalogEntry) []entity.Pricing {
	selectors := entry.HTMLSelectors
	if selectors == nil || selectors.ContainerSelector == "" {
		n.logger.Warn("no container selector configured, skipping normalization",
			zap.String("prop_firm_id", entry.PropFirmID))
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		n.logger.Warn("failed to parse pricing page HTML",
			zap.String("prop_firm_id", entry.PropFirmID), zap.Error(err))
		return nil
	}

	var results []entity.Pricing
	now := time.Now()

	doc.Find(selectors.ContainerSelector).Each(func(_ int, sel *goquery.Selection) {
		accountSize := parseNumber(selectText(sel, selectors.AccountSizeSelector))
		currentPrice := parseNumber(selectText(sel, selectors.PriceSelector))
		discountPercent := parseNumber(selectText(sel, selectors.DiscountSelector))

		if accountSize <= 0 || currentPrice <= 0 {
			return
		}

		p := entity.Pricing{
			PropFirmID:          entry.PropFirmID,
			PropFirmName:        entry.PropFirmName,
			AccountSize:         accountSize,
			AccountSizeCurrency: defaultCurrency,
			CurrentPrice:        currentPrice,
			PriceCurrency:       defaultCurrency,
			DiscountPercent:     discountPercent,
			DiscountLabel:       strings.TrimSpace(selectText(sel, selectors.DiscountLabelSelector)),
			SourceURL:           entry.PricingPageURL,
			SourceTimestamp:     now,
			LastSeenAt:          now,
			// Corrected downstream by the change detector and manual QA.
			HasChanged:           false,
			RequiresManualReview: false,
			IsVerified:           false,
		}

		p.EvaluationFee = parseFee(sel, selectors.EvaluationFeeSelector)
		p.ActivationFee = parseFee(sel, selectors.ActivationFeeSelector)
		p.ResetFee = parseFee(sel, selectors.ResetFeeSelector)
		p.MonthlyDataFee = parseFee(sel, selectors.MonthlyDataFeeSelector)

		trueCost := entity.ComputeTrueCost(&p)
		p.TrueCost = &trueCost

		results = append(results, p)
	})

	if len(results) == 0 {
		n.logger.Warn("no pricing rows extracted",
			zap.String("prop_firm_id", entry.PropFirmID),
			zap.String("container_selector", selectors.ContainerSelector))
	}

	return results
}

// NormalizeFromAPI is the api-strategy counterpart of NormalizeFromHTML.
// API-based sources are not implemented yet; the method exists so the
// strategy contract over {api, html, manual, inactive} stays total.
func (n *Normalizer) NormalizeFromAPI(payload map[string]any, entry *entity.SourceCatalogEntry) []entity.Pricing {
	n.logger.Warn("api update strategy is not implemented",
		zap.String("prop_firm_id", entry.PropFirmID))
	return nil
}

// Validate runs a minimal schema check over a pricing record and returns the
// full list of violations rather than a single boolean.
func Validate(p *entity.Pricing) []string {
	var errs []string
	if p.PropFirmID == "" {
		errs = append(errs, "missing propFirmId")
	}
	if p.CurrentPrice <= 0 {
		errs = append(errs, "invalid price")
	}
	if p.AccountSize <= 0 {
		errs = append(errs, "invalid account size")
	}
	return errs
}

func selectText(container *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return container.Find(selector).Text()
}

func parseFee(container *goquery.Selection, selector string) *float64 {
	if selector == "" {
		return nil
	}
	v := parseNumber(container.Find(selector).Text())
	if v <= 0 {
		return nil
	}
	return &v
}

// parseNumber extracts a float from text like "$1,299.00" by stripping every
// character except digits and the decimal point, then parsing the longest
// valid numeric prefix. Prefix parsing means dot-grouped text like
// "$1.299.00" still yields a value (1.299) instead of dropping the record.
// Unparseable or empty text resolves to 0, which the emission guard then
// drops. The lossy rule is deliberate and must match the persisted history.
func parseNumber(text string) float64 {
	var b strings.Builder
	seenDot := false
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r != '.' {
			continue
		}
		if seenDot {
			// A second decimal point ends the numeric prefix.
			break
		}
		seenDot = true
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}
