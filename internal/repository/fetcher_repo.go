package repository

import (
	"context"

	"github.com/user/price-intel/internal/entity"
)

// PageFetcher defines the contract for retrieving the fully-rendered HTML of
// a catalog entry's pricing page. Target pages are JS-driven single-page
// sites, so implementations must execute client-side JavaScript rather than
// issue a raw HTTP GET.
type PageFetcher interface {
	// FetchPricingPage navigates to the entry's pricing page and returns its
	// rendered HTML. Fails with ErrFetchTimeout or ErrNavigationFailed.
	FetchPricingPage(ctx context.Context, entry *entity.SourceCatalogEntry) (string, error)
}
