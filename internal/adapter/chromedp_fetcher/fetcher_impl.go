// Package chromedp_fetcher implements the PageFetcher contract with a
// headless Chrome instance via chromedp. Target pricing pages are JS-driven
// single-page sites, so plain HTTP GETs would return empty shells.
package chromedp_fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/repository"
)

const userAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36`

type ChromedpFetcher struct {
	allocatorPool *sync.Pool
	navTimeout    time.Duration
	selectorWait  time.Duration
	logger        *zap.Logger
}

// NewChromedpFetcher creates a fetcher backed by a pool of Chrome exec
// allocators. navTimeout bounds the whole navigation; selectorWait bounds the
// soft wait for the entry's container selector.
func NewChromedpFetcher(navTimeout, selectorWait time.Duration, logger *zap.Logger) repository.PageFetcher {
	pool := &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(userAgent),
			)
			allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
			return allocCtx
		},
	}

	return &ChromedpFetcher{
		allocatorPool: pool,
		navTimeout:    navTimeout,
		selectorWait:  selectorWait,
		logger:        logger,
	}
}

// FetchPricingPage navigates to the entry's pricing page, waits for network
// activity to settle, optionally waits for the container selector to render,
// and returns the resulting HTML. The browser page is released on every exit
// path via the deferred cancels.
func (f *ChromedpFetcher) FetchPricingPage(ctx context.Context, entry *entity.SourceCatalogEntry) (string, error) {
	allocCtx := f.allocatorPool.Get().(context.Context)
	defer f.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, f.navTimeout)
	defer cancelTimeout()

	err := chromedp.Run(taskCtx,
		chromedp.Navigate(entry.PricingPageURL),
		waitForNetworkIdle(networkIdleWindow),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s after %s", repository.ErrFetchTimeout, entry.PricingPageURL, f.navTimeout)
		}
		return "", fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, entry.PricingPageURL, err)
	}

	// Soft wait: a missing container selector is a warning, not a failure.
	// Whatever HTML is present at that point still gets returned.
	if sel := containerSelector(entry); sel != "" {
		waitCtx, cancelWait := context.WithTimeout(taskCtx, f.selectorWait)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery))
		cancelWait()
		if err != nil {
			f.logger.Warn("container selector not found before deadline",
				zap.String("prop_firm_id", entry.PropFirmID),
				zap.String("selector", sel))
		}
	}

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s after %s", repository.ErrFetchTimeout, entry.PricingPageURL, f.navTimeout)
		}
		return "", fmt.Errorf("%w: extract HTML from %s: %v", repository.ErrNavigationFailed, entry.PricingPageURL, err)
	}

	return html, nil
}

func containerSelector(entry *entity.SourceCatalogEntry) string {
	if entry.HTMLSelectors == nil {
		return ""
	}
	return entry.HTMLSelectors.ContainerSelector
}
