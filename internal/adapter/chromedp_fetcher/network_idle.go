package chromedp_fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// networkIdleWindow is how long the page must stay without in-flight
// requests before a navigation is considered settled.
const networkIdleWindow = 500 * time.Millisecond

// waitForNetworkIdle blocks until no network request has been in flight for
// idleWindow, or until the surrounding context (which carries the hard fetch
// timeout) expires. This mirrors a "no in-flight network activity" wait
// rather than a fixed sleep.
func waitForNetworkIdle(idleWindow time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		var mu sync.Mutex
		inflight := make(map[network.RequestID]struct{})

		// busy fires when a request starts, settled when the in-flight set
		// drains. Non-blocking sends: only edge transitions matter.
		busy := make(chan struct{}, 1)
		settled := make(chan struct{}, 1)

		lctx, lcancel := context.WithCancel(ctx)
		defer lcancel()

		chromedp.ListenTarget(lctx, func(ev interface{}) {
			mu.Lock()
			defer mu.Unlock()
			switch e := ev.(type) {
			case *network.EventRequestWillBeSent:
				inflight[e.RequestID] = struct{}{}
				signal(busy)
			case *network.EventLoadingFinished:
				delete(inflight, e.RequestID)
				if len(inflight) == 0 {
					signal(settled)
				}
			case *network.EventLoadingFailed:
				delete(inflight, e.RequestID)
				if len(inflight) == 0 {
					signal(settled)
				}
			}
		})

		if err := network.Enable().Do(ctx); err != nil {
			return err
		}

		quiet := time.NewTimer(idleWindow)
		defer quiet.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-busy:
				if !quiet.Stop() {
					select {
					case <-quiet.C:
					default:
					}
				}
			case <-settled:
				quiet.Reset(idleWindow)
			case <-quiet.C:
				return nil
			}
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
