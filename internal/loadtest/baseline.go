package loadtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// runBaseline measures a mutex-based golang.org/x/time limiter under the
// same configuration, as a point of comparison for the lock-free bucket.
func (a *App) runBaseline(ctx context.Context) Result {
	cfg := a.cfg.Loadtest

	lim := rate.NewLimiter(rate.Limit(cfg.Rate), int(cfg.Headroom*cfg.Rate))
	deadline := time.Now().Add(cfg.Duration)
	start := time.Now()

	var total atomic.Int64
	wg := sync.WaitGroup{}
	wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			var ops int64
			for time.Now().Before(deadline) {
				lim.Allow()
				ops++
				if ops&ctxCheckMask == 0 && ctx.Err() != nil {
					break
				}
			}
			total.Add(ops)
			a.meter.AddBaselineAllowed(ops)
		}()
	}
	wg.Wait()

	return Result{
		Ops:     total.Load(),
		Elapsed: time.Since(start),
	}
}
