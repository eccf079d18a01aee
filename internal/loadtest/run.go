package loadtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lhotari/async-tokenbucket/pkg/bucket"
	"github.com/lhotari/async-tokenbucket/pkg/clock"
)

// Result is the outcome of a single measured run.
type Result struct {
	Ops        int64
	Elapsed    time.Duration
	TokensLeft int64
}

// OpsPerSecond reports the achieved consume rate.
func (r Result) OpsPerSecond() int64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return r.Ops * int64(time.Second) / int64(r.Elapsed)
}

// ctxCheckMask bounds how often workers poll for cancellation; a per-op
// check would dominate the measured path.
const ctxCheckMask = 1<<14 - 1

// runBucket drives the configured number of workers against a fresh bucket
// fed by a granular clock, each consuming one token per iteration until the
// deadline.
func (a *App) runBucket(ctx context.Context) (Result, error) {
	cfg := a.cfg.Loadtest

	clockSource := clock.NewGranular(cfg.ClockGranularity, clock.SystemNanos)
	defer clockSource.Close()

	b, err := bucket.NewBuilder().
		Rate(cfg.Rate).
		InitialTokens(cfg.Headroom * cfg.Rate).
		Capacity(cfg.Headroom * cfg.Rate).
		ClockSource(clockSource).
		Build()
	if err != nil {
		return Result{}, err
	}
	a.meter.ObserveBucket(b)

	startNanos := clockSource.Nanos(true)
	endNanos := startNanos + cfg.Duration.Nanoseconds()

	var total atomic.Int64
	wg := sync.WaitGroup{}
	wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			var ops int64
			for clockSource.Nanos(false) < endNanos {
				if err := b.ConsumeTokens(1); err != nil {
					return
				}
				ops++
				if ops&ctxCheckMask == 0 && ctx.Err() != nil {
					break
				}
			}
			total.Add(ops)
			a.meter.AddConsumed(ops)
		}()
	}
	wg.Wait()

	return Result{
		Ops:        total.Load(),
		Elapsed:    time.Duration(clockSource.Nanos(true) - startNanos),
		TokensLeft: b.Tokens(true),
	}, nil
}
