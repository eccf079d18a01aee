package clock

import (
	"sync/atomic"
	"time"
)

// Granular is a Clock that trades precision for hot-path cost. A background
// goroutine samples the raw clock once per granularity interval and caches
// the value; coarse readers only pay an atomic load instead of a syscall.
//
// A high-precision read samples the raw clock directly and refreshes the
// cached value as a side effect.
//
// Granular owns the sampler goroutine and must be closed. After Close the
// cached value is frozen at its last sample.
type Granular struct {
	raw    func() int64
	cached atomic.Int64
	done   chan struct{}
	closed atomic.Bool
}

// NewGranular starts a Granular clock over the given raw nanosecond source.
// A zero or negative granularity falls back to 1ms.
func NewGranular(granularity time.Duration, raw func() int64) *Granular {
	if granularity <= 0 {
		granularity = time.Millisecond
	}

	g := &Granular{
		raw:  raw,
		done: make(chan struct{}),
	}
	g.cached.Store(raw())

	go g.sampleLoop(granularity)

	return g
}

func (g *Granular) sampleLoop(granularity time.Duration) {
	t := time.NewTicker(granularity)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			g.cached.Store(g.raw())
		case <-g.done:
			return
		}
	}
}

// Nanos returns the cached sample, or a fresh raw sample when highPrecision
// is requested. The fresh sample also refreshes the cache.
func (g *Granular) Nanos(highPrecision bool) int64 {
	if highPrecision {
		now := g.raw()
		g.cached.Store(now)
		return now
	}
	return g.cached.Load()
}

// Close stops the sampler goroutine. Safe to call more than once.
func (g *Granular) Close() {
	if g.closed.CompareAndSwap(false, true) {
		close(g.done)
	}
}
