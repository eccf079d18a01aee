package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGranular_CoarseReadsFollowSampler(t *testing.T) {
	var raw atomic.Int64
	raw.Store(1000)

	g := NewGranular(time.Millisecond, raw.Load)
	defer g.Close()

	assert.Equal(t, int64(1000), g.Nanos(false))

	raw.Store(2000)
	assert.Eventually(t, func() bool { return g.Nanos(false) == 2000 }, time.Second, time.Millisecond)
}

func TestGranular_HighPrecisionRefreshesCache(t *testing.T) {
	var raw atomic.Int64
	raw.Store(1000)

	// huge granularity so the sampler never fires during the test
	g := NewGranular(time.Hour, raw.Load)
	defer g.Close()

	raw.Store(5000)
	assert.Equal(t, int64(1000), g.Nanos(false))
	assert.Equal(t, int64(5000), g.Nanos(true))
	// the high precision read updated the cached value as a side effect
	assert.Equal(t, int64(5000), g.Nanos(false))
}

func TestGranular_FrozenAfterClose(t *testing.T) {
	var raw atomic.Int64
	raw.Store(1000)

	g := NewGranular(time.Millisecond, raw.Load)
	g.Close()
	g.Close() // idempotent

	frozen := g.Nanos(false)
	raw.Store(9000)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, frozen, g.Nanos(false))
}

func TestSystem_Monotonic(t *testing.T) {
	c := System()
	a := c.Nanos(true)
	b := c.Nanos(false)
	assert.GreaterOrEqual(t, b, a)
	assert.Positive(t, a)
}

func TestManual_AdvanceAndSet(t *testing.T) {
	m := NewManual(100)
	assert.Equal(t, int64(100), m.Nanos(false))

	m.AdvanceNanos(50)
	assert.Equal(t, int64(150), m.Nanos(true))

	m.Advance(time.Microsecond)
	assert.Equal(t, int64(1150), m.Nanos(false))

	m.Set(42)
	assert.Equal(t, int64(42), m.Nanos(false))
}
