package clock

import (
	"sync/atomic"
	"time"
)

// Manual is a Clock under explicit test control. Time only moves when the
// test advances it, which makes time-dependent behaviour fully deterministic
// without sleeps.
type Manual struct {
	now atomic.Int64
}

// NewManual returns a Manual clock starting at startNanos.
func NewManual(startNanos int64) *Manual {
	m := &Manual{}
	m.now.Store(startNanos)
	return m
}

func (m *Manual) Nanos(_ bool) int64 { return m.now.Load() }

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) { m.now.Add(d.Nanoseconds()) }

// AdvanceNanos moves the clock forward by delta nanoseconds.
func (m *Manual) AdvanceNanos(delta int64) { m.now.Add(delta) }

// Set jumps the clock to an absolute nanosecond value. The value may be
// earlier than the current reading, so Set can make Nanos go backward.
func (m *Manual) Set(nanos int64) { m.now.Store(nanos) }
