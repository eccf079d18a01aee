package clock

import "time"

// Clock returns a monotonic timestamp in nanoseconds.
//
// The returned value is non-decreasing across calls on any given
// implementation. When highPrecision is true the implementation must sample
// the underlying clock directly; when false it may return a cached value
// that lags behind real time by the implementation's granularity.
type Clock interface {
	Nanos(highPrecision bool) int64
}

type systemClock struct{}

// System returns a Clock that samples the monotonic clock on every call.
func System() Clock { return systemClock{} }

func (systemClock) Nanos(_ bool) int64 { return SystemNanos() }

// epoch anchors the monotonic domain. Readings are durations since this
// reference, so they keep the monotonic reading time.Now attaches and never
// move backward on wall-clock steps (NTP, manual adjustment). The offset
// keeps readings away from zero, which callers may reserve as "never".
var epoch = time.Now().Add(-time.Second)

// SystemNanos samples the monotonic clock directly. It is the usual raw
// source for a Granular clock.
func SystemNanos() int64 { return time.Since(epoch).Nanoseconds() }
