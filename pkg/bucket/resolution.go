package bucket

import (
	"sync/atomic"
	"time"
)

// DefaultResolutionNanos is the default reconciliation tick. Consumed tokens
// are folded into the balance about once every 16 milliseconds, which keeps
// a single CAS field from being hammered by many threads at a high rate.
const DefaultResolutionNanos = int64(16 * time.Millisecond)

var defaultResolutionNanos atomic.Int64

func init() {
	defaultResolutionNanos.Store(DefaultResolutionNanos)
}

// SwitchToConsistentTokensView sets the process-wide default resolution to
// zero so that every call reconciles and the balance is strictly consistent.
// Intended for deterministic tests only; production code should configure
// the resolution per bucket instead.
func SwitchToConsistentTokensView() {
	defaultResolutionNanos.Store(0)
}

// ResetToDefaultEventuallyConsistentTokensView restores the process-wide
// default resolution after SwitchToConsistentTokensView.
func ResetToDefaultEventuallyConsistentTokensView() {
	defaultResolutionNanos.Store(DefaultResolutionNanos)
}
