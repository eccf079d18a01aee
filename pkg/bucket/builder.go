package bucket

import (
	"errors"

	"github.com/lhotari/async-tokenbucket/pkg/clock"
)

var (
	ErrRateRequired      = errors.New("bucket: rate must be set to a positive value")
	ErrRateFnRequired    = errors.New("bucket: rate supplier must be set")
	ErrInvalidRatePeriod = errors.New("bucket: rate period must be positive")
	ErrInvalidResolution = errors.New("bucket: resolution must be >= 0")
	ErrClockRequired     = errors.New("bucket: clock source must not be nil")
	ErrInvalidFactor     = errors.New("bucket: capacity and target factors must be positive, initial fill factor must be >= 0")
)

// Builder assembles a final-rate TokenBucket: rate, capacity and period are
// constants pinned at construction.
type Builder struct {
	clockSource      clock.Clock
	resolutionNanos  int64
	rate             int64
	ratePeriodNanos  int64
	capacity         int64
	capacitySet      bool
	initialTokens    int64
	initialTokensSet bool
}

// NewBuilder returns a Builder with a direct high-precision clock, the
// process-wide default resolution and a one second rate period.
func NewBuilder() *Builder {
	return &Builder{
		clockSource:     clock.System(),
		resolutionNanos: defaultResolutionNanos.Load(),
		ratePeriodNanos: oneSecondNanos,
	}
}

// Rate sets the number of tokens produced per rate period. Required.
func (b *Builder) Rate(rate int64) *Builder {
	b.rate = rate
	return b
}

// RatePeriodNanos sets the period over which Rate tokens are produced.
func (b *Builder) RatePeriodNanos(ratePeriodNanos int64) *Builder {
	b.ratePeriodNanos = ratePeriodNanos
	return b
}

// Capacity sets the maximum number of stored tokens. Defaults to the rate.
func (b *Builder) Capacity(capacity int64) *Builder {
	b.capacity = capacity
	b.capacitySet = true
	return b
}

// InitialTokens sets the balance at construction. Defaults to the rate.
func (b *Builder) InitialTokens(initialTokens int64) *Builder {
	b.initialTokens = initialTokens
	b.initialTokensSet = true
	return b
}

// ResolutionNanos sets the reconciliation tick. Zero disables batching and
// makes every call reconcile.
func (b *Builder) ResolutionNanos(resolutionNanos int64) *Builder {
	b.resolutionNanos = resolutionNanos
	return b
}

// ClockSource sets the monotonic clock used by the bucket.
func (b *Builder) ClockSource(clockSource clock.Clock) *Builder {
	b.clockSource = clockSource
	return b
}

// Build validates the configuration and constructs the bucket.
func (b *Builder) Build() (*TokenBucket, error) {
	if b.rate <= 0 {
		return nil, ErrRateRequired
	}
	if b.ratePeriodNanos <= 0 {
		return nil, ErrInvalidRatePeriod
	}
	if b.resolutionNanos < 0 {
		return nil, ErrInvalidResolution
	}
	if b.clockSource == nil {
		return nil, ErrClockRequired
	}

	capacity := b.rate
	if b.capacitySet {
		capacity = b.capacity
	}
	initialTokens := b.rate
	if b.initialTokensSet {
		initialTokens = b.initialTokens
	}

	tb := newTokenBucket(b.clockSource, b.resolutionNanos, initialTokens)
	tb.capacity = capacity
	tb.rate = b.rate
	tb.ratePeriodNanos = b.ratePeriodNanos
	// the target after throttling is the amount of tokens made available
	// within one resolution interval, at least one
	tb.targetTokens = tb.resolutionNanos * tb.rate / tb.ratePeriodNanos
	if tb.targetTokens < 1 {
		tb.targetTokens = 1
	}
	// stamp lastNanos so the first real reconciliation does not count time
	// before construction
	tb.Tokens(false)

	return tb, nil
}

// DynamicBuilder assembles a dynamic-rate TokenBucket: rate and period are
// re-evaluated from the suppliers on demand, and capacity, initial fill and
// throttling target are derived from the rate through factors.
type DynamicBuilder struct {
	clockSource       clock.Clock
	resolutionNanos   int64
	rateFn            func() int64
	ratePeriodFn      func() int64
	capacityFactor    float64
	initialFillFactor float64
	targetFillFactor  float64
}

// NewDynamicBuilder returns a DynamicBuilder with a direct high-precision
// clock, the process-wide default resolution, a one second rate period and
// factor defaults of 1.0 / 1.0 / 0.01.
func NewDynamicBuilder() *DynamicBuilder {
	return &DynamicBuilder{
		clockSource:       clock.System(),
		resolutionNanos:   defaultResolutionNanos.Load(),
		ratePeriodFn:      func() int64 { return oneSecondNanos },
		capacityFactor:    1.0,
		initialFillFactor: 1.0,
		targetFillFactor:  0.01,
	}
}

// RateFn sets the supplier of the token production rate. Required.
func (b *DynamicBuilder) RateFn(rateFn func() int64) *DynamicBuilder {
	b.rateFn = rateFn
	return b
}

// RatePeriodNanosFn sets the supplier of the rate period.
func (b *DynamicBuilder) RatePeriodNanosFn(ratePeriodFn func() int64) *DynamicBuilder {
	b.ratePeriodFn = ratePeriodFn
	return b
}

// CapacityFactor derives the capacity as rate times factor.
func (b *DynamicBuilder) CapacityFactor(capacityFactor float64) *DynamicBuilder {
	b.capacityFactor = capacityFactor
	return b
}

// InitialFillFactor derives the initial balance as rate times factor.
func (b *DynamicBuilder) InitialFillFactor(initialFillFactor float64) *DynamicBuilder {
	b.initialFillFactor = initialFillFactor
	return b
}

// TargetFillFactorAfterThrottling derives the throttling refill target as
// rate times factor.
func (b *DynamicBuilder) TargetFillFactorAfterThrottling(targetFillFactor float64) *DynamicBuilder {
	b.targetFillFactor = targetFillFactor
	return b
}

// ResolutionNanos sets the reconciliation tick. Zero disables batching and
// makes every call reconcile.
func (b *DynamicBuilder) ResolutionNanos(resolutionNanos int64) *DynamicBuilder {
	b.resolutionNanos = resolutionNanos
	return b
}

// ClockSource sets the monotonic clock used by the bucket.
func (b *DynamicBuilder) ClockSource(clockSource clock.Clock) *DynamicBuilder {
	b.clockSource = clockSource
	return b
}

// Build validates the configuration and constructs the bucket.
func (b *DynamicBuilder) Build() (*TokenBucket, error) {
	if b.rateFn == nil {
		return nil, ErrRateFnRequired
	}
	if b.ratePeriodFn == nil {
		return nil, ErrInvalidRatePeriod
	}
	if b.resolutionNanos < 0 {
		return nil, ErrInvalidResolution
	}
	if b.clockSource == nil {
		return nil, ErrClockRequired
	}
	if b.capacityFactor <= 0 || b.initialFillFactor < 0 || b.targetFillFactor <= 0 {
		return nil, ErrInvalidFactor
	}

	initialTokens := int64(float64(b.rateFn()) * b.initialFillFactor)

	tb := newTokenBucket(b.clockSource, b.resolutionNanos, initialTokens)
	tb.rateFn = b.rateFn
	tb.ratePeriodFn = b.ratePeriodFn
	tb.capacityFactor = b.capacityFactor
	tb.targetFillFactor = b.targetFillFactor
	tb.Tokens(false)

	return tb, nil
}
