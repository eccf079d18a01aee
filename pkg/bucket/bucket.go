// Package bucket implements an asynchronous token bucket optimized for
// highly concurrent use. It is eventually consistent: consumed tokens are
// folded into the balance at most once per resolution interval, which keeps
// the hot path free of any single contended CAS field.
//
// Main usage flow:
//  1. Consume with ConsumeTokens or ConsumeTokensAndCheckIfContainsTokens.
//  2. A false result from ConsumeTokensAndCheckIfContainsTokens or
//     ContainsTokens signals a need for throttling.
//  3. The application throttles in whatever way fits the use case and calls
//     CalculateThrottlingDuration for the length of the required pause.
//  4. After the pause it re-checks ContainsTokens and either resumes or
//     keeps throttling. Under concurrency a throttling queue on top of this
//     type ensures fair unthrottling across clients.
//
// The bucket produces no side effects of its own: it is a sophisticated
// counter, intended as the building block of higher-level rate limiters.
// For peak throughput pass a clock.Granular as the clock source.
package bucket

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/lhotari/async-tokenbucket/pkg/adder"
	"github.com/lhotari/async-tokenbucket/pkg/clock"
)

// ErrNegativeTokens is returned when a negative amount is passed to one of
// the consume operations. State is left untouched.
var ErrNegativeTokens = errors.New("bucket: tokens to consume must be >= 0")

const oneSecondNanos = int64(time.Second)

// TokenBucket is the shared token ledger. The tokens field is updated by a
// single elected caller per tick; everyone else accumulates consumption into
// the striped pendingConsumed adder, which the next reconciliation drains.
type TokenBucket struct {
	// tokens is the balance as of the last reconciliation. It is eventually
	// consistent and may run negative on over-consumption.
	tokens atomic.Int64
	// lastNanos is the clock reading at the last reconciliation. Zero means
	// the bucket has never reconciled.
	lastNanos atomic.Int64
	// lastIncrement is the tick index of the last reconciliation and the
	// election key: the caller that CASes it forward owns the tick's commit.
	lastIncrement atomic.Int64
	// remainderNanos carries sub-token nanoseconds between reconciliations
	// so low rates stay exact over long durations.
	remainderNanos atomic.Int64

	pendingConsumed *adder.Adder

	clockSource     clock.Clock
	resolutionNanos int64

	// frozen configuration, authoritative when rateFn is nil
	capacity        int64
	rate            int64
	ratePeriodNanos int64
	targetTokens    int64

	// dynamic configuration, evaluated per call when rateFn is set
	rateFn           func() int64
	ratePeriodFn     func() int64
	capacityFactor   float64
	targetFillFactor float64
}

func newTokenBucket(clockSource clock.Clock, resolutionNanos int64, initialTokens int64) *TokenBucket {
	b := &TokenBucket{
		pendingConsumed: adder.New(),
		clockSource:     clockSource,
		resolutionNanos: resolutionNanos,
	}
	b.tokens.Store(initialTokens)
	return b
}

func (b *TokenBucket) getRate() int64 {
	if b.rateFn != nil {
		return b.rateFn()
	}
	return b.rate
}

func (b *TokenBucket) getRatePeriodNanos() int64 {
	if b.ratePeriodFn != nil {
		return b.ratePeriodFn()
	}
	return b.ratePeriodNanos
}

func (b *TokenBucket) targetTokensAfterThrottling() int64 {
	if b.rateFn != nil {
		return int64(float64(b.rateFn()) * b.targetFillFactor)
	}
	return b.targetTokens
}

// GetRate returns the configured token production rate per rate period.
// The dynamic variant re-evaluates its rate supplier on every call.
func (b *TokenBucket) GetRate() int64 { return b.getRate() }

// GetCapacity returns the maximum number of stored tokens.
func (b *TokenBucket) GetCapacity() int64 {
	if b.rateFn != nil {
		if b.capacityFactor == 1.0 {
			return b.rateFn()
		}
		return int64(float64(b.rateFn()) * b.capacityFactor)
	}
	return b.capacity
}

// consumeAndMaybeUpdateBalance subtracts consumeTokens from the bucket and
// possibly reconciles the balance. Reconciliation happens once per
// resolution interval or when forceUpdate is set; the elected caller folds
// the elapsed production and the pending consumption into tokens in a single
// atomic update and returns the committed balance with known=true. Callers
// that lose the tick election add their consumption to pendingConsumed and
// return known=false, making the balance eventually consistent. This is what
// keeps a hot consume path from spinning on one contended CAS field.
func (b *TokenBucket) consumeAndMaybeUpdateBalance(consumeTokens int64, forceUpdate bool) (currentTokens int64, known bool, err error) {
	if consumeTokens < 0 {
		return 0, false, ErrNegativeTokens
	}
	currentNanos := b.clockSource.Nanos(forceUpdate)

	if !b.shouldUpdateImmediately(currentNanos, forceUpdate) {
		// fast path, the balance is not touched
		if consumeTokens > 0 {
			b.pendingConsumed.Add(consumeTokens)
		}
		return 0, false, nil
	}

	newTokens := b.newTokensSinceLastUpdate(currentNanos)
	// fold this caller's consumption together with everything accumulated
	// on the fast path since the previous reconciliation
	totalConsumed := consumeTokens + b.pendingConsumed.SumAndReset()
	capacity := b.GetCapacity()
	for {
		current := b.tokens.Load()
		// new tokens are added and clamped to capacity before the
		// subtraction, so an oversized consume can drive the balance
		// negative but never denies the production that had accrued
		next := current + newTokens
		if next > capacity {
			next = capacity
		}
		next -= totalConsumed
		if b.tokens.CompareAndSwap(current, next) {
			return next, true, nil
		}
	}
}

// shouldUpdateImmediately decides whether this call owns the reconciliation.
// With a zero resolution every call reconciles. Otherwise the call wins the
// tick election when the tick index advanced and it CASes lastIncrement
// forward, which admits at most one winner per tick. forceUpdate bypasses
// the election entirely.
func (b *TokenBucket) shouldUpdateImmediately(currentNanos int64, forceUpdate bool) bool {
	var currentIncrement int64
	if b.resolutionNanos != 0 {
		currentIncrement = currentNanos / b.resolutionNanos
	}
	if currentIncrement == 0 {
		return true
	}
	lastIncrement := b.lastIncrement.Load()
	return (currentIncrement > lastIncrement && b.lastIncrement.CompareAndSwap(lastIncrement, currentIncrement)) ||
		forceUpdate
}

// newTokensSinceLastUpdate computes the tokens produced since the previous
// reconciliation, carrying the rounding remainder forward in nanoseconds so
// that no production is ever lost to integer division.
func (b *TokenBucket) newTokensSinceLastUpdate(currentNanos int64) int64 {
	previousNanos := b.lastNanos.Swap(currentNanos)
	if previousNanos == 0 {
		return 0
	}
	durationNanos := currentNanos - previousNanos + b.remainderNanos.Swap(0)
	rate := b.getRate()
	ratePeriodNanos := b.getRatePeriodNanos()
	newTokens := durationNanos * rate / ratePeriodNanos
	// the addition keeps a remainder captured by a concurrent forced update
	// from being dropped
	if remainder := durationNanos - newTokens*ratePeriodNanos/rate; remainder > 0 {
		b.remainderNanos.Add(remainder)
	}
	return newTokens
}

// ConsumeTokens eventually consumes the given number of tokens. The balance
// is consistent with the configured resolution granularity.
func (b *TokenBucket) ConsumeTokens(consumeTokens int64) error {
	_, _, err := b.consumeAndMaybeUpdateBalance(consumeTokens, false)
	return err
}

// ConsumeTokensAndCheckIfContainsTokens consumes tokens and reports whether
// the bucket likely still holds tokens. When this call did not reconcile,
// the answer is a best guess from the current balance minus the consumed
// amount, knowingly ignoring other callers' pending consumption; definitive
// answers come from ContainsTokens(true) or CalculateThrottlingDuration.
func (b *TokenBucket) ConsumeTokensAndCheckIfContainsTokens(consumeTokens int64) (bool, error) {
	currentTokens, known, err := b.consumeAndMaybeUpdateBalance(consumeTokens, false)
	if err != nil {
		return false, err
	}
	if !known {
		return b.tokens.Load()-consumeTokens > 0, nil
	}
	return currentTokens > 0, nil
}

// Tokens returns the current balance, reconciling first when forceUpdate is
// set. Without forcing, the balance is refreshed only if a tick has elapsed,
// and a fast-path result falls back to the possibly stale stored value.
func (b *TokenBucket) Tokens(forceUpdate bool) int64 {
	currentTokens, known, _ := b.consumeAndMaybeUpdateBalance(0, forceUpdate)
	if known {
		return currentTokens
	}
	return b.tokens.Load()
}

// GetTokens returns the current balance, refreshed only if the configured
// resolution has elapsed since the last update.
func (b *TokenBucket) GetTokens() int64 {
	return b.Tokens(false)
}

// ContainsTokens reports whether the bucket holds tokens. The result is not
// definite unless forceUpdate is set, since the balance is eventually
// consistent.
func (b *TokenBucket) ContainsTokens(forceUpdate bool) bool {
	return b.Tokens(forceUpdate) > 0
}

// CalculateThrottlingDuration returns how long a throttled caller must wait
// until the bucket refills to the target amount of tokens. The target is a
// fraction of the capacity rather than the whole of it, which avoids bursty
// unthrottling under contention. The call always reconciles; keep it off the
// hot path.
func (b *TokenBucket) CalculateThrottlingDuration() time.Duration {
	currentTokens, _, _ := b.consumeAndMaybeUpdateBalance(0, true)
	needTokens := b.targetTokensAfterThrottling() - currentTokens
	if needTokens <= 0 {
		return 0
	}
	return time.Duration(needTokens * b.getRatePeriodNanos() / b.getRate())
}
