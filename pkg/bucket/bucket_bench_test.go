package bucket

import (
	"testing"
	"time"

	"github.com/lhotari/async-tokenbucket/pkg/clock"
)

// The benchmark setup mirrors a broker-grade workload: 100M tokens per
// second with double the rate as capacity and headroom, so the bucket never
// throttles and the measurement isolates the consume path itself.

const benchRate = 100_000_000

func newBenchBucket(b *testing.B, clockSource clock.Clock) *TokenBucket {
	b.Helper()
	tb, err := NewBuilder().
		Rate(benchRate).
		InitialTokens(2 * benchRate).
		Capacity(2 * benchRate).
		ClockSource(clockSource).
		Build()
	if err != nil {
		b.Fatal(err)
	}
	return tb
}

func BenchmarkConsumeTokens_GranularClock(b *testing.B) {
	clockSource := clock.NewGranular(8*time.Millisecond, clock.SystemNanos)
	defer clockSource.Close()

	tb := newBenchBucket(b, clockSource)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tb.ConsumeTokens(1)
		}
	})
}

func BenchmarkConsumeTokens_SystemClock(b *testing.B) {
	tb := newBenchBucket(b, clock.System())
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tb.ConsumeTokens(1)
		}
	})
}

func BenchmarkConsumeTokensAndCheckIfContainsTokens(b *testing.B) {
	clockSource := clock.NewGranular(8*time.Millisecond, clock.SystemNanos)
	defer clockSource.Close()

	tb := newBenchBucket(b, clockSource)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = tb.ConsumeTokensAndCheckIfContainsTokens(1)
		}
	})
}
