package loadtest

import (
	"github.com/VictoriaMetrics/metrics"

	"github.com/lhotari/async-tokenbucket/pkg/bucket"
)

// Meter exposes run counters in Prometheus format. Workers report their
// local counts after the run; nothing is incremented on the consume path.
type Meter struct {
	consumed        *metrics.Counter
	baselineAllowed *metrics.Counter
}

func NewMeter() *Meter {
	return &Meter{
		consumed:        metrics.GetOrCreateCounter(`loadtest_consumed_tokens_total`),
		baselineAllowed: metrics.GetOrCreateCounter(`loadtest_baseline_allowed_total`),
	}
}

// ObserveBucket registers a gauge following the bucket's token balance.
func (m *Meter) ObserveBucket(b *bucket.TokenBucket) {
	metrics.GetOrCreateGauge(`tokenbucket_tokens`, func() float64 {
		return float64(b.GetTokens())
	})
}

func (m *Meter) AddConsumed(n int64) { m.consumed.Add(int(n)) }

func (m *Meter) AddBaselineAllowed(n int64) { m.baselineAllowed.Add(int(n)) }
