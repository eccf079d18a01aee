package adder

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestAdder_Basic(t *testing.T) {
	a := New()

	a.Add(5)
	a.Add(7)
	if got := a.SumAndReset(); got != 12 {
		t.Fatalf("Expected 12, got %d", got)
	}

	// drained to zero
	if got := a.SumAndReset(); got != 0 {
		t.Fatalf("Expected 0 after reset, got %d", got)
	}

	a.Add(3)
	if got := a.SumAndReset(); got != 3 {
		t.Fatalf("Expected 3, got %d", got)
	}
}

func TestAdder_ConcurrentAddsAreNeverLost(t *testing.T) {
	a := New()

	const writers = 16
	const perWriter = 100_000

	wg := sync.WaitGroup{}
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				a.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := a.SumAndReset(); got != writers*perWriter {
		t.Errorf("Mismatch: expected %d, got %d", writers*perWriter, got)
	}
}

func TestAdder_ConcurrentDrainSplitsTheSum(t *testing.T) {
	a := New()

	const writers = 8
	const perWriter = 50_000

	var drained atomic.Int64
	stop := make(chan struct{})

	// concurrent drainer racing the writers
	drainerDone := make(chan struct{})
	go func() {
		defer close(drainerDone)
		for {
			select {
			case <-stop:
				return
			default:
				drained.Add(a.SumAndReset())
			}
		}
	}()

	wg := sync.WaitGroup{}
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				a.Add(2)
			}
		}()
	}
	wg.Wait()
	close(stop)
	<-drainerDone

	drained.Add(a.SumAndReset())
	if got := drained.Load(); got != 2*writers*perWriter {
		t.Errorf("Mismatch: expected %d, got %d", 2*writers*perWriter, got)
	}
}

func BenchmarkAdder_Add(b *testing.B) {
	a := New()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			a.Add(1)
		}
	})
}
