package adder

import (
	"encoding/binary"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/valyala/fastrand"
	"github.com/zeebo/xxh3"
)

// cell is a single 64-bit counter padded to a cache line so that neighbouring
// cells never share a line.
type cell struct {
	n int64
	_ [56]byte
}

// Adder is a striped counter for write-heavy concurrent use. Adds land in one
// of several cache-line padded cells; the authoritative sum is obtained by
// draining all cells with SumAndReset. No add is ever lost or double-counted:
// each add is stored in exactly one cell and each cell is read with an atomic
// swap to zero.
type Adder struct {
	cells []cell
	mask  uint64
}

// New returns an Adder with a power-of-two cell count covering the number of
// schedulable threads.
func New() *Adder {
	size := 1
	for size < runtime.GOMAXPROCS(0) {
		size <<= 1
	}
	return &Adder{
		cells: make([]cell, size),
		mask:  uint64(size - 1),
	}
}

// Add adds n into one of the cells. The starting cell is picked by hashing a
// stack address, which keeps goroutines spread over different cells. A CAS
// failure means another writer collided on the same cell, so the writer
// re-probes to a random cell and tries again.
func (a *Adder) Add(n int64) {
	var probe [8]byte
	binary.LittleEndian.PutUint64(probe[:], uint64(uintptr(unsafe.Pointer(&probe))))
	idx := xxh3.Hash(probe[:]) & a.mask

	for {
		c := &a.cells[idx]
		cur := atomic.LoadInt64(&c.n)
		if atomic.CompareAndSwapInt64(&c.n, cur, cur+n) {
			return
		}
		idx = uint64(fastrand.Uint32()) & a.mask
	}
}

// SumAndReset drains every cell to zero and returns the total. Two concurrent
// calls split the cells between them; together they return exactly the sum a
// sequential execution would have.
func (a *Adder) SumAndReset() int64 {
	var sum int64
	for i := range a.cells {
		sum += atomic.SwapInt64(&a.cells[i].n, 0)
	}
	return sum
}
