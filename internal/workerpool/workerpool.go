// Package workerpool wraps sourcegraph/conc into the bounded, error-
// returning task pool the archive engine uses for parallel extract and
// pack (format spec §5): one pool per top-level operation, no
// cancellation contract beyond pool drain, workers report failure
// through a returned error rather than a panic or process exit.
package workerpool

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWriters is the concurrent-writer cap from §5: min(8, max(1,
// cores/2)), used to throttle disk writes independently of the worker
// count doing CPU-bound compression/decompression.
func DefaultWriters() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	return n
}

// Pool runs a bounded set of jobs concurrently and collects the errors
// they return, without cancelling siblings on failure — callers
// that need fail-fast behavior should check Wait's error themselves
// before relying on partial results.
type Pool struct {
	p *pool.ErrorPool
}

// New creates a pool capped at maxGoroutines concurrent jobs. A
// maxGoroutines of 0 or less means "unbounded" (one goroutine per Go
// call), matching conc's own default.
func New(maxGoroutines int) *Pool {
	p := pool.New().WithErrors()
	if maxGoroutines > 0 {
		p = p.WithMaxGoroutines(maxGoroutines)
	}
	return &Pool{p: p}
}

// Go schedules fn to run on the pool. fn's error, if any, is collected
// and joined into the error Wait eventually returns; it does not stop
// other in-flight or queued jobs (format spec §5 defines no
// cancellation contract).
func (p *Pool) Go(fn func() error) {
	p.p.Go(fn)
}

// Wait blocks until every scheduled job has returned, then reports the
// combined error (nil if every job succeeded).
func (p *Pool) Wait() error {
	return p.p.Wait()
}

// WriteSemaphore bounds concurrent writers independently of the worker
// pool size, so CPU-bound decompression/compression can run wider than
// disk I/O is allowed to (§5's "concurrent writers are capped... to
// prevent disk thrash").
type WriteSemaphore struct {
	slots chan struct{}
}

// NewWriteSemaphore creates a semaphore with n slots. n is clamped to
// at least 1.
func NewWriteSemaphore(n int) *WriteSemaphore {
	if n < 1 {
		n = 1
	}
	return &WriteSemaphore{slots: make(chan struct{}, n)}
}

// Acquire blocks until a write slot is available.
func (s *WriteSemaphore) Acquire() {
	s.slots <- struct{}{}
}

// Release returns a write slot. Callers must pair every Acquire with
// exactly one Release, typically via defer.
func (s *WriteSemaphore) Release() {
	<-s.slots
}
