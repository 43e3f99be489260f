package workerpool_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/kesshi/dscstools/internal/workerpool"
)

func TestPool_RunsAllJobs(t *testing.T) {
	p := workerpool.New(4)
	var n int64
	for i := 0; i < 50; i++ {
		p.Go(func() error {
			atomic.AddInt64(&n, 1)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if n != 50 {
		t.Errorf("n = %d, want 50", n)
	}
}

func TestPool_CollectsErrors(t *testing.T) {
	p := workerpool.New(4)
	boom := errors.New("boom")
	p.Go(func() error { return nil })
	p.Go(func() error { return boom })

	err := p.Wait()
	if err == nil {
		t.Fatal("Wait() error = nil, want non-nil")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, want wrapping %v", err, boom)
	}
}

func TestPool_UnboundedWhenZero(t *testing.T) {
	p := workerpool.New(0)
	var n int64
	for i := 0; i < 20; i++ {
		p.Go(func() error {
			atomic.AddInt64(&n, 1)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if n != 20 {
		t.Errorf("n = %d, want 20", n)
	}
}

func TestDefaultWriters_Bounded(t *testing.T) {
	n := workerpool.DefaultWriters()
	if n < 1 || n > 8 {
		t.Errorf("DefaultWriters() = %d, want in [1, 8]", n)
	}
}

func TestWriteSemaphore_LimitsConcurrency(t *testing.T) {
	sem := workerpool.NewWriteSemaphore(2)
	var cur, max int64

	p := workerpool.New(8)
	for i := 0; i < 20; i++ {
		p.Go(func() error {
			sem.Acquire()
			defer sem.Release()

			c := atomic.AddInt64(&cur, 1)
			for {
				m := atomic.LoadInt64(&max)
				if c <= m || atomic.CompareAndSwapInt64(&max, m, c) {
					break
				}
			}
			atomic.AddInt64(&cur, -1)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if max > 2 {
		t.Errorf("observed max concurrent writers = %d, want <= 2", max)
	}
}
