// File: pool/objectpool.go
// Package pool
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Generic bounded object pool with blocking, timeout-bounded acquire.
// Used for the handshake-state pool (§5: "acquire may block if full").

package pool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/brinewave/ws/api"
)

// Generic is a fixed-capacity pool of preallocated objects. Acquire
// blocks until an object is available, ctx is done, or timeout
// elapses, whichever comes first.
type Generic[T any] struct {
	items    chan T
	cap      int
	timeouts int64
}

// NewGeneric preallocates n objects via newFn and fills the pool.
func NewGeneric[T any](n int, newFn func() T) *Generic[T] {
	g := &Generic[T]{items: make(chan T, n), cap: n}
	for i := 0; i < n; i++ {
		g.items <- newFn()
	}
	return g
}

// Acquire waits for a free instance. A timeout <= 0 means wait
// indefinitely for ctx alone.
func (g *Generic[T]) Acquire(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case item := <-g.items:
		return item, nil
	case <-ctx.Done():
		atomic.AddInt64(&g.timeouts, 1)
		return zero, api.ErrOperationTimeout
	}
}

// Release returns an instance for reuse. Blocks never: a pool holding
// more releases than acquires is a caller bug, not a reason to stall.
func (g *Generic[T]) Release(obj T) {
	select {
	case g.items <- obj:
	default:
	}
}

// Cap reports the pool's fixed capacity.
func (g *Generic[T]) Cap() int { return g.cap }

// Len reports the number of instances currently available.
func (g *Generic[T]) Len() int { return len(g.items) }

// Timeouts reports how many Acquire calls have given up against an
// exhausted pool, counted as a pool-exhaustion event.
func (g *Generic[T]) Timeouts() int64 { return atomic.LoadInt64(&g.timeouts) }

var _ api.ObjectPool[int] = (*Generic[int])(nil)
