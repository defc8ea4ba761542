// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines abstract pooling APIs shared by the buffer provider and the
// handshake-state pool: bounded free-lists with blocking acquire.

package api

import (
	"context"
	"time"
)

// ObjectPool provides generic bounded pooling of Go objects allocated
// once and reused across connections. Acquire blocks (subject to ctx
// or a timeout) when the pool is exhausted, per the "block with a
// timeout" resolution of the handshake-pool exhaustion question.
type ObjectPool[T any] interface {
	// Acquire waits for a free instance, returning ErrOperationTimeout
	// if ctx is done or the wait exceeds timeout first.
	Acquire(ctx context.Context, timeout time.Duration) (T, error)

	// Release returns an instance for reuse.
	Release(obj T)

	// Cap reports the pool's fixed capacity.
	Cap() int

	// Len reports the number of instances currently available.
	Len() int
}
