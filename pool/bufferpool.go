// File: pool/bufferpool.go
// Package pool implements the Buffer Provider: a bounded pool of
// uniformly sized large buffers with heap fallback.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/brinewave/ws/api"
)

// heapBuffer and pooledBuffer both implement api.Buffer; the
// provenance tag decides how Release routes them.

type heapBuffer struct {
	data []byte
}

func (b *heapBuffer) Bytes() []byte           { return b.data }
func (b *heapBuffer) Provenance() api.Provenance { return api.Heap }
func (b *heapBuffer) Copy() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}
func (b *heapBuffer) Release() {}

type pooledBuffer struct {
	data []byte
	pool *BufferPool
}

func (b *pooledBuffer) Bytes() []byte           { return b.data }
func (b *pooledBuffer) Provenance() api.Provenance { return api.Pooled }
func (b *pooledBuffer) Copy() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}
func (b *pooledBuffer) Release() {
	b.pool.put(b)
}

// staticBuffer wraps a slice borrowed from a Reader's fixed buffer; it
// is never freed through the provider.
type staticBuffer struct {
	data []byte
}

func (b *staticBuffer) Bytes() []byte           { return b.data }
func (b *staticBuffer) Provenance() api.Provenance { return api.Static }
func (b *staticBuffer) Copy() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}
func (b *staticBuffer) Release() {}

// NewStaticBuffer wraps a borrowed slice as an api.Buffer with Static
// provenance, so callers that only ever see api.Buffer values can
// treat reader-owned slices uniformly with pooled/heap ones.
func NewStaticBuffer(data []byte) api.Buffer {
	return &staticBuffer{data: data}
}

// BufferPool is a mutex-guarded, bounded free-list of large buffers,
// backed by github.com/eapache/queue's ring-buffer FIFO, with heap
// allocation when the free-list is empty. This is the only object
// the reader's package-level spec (§5) allows multiple connection
// goroutines to touch concurrently.
type BufferPool struct {
	mu       sync.Mutex
	free     *queue.Queue
	slotSize int
	capacity int

	heapFallback int64
	totalAcquire int64
	totalRelease int64
}

// NewBufferPool preallocates capacity slots of slotSize bytes.
func NewBufferPool(capacity, slotSize int) *BufferPool {
	p := &BufferPool{
		free:     queue.New(),
		slotSize: slotSize,
		capacity: capacity,
	}
	for i := 0; i < capacity; i++ {
		p.free.Add(&pooledBuffer{data: make([]byte, slotSize), pool: p})
	}
	return p
}

// AllocPooledOr returns a pooled buffer sliced to size when size fits
// within slotSize and a slot is free; otherwise it heap-allocates
// exactly size bytes.
func (p *BufferPool) AllocPooledOr(size int) (api.Buffer, error) {
	if size < 0 {
		return nil, api.ErrInvalidArgument
	}
	atomic.AddInt64(&p.totalAcquire, 1)

	if size <= p.slotSize {
		p.mu.Lock()
		if p.free.Length() > 0 {
			buf := p.free.Remove().(*pooledBuffer)
			p.mu.Unlock()
			buf.data = buf.data[:size]
			return buf, nil
		}
		p.mu.Unlock()
	}

	atomic.AddInt64(&p.heapFallback, 1)
	return &heapBuffer{data: make([]byte, size)}, nil
}

// Grow returns a new buffer of at least newCapacity bytes with the
// first preserveBytes copied from buf, then releases buf.
func (p *BufferPool) Grow(buf api.Buffer, preserveBytes, newCapacity int) (api.Buffer, error) {
	grown, err := p.AllocPooledOr(newCapacity)
	if err != nil {
		return nil, err
	}
	if preserveBytes > 0 {
		copy(grown.Bytes(), buf.Bytes()[:preserveBytes])
	}
	p.Free(buf)
	return grown, nil
}

// Free routes buf by provenance: pooled slots return to the
// free-list, heap buffers are left for the garbage collector, static
// buffers are a no-op.
func (p *BufferPool) Free(buf api.Buffer) {
	atomic.AddInt64(&p.totalRelease, 1)
	buf.Release()
}

func (p *BufferPool) put(b *pooledBuffer) {
	b.data = b.data[:p.slotSize]
	p.mu.Lock()
	if p.free.Length() < p.capacity {
		p.free.Add(b)
	}
	p.mu.Unlock()
}

// Stats reports current pool accounting.
func (p *BufferPool) Stats() api.BufferPoolStats {
	p.mu.Lock()
	free := p.free.Length()
	p.mu.Unlock()
	return api.BufferPoolStats{
		SlotCount:    p.capacity,
		SlotSize:     p.slotSize,
		FreeSlots:    free,
		HeapFallback: atomic.LoadInt64(&p.heapFallback),
		TotalAcquire: atomic.LoadInt64(&p.totalAcquire),
		TotalRelease: atomic.LoadInt64(&p.totalRelease),
	}
}

var _ api.BufferPool = (*BufferPool)(nil)
