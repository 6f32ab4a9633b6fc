package router

import (
	"sync"
)

// GrowableBuffer is an unbounded, thread-safe FIFO queue backed by a ring
// that doubles once it is 70% full. The WebSocket transport uses it as its
// inbound queue so the read loop never blocks on a slow poller.
type GrowableBuffer[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []T
	head   int // next read
	tail   int // next write
	count  int
	closed bool

	totalReceived int64
	totalSent     int64
	resizeCount   int
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalReceived int64 // Items accepted by Send
	TotalSent     int64 // Items handed out by Receive, TryReceive or DrainTo
	ResizeCount   int
}

// NewGrowableBuffer creates a buffer with the given initial capacity.
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &GrowableBuffer[T]{buf: make([]T, initialCapacity)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send appends an item. Returns false if the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := len(b.buf) * 70 / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % len(b.buf)
	b.count++
	b.totalReceived++

	b.cond.Signal()
	return true
}

// Receive blocks until an item is available or the buffer is closed and
// drained, in which case it returns false.
func (b *GrowableBuffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.pop(), true
}

// TryReceive returns the next item without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.pop(), true
}

// DrainTo removes up to max items (all if max <= 0) and returns them.
func (b *GrowableBuffer[T]) DrainTo(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]T, n)
	for i := range out {
		out[i] = b.pop()
	}
	return out
}

// Reset discards every queued item and returns how many were dropped.
// A closed buffer stays closed.
func (b *GrowableBuffer[T]) Reset() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := b.count
	var zero T
	for i := range b.buf {
		b.buf[i] = zero
	}
	b.head, b.tail, b.count = 0, 0, 0
	return dropped
}

// Close stops accepting items. Receivers drain what is left, then get false.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (b *GrowableBuffer[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Len returns the number of queued items.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current ring capacity.
func (b *GrowableBuffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BufferStats{
		Count:         b.count,
		Capacity:      len(b.buf),
		TotalReceived: b.totalReceived,
		TotalSent:     b.totalSent,
		ResizeCount:   b.resizeCount,
	}
}

// pop removes the head item. Must be called with lock held and count > 0.
func (b *GrowableBuffer[T]) pop() T {
	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero
	b.head = (b.head + 1) % len(b.buf)
	b.count--
	b.totalSent++
	return item
}

// grow doubles the ring, unwrapping queued items to the front.
// Must be called with lock held.
func (b *GrowableBuffer[T]) grow() {
	next := make([]T, len(b.buf)*2)

	if b.count > 0 {
		if b.head < b.tail {
			copy(next, b.buf[b.head:b.tail])
		} else {
			n := copy(next, b.buf[b.head:])
			copy(next[n:], b.buf[:b.tail])
		}
	}

	b.buf = next
	b.head = 0
	b.tail = b.count
	b.resizeCount++
}
