// Package buffer provides a bounded ring that keeps the most recent
// entries of a stream, used for the store's transition history.
package buffer

import (
	"sync"
	"sync/atomic"
)

// Ring is a thread-safe circular buffer. Once full, each push overwrites
// the oldest entry.
type Ring[T any] struct {
	mu       sync.RWMutex
	data     []T
	head     int64 // Next write position
	count    int64
	capacity int64

	// Statistics
	pushCount atomic.Int64
	dropCount atomic.Int64
}

// New creates a Ring with the given capacity.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 64
	}
	return &Ring[T]{
		data:     make([]T, capacity),
		capacity: int64(capacity),
	}
}

// Push appends v, overwriting the oldest entry if the ring is full.
func (rb *Ring[T]) Push(v T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.count >= rb.capacity {
		rb.count--
		rb.dropCount.Add(1)
	}

	rb.data[rb.head%rb.capacity] = v
	rb.head++
	rb.count++
	rb.pushCount.Add(1)
}

// Snapshot returns the held entries, oldest first.
func (rb *Ring[T]) Snapshot() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	out := make([]T, rb.count)
	tail := rb.head - rb.count
	for i := int64(0); i < rb.count; i++ {
		out[i] = rb.data[(tail+i)%rb.capacity]
	}
	return out
}

// Newest returns the most recent entry without removing it.
// Returns false if the ring is empty.
func (rb *Ring[T]) Newest() (T, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var zero T
	if rb.count == 0 {
		return zero, false
	}
	return rb.data[(rb.head-1)%rb.capacity], true
}

// Len returns the number of held entries.
func (rb *Ring[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return int(rb.count)
}

// Cap returns the capacity.
func (rb *Ring[T]) Cap() int {
	return int(rb.capacity)
}

// Clear drops all entries. The statistics are kept.
func (rb *Ring[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var zero T
	for i := range rb.data {
		rb.data[i] = zero
	}
	rb.head = 0
	rb.count = 0
}

// RingStats holds ring statistics.
type RingStats struct {
	Len      int
	Capacity int
	Pushed   int64
	Dropped  int64
}

// Stats returns ring statistics.
func (rb *Ring[T]) Stats() RingStats {
	return RingStats{
		Len:      rb.Len(),
		Capacity: rb.Cap(),
		Pushed:   rb.pushCount.Load(),
		Dropped:  rb.dropCount.Load(),
	}
}
