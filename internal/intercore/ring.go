package intercore

import (
	"fmt"
	"sync/atomic"
)

// MaxCapacity is the largest ring a caller may ask for.
const MaxCapacity = 64

// Ring is a fixed-capacity FIFO safe for exactly one producer goroutine and
// exactly one consumer goroutine. Neither side ever blocks: Push on a full
// ring discards the new entry and Pop on an empty ring returns immediately.
//
// The producer owns tail and the consumer owns head. Each side only loads the
// other's counter, so no locking is needed. The counters are 64-bit and never
// wrap in practice.
type Ring[T any] struct {
	slots []T
	size  uint64

	head atomic.Uint64 // next slot to read, written by the consumer
	tail atomic.Uint64 // next slot to write, written by the producer
}

// NewRing creates a ring holding up to capacity entries.
func NewRing[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("invalid ring capacity: %d, must be between 1 and %d", capacity, MaxCapacity)
	}
	return &Ring[T]{
		slots: make([]T, capacity),
		size:  uint64(capacity),
	}, nil
}

// Push appends v. It returns false, leaving the ring untouched, when the ring
// is full. Producer side only.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= r.size {
		return false
	}

	r.slots[tail%r.size] = v
	r.tail.Store(tail + 1) // publish the slot to the consumer
	return true
}

// Pop removes and returns the oldest entry. ok is false when the ring is
// empty. Consumer side only.
func (r *Ring[T]) Pop() (v T, ok bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return v, false
	}

	idx := head % r.size
	v = r.slots[idx]

	var zero T
	r.slots[idx] = zero
	r.head.Store(head + 1) // hand the slot back to the producer
	return v, true
}

// Len returns the number of unread entries. It is exact only when called
// from one of the two owning goroutines while the other is idle.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return int(r.size)
}

// IsFull returns true if the ring has reached its capacity.
func (r *Ring[T]) IsFull() bool {
	return r.tail.Load()-r.head.Load() >= r.size
}
