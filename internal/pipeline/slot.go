package pipeline

import (
	"sync/atomic"
	"time"
)

// Slot is a single-value hand-off between two pipeline stages.
//
// Sends never block: when the slot already holds a value the new one is
// discarded (drop-newest) and counted. Receives either return immediately or
// wait at most the given timeout.
type Slot[T any] struct {
	ch      chan T
	dropped atomic.Uint64
}

// NewSlot creates an empty slot with capacity 1.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{ch: make(chan T, 1)}
}

// TryPush stores v if the slot is empty. It reports false when v was dropped.
func (s *Slot[T]) TryPush(v T) bool {
	select {
	case s.ch <- v:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// TryReceive takes the pending value, if any, without waiting.
func (s *Slot[T]) TryReceive() (T, bool) {
	select {
	case v := <-s.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Receive waits up to timeout for a value.
func (s *Slot[T]) Receive(timeout time.Duration) (T, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-s.ch:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Len returns the number of pending values (0 or 1).
func (s *Slot[T]) Len() int {
	return len(s.ch)
}

// Dropped returns how many values were discarded because the slot was full.
func (s *Slot[T]) Dropped() uint64 {
	return s.dropped.Load()
}
