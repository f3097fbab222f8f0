// Package buffer provides a capped, insertion-ordered ring of recent items.
package buffer

import "sync"

// Rolling keeps the most recent Cap items in arrival order. When full, the
// oldest item is overwritten. Safe for one writer and many readers.
type Rolling[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int // index of the oldest item
	count int
	cap   int
}

// New returns a Rolling buffer holding at most capacity items (minimum 1).
// Storage grows lazily up to capacity.
func New[T any](capacity int) *Rolling[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Rolling[T]{cap: capacity}
}

// Append adds items in order, evicting the oldest as needed.
func (r *Rolling[T]) Append(items ...T) {
	if len(items) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Only the last cap items of a large batch can survive.
	if len(items) > r.cap {
		items = items[len(items)-r.cap:]
	}
	for _, it := range items {
		if r.count < r.cap {
			// head stays at 0 until the ring first fills.
			r.items = append(r.items, it)
			r.count++
			continue
		}
		r.items[r.head] = it
		r.head = (r.head + 1) % r.cap
	}
}

// Snapshot returns a copy of the buffered items, oldest first.
func (r *Rolling[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.items[(r.head+i)%len(r.items)]
	}
	return out
}

// Last returns the most recently appended item.
func (r *Rolling[T]) Last() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.items[(r.head+r.count-1)%len(r.items)], true
}

// Len returns the number of buffered items.
func (r *Rolling[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the configured capacity.
func (r *Rolling[T]) Cap() int { return r.cap }

// Reset drops all items.
func (r *Rolling[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
	r.head = 0
	r.count = 0
}
