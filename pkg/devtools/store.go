package devtools

import (
	"sync"
)

// Ring is a fixed-capacity append-only sequence. Once full, each append
// evicts the oldest entry.
type Ring[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

// NewRing creates a ring holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Append adds items to the tail, evicting from the head until the ring is
// back within capacity.
func (r *Ring[T]) Append(items ...T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, items...)
	if overflow := len(r.items) - r.capacity; overflow > 0 {
		n := copy(r.items, r.items[overflow:])
		// Zero the vacated tail so evicted entries can be collected.
		var zero T
		for i := n; i < len(r.items); i++ {
			r.items[i] = zero
		}
		r.items = r.items[:n]
	}
}

// Query returns the last limit entries matching match, oldest first.
// A nil match selects everything and a non-positive limit returns all
// matches. When clear is set the whole ring is emptied after the snapshot
// is taken, under the same lock.
func (r *Ring[T]) Query(match func(T) bool, limit int, clear bool) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	var selected []T
	if match == nil {
		selected = r.items
	} else {
		selected = make([]T, 0, len(r.items))
		for _, item := range r.items {
			if match(item) {
				selected = append(selected, item)
			}
		}
	}

	if limit > 0 && len(selected) > limit {
		selected = selected[len(selected)-limit:]
	}

	out := make([]T, len(selected))
	copy(out, selected)

	if clear {
		r.items = make([]T, 0, r.capacity)
	}
	return out
}

// Update applies fn to the most recent entry matching match.
// It reports whether an entry was found.
func (r *Ring[T]) Update(match func(T) bool, fn func(*T)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.items) - 1; i >= 0; i-- {
		if match(r.items[i]) {
			fn(&r.items[i])
			return true
		}
	}
	return false
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Capacity returns the maximum number of entries.
func (r *Ring[T]) Capacity() int {
	return r.capacity
}

// Clear removes every entry.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make([]T, 0, r.capacity)
}

// Records holds the console and network telemetry of a session.
type Records struct {
	Console *Ring[ConsoleRecord]
	Network *Ring[NetworkRecord]
}

// NewRecords creates both stores with the same capacity.
func NewRecords(capacity int) *Records {
	return &Records{
		Console: NewRing[ConsoleRecord](capacity),
		Network: NewRing[NetworkRecord](capacity),
	}
}

// ClearAll empties both stores.
func (r *Records) ClearAll() {
	r.Console.Clear()
	r.Network.Clear()
}
