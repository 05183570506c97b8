// Package dedupe tracks recently seen keys so repeated records are processed
// at most once.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen keys.
type Deduper[K comparable] interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id K) bool

	// Unrecord forgets id so it can be recorded again.
	Unrecord(ctx context.Context, id K)

	Size() int64
}

// window implements Deduper with a map and a ring of insertion order.
// Bounded mode (maxSize > 0) evicts the oldest key once full; unbounded mode
// keeps every key.
type window[K comparable] struct {
	mu      sync.Mutex
	seen    map[K]int // key -> ring slot, -1 in unbounded mode
	ring    []K
	used    []bool
	next    int
	maxSize int
	size    atomic.Int64
}

// NewWindow creates an in-memory deduper. The default window keeps the last
// 50000 keys.
func NewWindow[K comparable](opts ...Option) Deduper[K] {
	cfg := config{maxSize: 50000}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &window[K]{
		maxSize: cfg.maxSize,
		seen:    make(map[K]int),
	}
	if d.maxSize > 0 {
		d.ring = make([]K, d.maxSize)
		d.used = make([]bool, d.maxSize)
	}
	return d
}

func (d *window[K]) SeenAndRecord(_ context.Context, id K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[id] = -1
		d.size.Add(1)
		return false
	}

	slot := d.next
	if d.used[slot] {
		// slot still holds the oldest key
		delete(d.seen, d.ring[slot])
		d.size.Add(-1)
	}
	d.ring[slot] = id
	d.used[slot] = true
	d.seen[id] = slot
	d.next = (slot + 1) % d.maxSize
	d.size.Add(1)
	return false
}

func (d *window[K]) Unrecord(_ context.Context, id K) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if slot >= 0 {
		var zero K
		d.ring[slot] = zero
		d.used[slot] = false
	}
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *window[K]) Size() int64 {
	return d.size.Load()
}
