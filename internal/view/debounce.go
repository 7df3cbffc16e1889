package view

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the quiescence window for search and filter input.
const DefaultDebounceWindow = 300 * time.Millisecond

// Debouncer stages rapidly changing input and commits the latest value
// once it has been stable for the window.
type Debouncer[T any] struct {
	window time.Duration
	commit func(T)

	mu         sync.Mutex
	timer      *time.Timer
	pending    T
	hasPending bool
	gen        uint64
	stopped    bool
}

// NewDebouncer returns a Debouncer that calls commit with the settled value.
// A zero window commits synchronously on Set.
func NewDebouncer[T any](window time.Duration, commit func(T)) *Debouncer[T] {
	return &Debouncer[T]{window: window, commit: commit}
}

// Set stages v and restarts the window.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.window <= 0 {
		d.mu.Unlock()
		d.commit(v)
		return
	}

	d.pending = v
	d.hasPending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
	d.mu.Unlock()
}

// Flush commits the staged value now, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.stopped || !d.hasPending {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()
	d.commit(v)
}

// Stop discards the staged value. Later calls to Set are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.take()
}

// Pending returns the staged value not yet committed.
func (d *Debouncer[T]) Pending() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.hasPending
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A newer Set, a Flush or a Stop supersedes this timer.
	if d.stopped || gen != d.gen || !d.hasPending {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()
	d.commit(v)
}

// take clears the staged value and returns it. Callers hold mu.
func (d *Debouncer[T]) take() T {
	v := d.pending
	var zero T
	d.pending = zero
	d.hasPending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return v
}
