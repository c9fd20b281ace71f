package watcher

import (
	"sync"
	"time"
)

// Debouncer delivers the last value triggered within a quiet window.
// Each Trigger restarts the window; only the final value of a burst reaches
// the callback. Callbacks never run concurrently with each other.
type Debouncer struct {
	delay time.Duration
	fn    func(value string)

	mu         sync.Mutex
	timer      *time.Timer
	pending    string
	hasPending bool
	generation uint64
	stopped    bool

	fire sync.Mutex
}

// NewDebouncer creates a debouncer calling fn after delay of quiet.
func NewDebouncer(delay time.Duration, fn func(value string)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger records value and restarts the quiet window.
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = value
	d.hasPending = true
	d.generation++
	gen := d.generation

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.deliver(gen)
	})
}

// Flush delivers a pending value immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.generation
	d.mu.Unlock()

	d.deliver(gen)
}

// Pending reports whether a value is waiting for its window to close.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasPending
}

// Stop cancels any pending delivery. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.hasPending = false
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) deliver(gen uint64) {
	d.fire.Lock()
	defer d.fire.Unlock()

	d.mu.Lock()
	// A newer trigger or Stop superseded this timer.
	if gen != d.generation || !d.hasPending || d.stopped {
		d.mu.Unlock()
		return
	}
	value := d.pending
	d.hasPending = false
	d.pending = ""
	d.mu.Unlock()

	d.fn(value)
}
