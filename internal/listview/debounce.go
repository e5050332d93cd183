package listview

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period applied to search input.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces rapid calls into one call of the latest function once
// no new call arrived for the delay.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fn    func()
	gen   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Call schedules fn, replacing any pending function and restarting the delay.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.fn = fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.take()
	d.mu.Unlock()
	fn()
}

// take clears the pending state and returns the pending function. d.mu is held.
func (d *Debouncer) take() func() {
	fn := d.fn
	d.fn = nil
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return fn
}

// Flush runs the pending function now, if any, and reports whether it did.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.take()
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Stop drops the pending function without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.take()
}

// Pending reports whether a call is waiting for its delay.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}
