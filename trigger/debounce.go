// Package trigger schedules debounced, generation-stamped work per key.
//
// Every Trigger on a key restarts that key's quiescence window and bumps its
// generation. Only the last trigger of a burst fires. A pass already running
// is left alone; when it finishes it asks IsCurrent whether a newer trigger
// has arrived and, if so, discards its result.
package trigger

import (
	"context"
	"sync"
	"time"
)

// Func is the debounced work for key at generation gen
type Func func(ctx context.Context, key string, gen uint64)

// Debouncer is safe for concurrent use.
type Debouncer struct {
	delay  time.Duration
	fn     Func
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timers  map[string]*time.Timer
	gens    map[string]uint64
	stopped bool
}

// NewDebouncer creates a debouncer that runs fn once a key has been quiet for delay.
func NewDebouncer(delay time.Duration, fn Func) *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		delay:  delay,
		fn:     fn,
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[string]*time.Timer),
		gens:   make(map[string]uint64),
	}
}

// Trigger restarts the window for key and returns the new generation.
// After Stop it does nothing and returns 0.
func (d *Debouncer) Trigger(key string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return 0
	}
	gen := d.gens[key] + 1
	d.gens[key] = gen

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.fire(key, gen)
	})
	return gen
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	if d.stopped || d.gens[key] != gen {
		d.mu.Unlock()
		return
	}
	delete(d.timers, key)
	d.mu.Unlock()

	d.fn(d.ctx, key, gen)
}

// IsCurrent reports whether gen is still the latest generation for key
func (d *Debouncer) IsCurrent(key string, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped && d.gens[key] == gen
}

// Pending reports how many keys are waiting out their window
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels every pending timer and the context handed to running work.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
	d.mu.Unlock()

	d.cancel()
}
