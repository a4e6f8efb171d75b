// Package sched provides the debounced trigger used to coalesce bursts of
// keymap-change notifications into single reconciliation passes.
package sched

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Clock abstracts the time source so tests can drive the debouncer
// deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall-clock Clock.
func SystemClock() Clock { return systemClock{} }

const (
	// DefaultMinInterval is the settle window after the latest trigger,
	// and the minimum spacing between two runs.
	DefaultMinInterval = 500 * time.Millisecond

	// DefaultMaxDelay bounds how long a steady stream of triggers can
	// push the run out, measured from the first pending trigger.
	DefaultMaxDelay = 2 * time.Second
)

// Options configure a Debouncer. Zero values take the defaults.
type Options struct {
	MinInterval time.Duration
	MaxDelay    time.Duration
	Clock       Clock
}

// Debouncer coalesces triggers into single callback runs.
//
// It holds at most one pending deadline. A Trigger while a run is pending
// re-arms that deadline instead of stacking a second one. Guarantees:
// the callback runs at least once within MaxDelay of any trigger, and at
// most once per MinInterval.
//
// The callback runs on the Run goroutine, so runs never overlap.
type Debouncer struct {
	fn          func()
	minInterval time.Duration
	maxDelay    time.Duration
	clock       Clock

	mu       sync.Mutex
	pending  bool
	first    time.Time // first trigger of the current pending window
	deadline time.Time
	fired    bool
	lastRun  time.Time

	signal chan struct{} // buffered size 1, coalesces trigger wakeups
}

// New creates a debouncer for fn. fn must not be nil.
func New(fn func(), opts Options) *Debouncer {
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxDelay < opts.MinInterval {
		opts.MaxDelay = opts.MinInterval
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	return &Debouncer{
		fn:          fn,
		minInterval: opts.MinInterval,
		maxDelay:    opts.MaxDelay,
		clock:       opts.Clock,
		signal:      make(chan struct{}, 1),
	}
}

// Trigger requests a run. Safe to call from any goroutine.
func (d *Debouncer) Trigger() {
	now := d.clock.Now()

	d.mu.Lock()
	if !d.pending {
		d.pending = true
		d.first = now
	}
	deadline := now.Add(d.minInterval)
	if cap := d.first.Add(d.maxDelay); deadline.After(cap) {
		deadline = cap
	}
	if d.fired {
		if floor := d.lastRun.Add(d.minInterval); deadline.Before(floor) {
			deadline = floor
		}
	}
	d.deadline = deadline
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// Pending reports whether a run is currently armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Run services triggers until ctx is cancelled. The callback is invoked on
// this goroutine.
func (d *Debouncer) Run(ctx context.Context) {
	for {
		d.mu.Lock()
		pending := d.pending
		deadline := d.deadline
		d.mu.Unlock()

		if !pending {
			select {
			case <-ctx.Done():
				return
			case <-d.signal:
			}
			continue
		}

		now := d.clock.Now()
		if !now.Before(deadline) {
			d.run(now)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-d.signal:
			// Re-armed; recompute the wait.
		case <-d.clock.After(deadline.Sub(now)):
			// The deadline may have moved while we slept; the next
			// iteration re-checks before running.
		}
	}
}

func (d *Debouncer) run(now time.Time) {
	d.mu.Lock()
	d.pending = false
	d.fired = true
	d.lastRun = now
	waited := now.Sub(d.first)
	d.mu.Unlock()

	slog.Debug("debounced run firing", "waited", waited)
	d.fn()
}
