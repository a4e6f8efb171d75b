package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keylayer/internal/testutil"
)

type fixture struct {
	clock  *testutil.FakeClock
	deb    *Debouncer
	fires  *atomic.Int64
	cancel context.CancelFunc
	done   chan struct{}
}

func start(t *testing.T, minInterval, maxDelay time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		clock: testutil.NewFakeClock(),
		fires: &atomic.Int64{},
		done:  make(chan struct{}),
	}
	f.deb = New(func() { f.fires.Add(1) }, Options{
		MinInterval: minInterval,
		MaxDelay:    maxDelay,
		Clock:       f.clock,
	})

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() {
		f.deb.Run(ctx)
		close(f.done)
	}()
	t.Cleanup(func() {
		cancel()
		<-f.done
	})
	return f
}

// waitArmed blocks until the run loop has a timer registered with the fake
// clock, so an Advance is guaranteed to reach it.
func (f *fixture) waitArmed(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return f.clock.Waiters() > 0 },
		time.Second, time.Millisecond)
}

func (f *fixture) waitFires(t *testing.T, n int64) {
	t.Helper()
	require.Eventually(t, func() bool { return f.fires.Load() == n },
		time.Second, time.Millisecond)
}

func TestDebouncerFiresAfterMinInterval(t *testing.T) {
	f := start(t, 500*time.Millisecond, 2*time.Second)

	f.deb.Trigger()
	assert.True(t, f.deb.Pending())
	f.waitArmed(t)

	f.clock.Advance(500 * time.Millisecond)
	f.waitFires(t, 1)
	assert.False(t, f.deb.Pending())
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	f := start(t, 500*time.Millisecond, 2*time.Second)

	for i := 0; i < 5; i++ {
		f.deb.Trigger()
	}
	f.waitArmed(t)
	f.clock.Advance(500 * time.Millisecond)
	f.waitFires(t, 1)

	// Nothing is pending, so no second run arrives.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), f.fires.Load())
}

func TestTriggerReArmsSingleDeadline(t *testing.T) {
	f := start(t, 500*time.Millisecond, 2*time.Second)

	f.deb.Trigger()
	f.waitArmed(t)

	f.clock.Advance(300 * time.Millisecond)
	f.deb.Trigger() // deadline moves to t=800ms

	f.clock.Advance(200 * time.Millisecond) // t=500ms, the original deadline
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), f.fires.Load(), "re-armed deadline must hold")

	f.clock.Advance(300 * time.Millisecond) // t=800ms
	f.waitFires(t, 1)
}

func TestMaxDelayBoundsSteadyTriggering(t *testing.T) {
	f := start(t, 500*time.Millisecond, time.Second)

	f.deb.Trigger()
	f.waitArmed(t)
	f.clock.Advance(400 * time.Millisecond)
	f.deb.Trigger()
	f.clock.Advance(400 * time.Millisecond)
	f.deb.Trigger()

	// Each trigger pushed the settle window out, but the cap from the
	// first pending trigger lands at t=1s.
	f.clock.Advance(200 * time.Millisecond)
	f.waitFires(t, 1)
}

func TestDebouncerReArmsAfterRun(t *testing.T) {
	f := start(t, 500*time.Millisecond, 2*time.Second)

	f.deb.Trigger()
	f.waitArmed(t)
	f.clock.Advance(500 * time.Millisecond)
	f.waitFires(t, 1)

	f.deb.Trigger()
	assert.True(t, f.deb.Pending())
	f.waitArmed(t)
	f.clock.Advance(500 * time.Millisecond)
	f.waitFires(t, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := start(t, 500*time.Millisecond, 2*time.Second)
	f.cancel()
	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop")
	}
}

func TestDefaultsApplied(t *testing.T) {
	d := New(func() {}, Options{})
	assert.Equal(t, DefaultMinInterval, d.minInterval)
	assert.Equal(t, DefaultMaxDelay, d.maxDelay)

	d = New(func() {}, Options{MinInterval: time.Second, MaxDelay: time.Millisecond})
	assert.Equal(t, time.Second, d.maxDelay, "cap never undercuts the settle window")
}
