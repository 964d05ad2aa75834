package schedule

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, running due timers in order on the caller's goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if due == nil || t.at.Before(due.at) {
				due = t
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		due.fired = true
		c.now = due.at
		c.mu.Unlock()
		due.f()
	}
}

func newEngine(clock Clock, b Bounds, fire func() error) *Engine {
	return New(fire, Options{Bounds: b, Clock: clock, Rand: rand.New(rand.NewSource(1))})
}

func TestBoundsValidate(t *testing.T) {
	tests := []struct {
		name string
		b    Bounds
		ok   bool
	}{
		{"valid", Bounds{LowerMs: 30000, UpperMs: 60000}, true},
		{"equal", Bounds{LowerMs: 5, UpperMs: 5}, true},
		{"inverted", Bounds{LowerMs: 10, UpperMs: 5}, false},
		{"zero lower", Bounds{LowerMs: 0, UpperMs: 5}, false},
		{"negative upper", Bounds{LowerMs: 1, UpperMs: -5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.b.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidBounds) {
				t.Fatalf("want ErrInvalidBounds, got %v", err)
			}
		})
	}
}

func TestDrawWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for _, b := range []Bounds{{1, 1}, {30000, 60000}, {10, 20}} {
		lo := time.Duration(b.LowerMs) * time.Millisecond
		hi := time.Duration(b.UpperMs) * time.Millisecond
		for i := 0; i < 5000; i++ {
			d := Draw(rng, b)
			if d < lo || d > hi {
				t.Fatalf("draw %v outside [%v, %v]", d, lo, hi)
			}
		}
	}
}

func TestStartInvalidBoundsStops(t *testing.T) {
	e := newEngine(newFakeClock(), Bounds{LowerMs: 60000, UpperMs: 30000}, func() error { return nil })
	err := e.Start()
	if !errors.Is(err, ErrInvalidBounds) {
		t.Fatalf("want ErrInvalidBounds, got %v", err)
	}
	if e.State() != Stopped {
		t.Fatalf("state = %v, want stopped", e.State())
	}
	if !errors.Is(e.Err(), ErrInvalidBounds) {
		t.Fatalf("Err() = %v", e.Err())
	}
}

func TestFiresAndRearms(t *testing.T) {
	clock := newFakeClock()
	var fired int
	e := newEngine(clock, Bounds{LowerMs: 30000, UpperMs: 60000}, func() error { fired++; return nil })
	if e.State() != Idle {
		t.Fatalf("new engine state = %v", e.State())
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(29 * time.Second)
	if fired != 0 {
		t.Fatalf("fired = %d before the lower bound", fired)
	}
	clock.Advance(31 * time.Second)
	if fired < 1 || fired > 2 {
		t.Fatalf("fired = %d after one max interval", fired)
	}
	if e.State() != Waiting {
		t.Fatalf("state = %v, want waiting", e.State())
	}
	clock.Advance(10 * time.Minute)
	// 660s of wall time holds between 11 and 22 hops
	if fired < 11 || fired > 22 {
		t.Fatalf("fired = %d", fired)
	}
}

func TestStopDuringWaitPreventsAdvance(t *testing.T) {
	clock := newFakeClock()
	var fired int
	e := newEngine(clock, Bounds{LowerMs: 30000, UpperMs: 60000}, func() error { fired++; return nil })
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(10 * time.Second)
	e.Stop()
	clock.Advance(5 * time.Minute)
	if fired != 0 {
		t.Fatalf("fired = %d after stop", fired)
	}
	if e.State() != Stopped || e.Remaining() != 0 {
		t.Fatalf("state=%v remaining=%v", e.State(), e.Remaining())
	}
}

func TestStopFromCallback(t *testing.T) {
	clock := newFakeClock()
	var fired int
	var e *Engine
	e = newEngine(clock, Bounds{LowerMs: 100, UpperMs: 200}, func() error {
		fired++
		e.Stop()
		return nil
	})
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(time.Minute)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if e.State() != Stopped || e.Err() != nil {
		t.Fatalf("state=%v err=%v", e.State(), e.Err())
	}
}

func TestFireErrorStopsEngine(t *testing.T) {
	clock := newFakeClock()
	boom := errors.New("boom")
	var reported error
	e := New(func() error { return boom }, Options{
		Bounds:  Bounds{LowerMs: 100, UpperMs: 100},
		Clock:   clock,
		Rand:    rand.New(rand.NewSource(1)),
		OnError: func(err error) { reported = err },
	})
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(time.Second)
	if e.State() != Stopped || !errors.Is(e.Err(), boom) || !errors.Is(reported, boom) {
		t.Fatalf("state=%v err=%v reported=%v", e.State(), e.Err(), reported)
	}
}

func TestPrecheckFailsOnRearm(t *testing.T) {
	clock := newFakeClock()
	empty := errors.New("catalog empty")
	var fired int
	e := New(func() error { fired++; return nil }, Options{
		Bounds: Bounds{LowerMs: 100, UpperMs: 100},
		Clock:  clock,
		Rand:   rand.New(rand.NewSource(1)),
		Precheck: func() error {
			if fired > 0 {
				return empty
			}
			return nil
		},
	})
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(time.Second)
	if fired != 1 || e.State() != Stopped || !errors.Is(e.Err(), empty) {
		t.Fatalf("fired=%d state=%v err=%v", fired, e.State(), e.Err())
	}
}

func TestInvalidBoundsOnRearm(t *testing.T) {
	clock := newFakeClock()
	var e *Engine
	e = newEngine(clock, Bounds{LowerMs: 100, UpperMs: 100}, func() error {
		e.SetBounds(Bounds{LowerMs: 0, UpperMs: 100})
		return nil
	})
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(time.Second)
	if e.State() != Stopped || !errors.Is(e.Err(), ErrInvalidBounds) {
		t.Fatalf("state=%v err=%v", e.State(), e.Err())
	}
}

func TestRemainingAndResume(t *testing.T) {
	clock := newFakeClock()
	e := newEngine(clock, Bounds{LowerMs: 1000, UpperMs: 1000}, func() error { return nil })
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(400 * time.Millisecond)
	if got := e.Remaining(); got != 600*time.Millisecond {
		t.Fatalf("remaining = %v", got)
	}
	e.Stop()
	if e.Remaining() != 0 {
		t.Fatalf("remaining after stop = %v", e.Remaining())
	}
	if err := e.Start(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := e.Remaining(); got != time.Second {
		t.Fatalf("remaining after resume = %v, want a fresh full interval", got)
	}
}

func TestNoOverlappingFires(t *testing.T) {
	var inFlight, maxInFlight, fired int32
	e := New(func() error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(3 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		atomic.AddInt32(&fired, 1)
		return nil
	}, Options{Bounds: Bounds{LowerMs: 1, UpperMs: 2}, Rand: rand.New(rand.NewSource(4))})
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&fired) < 5 {
		select {
		case <-deadline:
			t.Fatalf("only %d fires", atomic.LoadInt32(&fired))
		case <-time.After(5 * time.Millisecond):
		}
	}
	e.Stop()
	after := atomic.LoadInt32(&fired)
	time.Sleep(30 * time.Millisecond)
	// a callback already running when Stop was called may still finish
	if got := atomic.LoadInt32(&fired); got > after+1 {
		t.Fatalf("fires continued after stop: %d -> %d", after, got)
	}
	if atomic.LoadInt32(&maxInFlight) != 1 {
		t.Fatalf("max in flight = %d", maxInFlight)
	}
}
