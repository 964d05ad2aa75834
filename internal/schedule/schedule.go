// Package schedule runs a callback at randomized intervals until stopped.
//
// The engine is a small state machine: Idle -> Waiting on Start, back into
// Waiting after every completed fire, and Stopped on Stop or on any
// configuration error. Exactly one timer is pending at a time and it is only
// re-armed after the previous callback has returned.
package schedule

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrInvalidBounds = errors.New("schedule: invalid interval bounds")

type State int

const (
	Idle State = iota
	Waiting
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Bounds is the inclusive interval range in milliseconds.
type Bounds struct {
	LowerMs int64
	UpperMs int64
}

// BoundsFromDurations converts duration bounds, truncating to milliseconds.
func BoundsFromDurations(lower, upper time.Duration) Bounds {
	return Bounds{LowerMs: lower.Milliseconds(), UpperMs: upper.Milliseconds()}
}

func (b Bounds) Validate() error {
	if b.LowerMs <= 0 || b.UpperMs <= 0 || b.LowerMs > b.UpperMs {
		return fmt.Errorf("%w: lower=%dms upper=%dms", ErrInvalidBounds, b.LowerMs, b.UpperMs)
	}
	return nil
}

// Timer is the subset of *time.Timer the engine needs.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so tests can drive the engine by hand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time                            { return time.Now() }
func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Source is the randomness used to draw intervals. *math/rand.Rand satisfies it.
type Source interface {
	Int63n(n int64) int64
}

// Draw picks an interval uniformly in [LowerMs, UpperMs].
func Draw(rng Source, b Bounds) time.Duration {
	ms := b.LowerMs + rng.Int63n(b.UpperMs-b.LowerMs+1)
	return time.Duration(ms) * time.Millisecond
}

type Options struct {
	Bounds Bounds
	Clock  Clock
	Rand   Source
	// Precheck runs before every arm. A non-nil error stops the engine.
	// It is called with the engine lock held and must not call back into the engine.
	Precheck func() error
	// OnError receives errors that stop the engine from its own goroutine
	// (fire failures, re-arm failures). Start reports its errors directly.
	OnError func(error)
}

// Engine fires a callback at randomized intervals.
type Engine struct {
	mu     sync.Mutex
	fireMu sync.Mutex // serialises callbacks across stop/start

	fire     func() error
	clock    Clock
	rng      Source
	bounds   Bounds
	precheck func() error
	onError  func(error)

	state State
	timer Timer
	next  time.Time
	gen   uint64
	err   error
}

// New builds an idle engine. fire is invoked on every expiry.
func New(fire func() error, opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	return &Engine{
		fire:     fire,
		clock:    clock,
		rng:      opts.Rand,
		bounds:   opts.Bounds,
		precheck: opts.Precheck,
		onError:  opts.OnError,
	}
}

// Start arms the timer. Calling it on a stopped engine starts a fresh waiting
// period; calling it while waiting is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Waiting {
		return nil
	}
	e.err = nil
	if err := e.armLocked(); err != nil {
		e.stopLocked()
		e.err = err
		return err
	}
	return nil
}

// Stop cancels any pending fire. Safe to call from inside the callback; no
// callback starts after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// SetBounds replaces the interval range. It is validated on the next arm.
func (e *Engine) SetBounds(b Bounds) {
	e.mu.Lock()
	e.bounds = b
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the error that stopped the engine, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Next returns the scheduled fire instant; zero when not waiting.
func (e *Engine) Next() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Waiting {
		return time.Time{}
	}
	return e.next
}

// Remaining is the time left until the next fire, clamped at zero.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Waiting {
		return 0
	}
	left := e.next.Sub(e.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

func (e *Engine) armLocked() error {
	if err := e.bounds.Validate(); err != nil {
		return err
	}
	if e.rng == nil {
		return fmt.Errorf("schedule: no random source")
	}
	if e.precheck != nil {
		if err := e.precheck(); err != nil {
			return err
		}
	}
	interval := Draw(e.rng, e.bounds)
	e.gen++
	gen := e.gen
	e.state = Waiting
	e.next = e.clock.Now().Add(interval)
	e.timer = e.clock.AfterFunc(interval, func() { e.onTimer(gen) })
	return nil
}

func (e *Engine) stopLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.state = Stopped
	e.gen++
}

func (e *Engine) onTimer(gen uint64) {
	e.fireMu.Lock()
	defer e.fireMu.Unlock()

	e.mu.Lock()
	if e.state != Waiting || e.gen != gen {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.mu.Unlock()

	err := e.fire()

	e.mu.Lock()
	if e.state != Waiting || e.gen != gen {
		// stopped (and maybe restarted) while the callback ran
		e.mu.Unlock()
		return
	}
	if err == nil {
		err = e.armLocked()
	}
	if err != nil {
		e.stopLocked()
		e.err = err
	}
	onErr := e.onError
	e.mu.Unlock()

	if err != nil && onErr != nil {
		onErr(err)
	}
}
