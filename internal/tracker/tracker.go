// Package tracker runs Santa's journey: it owns the itinerary, drives the hop
// timer and publishes what happened to the rendering side.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"santatrack/internal/achievements"
	"santatrack/internal/catalog"
	"santatrack/internal/geo"
	"santatrack/internal/itinerary"
	"santatrack/internal/metrics"
	"santatrack/internal/model"
	"santatrack/internal/schedule"
)

type Mode string

const (
	ModeDelivery Mode = "delivery"
	ModeWorkshop Mode = "workshop"
	ModeAuto     Mode = "auto"
)

var ErrUnknownMode = errors.New("tracker: unknown mode")

// ParseMode accepts delivery, workshop or auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeDelivery, ModeWorkshop, ModeAuto:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Sink receives every event the tracker produces.
type Sink interface {
	Emit(ctx context.Context, ev model.Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, ev model.Event)

func (f SinkFunc) Emit(ctx context.Context, ev model.Event) { f(ctx, ev) }

// Sinks fans an event out to several sinks in order.
type Sinks []Sink

func (s Sinks) Emit(ctx context.Context, ev model.Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ctx, ev)
		}
	}
}

// WorkshopBounds is how often the elves report an activity.
var WorkshopBounds = schedule.Bounds{LowerMs: 10_000, UpperMs: 20_000}

type Options struct {
	TrackerID      string
	Mode           Mode
	Bounds         schedule.Bounds // delivery hop interval
	WorkshopBounds schedule.Bounds
	Units          itinerary.UnitsRange
	PathSegments   int
	// PlaceOnStart drops Santa at a random stop when delivery begins, without counting it.
	PlaceOnStart bool
	Clock        schedule.Clock
	Location     *time.Location // decides when Christmas Day starts
	Rand         *rand.Rand
	Store        achievements.Store
	Sink         Sink
}

// Tracker is the single writer of the itinerary state.
type Tracker struct {
	mu sync.Mutex

	id       string
	mode     Mode // configured
	active   Mode // delivery or workshop once started
	catalog  []model.Destination
	units    itinerary.UnitsRange
	segments int
	place    bool
	clock    schedule.Clock
	loc      *time.Location
	rng      *rand.Rand
	sink     Sink

	delivery *schedule.Engine
	workshop *schedule.Engine

	book       *achievements.Book
	milestones *achievements.MilestoneTracker

	running   bool
	startedAt time.Time
	lastErr   error

	state          itinerary.State
	presentsMade   int64
	elves          int
	cookies        int
	milk           int
	speed          int
	topSpeed       int
	lead           model.Reindeer
	lastGift       model.Gift
	sawRudolph     bool
	visitedSpecial bool
}

// New builds a stopped tracker over catalog.
func New(cat []model.Destination, opts Options) *Tracker {
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.Clock == nil {
		opts.Clock = schedule.SystemClock
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.WorkshopBounds == (schedule.Bounds{}) {
		opts.WorkshopBounds = WorkshopBounds
	}
	if opts.PathSegments < 1 {
		opts.PathSegments = 50
	}
	if opts.TrackerID == "" {
		opts.TrackerID = "default"
	}
	t := &Tracker{
		id:         opts.TrackerID,
		mode:       opts.Mode,
		catalog:    cat,
		units:      opts.Units,
		segments:   opts.PathSegments,
		place:      opts.PlaceOnStart,
		clock:      opts.Clock,
		loc:        opts.Location,
		rng:        opts.Rand,
		sink:       opts.Sink,
		book:       achievements.NewBook(opts.TrackerID, opts.Store),
		milestones: achievements.NewMilestoneTracker(),
		state:      itinerary.NewState(),
		lead:       Reindeer[0],
	}
	// each engine draws from its own source; *rand.Rand is not safe for concurrent use
	t.delivery = schedule.New(t.fireDelivery, schedule.Options{
		Bounds:   opts.Bounds,
		Clock:    opts.Clock,
		Rand:     rand.New(rand.NewSource(opts.Rand.Int63())),
		Precheck: t.precheck,
		OnError:  t.onEngineError,
	})
	t.workshop = schedule.New(t.fireWorkshop, schedule.Options{
		Bounds:  opts.WorkshopBounds,
		Clock:   opts.Clock,
		Rand:    rand.New(rand.NewSource(opts.Rand.Int63())),
		OnError: t.onEngineError,
	})
	return t
}

// LoadAchievements restores previously unlocked achievements from the store.
func (t *Tracker) LoadAchievements(ctx context.Context) error {
	return t.book.Load(ctx)
}

// Catalog returns the destinations the tracker flies between.
func (t *Tracker) Catalog() []model.Destination { return t.catalog }

// precheck runs under the engine lock; it only reads immutable fields.
func (t *Tracker) precheck() error {
	if len(t.catalog) == 0 {
		return itinerary.ErrEmptyCatalog
	}
	return nil
}

// Start resolves the mode and arms the matching timer. Starting a stopped
// tracker in the same mode resumes the current run with a fresh wait.
func (t *Tracker) Start() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	now := t.clock.Now()
	want := t.resolveMode(now)
	var evs []model.Event
	if t.active != want {
		evs = t.enterModeLocked(want, false, now)
	}
	if err := t.engine(want).Start(); err != nil {
		t.lastErr = err
		t.mu.Unlock()
		log.Printf("tracker=%s start failed: %v", t.id, err)
		return fmt.Errorf("start tracker: %w", err)
	}
	t.running = true
	t.lastErr = nil
	if t.startedAt.IsZero() {
		t.startedAt = now
	}
	t.mu.Unlock()

	log.Printf("tracker=%s started mode=%s", t.id, want)
	t.emit(context.Background(), evs...)
	return nil
}

// Stop cancels the pending hop. No hop fires after Stop returns.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.delivery.Stop()
	t.workshop.Stop()
	ev := t.newEvent(model.EventStopped, t.statusLocked(), t.clock.Now())
	t.mu.Unlock()

	metrics.NextHopSeconds.Set(0)
	log.Printf("tracker=%s stopped", t.id)
	t.emit(context.Background(), ev)
}

// Run starts the tracker, watches for the season to change and re-checks
// time based achievements until ctx is done.
func (t *Tracker) Run(ctx context.Context, checkEvery time.Duration) error {
	if err := t.Start(); err != nil {
		return err
	}
	if checkEvery <= 0 {
		checkEvery = time.Minute
	}
	ticker := time.NewTicker(checkEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-ticker.C:
			if err := t.CheckSeason(ctx); err != nil {
				log.Printf("tracker=%s season check: %v", t.id, err)
			}
			t.evaluate(ctx)
			metrics.NextHopSeconds.Set(float64(t.Countdown().NextHopMs) / 1000)
		}
	}
}

// CheckSeason switches between workshop and delivery when running in auto mode
// and the date crossed into or out of Christmas Day.
func (t *Tracker) CheckSeason(ctx context.Context) error {
	t.mu.Lock()
	if !t.running || t.mode != ModeAuto {
		t.mu.Unlock()
		return nil
	}
	now := t.clock.Now()
	want := t.resolveMode(now)
	if want == t.active {
		t.mu.Unlock()
		return nil
	}
	t.engine(t.active).Stop()
	evs := t.enterModeLocked(want, true, now)
	err := t.engine(want).Start()
	if err != nil {
		t.running = false
		t.lastErr = err
	}
	t.mu.Unlock()

	log.Printf("tracker=%s season switch to %s", t.id, want)
	t.emit(ctx, evs...)
	t.evaluate(ctx)
	if err != nil {
		return fmt.Errorf("switch to %s: %w", want, err)
	}
	return nil
}

// AdvanceNow forces the next event immediately and restarts the wait.
func (t *Tracker) AdvanceNow(ctx context.Context) error {
	t.mu.Lock()
	now := t.clock.Now()
	var (
		evs []model.Event
		err error
	)
	if t.active == "" {
		evs = t.enterModeLocked(t.resolveMode(now), false, now)
	}
	if t.active == ModeDelivery {
		var hop []model.Event
		hop, err = t.hopLocked(now)
		evs = append(evs, hop...)
	} else {
		evs = append(evs, t.activityLocked(now)...)
	}
	if err == nil && t.running {
		e := t.engine(t.active)
		e.Stop()
		if err = e.Start(); err != nil {
			t.running = false
		}
	}
	if err != nil {
		t.lastErr = err
	}
	t.mu.Unlock()

	t.emit(ctx, evs...)
	t.evaluate(ctx)
	if err != nil {
		return fmt.Errorf("advance: %w", err)
	}
	return nil
}

// Status is a point-in-time read of the run.
func (t *Tracker) Status() model.TrackerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

// Countdown reports the time to the next hop and to Christmas.
func (t *Tracker) Countdown() model.Countdown {
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()
	var left time.Duration
	if active != "" {
		left = t.engine(active).Remaining()
	}
	return model.Countdown{
		NextHopMs:   left.Milliseconds(),
		NextHopText: HopText(left),
		Christmas:   UntilChristmas(t.clock.Now().In(t.loc)),
	}
}

// Achievements lists every achievement with its unlock state.
func (t *Tracker) Achievements() []model.Achievement { return t.book.List() }

func (t *Tracker) statusLocked() model.TrackerStatus {
	st := model.TrackerStatus{
		TrackerID:         t.id,
		Mode:              string(t.active),
		State:             schedule.Idle.String(),
		PresentsDelivered: t.state.UnitsDelivered,
		PresentsMade:      t.presentsMade,
		CitiesVisited:     t.state.StopsVisited,
		Regions:           t.state.Regions(),
		CookiesEaten:      t.cookies,
		MilkDrunk:         t.milk,
		SpeedMach:         t.speed,
		TopSpeedMach:      t.topSpeed,
		LeadReindeer:      t.lead.Name,
		LastGift:          t.lastGift.Name,
		ElvesWorking:      t.elves,
	}
	if st.Mode == "" {
		st.Mode = string(t.mode)
	} else {
		e := t.engine(t.active)
		st.State = e.State().String()
		st.NextHopMs = e.Remaining().Milliseconds()
	}
	if t.state.Current != nil {
		cur := *t.state.Current
		st.Current = &cur
		st.LocalTime = catalog.LocalTime(cur, t.clock.Now())
	}
	if !t.startedAt.IsZero() {
		st.StartedAt = t.startedAt.UTC().Format(time.RFC3339)
	}
	if t.lastErr != nil {
		st.LastError = t.lastErr.Error()
	}
	return st
}

func (t *Tracker) resolveMode(now time.Time) Mode {
	switch t.mode {
	case ModeDelivery, ModeWorkshop:
		return t.mode
	}
	if IsChristmas(now.In(t.loc)) {
		return ModeDelivery
	}
	return ModeWorkshop
}

func (t *Tracker) engine(m Mode) *schedule.Engine {
	if m == ModeDelivery {
		return t.delivery
	}
	return t.workshop
}

// enterModeLocked resets the run counters for a new mode. A switch into
// delivery makes the first hop straight away, leaving from the workshop.
func (t *Tracker) enterModeLocked(m Mode, switching bool, now time.Time) []model.Event {
	from := t.active
	t.active = m
	t.state = itinerary.NewState()
	t.presentsMade = 0
	t.milestones.Reset()
	metrics.SetMode(string(m))
	metrics.PresentsDelivered.Set(0)
	metrics.PresentsMade.Set(0)
	metrics.RegionsVisited.Set(0)

	workshop := catalog.Workshop
	evs := []model.Event{t.newEvent(model.EventModeChanged, model.ModeChange{From: string(from), To: string(m)}, now)}
	switch m {
	case ModeWorkshop:
		t.state.Current = &workshop
		t.elves = 1000 + t.rng.Intn(500)
	case ModeDelivery:
		t.elves = 0
		if switching {
			t.state.Current = &workshop
			hop, err := t.hopLocked(now)
			if err != nil {
				t.lastErr = err
				log.Printf("tracker=%s first hop failed: %v", t.id, err)
			}
			evs = append(evs, hop...)
		} else if t.place && len(t.catalog) > 0 {
			d, err := itinerary.PickNext(t.rng, t.catalog, nil)
			if err == nil {
				t.state.Current = &d
			}
		}
	}
	return evs
}

func (t *Tracker) fireDelivery() error {
	t.mu.Lock()
	if !t.running || t.active != ModeDelivery {
		// stopped or switched while this fire waited for the lock
		t.mu.Unlock()
		return nil
	}
	evs, err := t.hopLocked(t.clock.Now())
	if err != nil {
		t.lastErr = err
	}
	t.mu.Unlock()

	t.emit(context.Background(), evs...)
	t.evaluate(context.Background())
	return err
}

func (t *Tracker) fireWorkshop() error {
	t.mu.Lock()
	if !t.running || t.active != ModeWorkshop {
		t.mu.Unlock()
		return nil
	}
	evs := t.activityLocked(t.clock.Now())
	t.mu.Unlock()

	t.emit(context.Background(), evs...)
	return nil
}

// hopLocked advances the itinerary one stop and builds the arrival events.
func (t *Tracker) hopLocked(now time.Time) ([]model.Event, error) {
	start := time.Now()
	defer func() { metrics.AdvanceDuration.Observe(time.Since(start).Seconds()) }()

	next, tr, err := itinerary.Advance(t.rng, t.state, t.catalog, t.units)
	if err != nil {
		metrics.AdvanceErrors.WithLabelValues(errorReason(err)).Inc()
		log.Printf("tracker=%s advance failed: %v", t.id, err)
		return nil, err
	}
	t.state = next

	cookies, milk, speed := rollCookies(t.rng), rollMilk(t.rng), rollSpeed(t.rng)
	t.cookies += cookies
	t.milk += milk
	t.speed = speed
	if speed > t.topSpeed {
		t.topSpeed = speed
	}
	t.lead = maybeSwapReindeer(t.rng, t.lead)
	if t.lead.Special {
		t.sawRudolph = true
	}
	t.lastGift = pickGift(t.rng)
	if tr.To.Special {
		t.visitedSpecial = true
	}

	arrival := model.Arrival{
		From:              tr.From,
		To:                tr.To,
		PresentsThisStop:  tr.UnitsThisStop,
		PresentsDelivered: next.UnitsDelivered,
		CitiesVisited:     next.StopsVisited,
		RegionsVisited:    next.Regions(),
		LocalTime:         catalog.LocalTime(tr.To, now),
		SpeedMach:         speed,
		CookiesThisStop:   cookies,
		MilkThisStop:      milk,
		LeadReindeer:      t.lead.Name,
		Gift:              t.lastGift,
		FunFact:           tr.To.FunFact,
		Message:           randomMessage(t.rng),
		Aurora:            auroraVisible(tr.To),
	}
	evs := make([]model.Event, 0, 4)
	var path *model.FlightPath
	if tr.From != nil {
		points := geo.Interpolate(tr.From.Point(), tr.To.Point(), t.segments)
		km := geo.DistanceKm(tr.From.Point(), tr.To.Point())
		arrival.DistanceKm = km
		path = &model.FlightPath{
			From:       tr.From.Name,
			To:         tr.To.Name,
			Points:     points,
			Reindeer:   geo.Along(points, 3),
			DistanceKm: km,
		}
	}
	evs = append(evs, t.newEvent(model.EventArrived, arrival, now))
	if path != nil {
		evs = append(evs, t.newEvent(model.EventPath, *path, now))
	}
	for _, m := range t.milestones.Check(next.UnitsDelivered, next.StopsVisited) {
		evs = append(evs, t.newEvent(model.EventMilestone, m, now))
	}

	metrics.Stops.WithLabelValues(regionLabel(tr.To.Region)).Inc()
	metrics.PresentsDelivered.Set(float64(next.UnitsDelivered))
	metrics.RegionsVisited.Set(float64(len(next.RegionsTouched)))
	log.Printf("tracker=%s hop to=%q presents=%d total=%d cities=%d", t.id, tr.To.Name, tr.UnitsThisStop, next.UnitsDelivered, next.StopsVisited)
	return evs, nil
}

func (t *Tracker) activityLocked(now time.Time) []model.Event {
	made := 500 + t.rng.Intn(1000)
	t.presentsMade += int64(made)
	t.elves = 1000 + t.rng.Intn(500)
	act := model.WorkshopActivity{
		Activity:     WorkshopActivities[t.rng.Intn(len(WorkshopActivities))],
		PresentsMade: t.presentsMade,
		ElvesWorking: t.elves,
	}
	metrics.PresentsMade.Set(float64(t.presentsMade))
	return []model.Event{t.newEvent(model.EventWorkshopActivity, act, now)}
}

// evaluate unlocks achievements outside the tracker lock; the store may do I/O.
func (t *Tracker) evaluate(ctx context.Context) {
	t.mu.Lock()
	if t.startedAt.IsZero() {
		t.mu.Unlock()
		return
	}
	now := t.clock.Now()
	snap := achievements.Snapshot{
		CitiesVisited:     t.state.StopsVisited,
		PresentsDelivered: t.state.UnitsDelivered,
		RegionsVisited:    len(t.state.RegionsTouched),
		CookiesEaten:      t.cookies,
		TopSpeedMach:      t.topSpeed,
		SawRudolph:        t.sawRudolph,
		VisitedSpecial:    t.visitedSpecial,
		TrackingFor:       now.Sub(t.startedAt),
		Hour:              now.In(t.loc).Hour(),
	}
	t.mu.Unlock()

	unlocked, err := t.book.Evaluate(ctx, snap, now)
	if err != nil {
		log.Printf("tracker=%s achievements: %v", t.id, err)
	}
	for _, a := range unlocked {
		metrics.AchievementsUnlocked.WithLabelValues(a.ID).Inc()
		t.emit(ctx, t.newEvent(model.EventAchievementUnlocked, a, now))
	}
}

func (t *Tracker) onEngineError(err error) {
	t.mu.Lock()
	t.running = false
	t.lastErr = err
	ev := t.newEvent(model.EventStopped, t.statusLocked(), t.clock.Now())
	t.mu.Unlock()

	log.Printf("tracker=%s timer stopped: %v", t.id, err)
	t.emit(context.Background(), ev)
}

func (t *Tracker) newEvent(typ string, data any, now time.Time) model.Event {
	return model.Event{ID: uuid.NewString(), Type: typ, TS: now.UTC().Format(time.RFC3339Nano), Data: data}
}

func (t *Tracker) emit(ctx context.Context, evs ...model.Event) {
	if t.sink == nil {
		return
	}
	for _, ev := range evs {
		t.sink.Emit(ctx, ev)
	}
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, itinerary.ErrEmptyCatalog):
		return "empty_catalog"
	case errors.Is(err, itinerary.ErrInvalidUnitsRange):
		return "invalid_units"
	default:
		return "other"
	}
}

func regionLabel(r string) string {
	if r == "" {
		return "unknown"
	}
	return r
}
