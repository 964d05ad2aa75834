// Package achievements unlocks one-time badges and milestone toasts as Santa travels.
package achievements

import (
	"context"
	"fmt"
	"sync"
	"time"

	"santatrack/internal/model"
)

// Snapshot is the tracker state an achievement is judged on.
type Snapshot struct {
	CitiesVisited     int
	PresentsDelivered int64
	RegionsVisited    int
	CookiesEaten      int
	TopSpeedMach      int
	SawRudolph        bool
	VisitedSpecial    bool
	TrackingFor       time.Duration
	Hour              int // hour of day on the tracker's clock
}

type Definition struct {
	ID          string
	Name        string
	Emoji       string
	Description string
	Check       func(Snapshot) bool
}

var Definitions = []Definition{
	{"first_stop", "First Stop!", "🌟", "Watched Santa make his first delivery", func(s Snapshot) bool { return s.CitiesVisited >= 1 }},
	{"night_owl", "Night Owl", "🦉", "Tracked Santa past midnight", func(s Snapshot) bool { return s.Hour >= 0 && s.Hour < 5 }},
	{"globe_trotter", "Globe Trotter", "🌍", "Saw Santa visit 5 continents", func(s Snapshot) bool { return s.RegionsVisited >= 5 }},
	{"cookie_monster", "Cookie Monster", "🍪", "Santa ate 100 cookies", func(s Snapshot) bool { return s.CookiesEaten >= 100 }},
	{"speed_demon", "Speed Demon", "⚡", "Santa reached Mach 5000!", func(s Snapshot) bool { return s.TopSpeedMach >= 5000 }},
	{"million_gifts", "Million Gifts", "🎁", "Santa delivered 1 million presents!", func(s Snapshot) bool { return s.PresentsDelivered >= 1_000_000 }},
	{"fifty_cities", "World Tour", "🗺️", "Santa visited 50 cities", func(s Snapshot) bool { return s.CitiesVisited >= 50 }},
	{"rudolph_fan", "Rudolph Fan", "🔴", "Saw Rudolph lead the sleigh", func(s Snapshot) bool { return s.SawRudolph }},
	{"dedication", "Dedicated Tracker", "⏰", "Tracked for 30 minutes", func(s Snapshot) bool { return s.TrackingFor > 30*time.Minute }},
	{"special_city", "North Pole Visit", "❄️", "Santa stopped at a special location", func(s Snapshot) bool { return s.VisitedSpecial }},
}

// Store persists unlocked achievements per tracker.
type Store interface {
	ListAchievements(ctx context.Context, trackerID string) ([]model.UnlockedAchievement, error)
	UnlockAchievement(ctx context.Context, trackerID string, a model.UnlockedAchievement) (bool, error)
}

// Book remembers what a tracker has unlocked.
type Book struct {
	mu        sync.Mutex
	trackerID string
	store     Store
	unlocked  map[string]time.Time
}

func NewBook(trackerID string, store Store) *Book {
	return &Book{trackerID: trackerID, store: store, unlocked: map[string]time.Time{}}
}

// Load pulls previously unlocked achievements from the store.
func (b *Book) Load(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	items, err := b.store.ListAchievements(ctx, b.trackerID)
	if err != nil {
		return fmt.Errorf("load achievements: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, it := range items {
		b.unlocked[it.ID] = it.UnlockedAt
	}
	return nil
}

// Evaluate unlocks every achievement whose condition now holds and returns the
// newly unlocked ones. An achievement is unlocked once per tracker.
func (b *Book) Evaluate(ctx context.Context, snap Snapshot, now time.Time) ([]model.Achievement, error) {
	var fresh []model.Achievement
	for _, def := range Definitions {
		b.mu.Lock()
		_, done := b.unlocked[def.ID]
		b.mu.Unlock()
		if done || !def.Check(snap) {
			continue
		}
		if b.store != nil {
			created, err := b.store.UnlockAchievement(ctx, b.trackerID, model.UnlockedAchievement{ID: def.ID, UnlockedAt: now})
			if err != nil {
				return fresh, fmt.Errorf("unlock %s: %w", def.ID, err)
			}
			if !created {
				// another process got there first
				b.mu.Lock()
				b.unlocked[def.ID] = now
				b.mu.Unlock()
				continue
			}
		}
		b.mu.Lock()
		b.unlocked[def.ID] = now
		b.mu.Unlock()
		fresh = append(fresh, toModel(def, now, true))
	}
	return fresh, nil
}

// List returns every definition with its unlock state.
func (b *Book) List() []model.Achievement {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Achievement, 0, len(Definitions))
	for _, def := range Definitions {
		at, ok := b.unlocked[def.ID]
		out = append(out, toModel(def, at, ok))
	}
	return out
}

func toModel(def Definition, at time.Time, unlocked bool) model.Achievement {
	a := model.Achievement{ID: def.ID, Name: def.Name, Emoji: def.Emoji, Description: def.Description, Unlocked: unlocked}
	if unlocked {
		a.UnlockedAt = at.UTC().Format(time.RFC3339)
	}
	return a
}
