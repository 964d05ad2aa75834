package achievements

import (
	"context"
	"testing"
	"time"

	"santatrack/internal/model"
	"santatrack/internal/store"
)

func ids(as []model.Achievement) map[string]bool {
	out := map[string]bool{}
	for _, a := range as {
		out[a.ID] = true
	}
	return out
}

func TestEvaluateUnlocksOnce(t *testing.T) {
	ctx := context.Background()
	b := NewBook("t1", store.NewMemory())
	now := time.Date(2025, 12, 24, 12, 0, 0, 0, time.UTC)

	got, err := b.Evaluate(ctx, Snapshot{CitiesVisited: 1, Hour: 12}, now)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(got) != 1 || got[0].ID != "first_stop" || !got[0].Unlocked {
		t.Fatalf("expected first_stop only, got %+v", got)
	}
	got, _ = b.Evaluate(ctx, Snapshot{CitiesVisited: 2, Hour: 12}, now.Add(time.Minute))
	if len(got) != 0 {
		t.Fatalf("expected nothing new, got %+v", got)
	}
}

func TestEvaluateConditions(t *testing.T) {
	snap := Snapshot{
		CitiesVisited:     50,
		PresentsDelivered: 1_000_000,
		RegionsVisited:    5,
		CookiesEaten:      100,
		TopSpeedMach:      5000,
		SawRudolph:        true,
		VisitedSpecial:    true,
		TrackingFor:       31 * time.Minute,
		Hour:              2,
	}
	b := NewBook("t1", nil)
	got, err := b.Evaluate(context.Background(), snap, time.Now())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(got) != len(Definitions) {
		t.Fatalf("expected all %d unlocked, got %d", len(Definitions), len(got))
	}

	b = NewBook("t2", nil)
	got, _ = b.Evaluate(context.Background(), Snapshot{Hour: 5, TrackingFor: 30 * time.Minute, TopSpeedMach: 4999}, time.Now())
	if len(got) != 0 {
		t.Fatalf("boundary values should not unlock, got %+v", got)
	}
}

func TestLoadRestoresUnlocked(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	at := time.Date(2025, 12, 25, 1, 0, 0, 0, time.UTC)
	if _, err := st.UnlockAchievement(ctx, "t1", model.UnlockedAchievement{ID: "night_owl", UnlockedAt: at}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	b := NewBook("t1", st)
	if err := b.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, _ := b.Evaluate(ctx, Snapshot{Hour: 3}, at.Add(time.Hour))
	if ids(got)["night_owl"] {
		t.Fatalf("night_owl already unlocked, should not be returned again")
	}
	list := b.List()
	if len(list) != len(Definitions) {
		t.Fatalf("list length %d", len(list))
	}
	for _, a := range list {
		if a.ID == "night_owl" {
			if !a.Unlocked || a.UnlockedAt != "2025-12-25T01:00:00Z" {
				t.Fatalf("unexpected night_owl entry %+v", a)
			}
		} else if a.Unlocked {
			t.Fatalf("%s should be locked", a.ID)
		}
	}
}

func TestEvaluateSkipsUnlockedElsewhere(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_, _ = st.UnlockAchievement(ctx, "shared", model.UnlockedAchievement{ID: "first_stop", UnlockedAt: time.Now()})
	b := NewBook("shared", st) // not loaded
	got, err := b.Evaluate(ctx, Snapshot{CitiesVisited: 1, Hour: 12}, time.Now())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no announcement for an achievement another replica stored, got %+v", got)
	}
	if !b.List()[0].Unlocked {
		t.Fatalf("first_stop should be marked unlocked locally")
	}
}

func TestMilestonesFireOnce(t *testing.T) {
	m := NewMilestoneTracker()
	if got := m.Check(99_999, 9); len(got) != 0 {
		t.Fatalf("nothing crossed yet, got %+v", got)
	}
	got := m.Check(550_000, 10)
	keys := map[string]bool{}
	for _, g := range got {
		keys[g.Key] = true
	}
	if len(got) != 3 || !keys["p100000"] || !keys["p500000"] || !keys["c10"] {
		t.Fatalf("unexpected milestones %+v", got)
	}
	if again := m.Check(600_000, 11); len(again) != 0 {
		t.Fatalf("milestones repeated: %+v", again)
	}
	m.Reset()
	if got := m.Check(100_000, 0); len(got) != 1 || got[0].Key != "p100000" {
		t.Fatalf("expected p100000 after reset, got %+v", got)
	}
}
