package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"santatrack/internal/model"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	lite, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = lite.Close() })
	return map[string]Store{"memory": NewMemory(), "sqlite": lite}
}

func TestUnlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 12, 24, 23, 0, 0, 0, time.UTC)
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			created, err := s.UnlockAchievement(ctx, "t1", model.UnlockedAchievement{ID: "first_stop", UnlockedAt: at})
			if err != nil || !created {
				t.Fatalf("first unlock created=%v err=%v", created, err)
			}
			created, err = s.UnlockAchievement(ctx, "t1", model.UnlockedAchievement{ID: "first_stop", UnlockedAt: at.Add(time.Hour)})
			if err != nil || created {
				t.Fatalf("second unlock created=%v err=%v", created, err)
			}
			items, err := s.ListAchievements(ctx, "t1")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(items) != 1 || items[0].ID != "first_stop" || !items[0].UnlockedAt.Equal(at) {
				t.Fatalf("unexpected items: %+v", items)
			}
		})
	}
}

func TestAchievementsScopedByTracker(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.UnlockAchievement(ctx, "a", model.UnlockedAchievement{ID: "night_owl", UnlockedAt: now}); err != nil {
				t.Fatalf("unlock: %v", err)
			}
			if _, err := s.UnlockAchievement(ctx, "a", model.UnlockedAchievement{ID: "first_stop", UnlockedAt: now.Add(-time.Minute)}); err != nil {
				t.Fatalf("unlock: %v", err)
			}
			items, _ := s.ListAchievements(ctx, "a")
			if len(items) != 2 || items[0].ID != "first_stop" {
				t.Fatalf("expected 2 ordered by unlock time, got %+v", items)
			}
			other, _ := s.ListAchievements(ctx, "b")
			if other == nil || len(other) != 0 {
				t.Fatalf("expected empty non-nil list for other tracker, got %#v", other)
			}
		})
	}
}

func TestUnlockRejectsEmptyIDs(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.UnlockAchievement(ctx, "", model.UnlockedAchievement{ID: "x"})
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSQLiteFilePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "santa.db")
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.UnlockAchievement(ctx, "t", model.UnlockedAchievement{ID: "speed_demon", UnlockedAt: time.Now()}); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	_ = s.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
	s2, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	items, err := s2.ListAchievements(ctx, "t")
	if err != nil || len(items) != 1 {
		t.Fatalf("expected persisted achievement, got %v err=%v", items, err)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), " "); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	id := "it-" + time.Now().Format("150405.000000")
	if created, err := s.UnlockAchievement(ctx, id, model.UnlockedAchievement{ID: "first_stop", UnlockedAt: time.Now()}); err != nil || !created {
		t.Fatalf("unlock created=%v err=%v", created, err)
	}
	if created, _ := s.UnlockAchievement(ctx, id, model.UnlockedAchievement{ID: "first_stop", UnlockedAt: time.Now()}); created {
		t.Fatalf("expected duplicate unlock to be ignored")
	}
}
