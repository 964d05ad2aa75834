package store

import (
	"context"
	"errors"

	"santatrack/internal/model"
)

// Store is the persistence interface used by the tracker and API server.
// The unlocked achievement set is the only state that outlives a run.
type Store interface {
	// Achievements
	ListAchievements(ctx context.Context, trackerID string) ([]model.UnlockedAchievement, error)
	// UnlockAchievement records a as unlocked and reports whether it was new.
	UnlockAchievement(ctx context.Context, trackerID string, a model.UnlockedAchievement) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid argument")
)
