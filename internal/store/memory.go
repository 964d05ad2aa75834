package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"santatrack/internal/model"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
	mu       sync.Mutex
	unlocked map[string]map[string]time.Time // trackerId -> achievementId -> unlockedAt
}

func NewMemory() *Memory {
	return &Memory{unlocked: map[string]map[string]time.Time{}}
}

func (m *Memory) ListAchievements(ctx context.Context, trackerID string) ([]model.UnlockedAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.UnlockedAchievement{}
	for id, at := range m.unlocked[trackerID] {
		out = append(out, model.UnlockedAchievement{ID: id, UnlockedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockedAt.Before(out[j].UnlockedAt) })
	return out, nil
}

func (m *Memory) UnlockAchievement(ctx context.Context, trackerID string, a model.UnlockedAchievement) (bool, error) {
	if trackerID == "" || a.ID == "" {
		return false, fmt.Errorf("unlock achievement: %w: tracker and achievement id required", ErrInvalid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.unlocked[trackerID]
	if set == nil {
		set = map[string]time.Time{}
		m.unlocked[trackerID] = set
	}
	if _, ok := set[a.ID]; ok {
		return false, nil
	}
	set[a.ID] = a.UnlockedAt
	return true, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
