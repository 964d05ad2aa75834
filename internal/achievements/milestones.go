package achievements

import (
	"fmt"

	"santatrack/internal/model"
)

// Milestone fires once when either threshold is crossed.
type Milestone struct {
	Presents int64
	Cities   int
	Message  string
}

func (m Milestone) key() string {
	if m.Presents > 0 {
		return fmt.Sprintf("p%d", m.Presents)
	}
	return fmt.Sprintf("c%d", m.Cities)
}

var Milestones = []Milestone{
	{Presents: 100_000, Message: "100,000 presents delivered! 🎉"},
	{Presents: 500_000, Message: "Half a million gifts! Amazing! 🌟"},
	{Presents: 1_000_000, Message: "ONE MILLION PRESENTS! 🎊🎁🎊"},
	{Presents: 5_000_000, Message: "5 MILLION! Santa's on fire! 🔥"},
	{Cities: 10, Message: "10 cities visited! 🌍"},
	{Cities: 25, Message: "25 cities! Quarter century! 🗺️"},
	{Cities: 50, Message: "50 cities around the world! 🌎"},
	{Cities: 100, Message: "100 CITIES! World Tour Complete! 🏆"},
}

// MilestoneTracker remembers which milestones a run has already announced.
// Not safe for concurrent use; the tracker calls it under its own lock.
type MilestoneTracker struct {
	hit map[string]struct{}
}

func NewMilestoneTracker() *MilestoneTracker {
	return &MilestoneTracker{hit: map[string]struct{}{}}
}

// Check returns the milestones crossed for the first time.
func (t *MilestoneTracker) Check(presents int64, cities int) []model.Milestone {
	var out []model.Milestone
	for _, m := range Milestones {
		k := m.key()
		if _, ok := t.hit[k]; ok {
			continue
		}
		if (m.Presents > 0 && presents >= m.Presents) || (m.Cities > 0 && cities >= m.Cities) {
			t.hit[k] = struct{}{}
			out = append(out, model.Milestone{Key: k, Message: m.Message})
		}
	}
	return out
}

// Reset forgets announced milestones, e.g. when a new season starts.
func (t *MilestoneTracker) Reset() {
	t.hit = map[string]struct{}{}
}
