package api

import (
	"context"
	"sync"

	"santatrack/internal/model"
)

const (
	maxVisitedMarkers = 50
	maxFlightPaths    = 20
)

// Marker is a stop Santa already left.
type Marker struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	TS   string  `json:"ts"`
}

// Trail is what a map client needs to draw the journey so far.
type Trail struct {
	Current *model.Destination `json:"current,omitempty"`
	Visited []Marker           `json:"visited"`
	Paths   []model.FlightPath `json:"paths"`
}

// TrailCache keeps the recent journey so new clients can draw it without
// replaying events. It is a tracker sink.
type TrailCache struct {
	mu      sync.Mutex
	current *model.Destination
	visited []Marker
	paths   []model.FlightPath
}

// NewTrailCache constructs an empty TrailCache.
func NewTrailCache() *TrailCache { return &TrailCache{} }

func (c *TrailCache) Emit(_ context.Context, ev model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Type {
	case model.EventArrived:
		a, ok := ev.Data.(model.Arrival)
		if !ok {
			return
		}
		if a.From != nil {
			c.visited = append(c.visited, Marker{Name: a.From.Name, Lat: a.From.Lat, Lng: a.From.Lng, TS: ev.TS})
			if n := len(c.visited); n > maxVisitedMarkers {
				c.visited = append([]Marker(nil), c.visited[n-maxVisitedMarkers:]...)
			}
		}
		to := a.To
		c.current = &to
	case model.EventPath:
		p, ok := ev.Data.(model.FlightPath)
		if !ok {
			return
		}
		c.paths = append(c.paths, p)
		if n := len(c.paths); n > maxFlightPaths {
			c.paths = append([]model.FlightPath(nil), c.paths[n-maxFlightPaths:]...)
		}
	case model.EventModeChanged:
		c.current, c.visited, c.paths = nil, nil, nil
	}
}

// Snapshot returns a copy of the trail.
func (c *TrailCache) Snapshot() Trail {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Trail{
		Visited: append([]Marker{}, c.visited...),
		Paths:   append([]model.FlightPath{}, c.paths...),
	}
	if c.current != nil {
		cur := *c.current
		t.Current = &cur
	}
	return t
}
