// Package itinerary picks Santa's next stop and keeps the running delivery counters.
//
// Nothing in here performs I/O: callers pass the current State in and get a new
// State back, so the package can be exercised without timers or a network.
package itinerary

import (
	"errors"
	"fmt"

	"santatrack/internal/model"
)

var (
	ErrEmptyCatalog      = errors.New("itinerary: empty catalog")
	ErrInvalidUnitsRange = errors.New("itinerary: invalid units range")
)

// Source is the randomness the engine draws from. *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// UnitsRange bounds the presents delivered per stop, both ends inclusive.
type UnitsRange struct {
	Min int
	Max int
}

func (u UnitsRange) validate() error {
	if u.Min < 0 || u.Min > u.Max {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidUnitsRange, u.Min, u.Max)
	}
	return nil
}

// State is the itinerary owned by a single tracker run.
type State struct {
	Current        *model.Destination
	StopsVisited   int
	UnitsDelivered int64
	RegionsTouched map[string]struct{}
}

// NewState returns an empty state with no current destination.
func NewState() State {
	return State{RegionsTouched: map[string]struct{}{}}
}

// Regions returns the touched regions in no particular order.
func (s State) Regions() []string {
	out := make([]string, 0, len(s.RegionsTouched))
	for r := range s.RegionsTouched {
		out = append(out, r)
	}
	return out
}

// Transition is what the rendering side needs to animate one hop.
type Transition struct {
	From          *model.Destination
	To            model.Destination
	UnitsThisStop int
}

// PickNext draws uniformly from catalog, redrawing while the result has the same
// name as exclude. When no entry differs from exclude (a one-entry catalog) the
// draw is returned as is.
func PickNext(rng Source, catalog []model.Destination, exclude *model.Destination) (model.Destination, error) {
	if len(catalog) == 0 {
		return model.Destination{}, ErrEmptyCatalog
	}
	if exclude == nil || !hasAlternative(catalog, exclude.Name) {
		return catalog[rng.Intn(len(catalog))], nil
	}
	for {
		d := catalog[rng.Intn(len(catalog))]
		if d.Name != exclude.Name {
			return d, nil
		}
	}
}

func hasAlternative(catalog []model.Destination, name string) bool {
	for _, d := range catalog {
		if d.Name != name {
			return true
		}
	}
	return false
}

// Advance moves to the next destination and bumps the counters. The input state
// is not modified.
func Advance(rng Source, state State, catalog []model.Destination, units UnitsRange) (State, Transition, error) {
	if err := units.validate(); err != nil {
		return state, Transition{}, err
	}
	next, err := PickNext(rng, catalog, state.Current)
	if err != nil {
		return state, Transition{}, fmt.Errorf("advance: %w", err)
	}
	delivered := units.Min + rng.Intn(units.Max-units.Min+1)

	regions := make(map[string]struct{}, len(state.RegionsTouched)+1)
	for r := range state.RegionsTouched {
		regions[r] = struct{}{}
	}
	if next.Region != "" {
		regions[next.Region] = struct{}{}
	}

	to := next
	out := State{
		Current:        &to,
		StopsVisited:   state.StopsVisited + 1,
		UnitsDelivered: state.UnitsDelivered + int64(delivered),
		RegionsTouched: regions,
	}
	return out, Transition{From: state.Current, To: next, UnitsThisStop: delivered}, nil
}
