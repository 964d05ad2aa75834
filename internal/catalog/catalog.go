// Package catalog provides the static list of destinations Santa can visit.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"santatrack/internal/model"
)

//go:embed destinations.yaml
var embedded []byte

var ErrInvalid = errors.New("catalog: invalid")

// Workshop is where Santa waits for the rest of the year.
var Workshop = model.Destination{
	Name:     "Santa's Workshop",
	Country:  "North Pole",
	Region:   "Arctic",
	Lat:      90,
	Lng:      0,
	Timezone: "UTC",
	Special:  true,
}

// Default returns the embedded catalog.
func Default() ([]model.Destination, error) {
	return Parse(embedded)
}

// Load reads a catalog file, or the embedded one when path is empty.
func Load(path string) ([]model.Destination, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML list of destinations.
func Parse(data []byte) ([]model.Destination, error) {
	var out []model.Destination
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks the catalog is non-empty with unique, well-formed entries.
func Validate(ds []model.Destination) error {
	if len(ds) == 0 {
		return fmt.Errorf("%w: no destinations", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(ds))
	for i, d := range ds {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return fmt.Errorf("%w: entry %d has no name", ErrInvalid, i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate destination %q", ErrInvalid, name)
		}
		seen[key] = struct{}{}
		if d.Lat < -90 || d.Lat > 90 {
			return fmt.Errorf("%w: %s latitude %v out of range", ErrInvalid, name, d.Lat)
		}
		if d.Lng < -180 || d.Lng > 180 {
			return fmt.Errorf("%w: %s longitude %v out of range", ErrInvalid, name, d.Lng)
		}
		if d.Region == "" {
			return fmt.Errorf("%w: %s has no region", ErrInvalid, name)
		}
		if _, err := time.LoadLocation(d.Timezone); err != nil || d.Timezone == "" {
			return fmt.Errorf("%w: %s timezone %q", ErrInvalid, name, d.Timezone)
		}
	}
	return nil
}

// ByName finds a destination, ignoring case.
func ByName(ds []model.Destination, name string) (model.Destination, bool) {
	name = strings.TrimSpace(name)
	for _, d := range ds {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return model.Destination{}, false
}

// Regions lists the distinct regions, sorted.
func Regions(ds []model.Destination) []string {
	set := map[string]struct{}{}
	for _, d := range ds {
		set[d.Region] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// InRegion returns the destinations of one region (case-insensitive).
func InRegion(ds []model.Destination, region string) []model.Destination {
	out := []model.Destination{}
	for _, d := range ds {
		if strings.EqualFold(d.Region, region) {
			out = append(out, d)
		}
	}
	return out
}

// LocalTime formats now on the destination's wall clock, e.g. "09:30 PM".
// Unknown zones fall back to the server's local time.
func LocalTime(d model.Destination, now time.Time) string {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		loc = time.Local
	}
	return now.In(loc).Format("03:04 PM")
}
