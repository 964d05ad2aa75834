package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"santatrack/internal/model"
)

func TestDefaultCatalog(t *testing.T) {
	ds, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(ds) < 150 {
		t.Fatalf("catalog has %d entries", len(ds))
	}
	paris, ok := ByName(ds, "paris")
	if !ok {
		t.Fatal("Paris missing")
	}
	if paris.Region != "Europe" || paris.Timezone != "Europe/Paris" {
		t.Fatalf("unexpected Paris: %+v", paris)
	}
	rov, ok := ByName(ds, "Rovaniemi")
	if !ok || !rov.Special || rov.FunFact == "" {
		t.Fatalf("unexpected Rovaniemi: %+v", rov)
	}
	regions := Regions(ds)
	if len(regions) != 6 {
		t.Fatalf("regions = %v", regions)
	}
	if len(InRegion(ds, "oceania")) == 0 {
		t.Fatal("no Oceania destinations")
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "[]"},
		{"garbage", "{not: [a list"},
		{"duplicate", "- {name: A, region: X, lat: 1, lng: 1, timezone: UTC}\n- {name: a, region: X, lat: 2, lng: 2, timezone: UTC}"},
		{"latitude", "- {name: A, region: X, lat: 91, lng: 1, timezone: UTC}"},
		{"longitude", "- {name: A, region: X, lat: 1, lng: -181, timezone: UTC}"},
		{"timezone", "- {name: A, region: X, lat: 1, lng: 1, timezone: Mars/Olympus}"},
		{"region", "- {name: A, lat: 1, lng: 1, timezone: UTC}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); !errors.Is(err, ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cities.yaml")
	body := "- name: Paris\n  country: France\n  region: Europe\n  lat: 48.8566\n  lng: 2.3522\n  timezone: Europe/Paris\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds) != 1 || ds[0].Name != "Paris" {
		t.Fatalf("got %+v", ds)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLocalTime(t *testing.T) {
	now := time.Date(2025, 12, 25, 12, 0, 0, 0, time.UTC)
	tokyo := model.Destination{Name: "Tokyo", Timezone: "Asia/Tokyo"}
	if got := LocalTime(tokyo, now); got != "09:00 PM" {
		t.Fatalf("Tokyo local time = %q", got)
	}
	if got := LocalTime(model.Destination{Timezone: "Nowhere/Land"}, now); got == "" {
		t.Fatal("fallback produced empty string")
	}
}
