package tracker

import (
	"testing"
	"time"
)

func TestUntilChristmas(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		text string
		xmas bool
	}{
		{"seconds left", time.Date(2025, 12, 24, 23, 59, 30, 0, time.UTC), "0m 30s", false},
		{"hours left", time.Date(2025, 12, 24, 22, 30, 0, 0, time.UTC), "1h 30m", false},
		{"days left", time.Date(2025, 12, 20, 6, 0, 0, 0, time.UTC), "4d 18h", false},
		{"christmas morning", time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC), "🎄 IT'S CHRISTMAS!", true},
		{"boxing day", time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC), "364d 0h", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UntilChristmas(tt.now)
			if got.Text != tt.text || got.IsChristmas != tt.xmas {
				t.Fatalf("got %+v, want text %q christmas=%v", got, tt.text, tt.xmas)
			}
		})
	}
}

func TestUntilChristmasUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	// 16:00 UTC on the 24th is already Christmas in Tokyo
	now := time.Date(2025, 12, 24, 16, 0, 0, 0, time.UTC)
	if !IsChristmas(now.In(tokyo)) || IsChristmas(now) {
		t.Fatalf("IsChristmas should follow the location")
	}
	if !UntilChristmas(now.In(tokyo)).IsChristmas {
		t.Fatalf("countdown should be done in Tokyo")
	}
}

func TestHopText(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "0s",
		-time.Second:            "0s",
		1500 * time.Millisecond: "2s",
		30 * time.Second:        "30s",
	}
	for d, want := range cases {
		if got := HopText(d); got != want {
			t.Fatalf("HopText(%s) = %q, want %q", d, got, want)
		}
	}
}
