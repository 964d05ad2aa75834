package tracker

import (
	"fmt"
	"math"
	"time"

	"santatrack/internal/model"
)

// IsChristmas reports whether t falls on 25 December in t's location.
func IsChristmas(t time.Time) bool {
	return t.Month() == time.December && t.Day() == 25
}

// UntilChristmas counts down to the next Christmas midnight in now's location.
// On Christmas Day itself the countdown is zero.
func UntilChristmas(now time.Time) model.ChristmasCountdown {
	year := now.Year()
	if now.Month() == time.December && now.Day() > 25 {
		year++
	}
	christmas := time.Date(year, time.December, 25, 0, 0, 0, 0, now.Location())
	diff := christmas.Sub(now)
	if diff <= 0 {
		return model.ChristmasCountdown{IsChristmas: true, Text: "🎄 IT'S CHRISTMAS!"}
	}
	c := model.ChristmasCountdown{
		Days:    int(diff / (24 * time.Hour)),
		Hours:   int(diff % (24 * time.Hour) / time.Hour),
		Minutes: int(diff % time.Hour / time.Minute),
		Seconds: int(diff % time.Minute / time.Second),
	}
	switch {
	case c.Days > 0:
		c.Text = fmt.Sprintf("%dd %dh", c.Days, c.Hours)
	case c.Hours > 0:
		c.Text = fmt.Sprintf("%dh %dm", c.Hours, c.Minutes)
	default:
		c.Text = fmt.Sprintf("%dm %ds", c.Minutes, c.Seconds)
	}
	return c
}

// HopText renders the time to the next stop in whole seconds, rounded up.
func HopText(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%ds", int64(math.Ceil(remaining.Seconds())))
}
