package api

import (
	"net/http"
	"time"

	"santatrack/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Config
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 c.Port,
			"TRACKER_ID":           c.TrackerID,
			"TRACKER_MODE":         c.Mode,
			"MOVE_INTERVAL":        c.MoveIntervalMin.String() + ".." + c.MoveIntervalMax.String(),
			"PRESENTS_PER_STOP":    []int{c.PresentsMin, c.PresentsMax},
			"PATH_SEGMENTS":        c.PathSegments,
			"SEASON_TZ":            c.SeasonTZ,
			"AUTH_MODE":            c.AuthMode,
			"WEBHOOK_URLS":         len(c.WebhookURLs),
			"WEBHOOK_MAX_ATTEMPTS": c.WebhookMaxAttempts,
			"HAS_DATABASE_URL":     c.DatabaseURL != "",
			"HAS_SQLITE_PATH":      c.SQLitePath != "",
			"HAS_REDIS_URL":        c.RedisURL != "",
		},
		"destinations": len(s.Tracker.Catalog()),
	})
}
