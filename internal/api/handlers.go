package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"santatrack/internal/catalog"
	"santatrack/internal/geo"
	"santatrack/internal/itinerary"
	"santatrack/internal/model"
	"santatrack/internal/schedule"
	"santatrack/internal/webhooks"
)

// heartbeatEvery is how often an idle SSE stream gets a heartbeat frame.
var heartbeatEvery = 15 * time.Second

// TrackerHandler handles GET /v1/tracker, GET /v1/tracker/countdown and
// POST /v1/tracker/{start|stop|advance}.
func (s *Server) TrackerHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/tracker"), "/")
	switch rest {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, s.Tracker.Status())
	case "countdown":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, s.Tracker.Countdown())
	case "start", "stop", "advance":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		if !s.requireAdmin(w, r) {
			return
		}
		var err error
		switch rest {
		case "start":
			err = s.Tracker.Start()
		case "stop":
			s.Tracker.Stop()
		case "advance":
			err = s.Tracker.AdvanceNow(r.Context())
		}
		if err != nil {
			status := http.StatusInternalServerError
			if isConfigError(err) {
				status = http.StatusConflict
			}
			writeProblem(w, status, "Tracker "+rest+" failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, s.Tracker.Status())
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	}
}

func isConfigError(err error) bool {
	return errors.Is(err, itinerary.ErrEmptyCatalog) ||
		errors.Is(err, itinerary.ErrInvalidUnitsRange) ||
		errors.Is(err, schedule.ErrInvalidBounds)
}

// DestinationsHandler handles GET /v1/destinations and GET /v1/destinations/{name}.
func (s *Server) DestinationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	cat := s.Tracker.Catalog()
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/destinations"), "/")
	if name != "" {
		d, ok := catalog.ByName(cat, name)
		if !ok {
			writeProblem(w, http.StatusNotFound, "Destination not found", name, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"destination": d,
			"localTime":   catalog.LocalTime(d, time.Now()),
		})
		return
	}
	items := cat
	if region := r.URL.Query().Get("region"); region != "" {
		items = catalog.InRegion(cat, region)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":   items,
		"count":   len(items),
		"regions": catalog.Regions(cat),
	})
}

// PathHandler handles GET /v1/path and returns the great-circle polyline
// between two stops or two coordinates.
func (s *Server) PathHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	req, err := s.parsePathRequest(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid path request", err.Error(), r.URL.Path)
		return
	}
	pts := geo.Interpolate(req.From, req.To, req.Segments)
	writeJSON(w, http.StatusOK, model.FlightPath{
		From:       req.FromName,
		To:         req.ToName,
		Points:     pts,
		Reindeer:   geo.Along(pts, 3),
		DistanceKm: geo.DistanceKm(req.From, req.To),
	})
}

// TrailHandler handles GET /v1/trail.
func (s *Server) TrailHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.Trail.Snapshot())
}

// AchievementsHandler handles GET /v1/achievements.
func (s *Server) AchievementsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	items := s.Tracker.Achievements()
	unlocked := 0
	for _, a := range items {
		if a.Unlocked {
			unlocked++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "unlocked": unlocked, "total": len(items)})
}

// EventsStreamHandler handles GET /v1/events/stream (SSE). An optional
// types=a,b query restricts the event types forwarded.
func (s *Server) EventsStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	want := typeFilter(r.URL.Query().Get("types"))
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	topic := s.Config.TrackerID
	ch := s.Broker.Subscribe(topic)
	defer s.Broker.Unsubscribe(topic, ch)

	// Initial snapshot so a fresh client can render before the next hop.
	writeSSE(w, "snapshot", map[string]any{"status": s.Tracker.Status(), "trail": s.Trail.Snapshot()})
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if !want(evt.Type) {
				continue
			}
			writeSSE(w, evt.Type, evt)
			flusher.Flush()
		case <-time.After(heartbeatEvery):
			writeSSE(w, model.EventHeartbeat, map[string]string{"ts": time.Now().UTC().Format(time.RFC3339)})
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, data any) {
	b, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", string(b))
}

// typeFilter returns a predicate matching a comma separated list of event
// types. An empty list matches everything.
func typeFilter(list string) func(string) bool {
	set := map[string]bool{}
	for _, t := range strings.Split(list, ",") {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = true
		}
	}
	return func(typ string) bool { return len(set) == 0 || set[typ] }
}

// WebhookDeliveriesHandler handles GET /v1/webhooks/deliveries?status= and
// POST /v1/webhooks/deliveries/{id}/retry.
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/webhooks/deliveries"), "/")
	if rest == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		status := r.URL.Query().Get("status")
		switch status {
		case "", webhooks.StatusPending, webhooks.StatusDelivered, webhooks.StatusFailed:
		default:
			writeProblem(w, http.StatusBadRequest, "Invalid status", status, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": s.Queue.List(status)})
		return
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "retry" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !s.Queue.Retry(parts[0]) {
		writeProblem(w, http.StatusNotFound, "Delivery not found", parts[0], r.URL.Path)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": parts[0], "status": webhooks.StatusPending})
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Ready handles GET /readyz; the store must answer a ping.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	st := s.Tracker.Status()
	writeJSON(w, http.StatusOK, map[string]any{"ready": true, "state": st.State, "mode": st.Mode})
}
