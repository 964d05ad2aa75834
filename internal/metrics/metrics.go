package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Stops counts completed hops by destination region
	Stops = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "santa_stops_total", Help: "Destinations visited by region."},
		[]string{"region"},
	)
	// PresentsDelivered is the running total for the current run
	PresentsDelivered = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "santa_presents_delivered", Help: "Presents delivered in the current run."},
	)
	// PresentsMade is the workshop production total for the current run
	PresentsMade = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "santa_presents_made", Help: "Presents made by the elves in the current run."},
	)
	// RegionsVisited is the number of distinct regions touched
	RegionsVisited = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "santa_regions_visited", Help: "Distinct regions visited in the current run."},
	)
	// NextHopSeconds is the countdown to the next scheduled hop
	NextHopSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "santa_next_hop_seconds", Help: "Seconds until the next scheduled hop."},
	)
	// AdvanceDuration tracks how long a hop takes to compute and publish
	AdvanceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "santa_advance_duration_seconds", Help: "Time spent computing and publishing a hop.", Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5}},
	)
	// AdvanceErrors counts hops that failed by reason
	AdvanceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "santa_advance_errors_total", Help: "Failed hops by reason."},
		[]string{"reason"},
	)
	// AchievementsUnlocked counts unlocks by achievement id
	AchievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "santa_achievements_unlocked_total", Help: "Achievements unlocked by id."},
		[]string{"id"},
	)
	// Mode is 1 for the active tracker mode and 0 otherwise
	Mode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "santa_tracker_mode", Help: "Active tracker mode."},
		[]string{"mode"},
	)
	// StreamSubscribers is the number of live SSE/WebSocket clients
	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "santa_stream_subscribers", Help: "Connected event stream clients."},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(Stops, PresentsDelivered, PresentsMade, RegionsVisited, NextHopSeconds)
		Registry.MustRegister(AdvanceDuration, AdvanceErrors, AchievementsUnlocked, Mode, StreamSubscribers)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// SetMode flips the mode gauge so exactly one mode reads 1.
func SetMode(active string) {
	for _, m := range []string{"delivery", "workshop"} {
		v := 0.0
		if m == active {
			v = 1
		}
		Mode.WithLabelValues(m).Set(v)
	}
}
