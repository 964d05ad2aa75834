package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"santatrack/internal/api"
	"santatrack/internal/buildinfo"
	"santatrack/internal/config"
	"santatrack/internal/metrics"
	"santatrack/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srvDeps, err := api.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	defer func() { _ = srvDeps.Close() }()

	mux := http.NewServeMux()

	// Tracker
	mux.HandleFunc("/v1/tracker", srvDeps.TrackerHandler)
	mux.HandleFunc("/v1/tracker/", srvDeps.TrackerHandler) // countdown, start, stop, advance

	// Catalog and geometry
	mux.HandleFunc("/v1/destinations", srvDeps.DestinationsHandler)
	mux.HandleFunc("/v1/destinations/", srvDeps.DestinationsHandler)
	mux.HandleFunc("/v1/path", srvDeps.PathHandler)
	mux.HandleFunc("/v1/trail", srvDeps.TrailHandler)
	mux.HandleFunc("/v1/achievements", srvDeps.AchievementsHandler)

	// Streams
	mux.HandleFunc("/v1/events/stream", srvDeps.EventsStreamHandler)
	mux.HandleFunc("/v1/ws", srvDeps.WSHandler)

	// Admin
	mux.HandleFunc("/v1/webhooks/deliveries", srvDeps.WebhookDeliveriesHandler)
	mux.HandleFunc("/v1/webhooks/deliveries/", srvDeps.WebhookDeliveriesHandler)

	// Health, metrics, docs
	mux.HandleFunc("/healthz", srvDeps.Health)
	mux.HandleFunc("/readyz", srvDeps.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/info", srvDeps.DebugJSON)
	mux.HandleFunc("/openapi.yaml", srvDeps.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", srvDeps.OpenAPIJSONHandler)
	mux.HandleFunc("/docs", srvDeps.DocsHandler)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start webhook worker
	if len(cfg.WebhookURLs) > 0 {
		worker := srvDeps.NewWebhookWorker()
		worker.Start()
		defer close(worker.Stop)
	}

	go func() {
		if err := srvDeps.Tracker.Run(ctx, cfg.SeasonCheckEvery); err != nil {
			log.Printf("tracker=%s not running: %v", cfg.TrackerID, err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("API listening on %s version=%s tracker=%s mode=%s", addr, buildinfo.Version, cfg.TrackerID, cfg.Mode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	srvDeps.Tracker.Stop()
	log.Printf("API stopped")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = strconv.FormatInt(start.UnixNano(), 36)
		}
		w.Header().Set("X-Request-Id", reqID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(obs.WithRequestID(r.Context(), reqID)))
		dur := time.Since(start)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, routeLabel(r.URL.Path), status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, routeLabel(r.URL.Path), status).Observe(dur.Seconds())
		log.Printf("req_id=%s %s %s %s status=%d dur=%v", reqID, r.RemoteAddr, r.Method, r.URL.Path, rec.status, dur)
	})
}

// knownRoutes are the exact paths served by the mux.
var knownRoutes = map[string]bool{
	"/v1/tracker":             true,
	"/v1/tracker/countdown":   true,
	"/v1/tracker/start":       true,
	"/v1/tracker/stop":        true,
	"/v1/tracker/advance":     true,
	"/v1/destinations":        true,
	"/v1/path":                true,
	"/v1/trail":               true,
	"/v1/achievements":        true,
	"/v1/events/stream":       true,
	"/v1/ws":                  true,
	"/v1/webhooks/deliveries": true,
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/debug/info":             true,
	"/openapi.yaml":           true,
	"/openapi.json":           true,
	"/docs":                   true,
}

// routeLabel maps a request path to a bounded set of metric labels.
// Anything not served by a registered route is "other".
func routeLabel(p string) string {
	if knownRoutes[p] {
		return p
	}
	if name, ok := strings.CutPrefix(p, "/v1/destinations/"); ok && name != "" && !strings.Contains(name, "/") {
		return "/v1/destinations/{name}"
	}
	if rest, ok := strings.CutPrefix(p, "/v1/webhooks/deliveries/"); ok {
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[0] != "" && parts[1] == "retry" {
			return "/v1/webhooks/deliveries/{id}/retry"
		}
	}
	return "other"
}
