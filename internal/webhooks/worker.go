package webhooks

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"santatrack/internal/metrics"
)

type Worker struct {
	Queue       *Queue
	HTTP        *http.Client
	Stop        chan struct{}
	MaxAttempts int
	Secret      string
	Limiter     *rate.Limiter
}

// NewWorker builds a worker that sends at most rps requests per second.
func NewWorker(q *Queue, secret string, maxAttempts int, rps float64) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Worker{
		Queue:       q,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		Stop:        make(chan struct{}),
		MaxAttempts: maxAttempts,
		Secret:      secret,
		Limiter:     rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items := w.Queue.Due(50)
	for _, it := range items {
		if w.Limiter != nil {
			if err := w.Limiter.Wait(ctx); err != nil {
				// out of time this round; the rest stay due
				return
			}
		}
		w.deliver(ctx, it)
	}
}

func (w *Worker) deliver(ctx context.Context, it Delivery) {
	success := false
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
	if err != nil {
		w.Queue.Fail(it.ID, err.Error(), 0, 0)
		metrics.WebhookDeliveries.WithLabelValues(it.EventType, StatusFailed).Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", it.EventType)
	req.Header.Set("X-Delivery-Id", it.ID)
	req.Header.Set("X-Attempt", strconv.Itoa(it.Attempts+1))
	if w.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(w.Secret, it.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := int(time.Since(start).Milliseconds())
	code := 0
	if err == nil && resp != nil {
		code = resp.StatusCode
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		if code >= 200 && code < 300 {
			success = true
		}
	}
	lastErr := ""
	if !success {
		if err != nil {
			lastErr = err.Error()
		} else {
			lastErr = "unexpected status " + strconv.Itoa(code)
		}
	}
	status := "ok"
	if !success {
		status = "error"
	}
	metrics.WebhookLatency.WithLabelValues(it.EventType, status).Observe(float64(latency))

	if !success && it.Attempts+1 >= w.MaxAttempts {
		log.Printf("webhook id=%s url=%s type=%s giving up after %d attempts: %s", it.ID, it.URL, it.EventType, it.Attempts+1, lastErr)
		w.Queue.Fail(it.ID, lastErr, code, latency)
		metrics.WebhookDeliveries.WithLabelValues(it.EventType, StatusFailed).Inc()
		return
	}
	w.Queue.Mark(it.ID, success, time.Now().Add(nextBackoff(it.Attempts)), lastErr, code, latency)
	if success {
		metrics.WebhookDeliveries.WithLabelValues(it.EventType, StatusDelivered).Inc()
	} else {
		metrics.WebhookDeliveries.WithLabelValues(it.EventType, "retry").Inc()
	}
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
