package webhooks

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Delivery is one queued POST of an event to a subscriber URL.
type Delivery struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	EventType     string    `json:"eventType"`
	Payload       []byte    `json:"-"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"nextAttemptAt"`
	LastError     string    `json:"lastError,omitempty"`
	ResponseCode  int       `json:"responseCode,omitempty"`
	LatencyMs     int       `json:"latencyMs,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Queue holds deliveries in memory. Finished deliveries are kept for
// inspection up to a fixed history size.
type Queue struct {
	mu      sync.Mutex
	items   map[string]*Delivery
	history int
	now     func() time.Time
}

func NewQueue() *Queue {
	return &Queue{items: map[string]*Delivery{}, history: 200, now: time.Now}
}

// Enqueue adds a delivery that is due immediately.
func (q *Queue) Enqueue(url, eventType string, payload []byte) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	d := &Delivery{
		ID:            uuid.NewString(),
		URL:           url,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	q.items[d.ID] = d
	q.trimLocked()
	return d.ID
}

// Due returns up to limit pending deliveries whose next attempt has come.
func (q *Queue) Due(limit int) []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	var out []Delivery
	for _, d := range q.items {
		if d.Status == StatusPending && !d.NextAttemptAt.After(now) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Mark records an attempt. A failed attempt is retried at next.
func (q *Queue) Mark(id string, success bool, next time.Time, lastErr string, code, latencyMs int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.items[id]
	if !ok {
		return
	}
	d.Attempts++
	d.ResponseCode = code
	d.LatencyMs = latencyMs
	d.LastError = lastErr
	if success {
		d.Status = StatusDelivered
		return
	}
	d.NextAttemptAt = next
}

// Fail gives up on a delivery.
func (q *Queue) Fail(id string, lastErr string, code, latencyMs int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.items[id]
	if !ok {
		return
	}
	d.Attempts++
	d.Status = StatusFailed
	d.LastError = lastErr
	d.ResponseCode = code
	d.LatencyMs = latencyMs
}

// Retry makes a failed delivery pending again.
func (q *Queue) Retry(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.items[id]
	if !ok || d.Status != StatusFailed {
		return false
	}
	d.Status = StatusPending
	d.Attempts = 0
	d.NextAttemptAt = q.now()
	return true
}

// List returns deliveries newest first, optionally filtered by status.
func (q *Queue) List(status string) []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := []Delivery{}
	for _, d := range q.items {
		if status == "" || d.Status == status {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// trimLocked drops the oldest finished deliveries beyond the history size.
func (q *Queue) trimLocked() {
	var done []*Delivery
	for _, d := range q.items {
		if d.Status != StatusPending {
			done = append(done, d)
		}
	}
	if len(done) <= q.history {
		return
	}
	sort.Slice(done, func(i, j int) bool { return done[i].CreatedAt.Before(done[j].CreatedAt) })
	for _, d := range done[:len(done)-q.history] {
		delete(q.items, d.ID)
	}
}
