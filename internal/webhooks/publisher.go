package webhooks

import (
	"context"
	"encoding/json"
	"log"

	"santatrack/internal/model"
)

// DefaultEventTypes are the events worth a webhook; paths and workshop chatter are not.
var DefaultEventTypes = []string{model.EventArrived, model.EventMilestone, model.EventAchievementUnlocked}

// Publisher enqueues tracker events for every configured URL.
type Publisher struct {
	Queue *Queue
	URLs  []string
	types map[string]struct{}
}

func NewPublisher(q *Queue, urls []string, eventTypes ...string) *Publisher {
	if len(eventTypes) == 0 {
		eventTypes = DefaultEventTypes
	}
	types := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}
	return &Publisher{Queue: q, URLs: urls, types: types}
}

// Emit queues ev for each URL when its type is subscribed.
func (p *Publisher) Emit(ctx context.Context, ev model.Event) {
	if len(p.URLs) == 0 {
		return
	}
	if _, ok := p.types[ev.Type]; !ok {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("webhooks: marshal %s: %v", ev.Type, err)
		return
	}
	for _, u := range p.URLs {
		p.Queue.Enqueue(u, ev.Type, body)
	}
}
