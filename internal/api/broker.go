package api

import (
	"context"
	"sync"

	"santatrack/internal/metrics"
	"santatrack/internal/model"
	"santatrack/internal/tracker"
)

// EventBroker fans tracker events out to stream subscribers per topic.
// The topic is the tracker id.
type EventBroker interface {
	Subscribe(topic string) chan model.Event
	Unsubscribe(topic string, ch chan model.Event)
	Publish(topic string, evt model.Event)
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan model.Event]struct{} // topic -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan model.Event]struct{}{}}
}

func (b *Broker) Subscribe(topic string) chan model.Event {
	ch := make(chan model.Event, 32)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[chan model.Event]struct{}{}
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	metrics.StreamSubscribers.Inc()
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan model.Event) {
	b.mu.Lock()
	m := b.subs[topic]
	_, ok := m[ch]
	if ok {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, topic)
		}
	}
	b.mu.Unlock()
	if ok {
		close(ch)
		metrics.StreamSubscribers.Dec()
	}
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (b *Broker) Publish(topic string, evt model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[topic] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// BrokerSink publishes tracker events on topic.
func BrokerSink(b EventBroker, topic string) tracker.Sink {
	return tracker.SinkFunc(func(_ context.Context, ev model.Event) { b.Publish(topic, ev) })
}
