package api

import (
	"context"
	"testing"
	"time"

	"santatrack/internal/model"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t1")
	other := b.Subscribe("t2")

	BrokerSink(b, "t1").Emit(context.Background(), model.Event{ID: "e1", Type: "test.event", Data: map[string]any{"x": 1}})

	select {
	case got := <-ch:
		if got.Type != "test.event" || got.ID != "e1" {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-other:
		t.Fatalf("event leaked to another topic: %+v", got)
	default:
	}

	b.Unsubscribe("t1", ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	b.Unsubscribe("t1", ch) // second call is a no-op
	b.Unsubscribe("t2", other)
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("t")
	defer b.Unsubscribe("t", ch)
	for i := 0; i < cap(ch)+10; i++ {
		b.Publish("t", model.Event{Type: "x"})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffer len %d, want %d", len(ch), cap(ch))
	}
}

func TestTrailCacheLimits(t *testing.T) {
	c := NewTrailCache()
	ctx := context.Background()
	prev := model.Destination{Name: "Stop0"}
	for i := 1; i <= 60; i++ {
		to := model.Destination{Name: "Stop" + string(rune('A'+i%26))}
		from := prev
		c.Emit(ctx, model.Event{Type: model.EventArrived, TS: "ts", Data: model.Arrival{From: &from, To: to}})
		c.Emit(ctx, model.Event{Type: model.EventPath, Data: model.FlightPath{From: from.Name, To: to.Name}})
		prev = to
	}
	tr := c.Snapshot()
	if len(tr.Visited) != maxVisitedMarkers || len(tr.Paths) != maxFlightPaths {
		t.Fatalf("visited=%d paths=%d", len(tr.Visited), len(tr.Paths))
	}
	if tr.Current == nil || tr.Current.Name != prev.Name || tr.Paths[len(tr.Paths)-1].To != prev.Name {
		t.Fatalf("trail tail out of date: %+v", tr.Current)
	}

	c.Emit(ctx, model.Event{Type: model.EventModeChanged, Data: model.ModeChange{From: "delivery", To: "workshop"}})
	tr = c.Snapshot()
	if tr.Current != nil || len(tr.Visited) != 0 || len(tr.Paths) != 0 {
		t.Fatalf("mode change should reset the trail: %+v", tr)
	}
}
