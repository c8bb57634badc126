package notify

import (
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TheMarco/sora-renderer/internal/domain"
)

func TestPublishFanOut(t *testing.T) {
	svc := NewService(zerolog.New(io.Discard))
	defer svc.Close()

	a, cancelA := svc.Subscribe(4)
	defer cancelA()
	b, cancelB := svc.Subscribe(4)
	defer cancelB()

	svc.Publish(Event{Kind: EventJobUpdated, JobID: "j1", Status: domain.JobStatusRunning})

	for _, ch := range []<-chan Event{a, b} {
		ev := <-ch
		if ev.Kind != EventJobUpdated || ev.JobID != "j1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	svc := NewService(zerolog.New(io.Discard))
	defer svc.Close()

	ch, cancel := svc.Subscribe(1)
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	// Publishing after cancel must not panic.
	svc.Publish(Event{Kind: EventAssetAdded, AssetID: "a1"})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	svc := NewService(zerolog.New(io.Discard))
	defer svc.Close()

	ch, cancel := svc.Subscribe(1)
	defer cancel()

	// Fill the buffer, then publish more; Publish must return immediately.
	svc.Publish(Event{Kind: EventJobUpdated, JobID: "j1"})
	svc.Publish(Event{Kind: EventJobUpdated, JobID: "j2"})
	svc.Publish(Event{Kind: EventJobUpdated, JobID: "j3"})

	ev := <-ch
	if ev.JobID != "j1" {
		t.Fatalf("expected first event retained, got %+v", ev)
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	svc := NewService(zerolog.New(io.Discard))
	svc.Close()
	ch, cancel := svc.Subscribe(1)
	defer cancel()
	if _, ok := <-ch; ok {
		t.Fatal("subscription after close should yield a closed channel")
	}
}
