package eventbus

import (
	"testing"
	"time"
)

func recvOne(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: TypeTaskStarted, Data: "x"})
	e := recvOne(t, ch)
	if e.Type != TypeTaskStarted {
		t.Fatalf("Type = %q, want %q", e.Type, TypeTaskStarted)
	}
	if e.Time.IsZero() {
		t.Fatal("Publish should stamp a zero Time")
	}
}

func TestSubscribeTypeFilter(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4, TypeTaskFailed, TypeTaskCompleted)
	defer unsub()

	b.Publish(Event{Type: TypeTaskStarted})
	b.Publish(Event{Type: TypeTaskFailed})

	e := recvOne(t, ch)
	if e.Type != TypeTaskFailed {
		t.Fatalf("filtered subscriber got %q, want %q", e.Type, TypeTaskFailed)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected extra event %q", e.Type)
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	// Must not panic even though the channel is closed.
	b.Publish(Event{Type: TypeTaskCanceled})
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: TypeTaskStarted})
	b.Publish(Event{Type: TypeTaskCompleted}) // buffer full: dropped, not blocked

	e := recvOne(t, ch)
	if e.Type != TypeTaskStarted {
		t.Fatalf("got %q, want first published event", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("second event should have been dropped, got %q", e.Type)
	default:
	}
}
