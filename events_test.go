package volume

import "testing"

func TestEventSinkDeliversToSubscriber(t *testing.T) {
	s := newEventSink()
	var got Event
	count := 0
	s.subscribe(EventLoadingComplete, func(e Event) {
		got = e
		count++
	})
	s.emit(Event{Type: EventLoadingComplete, Level: 2})
	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
	if got.Level != 2 {
		t.Fatalf("got level %d, want 2", got.Level)
	}
}

func TestEventSinkIgnoresOtherTypes(t *testing.T) {
	s := newEventSink()
	count := 0
	s.subscribe(EventLoadingComplete, func(Event) { count++ })
	s.emit(Event{Type: EventLoadingStart})
	if count != 0 {
		t.Fatalf("expected 0 deliveries for a different event type, got %d", count)
	}
}

func TestCallbackHandleUnsubscribe(t *testing.T) {
	s := newEventSink()
	count := 0
	h := s.subscribe(EventTimeChange, func(Event) { count++ })
	h.Unsubscribe()
	s.emit(Event{Type: EventTimeChange})
	if count != 0 {
		t.Fatalf("expected no deliveries after unsubscribe, got %d", count)
	}
}

func TestEventSinkSurvivesPanickingHandler(t *testing.T) {
	s := newEventSink()
	s.subscribe(EventLoadingError, func(Event) { panic("boom") })
	secondCalled := false
	s.subscribe(EventLoadingError, func(Event) { secondCalled = true })
	s.emit(Event{Type: EventLoadingError})
	if !secondCalled {
		t.Fatal("expected the second handler to still run after the first panicked")
	}
}

func TestEventSinkMultipleHandlersInOrder(t *testing.T) {
	s := newEventSink()
	var order []int
	s.subscribe(EventPopulateComplete, func(Event) { order = append(order, 1) })
	s.subscribe(EventPopulateComplete, func(Event) { order = append(order, 2) })
	s.emit(Event{Type: EventPopulateComplete})
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected handlers to fire in registration order, got %v", order)
	}
}
