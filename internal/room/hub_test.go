package room

import "testing"

func TestPublishReachesAllRoomConnections(t *testing.T) {
	h := NewHub()

	chA := h.Attach("4821", "connA")
	chB := h.Attach("4821", "connB")
	chOther := h.Attach("9999", "connC")

	h.Publish("4821", Event{Name: "state", Data: "s1"})

	for _, ch := range []<-chan Event{chA, chB} {
		select {
		case ev := <-ch:
			if ev.Name != "state" {
				t.Errorf("event name = %q, want state", ev.Name)
			}
		default:
			t.Fatal("room subscriber missed the event")
		}
	}
	select {
	case ev := <-chOther:
		t.Fatalf("other room received %v", ev)
	default:
	}
}

func TestPublishToTargetsSingleConnection(t *testing.T) {
	h := NewHub()

	chA := h.Attach("4821", "connA")
	chB := h.Attach("4821", "connB")

	h.PublishTo("4821", "connA", Event{Name: "rejected"})

	select {
	case <-chA:
	default:
		t.Fatal("target connection missed the event")
	}
	select {
	case <-chB:
		t.Fatal("non-target connection received the event")
	default:
	}
}

func TestBroadcastCrossesRooms(t *testing.T) {
	h := NewHub()

	chA := h.Attach("4821", "connA")
	chB := h.Attach("9999", "connB")

	h.Broadcast(Event{Name: "call_update", Data: "1234"})

	for _, ch := range []<-chan Event{chA, chB} {
		select {
		case <-ch:
		default:
			t.Fatal("broadcast should reach every room")
		}
	}
}

func TestDetachClosesChannel(t *testing.T) {
	h := NewHub()

	ch := h.Attach("4821", "connA")
	h.Detach("4821", "connA")

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after Detach")
	}
	if got := h.ConnCount(); got != 0 {
		t.Errorf("ConnCount = %d, want 0", got)
	}

	// Publishing to an empty room must not panic.
	h.Publish("4821", Event{Name: "state"})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()

	var dropped int
	h.OnDrop = func(session, connID string) {
		if session != "4821" || connID != "connA" {
			t.Errorf("OnDrop(%q, %q)", session, connID)
		}
		dropped++
	}

	h.Attach("4821", "connA")
	for i := 0; i < connBuffer+3; i++ {
		h.Publish("4821", Event{Name: "state", Data: i})
	}

	if dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}
}
