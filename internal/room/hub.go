package room

import "sync"

// Event is one named payload pushed to a connected client.
type Event struct {
	Name string
	Data any
}

const connBuffer = 32

type subscriber struct {
	id string
	ch chan Event
}

// Hub fans events out to connected clients, room-scoped by session
// code. Delivery is best-effort: a consumer that cannot drain its
// buffer has events dropped rather than stalling the whole room.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[string]*subscriber

	// OnDrop, when set, observes each event dropped on a full buffer.
	OnDrop func(session, connID string)
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]*subscriber)}
}

// Attach registers a connection in a session's room and returns its
// event channel. The channel is closed by Detach.
func (h *Hub) Attach(session, connID string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[session]
	if !ok {
		subs = make(map[string]*subscriber)
		h.rooms[session] = subs
	}

	sub := &subscriber{id: connID, ch: make(chan Event, connBuffer)}
	subs[connID] = sub
	return sub.ch
}

// Detach removes the connection and closes its channel.
func (h *Hub) Detach(session, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[session]
	if !ok {
		return
	}

	sub, ok := subs[connID]
	if !ok {
		return
	}

	delete(subs, connID)
	if len(subs) == 0 {
		delete(h.rooms, session)
	}
	close(sub.ch)
}

// Publish delivers an event to every connection in the session's room.
func (h *Hub) Publish(session string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.rooms[session] {
		h.send(session, sub, ev)
	}
}

// PublishTo delivers an event to a single connection.
func (h *Hub) PublishTo(session, connID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.rooms[session][connID]; ok {
		h.send(session, sub, ev)
	}
}

// Broadcast delivers an event to every connection in every room. Used
// for the global call announcement channel.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for session, subs := range h.rooms {
		for _, sub := range subs {
			h.send(session, sub, ev)
		}
	}
}

// ConnCount reports the number of attached connections.
func (h *Hub) ConnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, subs := range h.rooms {
		n += len(subs)
	}
	return n
}

func (h *Hub) send(session string, sub *subscriber, ev Event) {
	select {
	case sub.ch <- ev:
	default:
		if h.OnDrop != nil {
			h.OnDrop(session, sub.id)
		}
	}
}
