// Package room holds the process-wide, in-memory side of a session:
// who is connected, which cart lines are advisory-locked, and the
// fan-out of state snapshots to connected clients. Nothing in here is
// persisted; the durable stores remain the authority for cart content.
package room

import (
	"sync"
	"time"
)

// User is a presence entry as shown to the room.
type User struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// LockView is the redacted lock form broadcast to clients: the holder's
// display name only, never the connection id.
type LockView struct {
	ByName string `json:"byName"`
}

type lineLock struct {
	connID     string
	byName     string
	acquiredAt time.Time
}

type roomState struct {
	users map[string]string   // connID -> nickname
	locks map[string]lineLock // lineID -> lock
}

// Registry tracks presence and advisory line locks per session code.
// Locks carry a TTL so a crashed client cannot hold a line forever;
// expiry is checked lazily on access, and disconnect releases eagerly.
type Registry struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	rooms map[string]*roomState
}

func NewRegistry(lockTTL time.Duration) *Registry {
	if lockTTL <= 0 {
		lockTTL = 12 * time.Second
	}
	return &Registry{
		ttl:   lockTTL,
		now:   time.Now,
		rooms: make(map[string]*roomState),
	}
}

func (r *Registry) room(session string) *roomState {
	st, ok := r.rooms[session]
	if !ok {
		st = &roomState{
			users: make(map[string]string),
			locks: make(map[string]lineLock),
		}
		r.rooms[session] = st
	}
	return st
}

func (r *Registry) expired(l lineLock) bool {
	return r.now().Sub(l.acquiredAt) >= r.ttl
}

// Join registers a connection's presence in the session.
func (r *Registry) Join(session, connID, nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.room(session).users[connID] = nickname
}

// SetNickname renames an already-present connection. Unknown
// connections are ignored.
func (r *Registry) SetNickname(session, connID, nickname string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[session]
	if !ok {
		return false
	}
	if _, ok := st.users[connID]; !ok {
		return false
	}
	st.users[connID] = nickname
	return true
}

// Leave removes the connection's presence and releases every lock it
// holds, returning the released line ids so each release can be
// announced individually.
func (r *Registry) Leave(session, connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[session]
	if !ok {
		return nil
	}

	delete(st.users, connID)

	var released []string
	for lineID, l := range st.locks {
		if l.connID == connID {
			delete(st.locks, lineID)
			released = append(released, lineID)
		}
	}

	if len(st.users) == 0 && len(st.locks) == 0 {
		delete(r.rooms, session)
	}

	return released
}

// Users lists the session's presence entries.
func (r *Registry) Users(session string) []User {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[session]
	if !ok {
		return []User{}
	}

	out := make([]User, 0, len(st.users))
	for id, name := range st.users {
		out = append(out, User{ID: id, Nickname: name})
	}
	return out
}

// Locks returns the redacted lock map for broadcasting. Expired locks
// are reclaimed on the way out.
func (r *Registry) Locks(session string) map[string]LockView {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := map[string]LockView{}
	st, ok := r.rooms[session]
	if !ok {
		return out
	}

	for lineID, l := range st.locks {
		if r.expired(l) {
			delete(st.locks, lineID)
			continue
		}
		out[lineID] = LockView{ByName: l.byName}
	}
	return out
}

// Lock grants or refreshes an advisory lock on a cart line. A line
// locked by a different, unexpired holder is denied and the holder's
// display name is returned.
func (r *Registry) Lock(session, lineID, connID, byName string) (ok bool, holder string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.room(session)

	if cur, exists := st.locks[lineID]; exists && !r.expired(cur) && cur.connID != connID {
		return false, cur.byName
	}

	st.locks[lineID] = lineLock{connID: connID, byName: byName, acquiredAt: r.now()}
	return true, byName
}

// Unlock releases a lock if and only if the caller holds it.
func (r *Registry) Unlock(session, lineID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[session]
	if !ok {
		return false
	}

	cur, exists := st.locks[lineID]
	if !exists || cur.connID != connID {
		return false
	}

	delete(st.locks, lineID)
	return true
}

// Blocker returns the display name of a live lock holder other than
// connID, or "" when the line is free for that connection to mutate.
func (r *Registry) Blocker(session, lineID, connID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[session]
	if !ok {
		return ""
	}

	cur, exists := st.locks[lineID]
	if !exists || cur.connID == connID {
		return ""
	}
	if r.expired(cur) {
		delete(st.locks, lineID)
		return ""
	}
	return cur.byName
}

// ReleaseLine drops any lock on the line regardless of holder, used
// when the line itself is removed from the cart.
func (r *Registry) ReleaseLine(session, lineID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[session]
	if !ok {
		return false
	}

	if _, exists := st.locks[lineID]; !exists {
		return false
	}

	delete(st.locks, lineID)
	return true
}

// ClearLocks drops every lock in the session, returning the released
// line ids. Used after a successful submission.
func (r *Registry) ClearLocks(session string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[session]
	if !ok {
		return nil
	}

	released := make([]string, 0, len(st.locks))
	for lineID := range st.locks {
		released = append(released, lineID)
	}
	st.locks = make(map[string]lineLock)
	return released
}
