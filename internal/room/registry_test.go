package room

import (
	"sort"
	"testing"
	"time"
)

func newTestRegistry(ttl time.Duration) (*Registry, *time.Time) {
	r := NewRegistry(ttl)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestLockGrantRefreshDeny(t *testing.T) {
	r, _ := newTestRegistry(12 * time.Second)

	ok, _ := r.Lock("4821", "L1", "connA", "Alice")
	if !ok {
		t.Fatal("first lock should be granted")
	}

	// Same connection refreshes freely.
	ok, _ = r.Lock("4821", "L1", "connA", "Alice")
	if !ok {
		t.Fatal("holder refresh should be granted")
	}

	ok, holder := r.Lock("4821", "L1", "connB", "Bob")
	if ok {
		t.Fatal("lock by another connection should be denied")
	}
	if holder != "Alice" {
		t.Errorf("denied holder = %q, want Alice", holder)
	}
}

func TestLockExpiryReclaim(t *testing.T) {
	r, now := newTestRegistry(12 * time.Second)

	if ok, _ := r.Lock("4821", "L1", "connA", "Alice"); !ok {
		t.Fatal("grant failed")
	}

	*now = now.Add(13 * time.Second)

	ok, _ := r.Lock("4821", "L1", "connB", "Bob")
	if !ok {
		t.Fatal("expired lock should be silently reclaimable")
	}
	if got := r.Blocker("4821", "L1", "connA"); got != "Bob" {
		t.Errorf("Blocker = %q, want Bob", got)
	}
}

func TestBlocker(t *testing.T) {
	r, now := newTestRegistry(12 * time.Second)

	r.Lock("4821", "L1", "connA", "Alice")

	if got := r.Blocker("4821", "L1", "connA"); got != "" {
		t.Errorf("holder should not be blocked, got %q", got)
	}
	if got := r.Blocker("4821", "L1", "connB"); got != "Alice" {
		t.Errorf("Blocker = %q, want Alice", got)
	}
	if got := r.Blocker("4821", "L2", "connB"); got != "" {
		t.Errorf("unlocked line should be free, got %q", got)
	}

	*now = now.Add(time.Minute)
	if got := r.Blocker("4821", "L1", "connB"); got != "" {
		t.Errorf("expired lock should be free, got %q", got)
	}
}

func TestUnlockOnlyHolder(t *testing.T) {
	r, _ := newTestRegistry(12 * time.Second)

	r.Lock("4821", "L1", "connA", "Alice")

	if r.Unlock("4821", "L1", "connB") {
		t.Fatal("non-holder unlock must be a no-op")
	}
	if got := r.Blocker("4821", "L1", "connB"); got != "Alice" {
		t.Fatal("lock should survive non-holder unlock")
	}
	if !r.Unlock("4821", "L1", "connA") {
		t.Fatal("holder unlock should succeed")
	}
}

func TestLeaveReleasesAllHeldLocks(t *testing.T) {
	r, _ := newTestRegistry(12 * time.Second)

	r.Join("4821", "connA", "Alice")
	r.Join("4821", "connB", "Bob")
	r.Lock("4821", "L1", "connA", "Alice")
	r.Lock("4821", "L2", "connA", "Alice")
	r.Lock("4821", "L3", "connB", "Bob")

	released := r.Leave("4821", "connA")
	sort.Strings(released)
	if len(released) != 2 || released[0] != "L1" || released[1] != "L2" {
		t.Errorf("released = %v, want [L1 L2]", released)
	}

	if got := r.Blocker("4821", "L3", "connA"); got != "Bob" {
		t.Error("other connection's lock must survive")
	}
	users := r.Users("4821")
	if len(users) != 1 || users[0].Nickname != "Bob" {
		t.Errorf("users = %v, want only Bob", users)
	}
}

func TestLocksViewIsRedacted(t *testing.T) {
	r, _ := newTestRegistry(12 * time.Second)

	r.Lock("4821", "L1", "connA", "Alice")
	view := r.Locks("4821")

	lv, ok := view["L1"]
	if !ok {
		t.Fatal("expected L1 in lock view")
	}
	if lv.ByName != "Alice" {
		t.Errorf("ByName = %q, want Alice", lv.ByName)
	}
}

func TestSetNicknameRequiresPresence(t *testing.T) {
	r, _ := newTestRegistry(12 * time.Second)

	if r.SetNickname("4821", "ghost", "Nobody") {
		t.Fatal("renaming an absent connection should fail")
	}

	r.Join("4821", "connA", "Alice")
	if !r.SetNickname("4821", "connA", "Alicia") {
		t.Fatal("rename should succeed")
	}
	if got := r.Users("4821")[0].Nickname; got != "Alicia" {
		t.Errorf("nickname = %q, want Alicia", got)
	}
}

func TestClearLocks(t *testing.T) {
	r, _ := newTestRegistry(12 * time.Second)

	r.Lock("4821", "L1", "connA", "Alice")
	r.Lock("4821", "L2", "connB", "Bob")

	released := r.ClearLocks("4821")
	if len(released) != 2 {
		t.Fatalf("released %d locks, want 2", len(released))
	}
	if len(r.Locks("4821")) != 0 {
		t.Error("locks should be empty after ClearLocks")
	}
}
