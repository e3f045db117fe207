package clock

import (
	"testing"
	"time"
)

func TestFormatUsesConfiguredZone(t *testing.T) {
	c, err := New("Asia/Taipei")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	utc := time.Date(2024, 3, 1, 16, 30, 0, 0, time.UTC)
	got := c.Format(utc)
	want := "2024-03-02 00:30:00"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestNewDefaultsZone(t *testing.T) {
	c, err := New("  ")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.loc.String() != defaultZone {
		t.Errorf("zone = %q, want %q", c.loc.String(), defaultZone)
	}
}

func TestNewRejectsBadZone(t *testing.T) {
	if _, err := New("Not/AZone"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestNowUsesConfiguredZone(t *testing.T) {
	fixed := time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC)
	c := NewFixed(fixed)

	if got := c.Now(); !got.Equal(fixed) {
		t.Errorf("Now = %v, want %v", got, fixed)
	}
}

func TestNewLineIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewLineID()
		if len(id) != 32 {
			t.Fatalf("line id %q has length %d, want 32", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate line id %q", id)
		}
		seen[id] = true
	}
}
