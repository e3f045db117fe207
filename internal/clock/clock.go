// Package clock pins all user-facing timestamps to one restaurant
// timezone and issues opaque identifiers for cart lines.
package clock

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Layout is the wall-clock format used in every stored and displayed
// timestamp.
const Layout = "2006-01-02 15:04:05"

const defaultZone = "Asia/Taipei"

type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New loads the given IANA zone (defaulting to Asia/Taipei when empty).
func New(zone string) (*Clock, error) {
	const op = "clock.New"

	if strings.TrimSpace(zone) == "" {
		zone = defaultZone
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixed returns a clock frozen at t, for tests.
func NewFixed(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Format renders t in the clock's zone using Layout.
func (c *Clock) Format(t time.Time) string {
	return t.In(c.loc).Format(Layout)
}

// NewLineID returns an opaque identifier for a cart line, unique within
// a cart and stable across edits.
func NewLineID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
