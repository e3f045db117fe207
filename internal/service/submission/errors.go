package submission

import (
	"errors"
)

var (
	// ErrEmptyCart is the "nothing to submit" signal, not a storage
	// failure.
	ErrEmptyCart       = errors.New("cart is empty")
	ErrSessionNotFound = errors.New("session not found")
	// ErrInFlight means another request holds the idempotency lock for
	// the same key and has not stored a result yet.
	ErrInFlight = errors.New("submission in flight")
)
