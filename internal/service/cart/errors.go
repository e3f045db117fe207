package cart

import (
	"errors"
)

var (
	// ErrSessionNotFound covers both an unknown code and an expired
	// session on a strict operation.
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrRateLimited     = errors.New("rate limited")
	ErrCodesExhausted  = errors.New("session code space exhausted")
)
