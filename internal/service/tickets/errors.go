package tickets

import (
	"errors"
)

var (
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTicketNotFound    = errors.New("ticket not found")
)
