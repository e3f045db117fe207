package live

import (
	"errors"
)

var ErrUnknownCommand = errors.New("unknown command type")
