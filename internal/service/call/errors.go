package call

import (
	"errors"
)

var ErrBadCode = errors.New("code must be 4 digits")
