package therapist

import "errors"

// ErrInvalidTimeout is returned by New when CallTimeout cannot be parsed.
var ErrInvalidTimeout = errors.New("invalid call timeout")
