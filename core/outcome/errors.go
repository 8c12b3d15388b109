package outcome

import "errors"

// Sentinel errors returned by Outcome.Error for non-Ok outcomes without a
// more specific cause.
var (
	ErrUnavailable = errors.New("collaborator unavailable")
	ErrFailed      = errors.New("collaborator failed")
)
