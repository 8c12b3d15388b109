package checkpoint

import "errors"

// Sentinel errors for checkpoint backends.
var (
	ErrPathRequired = errors.New("checkpoint path required")
	ErrLoadFailed   = errors.New("checkpoint load failed")
	ErrSaveFailed   = errors.New("checkpoint save failed")
)
