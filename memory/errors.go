package memory

import "errors"

// ErrUnknownProvider is returned by NewProvider for an unrecognized
// Config.Provider value.
var ErrUnknownProvider = errors.New("unknown memory provider")
