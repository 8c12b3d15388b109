package llm

import "errors"

var (
	ErrEmptyCompletion = errors.New("completion returned no text")
	ErrUnknownProvider = errors.New("unknown completion provider")
)
