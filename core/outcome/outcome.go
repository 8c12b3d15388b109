// Package outcome provides the tri-state result used at every external
// boundary: a value was produced, the dependency was not available, or the
// dependency failed.
package outcome

import "fmt"

// Kind classifies an Outcome.
type Kind int

const (
	Ok Kind = iota
	Unavailable
	Failed
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Ok:
		return "ok"
	case Unavailable:
		return "unavailable"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome carries the result of a call to an external collaborator.
// Value is meaningful only when Kind is Ok; Err only when Kind is Failed.
type Outcome[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Of wraps a successful value.
func Of[T any](value T) Outcome[T] {
	return Outcome[T]{Kind: Ok, Value: value}
}

// Absent reports that no collaborator was configured or reachable.
func Absent[T any]() Outcome[T] {
	return Outcome[T]{Kind: Unavailable}
}

// Fail wraps a collaborator error.
func Fail[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: Failed, Err: err}
}

// From converts a conventional (value, error) pair into an Outcome.
func From[T any](value T, err error) Outcome[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Of(value)
}

// IsOk reports whether the outcome holds a value.
func (o Outcome[T]) IsOk() bool {
	return o.Kind == Ok
}

// Get returns the value and whether it is present.
func (o Outcome[T]) Get() (T, bool) {
	return o.Value, o.Kind == Ok
}

// Error returns an error describing a non-Ok outcome, or nil.
func (o Outcome[T]) Error() error {
	switch o.Kind {
	case Ok:
		return nil
	case Unavailable:
		return ErrUnavailable
	default:
		if o.Err == nil {
			return ErrFailed
		}
		return o.Err
	}
}
