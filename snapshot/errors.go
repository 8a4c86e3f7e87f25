package snapshot

import (
	"errors"
	"strconv"
)

var (
	// ErrInvalidInstance is returned when an instance is not a non-nil pointer to a struct.
	ErrInvalidInstance = errors.New("snapshot: instance must be a non-nil pointer to a struct")

	// ErrNilListener is returned by OnSnapshot for a nil listener.
	ErrNilListener = errors.New("snapshot: nil listener")

	// ErrNotifyLoop is returned when listeners keep changing the instance they
	// observe for more rounds than the bridge allows.
	ErrNotifyLoop = errors.New("snapshot: notification loop")
)

// UnknownFieldError is returned when a snapshot or patch names a key that is
// not an observable field of the instance.
type UnknownFieldError struct {
	Type string
	Key  string
}

// Error implements the error interface.
func (e UnknownFieldError) Error() string {
	// Example: snapshot: todo.Store has no observable field "nope"
	return "snapshot: " + e.Type + " has no observable field " + strconv.Quote(e.Key)
}

// FieldError is returned when a field value cannot be converted to or from
// its plain snapshot form.
type FieldError struct {
	Type string
	Key  string
	Err  error
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return "snapshot: field " + strconv.Quote(e.Key) + " on " + e.Type + ": " + e.Err.Error()
}

// Unwrap returns the underlying encoding error.
func (e FieldError) Unwrap() error { return e.Err }
