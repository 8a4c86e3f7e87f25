package di

import (
	"errors"
	"strconv"
	"strings"
)

// ErrHookPanic is returned (wrapped) when a post-construct hook panics.
var ErrHookPanic = errors.New("di: panic during post-construct hook")

// InvalidDecoratorTargetError is returned when a declaration is applied to a
// target it does not support: a non-struct type, an unknown or unexported
// field, a field that is not a pointer to a struct, or a missing method.
type InvalidDecoratorTargetError struct {
	// Decorator is the declaration that failed (ViewModel, Store, Inject, PostConstruct).
	Decorator string
	// Target is the type (and member, if any) the declaration was applied to.
	Target string
	// Reason says what is wrong with the target.
	Reason string
}

// Error implements the error interface.
func (e InvalidDecoratorTargetError) Error() string {
	// Example: di: invalid Inject target "todo.ViewModel.store": field is unexported
	return "di: invalid " + e.Decorator + " target " + strconv.Quote(e.Target) + ": " + e.Reason
}

// KindConflictError is returned when a type already declared with one model
// kind is declared with the other one.
type KindConflictError struct {
	Type      string
	Existing  Kind
	Requested Kind
}

// Error implements the error interface.
func (e KindConflictError) Error() string {
	// Example: di: "todo.Store" already declared as Store, cannot declare as ViewModel
	return "di: " + strconv.Quote(e.Type) + " already declared as " + e.Existing.String() +
		", cannot declare as " + e.Requested.String()
}

// NameCollisionError is returned when a model name is already bound to a
// different type.
type NameCollisionError struct {
	Name      string
	Existing  string
	Requested string
}

// Error implements the error interface.
func (e NameCollisionError) Error() string {
	// Example: di: model name "todos" already bound to todo.Store, cannot bind to todo.Other
	return "di: model name " + strconv.Quote(e.Name) + " already bound to " + e.Existing +
		", cannot bind to " + e.Requested
}

// CircularDependencyError is returned when resolving a type requires that same
// type again further down the dependency chain.
type CircularDependencyError struct {
	// Path lists the types in resolution order, ending with the repeated one.
	Path []string
}

// Error implements the error interface.
func (e CircularDependencyError) Error() string {
	// Example: di: circular dependency: a.A -> a.B -> a.A
	return "di: circular dependency: " + strings.Join(e.Path, " -> ")
}

// UnresolvableTypeError is returned when Get or Instantiate is asked for a
// type that is not a struct.
type UnresolvableTypeError struct{ Type string }

// Error implements the error interface.
func (e UnresolvableTypeError) Error() string {
	return "di: cannot resolve " + strconv.Quote(e.Type) + ": not a struct type"
}

// PropertyError is returned when a property bag entry cannot be assigned.
type PropertyError struct {
	Type   string
	Key    string
	Reason string
}

// Error implements the error interface.
func (e PropertyError) Error() string {
	// Example: di: property "Title" on todo.Store: cannot assign int to string
	return "di: property " + strconv.Quote(e.Key) + " on " + e.Type + ": " + e.Reason
}

// PostConstructError wraps a non-nil error returned by a post-construct hook.
type PostConstructError struct {
	Type   string
	Method string
	Err    error
}

// Error implements the error interface.
func (e PostConstructError) Error() string {
	return "di: post-construct " + e.Type + "." + e.Method + ": " + e.Err.Error()
}

// Unwrap returns the hook's error.
func (e PostConstructError) Unwrap() error { return e.Err }

// DependencyError reports which injected field failed to resolve.
type DependencyError struct {
	Type  string
	Field string
	Err   error
}

// Error implements the error interface.
func (e DependencyError) Error() string {
	return "di: resolve " + e.Type + "." + e.Field + ": " + e.Err.Error()
}

// Unwrap returns the dependency's resolution error.
func (e DependencyError) Unwrap() error { return e.Err }
