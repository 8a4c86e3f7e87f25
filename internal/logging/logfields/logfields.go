// Package logfields defines common logging fields which are used across packages
package logfields

const (
	// LogSubsys is the field denoting the subsystem when logging
	LogSubsys = "subsys"

	// Model is the Go type of the model being resolved or observed
	Model = "model"

	// Name is the declared model name
	Name = "name"

	// Kind is the declared model kind (ViewModel, Store)
	Kind = "kind"

	// Field is a struct field on a model
	Field = "field"

	// Path is a dependency resolution path
	Path = "path"

	// Listeners is the number of snapshot listeners registered on an instance
	Listeners = "listeners"

	// Rounds is the number of listener notification rounds
	Rounds = "rounds"

	// Items is the number of items held by a store
	Items = "items"

	// File is a file path read or written by a command
	File = "file"
)
