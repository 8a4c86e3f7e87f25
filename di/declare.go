package di

import (
	"reflect"
	"strconv"
)

// Declaration records model metadata for T into a Registry.
//
// Steps chain and stop at the first error, which Err reports:
//
//	err := di.Declare[TodoViewModel](di.DefaultRegistry()).
//		ViewModel("todoViewModel").
//		Inject("Store").
//		PostConstruct("Init").
//		Err()
type Declaration[T any] struct {
	reg *Registry
	typ reflect.Type
	err error
}

// Declare starts a declaration for T on r. A nil r means DefaultRegistry().
func Declare[T any](r *Registry) *Declaration[T] {
	if r == nil {
		r = defaultRegistry
	}
	return &Declaration[T]{reg: r, typ: reflect.TypeFor[T]()}
}

// Err returns the first error recorded by the chain.
func (d *Declaration[T]) Err() error { return d.err }

// ViewModel marks T as a view model, optionally bound to a name.
func (d *Declaration[T]) ViewModel(name ...string) *Declaration[T] {
	return d.model("ViewModel", KindViewModel, name)
}

// Store marks T as a store, optionally bound to a name.
func (d *Declaration[T]) Store(name ...string) *Declaration[T] {
	return d.model("Store", KindStore, name)
}

func (d *Declaration[T]) model(decorator string, kind Kind, name []string) *Declaration[T] {
	if d.err != nil {
		return d
	}
	if d.err = d.requireStruct(decorator); d.err != nil {
		return d
	}
	if len(name) > 1 {
		d.err = InvalidDecoratorTargetError{
			Decorator: decorator,
			Target:    d.typ.String(),
			Reason:    "at most one name, got " + strconv.Itoa(len(name)),
		}
		return d
	}
	var n string
	if len(name) == 1 {
		n = name[0]
	}
	d.err = d.reg.declareKind(d.typ, kind, n)
	return d
}

// Inject declares the exported field as a dependency. The field must be a
// pointer to a struct type; that struct type is what gets resolved.
func (d *Declaration[T]) Inject(field string) *Declaration[T] {
	if d.err != nil {
		return d
	}
	if d.err = d.requireStruct("Inject"); d.err != nil {
		return d
	}

	invalid := func(reason string) *Declaration[T] {
		d.err = InvalidDecoratorTargetError{Decorator: "Inject", Target: d.typ.String() + "." + field, Reason: reason}
		return d
	}

	sf, ok := d.typ.FieldByName(field)
	switch {
	case !ok:
		return invalid("no such field")
	case len(sf.Index) != 1:
		return invalid("field is promoted from an embedded struct")
	case !sf.IsExported():
		return invalid("field is unexported")
	case sf.Type.Kind() != reflect.Pointer || sf.Type.Elem().Kind() != reflect.Struct:
		return invalid("field type " + sf.Type.String() + " is not a pointer to a struct")
	}

	d.err = d.reg.addDependency(d.typ, Dependency{Field: field, Type: sf.Type.Elem()})
	return d
}

// PostConstruct declares the method on *T to call once after injection.
// The method takes no arguments. If its last result is an error and it is
// non-nil, resolution fails with a PostConstructError; other results are
// discarded. A later PostConstruct replaces an earlier one.
func (d *Declaration[T]) PostConstruct(method string) *Declaration[T] {
	if d.err != nil {
		return d
	}
	if d.err = d.requireStruct("PostConstruct"); d.err != nil {
		return d
	}

	m, ok := reflect.PointerTo(d.typ).MethodByName(method)
	if !ok {
		d.err = InvalidDecoratorTargetError{
			Decorator: "PostConstruct",
			Target:    d.typ.String() + "." + method,
			Reason:    "no such exported method on *" + d.typ.String(),
		}
		return d
	}
	// m.Type includes the receiver.
	if m.Type.NumIn() != 1 {
		d.err = InvalidDecoratorTargetError{
			Decorator: "PostConstruct",
			Target:    d.typ.String() + "." + method,
			Reason:    "method must take no arguments",
		}
		return d
	}

	d.reg.setPostConstruct(d.typ, method)
	return d
}

func (d *Declaration[T]) requireStruct(decorator string) error {
	if d.typ.Kind() != reflect.Struct {
		return InvalidDecoratorTargetError{Decorator: decorator, Target: d.typ.String(), Reason: "not a struct type"}
	}
	return nil
}

// ViewModel declares T as a view model on the default registry.
func ViewModel[T any](name ...string) error { return Declare[T](nil).ViewModel(name...).Err() }

// Store declares T as a store on the default registry.
func Store[T any](name ...string) error { return Declare[T](nil).Store(name...).Err() }

// Inject declares field as an injected dependency of T on the default registry.
func Inject[T any](field string) error { return Declare[T](nil).Inject(field).Err() }

// PostConstruct declares the post-construct hook of T on the default registry.
func PostConstruct[T any](method string) error { return Declare[T](nil).PostConstruct(method).Err() }

// Must panics if err is non-nil. Intended for declarations run from init.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}
