package di

import (
	"fmt"
	"reflect"
	"sort"
)

var errorType = reflect.TypeFor[error]()

// Props is a property bag assigned onto a new instance after its
// dependencies. Keys are exported field names.
type Props map[string]any

// Instantiate builds a new *T: dependencies are resolved through inj (and
// cached there as singletons), props are assigned, and the post-construct
// hook runs. The returned instance itself is not cached.
//
// A nil inj means DefaultInjector().
func Instantiate[T any](inj *Injector, props Props) (*T, error) {
	if inj == nil {
		inj = DefaultInjector()
	}
	v, err := inj.Instantiate(reflect.TypeFor[T](), props)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// Instantiate builds a new instance of the struct type t. See Instantiate[T].
func (inj *Injector) Instantiate(t reflect.Type, props Props) (any, error) {
	if err := checkResolvable(t); err != nil {
		return nil, err
	}
	desc, _ := inj.registry.Descriptor(t)
	return inj.instantiate(t, desc, props)
}

func checkResolvable(t reflect.Type) error {
	if t == nil {
		return UnresolvableTypeError{Type: "<nil>"}
	}
	if t.Kind() != reflect.Struct {
		return UnresolvableTypeError{Type: t.String()}
	}
	return nil
}

func (inj *Injector) instantiate(t reflect.Type, desc Descriptor, props Props) (any, error) {
	if err := inj.enter(t); err != nil {
		return nil, err
	}
	defer inj.leave()

	deps := make([]reflect.Value, len(desc.Dependencies))
	for i, dep := range desc.Dependencies {
		v, err := inj.get(dep.Type, nil)
		if err != nil {
			return nil, DependencyError{Type: t.String(), Field: dep.Field, Err: err}
		}
		deps[i] = reflect.ValueOf(v)
	}

	ptr := reflect.New(t)
	elem := ptr.Elem()
	for i, dep := range desc.Dependencies {
		elem.FieldByName(dep.Field).Set(deps[i])
	}
	if err := assignProps(elem, props); err != nil {
		return nil, err
	}

	if desc.PostConstruct != "" {
		if err := callPostConstruct(ptr, desc.PostConstruct); err != nil {
			return nil, err
		}
	}
	return ptr.Interface(), nil
}

// enter pushes t on the in-flight path, failing if t is already on it.
func (inj *Injector) enter(t reflect.Type) error {
	for i, inFlight := range inj.resolving {
		if inFlight != t {
			continue
		}
		path := make([]string, 0, len(inj.resolving)-i+1)
		for _, p := range inj.resolving[i:] {
			path = append(path, p.String())
		}
		path = append(path, t.String())
		return CircularDependencyError{Path: path}
	}
	inj.resolving = append(inj.resolving, t)
	return nil
}

func (inj *Injector) leave() {
	inj.resolving = inj.resolving[:len(inj.resolving)-1]
}

func assignProps(elem reflect.Value, props Props) error {
	if len(props) == 0 {
		return nil
	}
	t := elem.Type()

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		sf, ok := t.FieldByName(key)
		if !ok {
			return PropertyError{Type: t.String(), Key: key, Reason: "no such field"}
		}
		if !sf.IsExported() {
			return PropertyError{Type: t.String(), Key: key, Reason: "field is unexported"}
		}
		field, err := elem.FieldByIndexErr(sf.Index)
		if err != nil {
			return PropertyError{Type: t.String(), Key: key, Reason: err.Error()}
		}
		if !field.CanSet() {
			return PropertyError{Type: t.String(), Key: key, Reason: "field is not settable"}
		}
		val, err := propValue(sf.Type, props[key])
		if err != nil {
			return PropertyError{Type: t.String(), Key: key, Reason: err.Error()}
		}
		field.Set(val)
	}
	return nil
}

func propValue(ft reflect.Type, raw any) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(ft), nil
	}
	v := reflect.ValueOf(raw)
	if v.Type().AssignableTo(ft) {
		return v, nil
	}
	if sameKindClass(v.Kind(), ft.Kind()) && v.Type().ConvertibleTo(ft) {
		return v.Convert(ft), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %s to %s", v.Type(), ft)
}

func sameKindClass(a, b reflect.Kind) bool {
	class := func(k reflect.Kind) int {
		switch k {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
			reflect.Float32, reflect.Float64:
			return 1
		case reflect.String:
			return 2
		case reflect.Bool:
			return 3
		default:
			return 0
		}
	}
	ca := class(a)
	return ca != 0 && ca == class(b)
}

// callPostConstruct invokes the hook, converting a panic into an error
// wrapping ErrHookPanic.
func callPostConstruct(ptr reflect.Value, method string) (err error) {
	typeName := ptr.Type().Elem().String()
	m := ptr.MethodByName(method)
	if !m.IsValid() {
		return InvalidDecoratorTargetError{
			Decorator: "PostConstruct",
			Target:    typeName + "." + method,
			Reason:    "no such exported method on *" + typeName,
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s.%s: %v", ErrHookPanic, typeName, method, rec)
		}
	}()

	out := m.Call(nil)
	if n := len(out); n > 0 && m.Type().Out(n-1) == errorType && !out[n-1].IsNil() {
		return PostConstructError{Type: typeName, Method: method, Err: out[n-1].Interface().(error)}
	}
	return nil
}
