package di

import (
	"reflect"
	"sort"
	"sync"
)

// Kind is the model kind recorded by a ViewModel or Store declaration.
type Kind uint8

const (
	// KindNone marks a type with no model declaration (plain struct, or only
	// Inject/PostConstruct declarations).
	KindNone Kind = iota
	KindViewModel
	KindStore
)

// String returns the declaration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindViewModel:
		return "ViewModel"
	case KindStore:
		return "Store"
	default:
		return "none"
	}
}

// Dependency is one injected field: the field name on the model and the
// struct type the field points to.
type Dependency struct {
	Field string
	Type  reflect.Type
}

// Descriptor is the metadata recorded for one model type.
type Descriptor struct {
	Type reflect.Type
	Kind Kind
	// Name is the declared model name, or "" when none was given. Unnamed
	// models are cached by type only and do not appear in Injector.Dump.
	Name string
	// Dependencies are kept in declaration order.
	Dependencies []Dependency
	// PostConstruct is the name of a method on *Type, or "".
	PostConstruct string
}

// IsModel reports whether the type was declared as a ViewModel or Store.
func (d Descriptor) IsModel() bool { return d.Kind != KindNone }

func (d *Descriptor) clone() Descriptor {
	cp := *d
	if len(d.Dependencies) > 0 {
		cp.Dependencies = make([]Dependency, len(d.Dependencies))
		copy(cp.Dependencies, d.Dependencies)
	}
	return cp
}

// Registry is the metadata table filled by declarations and read by
// injectors and the snapshot bridge.
//
// It is keyed by type identity. Lookups return copies, so the only way to
// change a Descriptor is through a Declaration.
type Registry struct {
	mu     sync.RWMutex
	models map[reflect.Type]*Descriptor
	names  map[string]reflect.Type
}

var defaultRegistry = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		models: map[reflect.Type]*Descriptor{},
		names:  map[string]reflect.Type{},
	}
}

// DefaultRegistry returns the process-wide registry used by the package-level
// declarations and by DefaultInjector.
func DefaultRegistry() *Registry { return defaultRegistry }

// Descriptor returns the metadata recorded for t.
func (r *Registry) Descriptor(t reflect.Type) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.models[t]
	if !ok {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// Lookup returns the type bound to a model name.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.names[name]
	return t, ok
}

// IsDependency reports whether field is declared as an injected dependency of t.
func (r *Registry) IsDependency(t reflect.Type, field string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.models[t]
	if !ok {
		return false
	}
	for _, dep := range d.Dependencies {
		if dep.Field == field {
			return true
		}
	}
	return false
}

// Entries returns a copy of every descriptor, ordered by type name.
func (r *Registry) Entries() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.models))
	for _, d := range r.models {
		out = append(out, d.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type.String() < out[j].Type.String() })
	return out
}

// Count returns the number of types with recorded metadata.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Reset clears all recorded metadata.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = map[reflect.Type]*Descriptor{}
	r.names = map[string]reflect.Type{}
}

// entry returns the descriptor for t, creating it. Callers hold r.mu.
func (r *Registry) entry(t reflect.Type) *Descriptor {
	d, ok := r.models[t]
	if !ok {
		d = &Descriptor{Type: t}
		r.models[t] = d
	}
	return d
}

func (r *Registry) declareKind(t reflect.Type, kind Kind, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.models[t]; ok && d.Kind != KindNone && d.Kind != kind {
		return KindConflictError{Type: t.String(), Existing: d.Kind, Requested: kind}
	}
	if name != "" {
		if bound, ok := r.names[name]; ok && bound != t {
			return NameCollisionError{Name: name, Existing: bound.String(), Requested: t.String()}
		}
	}

	d := r.entry(t)
	d.Kind = kind
	if name != "" && name != d.Name {
		if d.Name != "" {
			delete(r.names, d.Name)
		}
		d.Name = name
		r.names[name] = t
	}
	return nil
}

func (r *Registry) addDependency(t reflect.Type, dep Dependency) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.entry(t)
	for _, existing := range d.Dependencies {
		if existing.Field == dep.Field {
			return InvalidDecoratorTargetError{
				Decorator: "Inject",
				Target:    t.String() + "." + dep.Field,
				Reason:    "field already injected",
			}
		}
	}
	d.Dependencies = append(d.Dependencies, dep)
	return nil
}

func (r *Registry) setPostConstruct(t reflect.Type, method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(t).PostConstruct = method
}
