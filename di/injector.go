package di

import (
	"errors"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sghaida/modi/internal/logging"
	"github.com/sghaida/modi/internal/logging/logfields"
)

// Injector resolves model types into singleton instances.
//
// Every type resolved through Get is constructed once and cached for the
// injector's lifetime under its type and, when declared, its model name.
// There is no eviction.
//
// An Injector is not safe for concurrent use. Wiring is expected to happen
// from a single goroutine, usually during startup.
type Injector struct {
	registry *Registry
	log      logrus.FieldLogger

	byType map[reflect.Type]any
	byName map[string]any
	names  map[any]string

	// resolving is the in-flight path of the current resolution.
	resolving []reflect.Type
}

// Option configures an Injector.
type Option func(*Injector)

// WithRegistry makes the injector read metadata from r instead of DefaultRegistry().
func WithRegistry(r *Registry) Option {
	return func(inj *Injector) {
		if r != nil {
			inj.registry = r
		}
	}
}

// WithLogger sets the logger used for resolution events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(inj *Injector) {
		if l != nil {
			inj.log = l
		}
	}
}

// NewInjector returns an empty injector.
func NewInjector(opts ...Option) *Injector {
	inj := &Injector{
		registry: defaultRegistry,
		log:      logging.Subsystem("di"),
		byType:   map[reflect.Type]any{},
		byName:   map[string]any{},
		names:    map[any]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inj)
		}
	}
	return inj
}

var (
	defaultMu       sync.Mutex
	defaultInjector *Injector
)

// DefaultInjector returns the process-wide injector, creating it on first use.
func DefaultInjector() *Injector {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultInjector == nil {
		defaultInjector = NewInjector()
	}
	return defaultInjector
}

// ResetDefaultInjector drops the process-wide injector and everything it
// cached. The next DefaultInjector call creates a fresh one.
func ResetDefaultInjector() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultInjector = nil
}

// Registry returns the metadata registry the injector reads.
func (inj *Injector) Registry() *Registry { return inj.registry }

// Get returns the cached *T, resolving it on first request. Props are only
// used when the instance is constructed; they are ignored on a cache hit.
//
// A nil inj means DefaultInjector().
func Get[T any](inj *Injector, props Props) (*T, error) {
	if inj == nil {
		inj = DefaultInjector()
	}
	v, err := inj.Get(reflect.TypeFor[T](), props)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// MustGet is Get that panics on error.
func MustGet[T any](inj *Injector, props Props) *T {
	v, err := Get[T](inj, props)
	if err != nil {
		panic(err)
	}
	return v
}

// Get returns the cached instance (a pointer to t), resolving it on first
// request. See Get[T].
func (inj *Injector) Get(t reflect.Type, props Props) (any, error) {
	if err := checkResolvable(t); err != nil {
		return nil, err
	}
	return inj.get(t, props)
}

func (inj *Injector) get(t reflect.Type, props Props) (any, error) {
	if v, ok := inj.byType[t]; ok {
		return v, nil
	}

	desc, _ := inj.registry.Descriptor(t)
	if desc.Name != "" {
		if v, ok := inj.byName[desc.Name]; ok {
			if reflect.TypeOf(v).Elem() != t {
				return nil, NameCollisionError{
					Name:      desc.Name,
					Existing:  reflect.TypeOf(v).Elem().String(),
					Requested: t.String(),
				}
			}
			return v, nil
		}
	}

	v, err := inj.instantiate(t, desc, props)
	if err != nil {
		if len(inj.resolving) == 0 {
			scopedLog := inj.log.WithField(logfields.Model, t.String())
			var cycle CircularDependencyError
			if errors.As(err, &cycle) {
				scopedLog.WithField(logfields.Path, cycle.Path).Warn("Circular dependency detected")
			} else {
				scopedLog.WithError(err).Warn("Unable to resolve model")
			}
		}
		return nil, err
	}

	inj.byType[t] = v
	if desc.Name != "" {
		inj.byName[desc.Name] = v
		inj.names[v] = desc.Name
	}

	inj.log.WithFields(logrus.Fields{
		logfields.Model: t.String(),
		logfields.Name:  desc.Name,
		logfields.Kind:  desc.Kind.String(),
	}).Debug("Resolved model")
	return v, nil
}

// Dump returns the named instances keyed by model name. The map is a copy;
// the instances are the cached ones.
func (inj *Injector) Dump() map[string]any {
	out := make(map[string]any, len(inj.byName))
	for name, v := range inj.byName {
		out[name] = v
	}
	return out
}

// Len returns the number of cached instances.
func (inj *Injector) Len() int { return len(inj.byType) }

// ModelName returns the name instance was cached under, if it was resolved
// by this injector from a named model.
func (inj *Injector) ModelName(instance any) (string, bool) {
	if instance == nil || reflect.TypeOf(instance).Kind() != reflect.Pointer {
		return "", false
	}
	name, ok := inj.names[instance]
	return name, ok
}

// ModelName returns the model name bound to instance by the default
// injector, or "" when it has none.
func ModelName(instance any) string {
	name, _ := DefaultInjector().ModelName(instance)
	return name
}
