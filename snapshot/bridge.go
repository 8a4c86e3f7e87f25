package snapshot

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/sghaida/modi/di"
	"github.com/sghaida/modi/internal/logging"
)

// Snapshot is a plain copy of an instance's observable state: nil, bool,
// json.Number, string, []any and map[string]any values only. Numbers are kept
// as json.Number so 64-bit integers survive a round trip.
type Snapshot = map[string]any

// Listener receives the new snapshot after each change. Each listener gets
// its own copy.
type Listener func(Snapshot)

// DefaultMaxNotifyRounds bounds how many times listeners are re-notified
// when they keep changing the instance they observe.
const DefaultMaxNotifyRounds = 32

// Bridge reads and writes the observable state of model instances and
// notifies listeners when it changes.
//
// Changes are observed when they go through the bridge: Apply, Patch,
// ApplyJSONPatch and Mutate. Writing fields directly outside Mutate is not
// seen until the next observed change.
type Bridge struct {
	registry  *di.Registry
	log       logrus.FieldLogger
	maxRounds int

	mu       sync.Mutex
	trackers map[any]*tracker
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRegistry sets the registry used to exclude injected dependency fields
// from snapshots. The default is di.DefaultRegistry().
func WithRegistry(r *di.Registry) Option {
	return func(b *Bridge) {
		if r != nil {
			b.registry = r
		}
	}
}

// WithLogger sets the logger used for notification events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMaxNotifyRounds overrides DefaultMaxNotifyRounds. Values below 1 are ignored.
func WithMaxNotifyRounds(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.maxRounds = n
		}
	}
}

// New returns a bridge with no listeners.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		registry:  di.DefaultRegistry(),
		log:       logging.Subsystem("snapshot"),
		maxRounds: DefaultMaxNotifyRounds,
		trackers:  map[any]*tracker{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Get returns a deep plain copy of the instance's observable state.
func (b *Bridge) Get(instance any) (Snapshot, error) {
	v, err := structValue(instance)
	if err != nil {
		return nil, err
	}
	return b.read(v)
}

// Apply replaces the instance's observable state with s. Observable fields
// absent from s are reset to their zero value. Fields whose value already
// equals the one in s are not written. If s cannot be decoded the instance is
// left unchanged.
func (b *Bridge) Apply(instance any, s Snapshot) error {
	v, err := structValue(instance)
	if err != nil {
		return err
	}
	return b.change(instance, v, func() error {
		scratch, err := b.decode(v, s)
		if err != nil {
			return err
		}
		b.assign(v, scratch)
		return nil
	})
}

// Patch merges patch into the instance's state following JSON merge patch
// (RFC 7386): nested objects merge, a nil value resets the field, and keys
// not in patch are untouched. The whole patch is decoded before anything is
// written, and listeners are notified once.
func (b *Bridge) Patch(instance any, patch Snapshot) error {
	v, err := structValue(instance)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		return nil
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("snapshot: encode patch: %w", err)
	}
	return b.rewrite(instance, v, func(doc []byte) ([]byte, error) {
		merged, err := jsonpatch.MergePatch(doc, patchJSON)
		if err != nil {
			return nil, fmt.Errorf("snapshot: merge patch: %w", err)
		}
		return merged, nil
	})
}

// ApplyJSONPatch applies RFC 6902 operations (add, remove, replace, move,
// copy, test) to the instance's state. Like Patch it is all-or-nothing.
func (b *Bridge) ApplyJSONPatch(instance any, ops []byte) error {
	v, err := structValue(instance)
	if err != nil {
		return err
	}
	patch, err := jsonpatch.DecodePatch(ops)
	if err != nil {
		return fmt.Errorf("snapshot: decode json patch: %w", err)
	}
	return b.rewrite(instance, v, func(doc []byte) ([]byte, error) {
		out, err := patch.Apply(doc)
		if err != nil {
			return nil, fmt.Errorf("snapshot: apply json patch: %w", err)
		}
		return out, nil
	})
}

// Mutate runs fn and notifies listeners if it changed the observable state.
func (b *Bridge) Mutate(instance any, fn func()) error {
	v, err := structValue(instance)
	if err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	return b.change(instance, v, func() error {
		fn()
		return nil
	})
}

// rewrite transforms the JSON form of the current snapshot and commits the
// fields the transform changed.
func (b *Bridge) rewrite(instance any, v reflect.Value, transform func([]byte) ([]byte, error)) error {
	return b.change(instance, v, func() error {
		current, err := b.read(v)
		if err != nil {
			return err
		}
		doc, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("snapshot: encode %s: %w", v.Type(), err)
		}
		out, err := transform(doc)
		if err != nil {
			return err
		}
		var next Snapshot
		if err := unmarshalPlain(out, &next); err != nil {
			return fmt.Errorf("snapshot: decode %s: %w", v.Type(), err)
		}
		scratch, err := b.decode(v, next)
		if err != nil {
			return err
		}
		b.assign(v, scratch)
		return nil
	})
}

// change runs apply and, when the instance is observed, notifies listeners
// if the observable state differs afterwards.
func (b *Bridge) change(instance any, v reflect.Value, apply func() error) error {
	if !b.observed(instance) {
		return apply()
	}

	before, err := b.read(v)
	if err != nil {
		return err
	}
	if err := apply(); err != nil {
		return err
	}
	after, err := b.read(v)
	if err != nil {
		return err
	}
	if cmp.Equal(before, after) {
		return nil
	}
	return b.notify(instance, v)
}
