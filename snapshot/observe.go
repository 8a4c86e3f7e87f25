package snapshot

import (
	"reflect"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sghaida/modi/internal/logging/logfields"
)

type subscription struct {
	fn     Listener
	active atomic.Bool
}

// tracker holds the listeners of one instance. Guarded by Bridge.mu.
type tracker struct {
	subs      []*subscription
	notifying bool
	// pending is set when the instance changes while its listeners run.
	pending bool
}

// OnSnapshot registers l to receive the new snapshot after every observed
// change of instance. Listeners run synchronously, in registration order, on
// the goroutine that made the change.
//
// The returned function unregisters l; after it returns l is not called
// again, even if a notification round is in progress. It is safe to call
// more than once.
func (b *Bridge) OnSnapshot(instance any, l Listener) (func(), error) {
	if _, err := structValue(instance); err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNilListener
	}

	sub := &subscription{fn: l}
	sub.active.Store(true)

	b.mu.Lock()
	tr, ok := b.trackers[instance]
	if !ok {
		tr = &tracker{}
		b.trackers[instance] = tr
	}
	tr.subs = append(tr.subs, sub)
	b.mu.Unlock()

	return func() {
		if !sub.active.CompareAndSwap(true, false) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range tr.subs {
			if s == sub {
				tr.subs = append(tr.subs[:i:i], tr.subs[i+1:]...)
				break
			}
		}
		b.release(instance, tr)
	}, nil
}

// Listeners returns the number of listeners registered on instance.
func (b *Bridge) Listeners(instance any) int {
	if _, err := structValue(instance); err != nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if tr, ok := b.trackers[instance]; ok {
		return len(tr.subs)
	}
	return 0
}

func (b *Bridge) observed(instance any) bool {
	return b.Listeners(instance) > 0
}

// release drops the tracker once it has no listeners and is idle. Callers hold b.mu.
func (b *Bridge) release(instance any, tr *tracker) {
	if len(tr.subs) == 0 && !tr.notifying && b.trackers[instance] == tr {
		delete(b.trackers, instance)
	}
}

// notify delivers the current snapshot to the instance's listeners. A change
// made by a listener while a round is running is coalesced into one more
// round after it; at most maxRounds rounds run.
func (b *Bridge) notify(instance any, v reflect.Value) error {
	b.mu.Lock()
	tr, ok := b.trackers[instance]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	if tr.notifying {
		tr.pending = true
		b.mu.Unlock()
		return nil
	}
	tr.notifying = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		tr.notifying = false
		tr.pending = false
		b.release(instance, tr)
		b.mu.Unlock()
	}()

	for round := 0; ; round++ {
		if round == b.maxRounds {
			b.log.WithFields(logrus.Fields{
				logfields.Model:  v.Type().String(),
				logfields.Rounds: round,
			}).Warn("Snapshot listeners keep changing the instance, giving up")
			return ErrNotifyLoop
		}

		snap, err := b.read(v)
		if err != nil {
			return err
		}

		b.mu.Lock()
		subs := make([]*subscription, len(tr.subs))
		copy(subs, tr.subs)
		tr.pending = false
		b.mu.Unlock()

		b.log.WithFields(logrus.Fields{
			logfields.Model:     v.Type().String(),
			logfields.Listeners: len(subs),
		}).Debug("Notifying snapshot listeners")

		for _, s := range subs {
			if s.active.Load() {
				s.fn(clone(snap).(map[string]any))
			}
		}

		b.mu.Lock()
		again := tr.pending
		b.mu.Unlock()
		if !again {
			return nil
		}
	}
}
