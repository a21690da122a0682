package watchable

import (
	"errors"
	"sync/atomic"
)

// ErrNilSubscribe is returned by BindChanges when subscribe is nil.
var ErrNilSubscribe = errors.New("watchable: nil subscribe function")

// NotifyFunc delivers one external change: the previous value when known
// and the new value.
type NotifyFunc[V any] func(oldValue *V, newValue V)

// SubscribeFunc connects an external change source to notify and returns
// a cancel function that stops the flow. Implementations wrap whatever
// the source offers, such as filesystem watchers or database listeners.
type SubscribeFunc[V any] func(notify NotifyFunc[V]) (cancel func(), err error)

// Binding is one active external-source connection.
type Binding struct {
	stop  func()
	state atomic.Int32
}

// Active reports whether the binding is still connected.
func (b *Binding) Active() bool {
	return b != nil && b.state.Load() == stateActive
}

// Dispose disconnects the binding. It is idempotent and nil-safe.
func (b *Binding) Dispose() {
	if b == nil {
		return
	}
	if !b.state.CompareAndSwap(stateActive, stateDisposed) {
		return
	}
	if b.stop != nil {
		b.stop()
	}
}

// BindChanges connects an external change source to the emitter. Every
// notification becomes a typed property-change event under path's
// identifier followed by an object-change event, exactly as if the
// property had been mutated locally. The returned binding disconnects the
// source on Dispose; events already scheduled still deliver.
func BindChanges[O any, V any](e *Emitter, path Path[O, V], subscribe SubscribeFunc[V]) (*Binding, error) {
	if subscribe == nil {
		return nil, ErrNilSubscribe
	}

	cancel, err := subscribe(func(oldValue *V, newValue V) {
		ev := NewPropertyChangeEvent(path.EventID(), oldValue, newValue, WithSource(e.Source()))
		e.emit(ev, nil, nil)
		e.emit(newObjectChangeEvent(e.Source(), settings{}), nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &Binding{stop: cancel}, nil
}
