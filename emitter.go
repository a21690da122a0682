package watchable

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dshills/watchable/dispatch"
	"github.com/dshills/watchable/guard"
)

// Emitter routes events from one observable object to its registered
// observers. Registration mutates a copy-on-write entry list under the
// guard; emission reads the list without locking. Broadcast events are
// also forwarded through the chained emitter, which is how element changes
// surface on their collection.
type Emitter struct {
	source  Observable
	entries atomic.Pointer[[]*registration]
	chained atomic.Pointer[Emitter]

	guard sync.Locker
	disp  dispatch.Dispatcher
	log   *slog.Logger
	exec  *dispatch.Executor

	// collection marks emitters owned by a Slice, where per-property
	// observation does not apply.
	collection bool
}

// NewEmitter creates an emitter whose events originate from source.
// Without options it delivers immediately on the emitting goroutine and
// accepts registration from any goroutine.
func NewEmitter(source Observable, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		source: source,
		guard:  guard.NewSpin(),
		disp:   dispatch.NewImmediate(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.exec = dispatch.NewExecutor(dispatch.WithExecutorPanicHandler(func(v any, stack []byte) {
		e.log.Error("observer panic",
			slog.Any("panic", v),
			slog.String("stack", string(stack)),
		)
	}))

	empty := make([]*registration, 0)
	e.entries.Store(&empty)
	return e
}

// Source returns the observable this emitter reports as event origin.
func (e *Emitter) Source() Observable { return e.source }

// Register adds observer for the given event identifiers. No identifiers,
// or All, subscribes to everything. Expired entries and a previous entry
// for the same observer are dropped in the same pass. The new observer
// immediately receives an object-change event carrying AttrInitial,
// delivered to it alone under the emitter's strategy.
//
// A nil observer is a programming error and panics.
func (e *Emitter) Register(observer Observer, ids ...EventID) {
	if observer == nil {
		panic("watchable: nil observer")
	}

	entry := newRegistration(observer, ids)

	e.guard.Lock()
	current := *e.entries.Load()
	next := make([]*registration, 0, len(current)+1)
	for _, r := range current {
		if r.expired() || r.observer == observer {
			continue
		}
		next = append(next, r)
	}
	next = append(next, entry)
	e.entries.Store(&next)
	e.guard.Unlock()

	initial := newObjectChangeEvent(e.source, settings{attrs: AttrInitial})
	e.emit(initial, entry, nil)
}

// Unregister removes the observer's entry. Unknown observers are ignored.
// Deliveries already scheduled for the observer are not retracted.
func (e *Emitter) Unregister(observer Observer) {
	if observer == nil {
		return
	}

	e.guard.Lock()
	current := *e.entries.Load()
	next := make([]*registration, 0, len(current))
	for _, r := range current {
		if r.observer == observer || r.expired() {
			continue
		}
		next = append(next, r)
	}
	e.entries.Store(&next)
	e.guard.Unlock()
}

// ObserverCount returns the number of live registrations.
func (e *Emitter) ObserverCount() int {
	count := 0
	for _, r := range *e.entries.Load() {
		if !r.expired() {
			count++
		}
	}
	return count
}

// SetChained links parent as the upstream emitter: every broadcast on e is
// forwarded to parent before local delivery. Passing nil unlinks.
func (e *Emitter) SetChained(parent *Emitter) {
	if parent == e {
		panic("watchable: emitter cannot chain to itself")
	}
	e.chained.Store(parent)
}

// Chained returns the upstream emitter, or nil.
func (e *Emitter) Chained() *Emitter {
	return e.chained.Load()
}

// EmitObjectChange broadcasts a coarse object-change notification. The
// initial attribute is reserved for registration-time delivery and is
// stripped from the options.
func (e *Emitter) EmitObjectChange(opts ...Option) {
	s := applyOptions(opts)
	s.attrs &^= AttrInitial
	e.emit(newObjectChangeEvent(e.source, s), nil, s.dispatcher)
}

// Emit broadcasts a caller-constructed event. Events without a source are
// stamped with the emitter's observable. Unlike property emission, no
// companion object-change event is synthesized.
func (e *Emitter) Emit(ev AnyEvent, opts ...Option) {
	if ev == nil {
		return
	}
	s := applyOptions(opts)
	if ev.Source() == nil {
		if ss, ok := ev.(sourceSetter); ok {
			ss.setSource(e.source)
		}
	}
	e.emit(ev, nil, s.dispatcher)
}

// emit schedules one delivery pass for ev. A nil dispatcher means the
// emitter's default. Broadcasts (target == nil) are forwarded through the
// chained emitter first; a targeted delivery reaches only its own entry
// and is never forwarded.
func (e *Emitter) emit(ev AnyEvent, target *registration, d dispatch.Dispatcher) {
	if d == nil {
		d = e.disp
	}

	if target == nil {
		if parent := e.chained.Load(); parent != nil {
			parent.emit(ev, nil, d)
		}
	}

	// The delivery set is computed when the task runs, not now.
	err := d.Dispatch(func() {
		e.deliver(ev, target)
	})
	if err != nil {
		e.log.Warn("event delivery dropped",
			slog.String("event", string(ev.EventID())),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Emitter) deliver(ev AnyEvent, target *registration) {
	if target != nil {
		if target.expired() || !target.matches(ev, true) {
			return
		}
		e.invoke(target, ev)
		return
	}

	for _, r := range *e.entries.Load() {
		if r.expired() || !r.matches(ev, false) {
			continue
		}
		e.invoke(r, ev)
	}
}

// invoke runs one observer callback with panic isolation, so one
// panicking observer cannot starve the rest of the delivery pass.
func (e *Emitter) invoke(r *registration, ev AnyEvent) {
	e.exec.Execute(func() {
		r.observer.OnChange(ev)
	})
}

// Observe registers fn for events under id and returns a token that ends
// the observation on Dispose. All delivers every event; any other id
// delivers exactly that identifier, so the initial registration
// notification reaches fn only when id is All or ObjectChange.
func (e *Emitter) Observe(id EventID, fn func(AnyEvent)) *Token {
	if fn == nil {
		panic("watchable: nil observer function")
	}
	obs := &funcObserver{fn: func(ev AnyEvent) {
		if id != All && ev.EventID() != id {
			return
		}
		fn(ev)
	}}
	e.Register(obs, id)
	return newToken(e, obs, id)
}

// ObserveObjectChange registers fn for coarse object-change events.
func (e *Emitter) ObserveObjectChange(fn func(*ObjectChangeEvent)) *Token {
	if fn == nil {
		panic("watchable: nil observer function")
	}
	obs := &funcObserver{fn: func(ev AnyEvent) {
		oc, ok := ev.(*ObjectChangeEvent)
		if !ok {
			e.warnMismatch(ev)
			return
		}
		fn(oc)
	}}
	e.Register(obs, ObjectChange)
	return newToken(e, obs, ObjectChange)
}

func (e *Emitter) warnMismatch(ev AnyEvent) {
	e.log.Warn("typed observer dropped event with mismatched payload",
		slog.String("event", string(ev.EventID())),
		slog.String("got", fmt.Sprintf("%T", ev)),
	)
}

// ObservePath registers fn for typed change events of one property and
// returns a token. Events under the path's identifier whose payload type
// does not match are reported and dropped. The initial registration
// notification is an object-change event and never reaches fn.
//
// Collection emitters have no properties; observing a path on one panics.
func ObservePath[O any, V any](e *Emitter, path Path[O, V], fn func(*PropertyChangeEvent[V])) *Token {
	if fn == nil {
		panic("watchable: nil observer function")
	}
	if e.collection {
		panic("watchable: property observation on a collection emitter; observe the elements instead")
	}

	id := path.EventID()
	obs := &funcObserver{fn: func(ev AnyEvent) {
		if ev.EventID() != id {
			return
		}
		pc, ok := ev.(*PropertyChangeEvent[V])
		if !ok {
			e.warnMismatch(ev)
			return
		}
		fn(pc)
	}}
	e.Register(obs, id)
	return newToken(e, obs, id)
}

// ObserveValue registers fn for typed value events under id. Payload
// mismatches are reported and dropped.
func ObserveValue[V any](e *Emitter, id EventID, fn func(*ValueChangeEvent[V])) *Token {
	if fn == nil {
		panic("watchable: nil observer function")
	}

	obs := &funcObserver{fn: func(ev AnyEvent) {
		if ev.EventID() != id {
			return
		}
		vc, ok := ev.(*ValueChangeEvent[V])
		if !ok {
			e.warnMismatch(ev)
			return
		}
		fn(vc)
	}}
	e.Register(obs, id)
	return newToken(e, obs, id)
}

// EmitPropertyChange reads the property's current value through path and
// broadcasts a typed property-change event, then a plain object-change
// event under the same strategy, so coarse observers hear about the
// mutation without subscribing to the property identifier.
func EmitPropertyChange[O any, V any](e *Emitter, owner *O, path Path[O, V], oldValue *V, opts ...Option) {
	s := applyOptions(opts)
	if s.source == nil {
		s.source = e.source
	}

	ev := &PropertyChangeEvent[V]{
		Event:    *newEvent(path.EventID(), s),
		oldValue: oldValue,
		newValue: path.Get(owner),
	}
	e.emit(ev, nil, s.dispatcher)

	e.emit(newObjectChangeEvent(e.source, settings{source: s.source}), nil, s.dispatcher)
}

// EmitValueChange broadcasts a typed value snapshot under id. No
// companion object-change event is synthesized.
func EmitValueChange[V any](e *Emitter, id EventID, value V, opts ...Option) {
	s := applyOptions(opts)
	if s.source == nil {
		s.source = e.source
	}

	ev := &ValueChangeEvent[V]{
		Event: *newEvent(id, s),
		value: value,
	}
	e.emit(ev, nil, s.dispatcher)
}
