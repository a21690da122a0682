package watchable

import (
	"slices"
	"sync"
)

// Slice is an observable sequence. All mutation goes through Assign,
// which compares the result against the current sequence by value: an
// equal result emits nothing, a different one is committed and announced
// with an array-change event followed by an object-change event.
//
// Elements that are themselves Observable are chained to the collection
// while they are members, so their own events surface on the collection's
// emitter too.
type Slice[T comparable] struct {
	emitter *Emitter

	mu     sync.Mutex
	values []T
}

// NewSlice creates an observable sequence seeded with values. Observable
// elements among them are chained immediately.
func NewSlice[T comparable](values []T, opts ...EmitterOption) *Slice[T] {
	s := &Slice[T]{values: slices.Clone(values)}
	s.emitter = NewEmitter(s, opts...)
	s.emitter.collection = true
	for _, v := range s.values {
		s.attach(v)
	}
	return s
}

// Emitter returns the collection's emitter.
func (s *Slice[T]) Emitter() *Emitter { return s.emitter }

// Values returns a copy of the current sequence.
func (s *Slice[T]) Values() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.values)
}

// Len returns the number of elements.
func (s *Slice[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// IndexOf returns the index of the first element equal to v, or -1.
func (s *Slice[T]) IndexOf(v T) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Index(s.values, v)
}

// Assign replaces the sequence with the result of mutate applied to a
// copy of the current values. Mutate may grow, shrink, reorder, or
// rebuild the copy; returning a sequence equal to the current one makes
// Assign a no-op with no events.
func (s *Slice[T]) Assign(mutate func([]T) []T, opts ...Option) {
	if mutate == nil {
		return
	}

	s.mu.Lock()
	oldValues := slices.Clone(s.values)
	newValues := mutate(slices.Clone(s.values))

	if slices.Equal(oldValues, newValues) {
		s.mu.Unlock()
		return
	}

	for _, v := range oldValues {
		s.detach(v)
	}
	for _, v := range newValues {
		s.attach(v)
	}
	s.values = newValues
	s.mu.Unlock()

	so := applyOptions(opts)
	if so.source == nil {
		so.source = s
	}
	ev := &ArrayChangeEvent[T]{
		Event:      *newEvent(ArrayChange, so),
		oldValues:  oldValues,
		newValues:  slices.Clone(newValues),
		collection: s,
	}
	s.emitter.emit(ev, nil, so.dispatcher)
	s.emitter.emit(newObjectChangeEvent(s, settings{source: so.source}), nil, so.dispatcher)
}

func (s *Slice[T]) attach(v T) {
	if obs, ok := any(v).(Observable); ok {
		obs.Emitter().SetChained(s.emitter)
	}
}

func (s *Slice[T]) detach(v T) {
	if obs, ok := any(v).(Observable); ok {
		obs.Emitter().SetChained(nil)
	}
}

// ObserveElementChange registers fn for coarse changes originating from
// the sequence's elements. fn receives the event together with the source
// element and its current index. Events from the collection itself, from
// sources that are not elements, and from elements that have left the
// sequence by delivery time are dropped.
func (s *Slice[T]) ObserveElementChange(fn func(ev AnyEvent, element T, index int)) *Token {
	if fn == nil {
		panic("watchable: nil observer function")
	}

	obs := &funcObserver{fn: func(ev AnyEvent) {
		src := ev.Source()
		if src == nil {
			return
		}
		if c, ok := src.(*Slice[T]); ok && c == s {
			return
		}
		element, ok := any(src).(T)
		if !ok {
			return
		}
		idx := s.IndexOf(element)
		if idx < 0 {
			return
		}
		fn(ev, element, idx)
	}}
	s.emitter.Register(obs, ObjectChange)
	return newToken(s.emitter, obs, ObjectChange)
}

// ObserveElementPath registers fn for typed property changes of the
// sequence's elements. fn receives the property event with the source
// element and its current index. Stale deliveries, where the element has
// left the sequence, are dropped.
func ObserveElementPath[T comparable, O any, V any](s *Slice[T], path Path[O, V], fn func(ev *PropertyChangeEvent[V], element T, index int)) *Token {
	if fn == nil {
		panic("watchable: nil observer function")
	}

	id := path.EventID()
	obs := &funcObserver{fn: func(ev AnyEvent) {
		if ev.EventID() != id {
			return
		}
		pc, ok := ev.(*PropertyChangeEvent[V])
		if !ok {
			s.emitter.warnMismatch(ev)
			return
		}
		element, ok := any(ev.Source()).(T)
		if !ok {
			return
		}
		idx := s.IndexOf(element)
		if idx < 0 {
			return
		}
		fn(pc, element, idx)
	}}
	s.emitter.Register(obs, id)
	return newToken(s.emitter, obs, id)
}

// ObserveArrayChange registers fn for sequence transitions.
func ObserveArrayChange[T comparable](s *Slice[T], fn func(*ArrayChangeEvent[T])) *Token {
	if fn == nil {
		panic("watchable: nil observer function")
	}

	obs := &funcObserver{fn: func(ev AnyEvent) {
		if ev.EventID() != ArrayChange {
			return
		}
		ac, ok := ev.(*ArrayChangeEvent[T])
		if !ok {
			s.emitter.warnMismatch(ev)
			return
		}
		fn(ac)
	}}
	s.emitter.Register(obs, ArrayChange)
	return newToken(s.emitter, obs, ArrayChange)
}
