package watchable

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventID identifies a kind of event. Property events derive their
// identifier from the property name via PropertyID; everything else is
// free-form.
type EventID string

// Well-known event identifiers.
const (
	// ObjectChange is the coarse notification that something about an
	// object changed. It is synthesized after every property change, on
	// registration, and by Proxy.Emplace.
	ObjectChange EventID = "object-change"

	// ArrayChange identifies sequence transitions emitted by Slice.
	ArrayChange EventID = "array-change"

	// All subscribes an observer to every event the emitter broadcasts.
	All EventID = "all"
)

// PropertyID returns the event identifier for a named property.
func PropertyID(name string) EventID {
	return EventID("property." + name)
}

// Attributes carries flags qualifying an event.
type Attributes uint32

const (
	// AttrInitial marks the registration notification that reflects the
	// object's current state rather than a fresh mutation.
	AttrInitial Attributes = 1 << iota

	// AttrPending marks events describing a change that has been requested
	// but not yet applied.
	AttrPending
)

// Has reports whether all bits of flag are set.
func (a Attributes) Has(flag Attributes) bool {
	return a&flag == flag
}

func (a Attributes) String() string {
	var parts []string
	if a.Has(AttrInitial) {
		parts = append(parts, "initial")
	}
	if a.Has(AttrPending) {
		parts = append(parts, "pending")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Metadata carries per-event bookkeeping stamped at construction.
type Metadata struct {
	// ID is a unique event identifier.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time
}

// AnyEvent is the interface all events satisfy. Concrete events embed
// Event and add typed payload accessors.
type AnyEvent interface {
	// EventID returns the event's identifier.
	EventID() EventID

	// Source returns the observable the event originated from, or nil for
	// detached events.
	Source() Observable

	// Attributes returns the event's qualifier flags.
	Attributes() Attributes

	// UserInfo returns free-form metadata attached at construction, or nil.
	UserInfo() map[string]any

	// DebugDescription returns a human-readable description.
	DebugDescription() string

	// Meta returns the event's bookkeeping metadata.
	Meta() Metadata
}

// Event is the common core embedded by every concrete event type.
type Event struct {
	id       EventID
	source   Observable
	attrs    Attributes
	userInfo map[string]any
	debug    string
	meta     Metadata
}

// NewEvent creates a bare event with the given identifier. Most callers
// want one of the typed constructors instead.
func NewEvent(id EventID, opts ...Option) *Event {
	return newEvent(id, applyOptions(opts))
}

func newEvent(id EventID, s settings) *Event {
	return &Event{
		id:       id,
		source:   s.source,
		attrs:    s.attrs,
		userInfo: s.userInfo,
		debug:    s.debug,
		meta: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
		},
	}
}

func (e *Event) EventID() EventID         { return e.id }
func (e *Event) Source() Observable       { return e.source }
func (e *Event) Attributes() Attributes   { return e.attrs }
func (e *Event) UserInfo() map[string]any { return e.userInfo }
func (e *Event) Meta() Metadata           { return e.meta }

func (e *Event) DebugDescription() string {
	if e.debug != "" {
		return e.debug
	}
	if e.attrs == 0 {
		return fmt.Sprintf("event %q", string(e.id))
	}
	return fmt.Sprintf("event %q [%s]", string(e.id), e.attrs)
}

// setSource stamps the origin on events emitted without one.
func (e *Event) setSource(src Observable) { e.source = src }

// sourceSetter is satisfied by every event embedding Event. Emission uses
// it to stamp the emitter's observable on detached events.
type sourceSetter interface {
	setSource(Observable)
}

// ObjectChangeEvent is the coarse notification that an object changed. It
// carries no payload; interested observers read the object's current state.
type ObjectChangeEvent struct {
	Event
}

func newObjectChangeEvent(source Observable, s settings) *ObjectChangeEvent {
	if s.source == nil {
		s.source = source
	}
	return &ObjectChangeEvent{Event: *newEvent(ObjectChange, s)}
}

// ValueChangeEvent carries a typed value snapshot under a caller-chosen
// identifier. It is the shape for custom events that are not tied to a
// property.
type ValueChangeEvent[V any] struct {
	Event

	value V
}

// NewValueChangeEvent creates a typed value snapshot event.
func NewValueChangeEvent[V any](id EventID, value V, opts ...Option) *ValueChangeEvent[V] {
	return &ValueChangeEvent[V]{
		Event: *newEvent(id, applyOptions(opts)),
		value: value,
	}
}

// Value returns the carried value.
func (e *ValueChangeEvent[V]) Value() V { return e.value }

// PropertyChangeEvent describes one property transition: the previous
// value when known and the value after the change.
type PropertyChangeEvent[V any] struct {
	Event

	oldValue *V
	newValue V
}

// NewPropertyChangeEvent creates a typed property transition event.
// oldValue may be nil when the previous value is unknown.
func NewPropertyChangeEvent[V any](id EventID, oldValue *V, newValue V, opts ...Option) *PropertyChangeEvent[V] {
	return &PropertyChangeEvent[V]{
		Event:    *newEvent(id, applyOptions(opts)),
		oldValue: oldValue,
		newValue: newValue,
	}
}

// OldValue returns the value before the change. ok is false when the
// previous value is unknown.
func (e *PropertyChangeEvent[V]) OldValue() (value V, ok bool) {
	if e.oldValue == nil {
		var zero V
		return zero, false
	}
	return *e.oldValue, true
}

// NewValue returns the value after the change.
func (e *PropertyChangeEvent[V]) NewValue() V { return e.newValue }

// ArrayChangeEvent describes one sequence transition on a Slice.
type ArrayChangeEvent[T comparable] struct {
	Event

	oldValues  []T
	newValues  []T
	collection *Slice[T]
}

// OldValues returns the sequence before the transition.
func (e *ArrayChangeEvent[T]) OldValues() []T { return e.oldValues }

// NewValues returns the sequence after the transition.
func (e *ArrayChangeEvent[T]) NewValues() []T { return e.newValues }

// Collection returns the slice the transition happened on.
func (e *ArrayChangeEvent[T]) Collection() *Slice[T] { return e.collection }
