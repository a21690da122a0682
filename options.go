package watchable

import (
	"log/slog"
	"sync"

	"github.com/dshills/watchable/dispatch"
	"github.com/dshills/watchable/guard"
	"github.com/dshills/watchable/loop"
)

// settings collects per-event and per-emission configuration.
type settings struct {
	attrs      Attributes
	source     Observable
	userInfo   map[string]any
	debug      string
	dispatcher dispatch.Dispatcher
}

// Option configures event construction and emission calls. Construction
// options on an emission of a pre-built event are ignored; only
// WithDispatcher applies there.
type Option func(*settings)

func applyOptions(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithAttributes adds qualifier flags to the event.
func WithAttributes(attrs Attributes) Option {
	return func(s *settings) { s.attrs |= attrs }
}

// WithSource sets the event source explicitly. Emission normally stamps
// the emitter's own observable.
func WithSource(src Observable) Option {
	return func(s *settings) { s.source = src }
}

// WithUserInfo attaches free-form metadata to the event.
func WithUserInfo(info map[string]any) Option {
	return func(s *settings) { s.userInfo = info }
}

// WithDebugDescription overrides the event's debug description.
func WithDebugDescription(desc string) Option {
	return func(s *settings) { s.debug = desc }
}

// WithDispatcher overrides the delivery strategy for one emission.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(s *settings) { s.dispatcher = d }
}

// EmitterOption configures an Emitter at construction.
type EmitterOption func(*Emitter)

// WithDefaultDispatcher sets the strategy used when an emission names
// none. The default is immediate, synchronous delivery.
func WithDefaultDispatcher(d dispatch.Dispatcher) EmitterOption {
	return func(e *Emitter) {
		if d != nil {
			e.disp = d
		}
	}
}

// WithGuard replaces the registration guard. The default spin guard
// permits registration from any goroutine.
func WithGuard(g sync.Locker) EmitterOption {
	return func(e *Emitter) {
		if g != nil {
			e.guard = g
		}
	}
}

// WithLogger sets the structured logger used for dropped deliveries,
// payload mismatches, and observer panics.
func WithLogger(l *slog.Logger) EmitterOption {
	return func(e *Emitter) {
		if l != nil {
			e.log = l
		}
	}
}

// WithLoop binds the emitter to a coordination loop: registration must
// happen on the loop goroutine and deliveries default to running there.
func WithLoop(l *loop.Loop) EmitterOption {
	return func(e *Emitter) {
		e.guard = guard.NewAffinity(l)
		e.disp = dispatch.NewOnLoop(l)
	}
}
