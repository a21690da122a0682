package watchable

import "sync"

// Observable is implemented by objects that expose an emitter for their
// change events.
type Observable interface {
	Emitter() *Emitter
}

// Base provides a lazily created emitter for embedding in observable
// types:
//
//	type Sensor struct {
//		watchable.Base
//		Reading float64
//	}
//
//	s := &Sensor{}
//	s.Bind(s)
//
// Bind sets the identity reported as the source of the object's events.
// An unbound Base still works; its events then carry a nil source.
type Base struct {
	mu      sync.Mutex
	emitter *Emitter
	self    Observable
	opts    []EmitterOption
}

// Bind sets the observable identity and the options for the lazily
// created emitter. Binding after the emitter exists is a programming
// error and panics.
func (b *Base) Bind(self Observable, opts ...EmitterOption) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.emitter != nil {
		panic("watchable: Bind after the emitter was created")
	}
	b.self = self
	b.opts = opts
}

// Emitter returns the object's emitter, creating it on first use.
func (b *Base) Emitter() *Emitter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.emitter == nil {
		b.emitter = NewEmitter(b.self, b.opts...)
		b.opts = nil
	}
	return b.emitter
}
