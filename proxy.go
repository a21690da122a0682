package watchable

import "sync"

// Proxy wraps a plain value and makes writes to it observable without the
// value knowing. Reads go through Value, whole-value replacement through
// Emplace, and property writes through Set.
type Proxy[T any] struct {
	emitter *Emitter

	mu    sync.Mutex
	value T
}

// NewProxy creates a proxy owning an initial value.
func NewProxy[T any](value T, opts ...EmitterOption) *Proxy[T] {
	p := &Proxy[T]{value: value}
	p.emitter = NewEmitter(p, opts...)
	return p
}

// Emitter returns the proxy's emitter.
func (p *Proxy[T]) Emitter() *Emitter { return p.emitter }

// Value returns the wrapped value.
func (p *Proxy[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Emplace replaces the wrapped value and broadcasts an object-change
// event. Emplace always emits, equal value or not, and the event never
// carries the initial attribute.
func (p *Proxy[T]) Emplace(value T, opts ...Option) {
	p.mu.Lock()
	p.value = value
	p.mu.Unlock()

	p.emitter.EmitObjectChange(opts...)
}

// Set writes one property of the wrapped value through path, then emits a
// typed property-change event followed by an object-change event. The
// path must carry a setter.
func Set[T any, V any](p *Proxy[T], path Path[T, V], value V, opts ...Option) {
	p.mu.Lock()
	oldValue := path.Get(&p.value)
	path.Set(&p.value, value)
	p.mu.Unlock()

	EmitPropertyChange(p.emitter, &p.value, path, &oldValue, opts...)
}
