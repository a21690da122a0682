package watchable

import (
	"runtime"
	"sync/atomic"
)

const (
	stateActive int32 = iota
	stateDisposed
)

// Token represents one active observation. Dispose ends it; disposing
// twice, or disposing a nil token, is harmless. A token dropped without
// Dispose unregisters its observer once the token becomes unreachable.
type Token struct {
	id       EventID
	emitter  *Emitter
	observer Observer
	state    atomic.Int32
	cleanup  runtime.Cleanup
}

// tokenTarget carries what the unreachability cleanup needs without
// keeping the token itself alive.
type tokenTarget struct {
	emitter  *Emitter
	observer Observer
}

func newToken(e *Emitter, obs Observer, id EventID) *Token {
	t := &Token{id: id, emitter: e, observer: obs}
	t.cleanup = runtime.AddCleanup(t, func(target tokenTarget) {
		target.emitter.Unregister(target.observer)
	}, tokenTarget{emitter: e, observer: obs})
	return t
}

// ID returns the observed event identifier.
func (t *Token) ID() EventID {
	if t == nil {
		return ""
	}
	return t.id
}

// Active reports whether the observation is still registered.
func (t *Token) Active() bool {
	return t != nil && t.state.Load() == stateActive
}

// Dispose unregisters the observation. Deliveries already scheduled for
// the observer are not retracted.
func (t *Token) Dispose() {
	if t == nil {
		return
	}
	if !t.state.CompareAndSwap(stateActive, stateDisposed) {
		return
	}
	t.cleanup.Stop()
	t.emitter.Unregister(t.observer)
}
