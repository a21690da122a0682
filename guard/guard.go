// Package guard provides the synchronization strategies that protect
// observer-list mutation on an emitter.
package guard

import (
	"runtime"
	"sync/atomic"

	"github.com/dshills/watchable/loop"
)

// Guard serializes registration and unregistration on an emitter. The
// interface matches sync.Locker, so a *sync.Mutex works as a guard; this
// package provides the two policies the library names.
type Guard interface {
	Lock()
	Unlock()
}

// Affinity is the crash-on-violation policy: instead of taking a lock it
// asserts that every mutation happens on the coordination loop, where
// mutations are already serialized. Lock panics off-loop.
type Affinity struct {
	loop *loop.Loop
}

// NewAffinity creates an affinity guard bound to the given loop.
func NewAffinity(l *loop.Loop) *Affinity {
	if l == nil {
		panic("guard: affinity guard requires a loop")
	}
	return &Affinity{loop: l}
}

// Lock asserts the caller is on the coordination loop.
func (g *Affinity) Lock() {
	if !g.loop.OnLoop() {
		panic("guard: observer registration off the coordination loop")
	}
}

// Unlock is a no-op; Lock acquires nothing.
func (g *Affinity) Unlock() {}

// Spin is a spin lock for cross-goroutine registration. It busy-waits with
// Gosched rather than parking.
type Spin struct {
	locked atomic.Bool
}

// NewSpin creates a spin guard.
func NewSpin() *Spin { return &Spin{} }

// Lock acquires the guard, spinning until it is free.
func (g *Spin) Lock() {
	for !g.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// Unlock releases the guard.
func (g *Spin) Unlock() {
	g.locked.Store(false)
}
