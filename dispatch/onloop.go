package dispatch

import (
	"github.com/dshills/watchable/loop"
)

// OnLoop delivers on the coordination loop. When the caller is already on
// the loop goroutine the task runs inline; otherwise it is handed off to
// the loop's queue and runs on a later turn.
type OnLoop struct {
	loop     *loop.Loop
	executor *Executor
}

// NewOnLoop creates a coordination-loop dispatcher. The loop must be
// non-nil; it does not have to be running yet, but tasks dispatched before
// Run are only executed once the loop starts.
func NewOnLoop(l *loop.Loop, opts ...ExecutorOption) *OnLoop {
	if l == nil {
		panic("dispatch: OnLoop requires a loop")
	}
	return &OnLoop{
		loop:     l,
		executor: NewExecutor(opts...),
	}
}

// Dispatch runs the task inline when called from the loop goroutine,
// otherwise posts it to the loop.
func (d *OnLoop) Dispatch(task Task) error {
	if task == nil {
		return nil
	}

	if d.loop.OnLoop() {
		result := d.executor.Execute(task)
		if result.Panicked {
			return &PanicError{
				Value: result.PanicValue,
				Stack: string(result.PanicStack),
			}
		}
		return nil
	}

	return d.loop.Post(func() {
		d.executor.Execute(task)
	})
}

// NextTurn always hands the task to the coordination loop's queue, even
// when the caller is already on the loop. It trades immediacy for freedom
// from re-entrancy: an observer emitting from inside a delivery never
// recurses.
type NextTurn struct {
	loop     *loop.Loop
	executor *Executor
}

// NewNextTurn creates a next-turn dispatcher bound to the given loop.
func NewNextTurn(l *loop.Loop, opts ...ExecutorOption) *NextTurn {
	if l == nil {
		panic("dispatch: NextTurn requires a loop")
	}
	return &NextTurn{
		loop:     l,
		executor: NewExecutor(opts...),
	}
}

// Dispatch posts the task to the loop. It never runs inline.
func (d *NextTurn) Dispatch(task Task) error {
	if task == nil {
		return nil
	}
	return d.loop.Post(func() {
		d.executor.Execute(task)
	})
}
