package dispatch

import (
	"runtime/debug"
	"time"
)

// Executor runs tasks with panic recovery and timing capture. Every
// dispatch strategy funnels task execution through an Executor so that a
// panicking observer is isolated from the emitter and from other observers.
type Executor struct {
	panicHandler PanicHandler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorPanicHandler sets the handler invoked when a task panics.
func WithExecutorPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		if h != nil {
			e.panicHandler = h
		}
	}
}

// NewExecutor creates an executor. Without options, panics are reported to
// the default structured logger.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the task, recovering any panic and capturing its stack. The
// returned Result always carries the execution duration.
func (e *Executor) Execute(task Task) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			// The handler itself must not be able to crash the caller.
			if e.panicHandler != nil {
				func() {
					defer func() { _ = recover() }()
					e.panicHandler(r, stack)
				}()
			}
		}
	}()

	task()
	return result
}
