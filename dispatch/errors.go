package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by dispatchers.
var (
	// ErrQueueFull is returned when a bounded dispatch queue is at capacity.
	ErrQueueFull = errors.New("dispatch queue is full")

	// ErrAlreadyRunning is returned when Start is called on a running
	// dispatcher.
	ErrAlreadyRunning = errors.New("dispatcher is already running")

	// ErrNotRunning is returned when dispatching to a dispatcher that has
	// not been started or has been stopped.
	ErrNotRunning = errors.New("dispatcher is not running")

	// ErrTaskPanic matches, via errors.Is, the error returned when a task
	// panics under a synchronous strategy.
	ErrTaskPanic = errors.New("dispatch task panicked")
)

// PanicError reports a panic raised by a task executed inline.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatch task panicked: %v", e.Value)
}

// Is allows errors.Is to match a PanicError against ErrTaskPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrTaskPanic
}
