package dispatch

import (
	"log/slog"
	"time"
)

// Task is one unit of delivery work scheduled by an emitter. A task computes
// its delivery set when it runs, not when it is scheduled, so observers added
// or removed between scheduling and execution are honored.
type Task func()

// Dispatcher schedules delivery work under one concurrency strategy.
type Dispatcher interface {
	// Dispatch schedules the task for execution. The hand-off never blocks;
	// strategies with bounded queues return ErrQueueFull when saturated and
	// the task is dropped.
	Dispatch(task Task) error
}

// Result describes the outcome of one executed task.
type Result struct {
	// Panicked is true if the task panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace captured at the point of the panic.
	PanicStack []byte

	// Duration is how long the task took to execute.
	Duration time.Duration
}

// PanicHandler is called when a task panics during execution. The handler
// runs on the goroutine that executed the task.
type PanicHandler func(panicValue any, stack []byte)

// defaultPanicHandler reports the panic through the default structured
// logger. A panicking observer never takes down the dispatcher.
func defaultPanicHandler(panicValue any, stack []byte) {
	slog.Default().Error("dispatch task panic",
		slog.Any("panic", panicValue),
		slog.String("stack", string(stack)),
	)
}
