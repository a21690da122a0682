package dispatch

// Immediate executes tasks synchronously on the calling goroutine. It is
// the default strategy: the observer runs before the emitting call returns.
type Immediate struct {
	executor *Executor
}

// NewImmediate creates an immediate dispatcher.
func NewImmediate(opts ...ExecutorOption) *Immediate {
	return &Immediate{
		executor: NewExecutor(opts...),
	}
}

// Dispatch runs the task inline. A panicking task is recovered and reported
// as a PanicError; the caller is never unwound.
func (d *Immediate) Dispatch(task Task) error {
	if task == nil {
		return nil
	}

	result := d.executor.Execute(task)
	if result.Panicked {
		return &PanicError{
			Value: result.PanicValue,
			Stack: string(result.PanicStack),
		}
	}
	return nil
}
