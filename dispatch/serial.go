package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// Serial executes tasks on one dedicated goroutine in FIFO order. Distinct
// emitters that share a Serial instance share its total order: their
// deliveries interleave but never overlap.
type Serial struct {
	queueSize int

	mu      sync.RWMutex
	queue   chan Task
	running atomic.Bool
	wg      sync.WaitGroup

	panicHandler PanicHandler

	enqueued  atomic.Uint64
	processed atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64
}

// SerialOption configures a Serial dispatcher.
type SerialOption func(*Serial)

// WithSerialQueueSize sets the task queue capacity.
func WithSerialQueueSize(size int) SerialOption {
	return func(d *Serial) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithSerialPanicHandler sets the handler invoked when a task panics.
func WithSerialPanicHandler(h PanicHandler) SerialOption {
	return func(d *Serial) {
		if h != nil {
			d.panicHandler = h
		}
	}
}

// NewSerial creates a serial dispatcher. Call Start before dispatching.
func NewSerial(opts ...SerialOption) *Serial {
	d := &Serial{
		queueSize:    defaultQueueSize,
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the delivery goroutine.
func (d *Serial) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return ErrAlreadyRunning
	}

	d.queue = make(chan Task, d.queueSize)
	d.running.Store(true)

	d.wg.Add(1)
	go d.run()
	return nil
}

// Stop shuts the delivery goroutine down, draining queued tasks until ctx
// expires.
func (d *Serial) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return ErrNotRunning
	}
	d.running.Store(false)
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch enqueues the task. It returns ErrQueueFull when the queue is at
// capacity and ErrNotRunning outside Start/Stop.
func (d *Serial) Dispatch(task Task) error {
	if task == nil {
		return nil
	}

	// Stop closes the queue under the write lock, so a running check made
	// under the read lock stays valid through the send.
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running.Load() {
		return ErrNotRunning
	}

	select {
	case d.queue <- task:
		d.enqueued.Add(1)
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// IsRunning reports whether the dispatcher is accepting tasks.
func (d *Serial) IsRunning() bool {
	return d.running.Load()
}

func (d *Serial) run() {
	defer d.wg.Done()

	executor := NewExecutor(WithExecutorPanicHandler(d.panicHandler))

	for task := range d.queue {
		d.processed.Add(1)

		result := executor.Execute(task)
		if result.Panicked {
			d.panicked.Add(1)
		}
	}
}

// SerialStats is a snapshot of dispatcher statistics.
type SerialStats struct {
	Enqueued   uint64
	Processed  uint64
	Panicked   uint64
	Dropped    uint64
	QueueDepth int
}

// Stats returns a snapshot of the dispatcher's counters.
func (d *Serial) Stats() SerialStats {
	d.mu.RLock()
	depth := 0
	if d.queue != nil {
		depth = len(d.queue)
	}
	d.mu.RUnlock()

	return SerialStats{
		Enqueued:   d.enqueued.Load(),
		Processed:  d.processed.Load(),
		Panicked:   d.panicked.Load(),
		Dropped:    d.dropped.Load(),
		QueueDepth: depth,
	}
}
