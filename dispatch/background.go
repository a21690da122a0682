package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize   = 4096
	defaultWorkerCount = 4
)

// Background executes tasks on a pool of worker goroutines fed by a
// bounded queue. Delivery order across workers is not defined; use Serial
// when ordering matters.
type Background struct {
	queueSize   int
	workerCount int

	mu      sync.RWMutex
	queue   chan Task
	running atomic.Bool
	wg      sync.WaitGroup

	panicHandler PanicHandler

	// Statistics.
	enqueued    atomic.Uint64
	processed   atomic.Uint64
	panicked    atomic.Uint64
	dropped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// BackgroundOption configures a Background dispatcher.
type BackgroundOption func(*Background)

// WithQueueSize sets the task queue capacity.
func WithQueueSize(size int) BackgroundOption {
	return func(d *Background) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) BackgroundOption {
	return func(d *Background) {
		if count > 0 {
			d.workerCount = count
		}
	}
}

// WithPanicHandler sets the handler invoked when a task panics on a worker.
func WithPanicHandler(h PanicHandler) BackgroundOption {
	return func(d *Background) {
		if h != nil {
			d.panicHandler = h
		}
	}
}

// NewBackground creates a background dispatcher. Call Start before
// dispatching.
func NewBackground(opts ...BackgroundOption) *Background {
	d := &Background{
		queueSize:    defaultQueueSize,
		workerCount:  defaultWorkerCount,
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker pool.
func (d *Background) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return ErrAlreadyRunning
	}

	d.queue = make(chan Task, d.queueSize)
	d.running.Store(true)

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return nil
}

// Stop shuts the pool down gracefully. Tasks already queued are drained;
// the method returns when all workers have exited or ctx expires.
func (d *Background) Stop(ctx context.Context) error {
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

// Dispatch enqueues the task for a worker. It returns ErrQueueFull when
// the queue is at capacity and ErrNotRunning outside Start/Stop.
func (d *Background) Dispatch(task Task) error {
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

// IsRunning reports whether the pool is accepting tasks.
func (d *Background) IsRunning() bool {
	return d.running.Load()
}

// QueueDepth returns the number of tasks waiting in the queue.
func (d *Background) QueueDepth() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.queue == nil {
		return 0
	}
	return len(d.queue)
}

func (d *Background) worker() {
	defer d.wg.Done()

	executor := NewExecutor(WithExecutorPanicHandler(d.panicHandler))

	for task := range d.queue {
		d.processed.Add(1)

		result := executor.Execute(task)
		if result.Panicked {
			d.panicked.Add(1)
		}
		d.totalTimeNs.Add(result.Duration.Nanoseconds())
	}
}

// BackgroundStats is a snapshot of dispatcher statistics.
type BackgroundStats struct {
	Enqueued      uint64
	Processed     uint64
	Panicked      uint64
	Dropped       uint64
	QueueDepth    int
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// Stats returns a snapshot of the dispatcher's counters.
func (d *Background) Stats() BackgroundStats {
	processed := d.processed.Load()
	totalNs := d.totalTimeNs.Load()

	var avgNs int64
	if processed > 0 {
		avgNs = totalNs / int64(processed)
	}

	return BackgroundStats{
		Enqueued:      d.enqueued.Load(),
		Processed:     processed,
		Panicked:      d.panicked.Load(),
		Dropped:       d.dropped.Load(),
		QueueDepth:    d.QueueDepth(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}
