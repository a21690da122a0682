// Package loop provides the coordination loop: a bounded task queue drained
// by a single designated goroutine. Dispatch strategies hand observer work to
// the loop, and the affinity guard asserts that registration happens on it.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Sentinel errors for the coordination loop.
var (
	// ErrAlreadyRunning is returned when Run or Start is called on a running loop.
	ErrAlreadyRunning = errors.New("loop is already running")

	// ErrStopped is returned when posting to a stopped loop.
	ErrStopped = errors.New("loop is stopped")

	// ErrFull is returned when the task queue is at capacity.
	ErrFull = errors.New("loop queue is full")
)

// Loop executes posted tasks one at a time on the goroutine that called Run.
// It plays the role of the coordination thread for an application: typically
// the UI or main goroutine runs the loop, and emitters configured with it
// deliver events there.
type Loop struct {
	queueSize int
	queue     chan func()
	done      chan struct{}
	exited    chan struct{}

	stopOnce sync.Once
	running  atomic.Bool
	gid      atomic.Int64

	posted   atomic.Uint64
	executed atomic.Uint64
	dropped  atomic.Uint64
	panicked atomic.Uint64

	log *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithQueueSize sets the task queue capacity.
func WithQueueSize(size int) Option {
	return func(l *Loop) {
		if size > 0 {
			l.queueSize = size
		}
	}
}

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a loop. The loop does not drain tasks until Run or Start is
// called.
func New(opts ...Option) *Loop {
	l := &Loop{
		queueSize: 1024,
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.queue = make(chan func(), l.queueSize)
	return l
}

// Run binds the loop to the calling goroutine and drains tasks until Stop is
// called. Tasks queued before Stop are executed before Run returns.
func (l *Loop) Run() error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	l.gid.Store(currentGoroutineID())
	defer func() {
		l.running.Store(false)
		close(l.exited)
	}()

	for {
		select {
		case <-l.done:
			// Drain tasks that were queued before the stop signal.
			for {
				select {
				case task := <-l.queue:
					l.execute(task)
				default:
					return nil
				}
			}
		case task := <-l.queue:
			l.execute(task)
		}
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start() error {
	if l.running.Load() {
		return ErrAlreadyRunning
	}
	go func() { _ = l.Run() }()
	return nil
}

// Stop signals the loop to finish and blocks until queued tasks have drained
// or ctx expires. Posting after Stop returns ErrStopped.
func (l *Loop) Stop(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.done) })
	if !l.running.Load() {
		return nil
	}
	select {
	case <-l.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post enqueues a task for execution on the loop goroutine. It never blocks:
// a full queue returns ErrFull and a stopped loop returns ErrStopped.
func (l *Loop) Post(task func()) error {
	if task == nil {
		return nil
	}
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.queue <- task:
		l.posted.Add(1)
		return nil
	default:
		l.dropped.Add(1)
		return ErrFull
	}
}

// OnLoop reports whether the caller is running on the loop goroutine.
func (l *Loop) OnLoop() bool {
	return l.running.Load() && l.gid.Load() == currentGoroutineID()
}

// IsRunning reports whether the loop is draining tasks.
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

func (l *Loop) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panicked.Add(1)
			l.log.Error("loop task panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	l.executed.Add(1)
	task()
}

// Stats is a snapshot of loop activity.
type Stats struct {
	// Posted is the number of tasks accepted by Post.
	Posted uint64

	// Executed is the number of tasks that have run.
	Executed uint64

	// Dropped is the number of tasks rejected because the queue was full.
	Dropped uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// QueueDepth is the number of tasks currently waiting.
	QueueDepth int
}

// Stats returns a snapshot of loop activity.
func (l *Loop) Stats() Stats {
	return Stats{
		Posted:     l.posted.Load(),
		Executed:   l.executed.Load(),
		Dropped:    l.dropped.Load(),
		Panicked:   l.panicked.Load(),
		QueueDepth: len(l.queue),
	}
}
