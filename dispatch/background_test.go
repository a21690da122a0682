package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func stopDispatcher(t testing.TB, d interface{ Stop(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestBackground_Lifecycle(t *testing.T) {
	d := NewBackground(WithQueueSize(16), WithWorkerCount(2))

	if d.IsRunning() {
		t.Fatal("new dispatcher reports running")
	}
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := d.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
	if !d.IsRunning() {
		t.Error("started dispatcher reports not running")
	}

	stopDispatcher(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Stop(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop() error = %v, want ErrNotRunning", err)
	}
}

func TestBackground_DispatchNotRunning(t *testing.T) {
	d := NewBackground()
	if err := d.Dispatch(func() {}); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Dispatch() error = %v, want ErrNotRunning", err)
	}
}

func TestBackground_ProcessesAll(t *testing.T) {
	d := NewBackground(WithQueueSize(256), WithWorkerCount(4))
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const n = 100
	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		if err := d.Dispatch(func() {
			count.Add(1)
			wg.Done()
		}); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tasks")
	}

	if got := count.Load(); got != n {
		t.Errorf("executed %d tasks, want %d", got, n)
	}

	stats := d.Stats()
	if stats.Enqueued != n {
		t.Errorf("Enqueued = %d, want %d", stats.Enqueued, n)
	}
	if stats.Processed != n {
		t.Errorf("Processed = %d, want %d", stats.Processed, n)
	}

	stopDispatcher(t, d)
}

func TestBackground_QueueFull(t *testing.T) {
	d := NewBackground(WithQueueSize(1), WithWorkerCount(1))
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	gate := make(chan struct{})
	blocked := make(chan struct{})

	// Occupy the only worker.
	if err := d.Dispatch(func() {
		close(blocked)
		<-gate
	}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the blocking task")
	}

	// Fill the queue behind it.
	if err := d.Dispatch(func() {}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	// Capacity exhausted; the hand-off must not block.
	if err := d.Dispatch(func() {}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Dispatch() error = %v, want ErrQueueFull", err)
	}
	if got := d.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}

	close(gate)
	stopDispatcher(t, d)
}

func TestBackground_PanicCounted(t *testing.T) {
	d := NewBackground(
		WithQueueSize(4),
		WithWorkerCount(1),
		WithPanicHandler(func(any, []byte) {}),
	)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := d.Dispatch(func() { panic("boom") }); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	// A sentinel task after the panicking one proves, with a single worker,
	// that the panic was fully accounted before we read the stats.
	settled := make(chan struct{})
	if err := d.Dispatch(func() { close(settled) }); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	select {
	case <-settled:
	case <-time.After(time.Second):
		t.Fatal("worker died after panic; sentinel task never ran")
	}

	if got := d.Stats().Panicked; got != 1 {
		t.Errorf("Panicked = %d, want 1", got)
	}

	stopDispatcher(t, d)
}

func TestBackground_StopDrains(t *testing.T) {
	d := NewBackground(WithQueueSize(64), WithWorkerCount(1))
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	gate := make(chan struct{})
	started := make(chan struct{})
	if err := d.Dispatch(func() {
		close(started)
		<-gate
	}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("worker never started")
	}

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		if err := d.Dispatch(func() { count.Add(1) }); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}

	close(gate)
	stopDispatcher(t, d)

	if got := count.Load(); got != 10 {
		t.Errorf("drained %d queued tasks, want 10", got)
	}
}

func TestBackground_DispatchDuringStop(t *testing.T) {
	// A hand-off racing Stop must return a dispatcher error, never panic
	// the sending goroutine on the closed queue.
	d := NewBackground(WithQueueSize(16), WithWorkerCount(2))
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				err := d.Dispatch(func() {})
				if err != nil && !errors.Is(err, ErrQueueFull) && !errors.Is(err, ErrNotRunning) {
					t.Errorf("Dispatch() error = %v", err)
					return
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	stopDispatcher(t, d)
	close(stop)
	wg.Wait()

	if err := d.Dispatch(func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Dispatch() after Stop error = %v, want ErrNotRunning", err)
	}
}

func BenchmarkBackground_Dispatch(b *testing.B) {
	d := NewBackground(WithQueueSize(4096), WithWorkerCount(4))
	if err := d.Start(); err != nil {
		b.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Stop(ctx)
	}()

	var wg sync.WaitGroup
	task := func() { wg.Done() }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		for d.Dispatch(task) != nil {
			// Queue full; yield until a worker makes room.
			time.Sleep(time.Microsecond)
		}
	}
	wg.Wait()
}
