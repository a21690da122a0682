// Package script lets Lua functions observe Go objects.
//
// An Engine owns one Lua state and serializes every operation on it
// through a single goroutine, because gopher-lua's LState is not safe for
// concurrent use. Observers created from the engine enqueue their event
// deliveries onto that goroutine, so Lua handlers run one at a time no
// matter which dispatch strategy feeds them:
//
//	eng := script.NewEngine()
//	defer eng.Close()
//
//	err := eng.DoString(ctx, `
//		count = 0
//		function on_change(ev)
//			count = count + 1
//		end
//	`)
//
//	obj.Emitter().Register(eng.Observer("on_change"))
//
// Closing the engine expires its observers; emitters skip and then purge
// them without any explicit unregistration.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// Errors returned by engine operations.
var (
	// ErrEngineClosed is returned when using a closed engine.
	ErrEngineClosed = errors.New("script: engine is closed")

	// ErrQueueFull is returned when the call queue is at capacity.
	ErrQueueFull = errors.New("script: call queue is full")
)

const defaultQueueSize = 256

// call is one Lua operation waiting for the engine goroutine.
type call struct {
	fn     func(L *lua.LState) error
	result chan error
}

// Engine owns a sandboxed Lua state. All access to the state runs on the
// engine's goroutine in submission order.
type Engine struct {
	state *lua.LState
	queue chan *call
	done  chan struct{}
	log   *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithQueueSize sets the pending-call queue capacity.
func WithQueueSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.queue = make(chan *call, size)
		}
	}
}

// WithLogger sets the logger used for dropped observer deliveries and
// handler errors. The default is slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates an engine and starts its goroutine. The Lua state
// opens only the base, table, string, and math libraries; io, os, and
// debug stay closed.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		queue: make(chan *call, defaultQueueSize),
		done:  make(chan struct{}),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	e.state = L

	e.wg.Add(1)
	go e.run()
	return e
}

func (e *Engine) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.done:
			e.drainQueue()
			e.state.Close()
			return
		case c := <-e.queue:
			err := e.execute(c)
			select {
			case c.result <- err:
			default:
			}
			close(c.result)
		}
	}
}

// execute runs one call with panic recovery, so a misbehaving handler
// cannot kill the engine goroutine.
func (e *Engine) execute(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			default:
				err = fmt.Errorf("script: lua panic: %v", v)
			}
		}
	}()
	return c.fn(e.state)
}

// drainQueue fails every queued call after close.
func (e *Engine) drainQueue() {
	for {
		select {
		case c := <-e.queue:
			select {
			case c.result <- ErrEngineClosed:
			default:
			}
			close(c.result)
		default:
			return
		}
	}
}

// Do runs fn on the engine goroutine and waits for it to finish. Calling
// Do from inside a Lua observer deadlocks; use DoAsync there.
func (e *Engine) Do(ctx context.Context, fn func(L *lua.LState) error) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineClosed
	case e.queue <- c:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-c.result:
		if !ok {
			return ErrEngineClosed
		}
		return err
	}
}

// DoAsync queues fn without waiting for it. A full queue drops the call
// with ErrQueueFull.
func (e *Engine) DoAsync(fn func(L *lua.LState) error) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-e.done:
		return ErrEngineClosed
	case e.queue <- c:
		go func() { <-c.result }()
		return nil
	default:
		return ErrQueueFull
	}
}

// DoString compiles and runs Lua source.
func (e *Engine) DoString(ctx context.Context, source string) error {
	return e.Do(ctx, func(L *lua.LState) error {
		if err := L.DoString(source); err != nil {
			return fmt.Errorf("script: %w", err)
		}
		return nil
	})
}

// DoFile compiles and runs a Lua file.
func (e *Engine) DoFile(ctx context.Context, path string) error {
	return e.Do(ctx, func(L *lua.LState) error {
		if err := L.DoFile(path); err != nil {
			return fmt.Errorf("script: %s: %w", path, err)
		}
		return nil
	})
}

// Close stops the engine. Queued calls fail with ErrEngineClosed, the Lua
// state is released, and every observer created from the engine reports
// expired. Close is idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
	e.wg.Wait()
}

// IsClosed reports whether the engine has been closed.
func (e *Engine) IsClosed() bool {
	return e.closed.Load()
}
