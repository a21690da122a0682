// Package fswatch turns files on disk into observable properties.
//
// A File watches one path through fsnotify and reports content transitions
// to its subscribers as old/new value pairs. The Subscribe method matches
// the watchable bridge contract, so a watched file plugs straight into an
// emitter:
//
//	f, err := fswatch.Watch("config.toml")
//	if err != nil { ... }
//	defer f.Close()
//
//	binding, err := fswatch.Bind(f, obj.Emitter())
//	if err != nil { ... }
//	defer binding.Dispose()
//
// Every external modification now surfaces as a property-change event for
// the file's path followed by an object-change event, exactly as if the
// property had been mutated in process.
package fswatch

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/watchable"
)

// Errors returned by watch operations.
var (
	// ErrWatcherClosed is returned when using a closed File.
	ErrWatcherClosed = errors.New("fswatch: watcher is closed")

	// ErrPathNotExist is returned when the watched path does not exist.
	ErrPathNotExist = errors.New("fswatch: path does not exist")

	// ErrNotFile is returned when the watched path is a directory.
	ErrNotFile = errors.New("fswatch: path is not a regular file")
)

// File watches one file and notifies subscribers when its contents change.
// Notifications carry the previous and current contents; a modification
// that leaves the contents byte-identical is suppressed.
type File struct {
	path string
	fsw  *fsnotify.Watcher
	log  *slog.Logger

	mu          sync.Mutex
	contents    string
	subscribers map[uint64]watchable.NotifyFunc[string]
	nextID      uint64
	closed      bool
	lastError   error

	closeCh chan struct{}
	wg      sync.WaitGroup

	startTime  time.Time
	seenEvents atomic.Int64
	notified   atomic.Int64
	numErrors  atomic.Int64
}

// Option configures a File.
type Option func(*File)

// WithLogger sets the logger used for watch errors. The default is
// slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(f *File) {
		if log != nil {
			f.log = log
		}
	}
}

// Watch starts watching the file at path. The file must exist; its current
// contents become the baseline for the first change notification.
func Watch(path string, opts ...Option) (*File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFile
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(absPath); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	f := &File{
		path:        absPath,
		fsw:         fsw,
		log:         slog.Default(),
		contents:    string(data),
		subscribers: make(map[uint64]watchable.NotifyFunc[string]),
		closeCh:     make(chan struct{}),
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.wg.Add(1)
	go f.processLoop()

	return f, nil
}

// Path returns the absolute path being watched.
func (f *File) Path() string { return f.path }

// Contents returns the most recently observed contents.
func (f *File) Contents() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contents
}

// Subscribe registers notify for content transitions and returns a cancel
// function removing it. The signature matches watchable.SubscribeFunc, so
// a File feeds watchable.BindChanges directly.
func (f *File) Subscribe(notify watchable.NotifyFunc[string]) (cancel func(), err error) {
	if notify == nil {
		return nil, errors.New("fswatch: nil notify function")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrWatcherClosed
	}

	id := f.nextID
	f.nextID++
	f.subscribers[id] = notify

	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}, nil
}

// Close stops the watcher and releases resources. Close is idempotent.
// Subscribers receive no further notifications after Close returns.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.closeCh)
	f.mu.Unlock()

	f.wg.Wait()
	return f.fsw.Close()
}

// Stats is a snapshot of watcher activity.
type Stats struct {
	// Events is the number of filesystem events seen.
	Events int64

	// Notified is the number of content transitions delivered.
	Notified int64

	// Errors is the number of watch errors encountered.
	Errors int64

	// LastError is the most recent watch error, if any.
	LastError error

	// Subscribers is the number of active subscriptions.
	Subscribers int

	// StartTime is when the watch began.
	StartTime time.Time
}

// Stats returns a snapshot of watcher activity.
func (f *File) Stats() Stats {
	f.mu.Lock()
	lastError := f.lastError
	subscribers := len(f.subscribers)
	f.mu.Unlock()

	return Stats{
		Events:      f.seenEvents.Load(),
		Notified:    f.notified.Load(),
		Errors:      f.numErrors.Load(),
		LastError:   lastError,
		Subscribers: subscribers,
		StartTime:   f.startTime,
	}
}

func (f *File) processLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.closeCh:
			return

		case ev, ok := <-f.fsw.Events:
			if !ok {
				return
			}
			f.seenEvents.Add(1)
			f.handleEvent(ev)

		case err, ok := <-f.fsw.Errors:
			if !ok {
				return
			}
			f.recordError(err)
		}
	}
}

func (f *File) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create):
		data, err := os.ReadFile(f.path)
		if err != nil {
			f.recordError(err)
			return
		}
		f.transition(string(data))

	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		// The file is gone; report the transition to empty contents.
		f.transition("")
	}
}

// transition updates the cached contents and notifies subscribers when
// the contents actually changed. Callbacks run on the watch goroutine.
func (f *File) transition(contents string) {
	f.mu.Lock()
	if f.closed || contents == f.contents {
		f.mu.Unlock()
		return
	}
	old := f.contents
	f.contents = contents
	notify := make([]watchable.NotifyFunc[string], 0, len(f.subscribers))
	for _, n := range f.subscribers {
		notify = append(notify, n)
	}
	f.mu.Unlock()

	for _, n := range notify {
		f.notified.Add(1)
		n(&old, contents)
	}
}

func (f *File) recordError(err error) {
	f.numErrors.Add(1)
	f.mu.Lock()
	f.lastError = err
	f.mu.Unlock()
	f.log.Warn("file watch error",
		slog.String("path", f.path),
		slog.String("error", err.Error()),
	)
}

// ContentsPath builds the property path for a watched file's contents.
// The path name is the file path itself, so every subscriber and emission
// for the same file agrees on the event identifier.
func ContentsPath(path string) watchable.Path[File, string] {
	return watchable.NewPath(path, func(f *File) string {
		if f == nil {
			return ""
		}
		return f.Contents()
	})
}

// Bind connects the watched file to an emitter: every content transition
// becomes a property-change event for the file's path followed by an
// object-change event. Dispose the returned binding to disconnect; the
// file keeps watching until Close.
func Bind(f *File, e *watchable.Emitter) (*watchable.Binding, error) {
	return watchable.BindChanges(e, ContentsPath(f.path), f.Subscribe)
}
