package document

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/watchable"
)

// ErrInvalidJSON is returned when the supplied bytes are not a valid
// JSON document.
var ErrInvalidJSON = errors.New("document: invalid JSON")

// Document is an observable JSON value. Reads address locations with
// gjson path syntax; every write broadcasts change events through the
// document's emitter.
//
// A Document is safe for concurrent use.
type Document struct {
	emitter *watchable.Emitter

	mu  sync.RWMutex
	raw []byte
}

// New creates a document from JSON bytes. The bytes are copied. Emitter
// options configure delivery for the document's events.
func New(data []byte, opts ...watchable.EmitterOption) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	d := &Document{raw: bytes.Clone(data)}
	d.emitter = watchable.NewEmitter(d, opts...)
	return d, nil
}

// Emitter returns the document's emitter.
func (d *Document) Emitter() *watchable.Emitter { return d.emitter }

// Bytes returns a copy of the current document.
func (d *Document) Bytes() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return bytes.Clone(d.raw)
}

// String returns the current document as a string.
func (d *Document) String() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return string(d.raw)
}

// Get resolves path inside the document. A missing path yields a result
// whose Exists reports false.
func (d *Document) Get(path string) gjson.Result {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return gjson.GetBytes(d.raw, path)
}

// Set writes value at path, creating intermediate objects as needed,
// then emits a property-change event for the path followed by an
// object-change event. Set always emits, equal value or not.
func (d *Document) Set(path string, value any, opts ...watchable.Option) error {
	d.mu.Lock()
	old := gjson.GetBytes(d.raw, path)
	updated, err := sjson.SetBytes(d.raw, path, value)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("document: set %q: %w", path, err)
	}
	d.raw = updated
	d.mu.Unlock()

	d.emitChange(path, old, opts)
	return nil
}

// SetRaw writes a pre-encoded JSON fragment at path. The emission
// contract matches Set.
func (d *Document) SetRaw(path, rawJSON string, opts ...watchable.Option) error {
	if !gjson.Valid(rawJSON) {
		return fmt.Errorf("document: set raw %q: %w", path, ErrInvalidJSON)
	}

	d.mu.Lock()
	old := gjson.GetBytes(d.raw, path)
	updated, err := sjson.SetRawBytes(d.raw, path, []byte(rawJSON))
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("document: set raw %q: %w", path, err)
	}
	d.raw = updated
	d.mu.Unlock()

	d.emitChange(path, old, opts)
	return nil
}

// Delete removes path from the document and emits a property-change
// event, old value populated and new value absent, followed by an
// object-change event. Deleting a path that does not exist is a no-op
// and emits nothing.
func (d *Document) Delete(path string, opts ...watchable.Option) error {
	d.mu.Lock()
	old := gjson.GetBytes(d.raw, path)
	if !old.Exists() {
		d.mu.Unlock()
		return nil
	}
	updated, err := sjson.DeleteBytes(d.raw, path)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("document: delete %q: %w", path, err)
	}
	d.raw = updated
	d.mu.Unlock()

	watchable.EmitPropertyChange(d.emitter, d, Path(path), &old, opts...)
	return nil
}

// Replace swaps the whole document for new JSON bytes and emits a single
// object-change event. No per-path events are synthesized; observers of
// individual paths should re-read on object-change if they care about
// wholesale replacement.
func (d *Document) Replace(data []byte, opts ...watchable.Option) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("document: replace: %w", ErrInvalidJSON)
	}

	d.mu.Lock()
	d.raw = bytes.Clone(data)
	d.mu.Unlock()

	d.emitter.EmitObjectChange(opts...)
	return nil
}

func (d *Document) emitChange(path string, old gjson.Result, opts []watchable.Option) {
	var oldValue *gjson.Result
	if old.Exists() {
		oldValue = &old
	}
	watchable.EmitPropertyChange(d.emitter, d, Path(path), oldValue, opts...)
}

// Path builds a property path addressing a location inside a document,
// for use with ObservePath and the other typed helpers. The path name is
// the gjson path itself, so observation and emission agree on the event
// identifier. Document paths are read-only; writes go through Set.
func Path(path string) watchable.Path[Document, gjson.Result] {
	return watchable.NewPath(path, func(d *Document) gjson.Result {
		return d.Get(path)
	})
}
