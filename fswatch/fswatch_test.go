package fswatch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/watchable"
)

type change struct {
	old string
	new string
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
}

func watchTemp(t *testing.T, contents string) (*File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watched.txt")
	writeFile(t, path, contents)

	f, err := Watch(path)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f, path
}

func waitChange(t *testing.T, ch <-chan change) change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change notification")
		return change{}
	}
}

func TestWatch_Validation(t *testing.T) {
	if _, err := Watch(filepath.Join(t.TempDir(), "missing.txt")); !errors.Is(err, ErrPathNotExist) {
		t.Errorf("Watch(missing) error = %v, want ErrPathNotExist", err)
	}
	if _, err := Watch(t.TempDir()); !errors.Is(err, ErrNotFile) {
		t.Errorf("Watch(dir) error = %v, want ErrNotFile", err)
	}
}

func TestWatch_InitialContents(t *testing.T) {
	f, _ := watchTemp(t, "hello")

	if got := f.Contents(); got != "hello" {
		t.Errorf("Contents() = %q, want the baseline read at Watch", got)
	}
	if !filepath.IsAbs(f.Path()) {
		t.Errorf("Path() = %q, want an absolute path", f.Path())
	}
}

func TestSubscribe_NotifiesOnWrite(t *testing.T) {
	f, path := watchTemp(t, "v1")

	changes := make(chan change, 4)
	cancel, err := f.Subscribe(func(old *string, contents string) {
		c := change{new: contents}
		if old != nil {
			c.old = *old
		}
		changes <- c
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	writeFile(t, path, "v2")

	c := waitChange(t, changes)
	if c.old != "v1" || c.new != "v2" {
		t.Errorf("change = %q -> %q, want v1 -> v2", c.old, c.new)
	}
	if got := f.Contents(); got != "v2" {
		t.Errorf("Contents() = %q after the write, want v2", got)
	}
}

func TestSubscribe_EqualContentsSuppressed(t *testing.T) {
	f, path := watchTemp(t, "same")

	changes := make(chan change, 4)
	cancel, err := f.Subscribe(func(old *string, contents string) {
		changes <- change{new: contents}
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	// Rewriting identical bytes raises a filesystem event but no
	// content transition.
	writeFile(t, path, "same")
	writeFile(t, path, "different")

	c := waitChange(t, changes)
	if c.new != "different" {
		t.Errorf("first notification carries %q, want the equal write suppressed", c.new)
	}
}

func TestSubscribe_CancelStopsNotifications(t *testing.T) {
	f, path := watchTemp(t, "v1")

	changes := make(chan change, 4)
	cancel, err := f.Subscribe(func(old *string, contents string) {
		changes <- change{new: contents}
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	cancel()

	writeFile(t, path, "v2")

	// Give the watch goroutine a moment; nothing may arrive.
	select {
	case c := <-changes:
		t.Errorf("cancelled subscriber notified with %q", c.new)
	case <-time.After(200 * time.Millisecond):
	}

	if got := f.Stats().Subscribers; got != 0 {
		t.Errorf("Subscribers = %d after cancel, want 0", got)
	}
}

func TestRemove_TransitionsToEmpty(t *testing.T) {
	f, path := watchTemp(t, "doomed")

	changes := make(chan change, 4)
	cancel, err := f.Subscribe(func(old *string, contents string) {
		c := change{new: contents}
		if old != nil {
			c.old = *old
		}
		changes <- c
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove error = %v", err)
	}

	c := waitChange(t, changes)
	if c.old != "doomed" || c.new != "" {
		t.Errorf("change = %q -> %q, want doomed -> empty", c.old, c.new)
	}
}

func TestClose_Idempotent(t *testing.T) {
	f, _ := watchTemp(t, "x")

	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	if _, err := f.Subscribe(func(*string, string) {}); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Subscribe after Close error = %v, want ErrWatcherClosed", err)
	}
}

func TestStats(t *testing.T) {
	f, path := watchTemp(t, "v1")

	done := make(chan struct{}, 1)
	cancel, err := f.Subscribe(func(*string, string) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	writeFile(t, path, "v2")
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the notification")
	}

	stats := f.Stats()
	if stats.Events == 0 {
		t.Error("Stats().Events = 0 after a write")
	}
	if stats.Notified == 0 {
		t.Error("Stats().Notified = 0 after a delivered transition")
	}
	if stats.Subscribers != 1 {
		t.Errorf("Stats().Subscribers = %d, want 1", stats.Subscribers)
	}
	if stats.StartTime.IsZero() {
		t.Error("Stats().StartTime is zero")
	}
}

func TestBind_FeedsEmitter(t *testing.T) {
	f, path := watchTemp(t, "v1")

	e := watchable.NewEmitter(nil)
	binding, err := Bind(f, e)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer binding.Dispose()

	type propChange struct {
		old string
		new string
	}
	events := make(chan propChange, 4)
	token := watchable.ObservePath(e, ContentsPath(f.Path()),
		func(ev *watchable.PropertyChangeEvent[string]) {
			old, _ := ev.OldValue()
			events <- propChange{old: old, new: ev.NewValue()}
		})
	defer token.Dispose()

	objectChanges := make(chan struct{}, 4)
	ocToken := e.ObserveObjectChange(func(ev *watchable.ObjectChangeEvent) {
		if !ev.Attributes().Has(watchable.AttrInitial) {
			objectChanges <- struct{}{}
		}
	})
	defer ocToken.Dispose()

	writeFile(t, path, "v2")

	select {
	case ev := <-events:
		if ev.old != "v1" || ev.new != "v2" {
			t.Errorf("property event = %q -> %q, want v1 -> v2", ev.old, ev.new)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the property event")
	}

	select {
	case <-objectChanges:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the companion object-change")
	}
}

func TestBind_DisposeDisconnects(t *testing.T) {
	f, path := watchTemp(t, "v1")

	e := watchable.NewEmitter(nil)
	binding, err := Bind(f, e)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	events := make(chan string, 4)
	token := watchable.ObservePath(e, ContentsPath(f.Path()),
		func(ev *watchable.PropertyChangeEvent[string]) {
			events <- ev.NewValue()
		})
	defer token.Dispose()

	binding.Dispose()
	writeFile(t, path, "v2")

	select {
	case got := <-events:
		t.Errorf("disposed binding still delivered %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}
