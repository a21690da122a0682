package watchable

import (
	"errors"
	"slices"
	"testing"
)

func TestBindChanges_NilSubscribe(t *testing.T) {
	o := newTestObject("subject")
	if _, err := BindChanges[testObject, int](o.Emitter(), scorePath, nil); !errors.Is(err, ErrNilSubscribe) {
		t.Fatalf("BindChanges(nil) error = %v, want ErrNilSubscribe", err)
	}
}

func TestBindChanges_SubscribeError(t *testing.T) {
	o := newTestObject("subject")
	boom := errors.New("source unavailable")

	_, err := BindChanges(o.Emitter(), scorePath, func(NotifyFunc[int]) (func(), error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("BindChanges error = %v, want the subscribe error", err)
	}
}

func TestBindChanges_EmitsPair(t *testing.T) {
	o := newTestObject("subject")
	e := o.Emitter()

	var notify NotifyFunc[int]
	binding, err := BindChanges(e, scorePath, func(n NotifyFunc[int]) (func(), error) {
		notify = n
		return func() {}, nil
	})
	if err != nil {
		t.Fatalf("BindChanges() error = %v", err)
	}
	defer binding.Dispose()

	var order []EventID
	token := e.Observe(All, func(ev AnyEvent) {
		order = append(order, ev.EventID())
	})
	defer token.Dispose()
	order = nil

	oldValue := 1
	notify(&oldValue, 2)

	want := []EventID{PropertyID("score"), ObjectChange}
	if !slices.Equal(order, want) {
		t.Errorf("delivery order = %v, want %v", order, want)
	}
}

func TestBindChanges_TypedDelivery(t *testing.T) {
	o := newTestObject("subject")
	e := o.Emitter()

	var notify NotifyFunc[int]
	binding, err := BindChanges(e, scorePath, func(n NotifyFunc[int]) (func(), error) {
		notify = n
		return func() {}, nil
	})
	if err != nil {
		t.Fatalf("BindChanges() error = %v", err)
	}
	defer binding.Dispose()

	var got *PropertyChangeEvent[int]
	token := ObservePath(e, scorePath, func(ev *PropertyChangeEvent[int]) {
		got = ev
	})
	defer token.Dispose()

	notify(nil, 9)

	if got == nil {
		t.Fatal("property observer was not invoked")
	}
	if _, ok := got.OldValue(); ok {
		t.Error("OldValue() known, want unknown when the source reports none")
	}
	if got.NewValue() != 9 {
		t.Errorf("NewValue() = %d, want 9", got.NewValue())
	}
	if src, ok := got.Source().(*testObject); !ok || src != o {
		t.Errorf("Source = %v, want the bound observable", got.Source())
	}
}

func TestBinding_Dispose(t *testing.T) {
	o := newTestObject("subject")

	cancels := 0
	binding, err := BindChanges(o.Emitter(), scorePath, func(NotifyFunc[int]) (func(), error) {
		return func() { cancels++ }, nil
	})
	if err != nil {
		t.Fatalf("BindChanges() error = %v", err)
	}

	if !binding.Active() {
		t.Fatal("fresh binding is not active")
	}

	binding.Dispose()
	binding.Dispose()

	if cancels != 1 {
		t.Errorf("cancel ran %d times, want exactly once", cancels)
	}
	if binding.Active() {
		t.Error("disposed binding still active")
	}
}

func TestBinding_NilSafe(t *testing.T) {
	var binding *Binding
	binding.Dispose()
	if binding.Active() {
		t.Error("nil binding reports active")
	}
}
