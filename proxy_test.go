package watchable

import (
	"slices"
	"testing"
)

type account struct {
	Owner   string
	Balance int
}

var balancePath = NewPath("balance", func(a *account) int { return a.Balance }).
	WithSetter(func(a *account, v int) { a.Balance = v })

func TestProxy_Value(t *testing.T) {
	p := NewProxy(account{Owner: "alice", Balance: 100})

	got := p.Value()
	if got.Owner != "alice" || got.Balance != 100 {
		t.Errorf("Value() = %+v, want the initial value", got)
	}
}

func TestProxySet_EmitsPair(t *testing.T) {
	p := NewProxy(account{Balance: 100})

	var order []EventID
	token := p.Emitter().Observe(All, func(ev AnyEvent) {
		order = append(order, ev.EventID())
	})
	defer token.Dispose()
	order = nil

	Set(p, balancePath, 150)

	want := []EventID{PropertyID("balance"), ObjectChange}
	if !slices.Equal(order, want) {
		t.Errorf("delivery order = %v, want %v", order, want)
	}
	if got := p.Value().Balance; got != 150 {
		t.Errorf("Balance = %d after Set, want 150", got)
	}
}

func TestProxySet_Payload(t *testing.T) {
	p := NewProxy(account{Balance: 100})

	var got *PropertyChangeEvent[int]
	token := ObservePath(p.Emitter(), balancePath, func(ev *PropertyChangeEvent[int]) {
		got = ev
	})
	defer token.Dispose()

	Set(p, balancePath, 150)

	if got == nil {
		t.Fatal("property observer was not invoked")
	}
	if v, ok := got.OldValue(); !ok || v != 100 {
		t.Errorf("OldValue() = %v, %v, want 100, true", v, ok)
	}
	if got.NewValue() != 150 {
		t.Errorf("NewValue() = %d, want 150", got.NewValue())
	}
	if src, ok := got.Source().(*Proxy[account]); !ok || src != p {
		t.Errorf("Source = %v, want the proxy", got.Source())
	}
}

func TestProxySet_EqualValueStillEmits(t *testing.T) {
	p := NewProxy(account{Balance: 100})

	calls := 0
	token := ObservePath(p.Emitter(), balancePath, func(*PropertyChangeEvent[int]) {
		calls++
	})
	defer token.Dispose()

	Set(p, balancePath, 100)

	if calls != 1 {
		t.Errorf("got %d property events, want 1; proxy writes emit unconditionally", calls)
	}
}

func TestProxyEmplace_ObjectChangeOnly(t *testing.T) {
	p := NewProxy(account{Balance: 100})

	var order []EventID
	token := p.Emitter().Observe(All, func(ev AnyEvent) {
		order = append(order, ev.EventID())
	})
	defer token.Dispose()
	order = nil

	p.Emplace(account{Owner: "bob", Balance: 5})

	if !slices.Equal(order, []EventID{ObjectChange}) {
		t.Errorf("delivery = %v, want a single object-change", order)
	}
	if got := p.Value(); got.Owner != "bob" || got.Balance != 5 {
		t.Errorf("Value() = %+v, want the emplaced value", got)
	}
}

func TestProxyEmplace_NeverInitial(t *testing.T) {
	p := NewProxy(account{})

	var last AnyEvent
	token := p.Emitter().Observe(ObjectChange, func(ev AnyEvent) {
		last = ev
	})
	defer token.Dispose()

	// Even a caller insisting on the attribute does not get it.
	p.Emplace(account{Balance: 1}, WithAttributes(AttrInitial))

	if last == nil {
		t.Fatal("observer was not invoked")
	}
	if last.Attributes().Has(AttrInitial) {
		t.Error("emplace notification carries AttrInitial; only registration may")
	}
}

func TestProxyEmplace_EqualValueStillEmits(t *testing.T) {
	p := NewProxy(account{Balance: 1})

	calls := 0
	token := p.Emitter().ObserveObjectChange(func(*ObjectChangeEvent) {
		calls++
	})
	defer token.Dispose()
	calls = 0

	p.Emplace(account{Balance: 1})

	if calls != 1 {
		t.Errorf("got %d events for an equal emplace, want 1", calls)
	}
}
