package watchable

// Observer receives events from an emitter. Observers are compared by
// identity: registering the same observer again replaces its entry, so an
// emitter holds at most one registration per observer.
type Observer interface {
	OnChange(ev AnyEvent)
}

// Expiring is an optional interface for observers whose lifetime can end
// before they are unregistered. An expired observer is skipped at delivery
// without error and removed for good during a later registration pass.
type Expiring interface {
	Expired() bool
}

// funcObserver adapts a function to Observer. Every adapter is a distinct
// pointer, so each Observe call gets its own registration identity.
type funcObserver struct {
	fn func(AnyEvent)
}

func (o *funcObserver) OnChange(ev AnyEvent) { o.fn(ev) }

// registration is one observer entry together with its event filter.
type registration struct {
	observer Observer
	ids      map[EventID]struct{}
	all      bool
}

func newRegistration(observer Observer, ids []EventID) *registration {
	r := &registration{observer: observer}
	if len(ids) == 0 {
		r.all = true
		return r
	}
	r.ids = make(map[EventID]struct{}, len(ids))
	for _, id := range ids {
		if id == All {
			r.all = true
		}
		r.ids[id] = struct{}{}
	}
	return r
}

// matches reports whether the entry should receive ev. Targeted delivery
// relaxes the filter for object-change events so a fresh registration
// always sees its initial notification, whatever it subscribed to.
func (r *registration) matches(ev AnyEvent, targeted bool) bool {
	if r.all {
		return true
	}
	if _, ok := r.ids[ev.EventID()]; ok {
		return true
	}
	return targeted && ev.EventID() == ObjectChange
}

// expired reports whether the observer has declared itself dead.
func (r *registration) expired() bool {
	if ex, ok := r.observer.(Expiring); ok {
		return ex.Expired()
	}
	return false
}
