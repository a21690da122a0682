// Package watchable provides in-process observation of objects.
//
// An observable object owns an Emitter. Mutations on the object become
// typed events broadcast through the emitter; observers register with a
// per-event-identifier filter and receive only what they asked for, plus
// coarse object-change notifications that every mutation synthesizes.
//
// # Architecture
//
//	┌────────────────┐   chained    ┌────────────────┐
//	│    Emitter     │─────────────▶│ parent Emitter  │
//	│  - registry    │              │  (collection)   │
//	│  - routing     │              └────────────────┘
//	└────────────────┘
//	        │
//	        ▼
//	┌────────────────┐
//	│   Dispatcher   │   immediate | on-loop | next-turn |
//	│                │   background | serial
//	└────────────────┘
//	        │
//	        ▼
//	┌────────────────┐
//	│    Observer    │   OnChange(ev)
//	└────────────────┘
//
// # Event Identifiers
//
// Events are routed by identifier. Property events derive theirs from the
// property name, everything else is caller-chosen:
//
//	property.name     - the "name" property changed (PropertyID("name"))
//	object-change     - something about the object changed (ObjectChange)
//	array-change      - a sequence transition on a Slice (ArrayChange)
//	all               - subscription shorthand for every event (All)
//
// # Registration
//
// Registering an observer immediately delivers an object-change event
// carrying AttrInitial, to that observer alone, reflecting the object's
// current state. An emitter holds at most one entry per observer;
// re-registering replaces the filter. Observers implementing Expiring are
// skipped once expired and purged during later registrations.
//
// # Emission
//
// Property emission always comes in pairs: the typed property-change
// event first, then a plain object-change event, so observers can choose
// between precise and coarse granularity. Custom events emitted through
// Emit or EmitValueChange stand alone. Emission is fire-and-forget: a
// hand-off the strategy cannot accept is logged and dropped, never an
// error to the emitting call.
//
// # Delivery Strategies
//
// Each emitter has a default dispatch strategy, overridable per emission
// with WithDispatcher:
//
//   - Immediate: observer runs before the emitting call returns
//   - OnLoop: on the coordination loop, inline when already there
//   - NextTurn: always deferred to the loop's next turn
//   - Background: worker pool, no ordering guarantees
//   - Serial: one goroutine, FIFO; shared instances share total order
//
// # Basic Usage
//
//	type Player struct {
//		watchable.Base
//		Score int
//	}
//
//	var scorePath = watchable.NewPath("score", func(p *Player) int { return p.Score })
//
//	p := &Player{}
//	p.Bind(p)
//
//	token := watchable.ObservePath(p.Emitter(), scorePath,
//		func(ev *watchable.PropertyChangeEvent[int]) {
//			fmt.Println("score is now", ev.NewValue())
//		})
//	defer token.Dispose()
//
//	old := p.Score
//	p.Score = 10
//	watchable.EmitPropertyChange(p.Emitter(), p, scorePath, &old)
//
// # Collections
//
// Slice is an observable sequence mutated through Assign. Observable
// elements are chained to the collection while they are members, so
// element-level changes surface on the collection's emitter together
// with the element and its current index:
//
//	team := watchable.NewSlice([]*Player{alice, bob})
//	team.ObserveElementChange(func(ev watchable.AnyEvent, p *Player, i int) {
//		fmt.Println("player", i, "changed")
//	})
//	team.Assign(func(players []*Player) []*Player {
//		return append(players, carol)
//	})
//
// # Proxies
//
// Proxy makes a plain value observable without the value's cooperation:
// Set writes one property and emits the property/object-change pair,
// Emplace replaces the whole value and emits object-change only.
package watchable
