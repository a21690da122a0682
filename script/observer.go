package script

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/watchable"
)

// Observer delivers events to a global Lua function. Deliveries are
// queued on the engine goroutine and run in arrival order; the handler
// receives one table argument describing the event.
//
// An observer whose engine has been closed reports itself expired, so
// emitters skip it at delivery and drop its registration on a later pass.
type Observer struct {
	engine *Engine
	fnName string
}

// Observer creates an observer calling the named global Lua function.
// The function does not have to exist yet; it is resolved per delivery.
func (e *Engine) Observer(fnName string) *Observer {
	if fnName == "" {
		panic("script: empty observer function name")
	}
	return &Observer{engine: e, fnName: fnName}
}

// OnChange queues one delivery to the Lua handler. A full queue or a
// closed engine drops the event with a warning; a handler error is logged
// and does not propagate.
func (o *Observer) OnChange(ev watchable.AnyEvent) {
	err := o.engine.DoAsync(func(L *lua.LState) error {
		fnVal := L.GetGlobal(o.fnName)
		fn, ok := fnVal.(*lua.LFunction)
		if !ok {
			o.engine.log.Warn("lua observer handler missing",
				slog.String("handler", o.fnName),
				slog.String("got", fnVal.Type().String()),
			)
			return nil
		}

		L.Push(fn)
		L.Push(eventToTable(L, ev))
		if err := L.PCall(1, 0, nil); err != nil {
			o.engine.log.Warn("lua observer handler failed",
				slog.String("handler", o.fnName),
				slog.String("event", string(ev.EventID())),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
	if err != nil {
		o.engine.log.Warn("lua observer dropped event",
			slog.String("handler", o.fnName),
			slog.String("event", string(ev.EventID())),
			slog.String("error", err.Error()),
		)
	}
}

// Expired reports whether the engine has been closed.
func (o *Observer) Expired() bool {
	return o.engine.IsClosed()
}
