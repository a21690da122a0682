package script

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/watchable"
)

// eventToTable renders an event as a Lua table. Must run on the engine
// goroutine. The table always carries the identifier, attribute flags,
// debug description, and metadata; typed payload accessors are probed by
// name, so property, value, and array events expose their values too:
//
//	ev.id          string
//	ev.initial     bool
//	ev.pending     bool
//	ev.debug       string
//	ev.meta        { id, timestamp }   -- timestamp in unix seconds
//	ev.userInfo    table or nil
//	ev.value       ValueChangeEvent payload
//	ev.newValue    PropertyChangeEvent payload
//	ev.oldValue    PropertyChangeEvent payload, nil when unknown
//	ev.newValues   ArrayChangeEvent payload
//	ev.oldValues   ArrayChangeEvent payload
func eventToTable(L *lua.LState, ev watchable.AnyEvent) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(ev.EventID()))
	t.RawSetString("initial", lua.LBool(ev.Attributes().Has(watchable.AttrInitial)))
	t.RawSetString("pending", lua.LBool(ev.Attributes().Has(watchable.AttrPending)))
	t.RawSetString("debug", lua.LString(ev.DebugDescription()))

	meta := L.NewTable()
	meta.RawSetString("id", lua.LString(ev.Meta().ID))
	meta.RawSetString("timestamp", lua.LNumber(ev.Meta().Timestamp.Unix()))
	t.RawSetString("meta", meta)

	if info := ev.UserInfo(); info != nil {
		t.RawSetString("userInfo", toLua(L, info))
	}

	addPayload(L, t, ev)
	return t
}

// addPayload copies the typed payload of concrete event types into the
// table. The accessors live on generic types, so they are found by
// reflection rather than interface assertion.
func addPayload(L *lua.LState, t *lua.LTable, ev watchable.AnyEvent) {
	rv := reflect.ValueOf(ev)

	if m := rv.MethodByName("Value"); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
		t.RawSetString("value", toLua(L, m.Call(nil)[0].Interface()))
	}
	if m := rv.MethodByName("NewValue"); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
		t.RawSetString("newValue", toLua(L, m.Call(nil)[0].Interface()))
	}
	if m := rv.MethodByName("OldValue"); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 2 {
		out := m.Call(nil)
		if out[1].Kind() == reflect.Bool && out[1].Bool() {
			t.RawSetString("oldValue", toLua(L, out[0].Interface()))
		}
	}
	if m := rv.MethodByName("NewValues"); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
		t.RawSetString("newValues", toLua(L, m.Call(nil)[0].Interface()))
	}
	if m := rv.MethodByName("OldValues"); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
		t.RawSetString("oldValues", toLua(L, m.Call(nil)[0].Interface()))
	}
}

// toLua converts a Go value to a Lua value. Scalars map directly, slices
// become array tables, maps and structs become tables; anything else is
// wrapped as userdata.
func toLua(L *lua.LState, v any) lua.LValue {
	if v == nil {
		return lua.LNil
	}

	switch val := v.(type) {
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case map[string]any:
		t := L.NewTable()
		for k, mv := range val {
			t.RawSetString(k, toLua(L, mv))
		}
		return t
	case lua.LValue:
		return val
	}

	return reflectToLua(L, reflect.ValueOf(v))
}

func reflectToLua(L *lua.LState, rv reflect.Value) lua.LValue {
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return reflectToLua(L, rv.Elem())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())

	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())

	case reflect.Bool:
		return lua.LBool(rv.Bool())

	case reflect.String:
		return lua.LString(rv.String())

	case reflect.Slice, reflect.Array:
		t := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, toLua(L, rv.Index(i).Interface()))
		}
		return t

	case reflect.Map:
		t := L.NewTable()
		for _, key := range rv.MapKeys() {
			t.RawSet(toLua(L, key.Interface()), toLua(L, rv.MapIndex(key).Interface()))
		}
		return t

	case reflect.Struct:
		t := L.NewTable()
		rt := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			if !rt.Field(i).IsExported() {
				continue
			}
			t.RawSetString(rt.Field(i).Name, toLua(L, rv.Field(i).Interface()))
		}
		return t

	default:
		ud := L.NewUserData()
		ud.Value = rv.Interface()
		return ud
	}
}
