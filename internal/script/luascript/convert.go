package luascript

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/varlab/vexpress/internal/script"
)

// toLua translates a guest-model value into its Lua representation. Lists
// become 1-based array tables, maps become string-keyed tables.
func toLua(ls *lua.LState, v script.Value) lua.LValue {
	switch t := v.(type) {
	case nil, script.Null:
		return lua.LNil
	case script.Bool:
		return lua.LBool(t)
	case script.Int:
		return lua.LNumber(t)
	case script.Float:
		return lua.LNumber(t)
	case script.Str:
		return lua.LString(t)
	case script.List:
		tbl := ls.NewTable()
		for i, e := range t {
			tbl.RawSetInt(i+1, toLua(ls, e))
		}
		return tbl
	case script.Map:
		tbl := ls.NewTable()
		for k, e := range t {
			tbl.RawSetString(k, toLua(ls, e))
		}
		return tbl
	}
	return lua.LNil
}

// fromLua translates a Lua value back into the guest model. Numbers with no
// fractional part come back as integers; tables with array entries become
// lists, the rest become maps. A table mixing array and hash parts keeps the
// array part only.
func fromLua(lv lua.LValue) script.Value {
	switch t := lv.(type) {
	case *lua.LNilType:
		return script.Null{}
	case lua.LBool:
		return script.Bool(t)
	case lua.LNumber:
		f := float64(t)
		if n := int64(f); float64(n) == f {
			return script.Int(n)
		}
		return script.Float(f)
	case lua.LString:
		return script.Str(t)
	case *lua.LTable:
		if n := t.Len(); n > 0 {
			out := make(script.List, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLua(t.RawGetInt(i)))
			}
			return out
		}
		out := make(script.Map)
		t.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				out[string(ks)] = fromLua(v)
			}
		})
		if len(out) == 0 {
			return script.List{}
		}
		return out
	}
	return script.Null{}
}
