package lua

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// registerJSONModule installs json.encode and json.decode so scripts can
// build requests and read results.
func registerJSONModule(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"encode": func(L *lua.LState) int {
			v, err := toGo(L.CheckAny(1))
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			b, err := json.Marshal(v)
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LString(b))
			return 1
		},
		"decode": func(L *lua.LState) int {
			var v any
			if err := json.Unmarshal([]byte(L.CheckString(1)), &v); err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(toLua(L, v))
			return 1
		},
	})
	L.SetGlobal("json", mod)
}

// maxTableDepth bounds table nesting accepted by toGo.
const maxTableDepth = 64

var errCyclicTable = errors.New("cannot convert a table that contains itself")

// toGo converts a Lua value to its JSON-ready Go form. A table whose keys are
// exactly 1..n becomes a slice; an empty table becomes an empty slice.
// Cyclic or overly nested tables are rejected.
func toGo(v lua.LValue) (any, error) {
	c := converter{path: make(map[*lua.LTable]bool)}
	return c.value(v, 0)
}

type converter struct {
	// path holds the tables being converted above the current one. A table
	// shared by two siblings is fine; one that reaches itself is not.
	path map[*lua.LTable]bool
}

func (c converter) value(v lua.LValue, depth int) (any, error) {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val), nil
	case lua.LNumber:
		return float64(val), nil
	case lua.LString:
		return string(val), nil
	case *lua.LTable:
		return c.table(val, depth)
	default:
		return nil, nil
	}
}

func (c converter) table(tbl *lua.LTable, depth int) (any, error) {
	if depth >= maxTableDepth {
		return nil, fmt.Errorf("table nesting exceeds %d levels", maxTableDepth)
	}
	if c.path[tbl] {
		return nil, errCyclicTable
	}
	c.path[tbl] = true
	defer delete(c.path, tbl)

	if n := tbl.Len(); n > 0 && isSequence(tbl, n) {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			item, err := c.value(tbl.RawGetInt(i), depth+1)
			if err != nil {
				return nil, err
			}
			arr[i-1] = item
		}
		return arr, nil
	}

	m := make(map[string]any)
	var err error
	tbl.ForEach(func(k, item lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok || err != nil {
			return
		}
		m[string(key)], err = c.value(item, depth+1)
	})
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return []any{}, nil
	}
	return m, nil
}

func isSequence(tbl *lua.LTable, n int) bool {
	count := 0
	sequence := true
	tbl.ForEach(func(k, _ lua.LValue) {
		count++
		if _, ok := k.(lua.LNumber); !ok {
			sequence = false
		}
	})
	return sequence && count == n
}

// toLua converts a decoded JSON value to a Lua value.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.CreateTable(len(val), 0)
		for i, item := range val {
			tbl.RawSetInt(i+1, toLua(L, item))
		}
		return tbl
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tbl := L.CreateTable(0, len(val))
		for _, k := range keys {
			tbl.RawSetString(k, toLua(L, val[k]))
		}
		return tbl
	default:
		return lua.LNil
	}
}
