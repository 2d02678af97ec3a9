// Package stdlib provides the predeclared globals a Runtime binds before a
// chunk executes: the basic library (print, type, pairs, ...) built
// directly on value.GoFunction, the same builtin-function value every
// closure in lang/vm already knows how to invoke. Grounded on the basic
// library of 256lights-zb's internal/lua package (baselib.go), reshaped
// from its register-stack State API to this runtime's value.Value/
// []value.Value calling convention.
package stdlib

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mna/nenuphar/lang/ops"
	"github.com/mna/nenuphar/lang/value"
)

// Options configures the library functions that touch the outside world.
type Options struct {
	// Output is where print writes; os.Stdout if nil.
	Output io.Writer
}

// Open builds the basic library's predeclared globals, interning any
// literal strings it needs (e.g. type names) through pool so they compare
// equal to same-content literals the compiled chunk already interned.
// Bind the result's entries into a Runtime with Runtime.RegisterGlobal.
func Open(pool *value.Pool, opts *Options) map[string]value.Value {
	if opts == nil {
		opts = &Options{}
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	lib := map[string]value.Value{}
	reg := func(name string, fn func(args []value.Value) ([]value.Value, error)) {
		lib[name] = &value.GoFunction{Name: name, Fn: fn}
	}

	reg("print", func(args []value.Value) ([]value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = DisplayString(a)
		}
		fmt.Fprintln(out, strings.Join(parts, "\t"))
		return nil, nil
	})

	reg("type", func(args []value.Value) ([]value.Value, error) {
		v, err := arg(args, 0, "type")
		if err != nil {
			return nil, err
		}
		return []value.Value{value.NewStr(pool, v.Type())}, nil
	})

	reg("tostring", func(args []value.Value) ([]value.Value, error) {
		v, err := arg(args, 0, "tostring")
		if err != nil {
			return nil, err
		}
		return []value.Value{value.NewStr(pool, DisplayString(v))}, nil
	})

	reg("tonumber", func(args []value.Value) ([]value.Value, error) {
		if len(args) == 0 {
			return []value.Value{value.NilValue}, nil
		}
		if len(args) >= 2 {
			return tonumberWithBase(args[0], args[1])
		}
		n, ok := ops.CoerceToNumber(args[0])
		if !ok {
			return []value.Value{value.NilValue}, nil
		}
		return []value.Value{n}, nil
	})

	reg("next", func(args []value.Value) ([]value.Value, error) {
		t, err := tableArg(args, 0, "next")
		if err != nil {
			return nil, err
		}
		var k value.Value = value.NilValue
		if len(args) > 1 {
			k = args[1]
		}
		nk, nv, ok, err := nextKey(t, k)
		if err != nil {
			return nil, fmt.Errorf("bad argument #2 to 'next' (%w)", err)
		}
		if !ok {
			return []value.Value{value.NilValue}, nil
		}
		return []value.Value{nk, nv}, nil
	})

	reg("pairs", func(args []value.Value) ([]value.Value, error) {
		t, err := tableArg(args, 0, "pairs")
		if err != nil {
			return nil, err
		}
		return []value.Value{lib["next"], t, value.NilValue}, nil
	})

	reg("ipairs", func(args []value.Value) ([]value.Value, error) {
		t, err := tableArg(args, 0, "ipairs")
		if err != nil {
			return nil, err
		}
		iter := &value.GoFunction{Name: "ipairs.iterator", Fn: ipairsIterator}
		return []value.Value{iter, t, value.Integer(0)}, nil
	})

	reg("assert", func(args []value.Value) ([]value.Value, error) {
		if len(args) == 0 || !value.Truthy(args[0]) {
			if len(args) > 1 {
				return nil, fmt.Errorf("%s", DisplayString(args[1]))
			}
			return nil, fmt.Errorf("assertion failed!")
		}
		return args, nil
	})

	reg("error", func(args []value.Value) ([]value.Value, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("nil")
		}
		return nil, fmt.Errorf("%s", DisplayString(args[0]))
	})

	reg("select", baseSelect)

	reg("rawequal", func(args []value.Value) ([]value.Value, error) {
		a, err := arg(args, 0, "rawequal")
		if err != nil {
			return nil, err
		}
		b, err := arg(args, 1, "rawequal")
		if err != nil {
			return nil, err
		}
		eq, err := ops.Binary(ops.Equals, a, b)
		if err != nil {
			return nil, err
		}
		return []value.Value{eq}, nil
	})

	reg("rawget", func(args []value.Value) ([]value.Value, error) {
		t, err := tableArg(args, 0, "rawget")
		if err != nil {
			return nil, err
		}
		k, err := arg(args, 1, "rawget")
		if err != nil {
			return nil, err
		}
		v, _, err := t.Get(k)
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	})

	reg("rawset", func(args []value.Value) ([]value.Value, error) {
		t, err := tableArg(args, 0, "rawset")
		if err != nil {
			return nil, err
		}
		k, err := arg(args, 1, "rawset")
		if err != nil {
			return nil, err
		}
		v, err := arg(args, 2, "rawset")
		if err != nil {
			return nil, err
		}
		if err := t.Set(k, v); err != nil {
			return nil, err
		}
		return []value.Value{t}, nil
	})

	reg("rawlen", func(args []value.Value) ([]value.Value, error) {
		switch v := firstOrNil(args).(type) {
		case *value.Table:
			return []value.Value{value.Integer(v.Len())}, nil
		case value.Str:
			return []value.Value{value.Integer(v.Len())}, nil
		default:
			return nil, fmt.Errorf("table or string expected")
		}
	})

	// setmetatable/getmetatable are stubs that record nothing: setmetatable
	// returns its table argument and getmetatable always returns nil. This
	// runtime never consults a metatable during arithmetic, indexing, or
	// comparison (nowhere in lang/ops or lang/vm). Kept as no-ops rather than omitted so scripts that
	// merely set one (without relying on dispatch) don't fail to load.
	reg("setmetatable", func(args []value.Value) ([]value.Value, error) {
		t, err := tableArg(args, 0, "setmetatable")
		if err != nil {
			return nil, err
		}
		return []value.Value{t}, nil
	})
	reg("getmetatable", func(args []value.Value) ([]value.Value, error) {
		return []value.Value{value.NilValue}, nil
	})

	return lib
}

func arg(args []value.Value, i int, fn string) (value.Value, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("bad argument #%d to '%s' (value expected)", i+1, fn)
	}
	return args[i], nil
}

func firstOrNil(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.NilValue
	}
	return args[0]
}

func tableArg(args []value.Value, i int, fn string) (*value.Table, error) {
	v, err := arg(args, i, fn)
	if err != nil {
		return nil, fmt.Errorf("bad argument #%d to '%s' (table expected, got no value)", i+1, fn)
	}
	t, ok := v.(*value.Table)
	if !ok {
		return nil, fmt.Errorf("bad argument #%d to '%s' (table expected, got %s)", i+1, fn, v.Type())
	}
	return t, nil
}

func tonumberWithBase(sv, basev value.Value) ([]value.Value, error) {
	s, ok := sv.(value.Str)
	if !ok {
		return nil, fmt.Errorf("bad argument #1 to 'tonumber' (string expected, got %s)", sv.Type())
	}
	baseI, ok := basev.(value.Integer)
	if !ok {
		return nil, fmt.Errorf("bad argument #2 to 'tonumber' (number expected, got %s)", basev.Type())
	}
	base := int(baseI)
	if base < 2 || base > 36 {
		return nil, fmt.Errorf("bad argument #2 to 'tonumber' (base out of range)")
	}
	i, err := strconv.ParseInt(strings.TrimSpace(s.Bytes()), base, 64)
	if err != nil {
		return []value.Value{value.NilValue}, nil
	}
	return []value.Value{value.Integer(i)}, nil
}

func ipairsIterator(args []value.Value) ([]value.Value, error) {
	t, ok := args[0].(*value.Table)
	if !ok {
		return nil, fmt.Errorf("bad argument #1 to 'ipairs iterator' (table expected, got %s)", args[0].Type())
	}
	i := int64(args[1].(value.Integer)) + 1
	v, ok, err := t.Get(value.Integer(i))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []value.Value{value.NilValue}, nil
	}
	return []value.Value{value.Integer(i), v}, nil
}

func baseSelect(args []value.Value) ([]value.Value, error) {
	sel, err := arg(args, 0, "select")
	if err != nil {
		return nil, err
	}
	rest := args[1:]
	if s, ok := sel.(value.Str); ok && s.Bytes() == "#" {
		return []value.Value{value.Integer(len(rest))}, nil
	}
	n, ok := sel.(value.Integer)
	if !ok {
		return nil, fmt.Errorf("bad argument #1 to 'select' (number expected, got %s)", sel.Type())
	}
	idx := int(n)
	if idx < 0 {
		idx = len(rest) + idx + 1
	}
	if idx < 1 {
		return nil, fmt.Errorf("bad argument #1 to 'select' (index out of range)")
	}
	if idx > len(rest) {
		return nil, nil
	}
	return rest[idx-1:], nil
}

// nextKey implements next(t, k): find k in t's deterministic iteration
// order (Table.Next, see value/table.go) and return the following pair, the
// first pair if k is nil, or ok=false once iteration is exhausted.
func nextKey(t *value.Table, k value.Value) (nk, nv value.Value, ok bool, err error) {
	pairs := t.Next()
	if _, isNil := k.(value.Nil); isNil {
		if len(pairs) == 0 {
			return nil, nil, false, nil
		}
		return pairs[0].Key, pairs[0].Value, true, nil
	}
	key, err := value.NewKey(k)
	if err != nil {
		return nil, nil, false, err
	}
	for i, kv := range pairs {
		pk, _ := value.NewKey(kv.Key)
		if pk == key {
			if i+1 < len(pairs) {
				return pairs[i+1].Key, pairs[i+1].Value, true, nil
			}
			return nil, nil, false, nil
		}
	}
	return nil, nil, false, fmt.Errorf("invalid key to 'next'")
}

// DisplayString renders v the way print/tostring do: raw string bytes (not
// the quoted debug form value.Str.String() produces), plain decimal
// integers, and Lua's %.14g-with-trailing-".0" float format (grounded on
// 256lights-zb's stream.go, which formats Lua floats with "%.14g" when
// writing them out).
func DisplayString(v value.Value) string {
	switch v := v.(type) {
	case value.Str:
		return v.Bytes()
	case value.Integer:
		return strconv.FormatInt(int64(v), 10)
	case value.Float:
		return formatFloat(float64(v))
	default:
		return v.String()
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', 14, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
