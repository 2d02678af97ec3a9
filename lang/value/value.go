// Package value implements the runtime value model of the language: tagged
// values (nil, bool, integer, float, string, table, function), the interned
// string pool, the runtime Scope (the shared register file that realises
// closures), and the Table type.
package value

import "fmt"

// Value is the interface implemented by every value the VM can hold in a
// register, pass as an argument, or store in a table.
type Value interface {
	// String returns the value's Lua-like textual representation.
	String() string
	// Type returns a short string describing the value's type, e.g. "nil",
	// "number", "string", "table", "function".
	Type() string
}

// Truthy reports the Lua truthiness of a value: everything is truthy except
// nil and false.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Nil is the type of the nil value. There is exactly one value of this
// type, the exported NilValue variable below.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// NilValue is the singleton nil value.
var NilValue Value = Nil{}

// Bool is the type of boolean values.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "boolean" }

// Function is a closure: a function prototype reference paired with the
// scopes it captured at the moment its Alloc instruction executed. This is
// how Lua upvalues are realised — see Scope.
type Function struct {
	FuncID     uint32
	Referenced []*Scope
}

func (f *Function) String() string { return fmt.Sprintf("function: %p", f) }
func (*Function) Type() string     { return "function" }

// GoFunction is a builtin implemented in Go, registered as a predeclared
// global (print, type, pairs, ...). It receives already-evaluated arguments
// and returns the result list.
type GoFunction struct {
	Name string
	Fn   func(args []Value) ([]Value, error)
}

func (f *GoFunction) String() string { return fmt.Sprintf("function: builtin: %s", f.Name) }
func (*GoFunction) Type() string     { return "function" }
