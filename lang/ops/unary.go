package ops

import (
	"github.com/mna/nenuphar/lang/value"
)

// UnOp identifies a unary operator.
type UnOp uint8

const (
	UnaryMinus UnOp = iota
	UnaryBitNot
	Not
	Length
)

func (op UnOp) String() string {
	switch op {
	case UnaryMinus:
		return "-"
	case UnaryBitNot:
		return "~"
	case Not:
		return "not"
	case Length:
		return "#"
	}
	return "?"
}

// Unary evaluates a unary operator, used by both the constant folder and the
// VM's dispatch loop.
func Unary(op UnOp, x value.Value) (value.Value, error) {
	switch op {
	case Not:
		return value.Bool(!value.Truthy(x)), nil
	case UnaryMinus:
		return unaryMinus(x)
	case UnaryBitNot:
		return unaryBitNot(x)
	case Length:
		return length(x)
	}
	return nil, errInvalidType(op.String())
}

func unaryMinus(x value.Value) (value.Value, error) {
	n, ok := CoerceToNumber(x)
	if !ok {
		return nil, errInvalidType(UnaryMinus.String())
	}
	switch n := n.(type) {
	case value.Integer:
		return value.Integer(-n), nil
	case value.Float:
		return value.Float(-n), nil
	}
	return nil, errInvalidType(UnaryMinus.String())
}

func unaryBitNot(x value.Value) (value.Value, error) {
	n, ok := CoerceToNumber(x)
	if !ok {
		return nil, errInvalidType(UnaryBitNot.String())
	}
	i, err := toInt(n)
	if err != nil {
		return nil, err
	}
	return value.Integer(^i), nil
}

func length(x value.Value) (value.Value, error) {
	switch x := x.(type) {
	case value.Str:
		return value.Integer(x.Len()), nil
	case *value.Table:
		return value.Integer(x.Len()), nil
	}
	return nil, &OpError{Kind: InvalidType, Op: Length.String(), TypeName: x.Type()}
}

// And evaluates Lua's `and`: if lhs is falsy, it is the result and rhs is
// never evaluated; the caller is responsible for short-circuiting (this
// helper only implements the value-selection rule given both sides already
// computed, for the constant-folding path where both sides are known
// constants with no side effects).
func And(lhs, rhs value.Value) value.Value {
	if !value.Truthy(lhs) {
		return lhs
	}
	return rhs
}

// Or evaluates Lua's `or` under the same already-evaluated assumption as And.
func Or(lhs, rhs value.Value) value.Value {
	if value.Truthy(lhs) {
		return lhs
	}
	return rhs
}
