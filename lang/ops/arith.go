package ops

import (
	"math"

	"github.com/mna/nenuphar/lang/value"
)

// Binary evaluates a binary operator over two already-reduced values. It is
// called both by the compiler's constant folder (on Constants, which embed
// directly as Values) and by the VM's dispatch loop (on runtime Values),
// guaranteeing identical semantics between the two (spec §4.7, §8).
func Binary(op BinOp, lhs, rhs value.Value) (value.Value, error) {
	if op.IsComparison() {
		return compare(op, lhs, rhs)
	}
	if op == Concat {
		// Concat needs a string Pool to intern its result into; callers use
		// ConcatWithPool directly instead of routing through Binary.
		return nil, errInvalidType(op.String())
	}

	x, xok := CoerceToNumber(lhs)
	y, yok := CoerceToNumber(rhs)
	if !xok || !yok {
		return nil, errInvalidType(op.String())
	}

	switch {
	case op.IsAlwaysInteger():
		xi, xerr := toInt(x)
		yi, yerr := toInt(y)
		if xerr != nil {
			return nil, xerr
		}
		if yerr != nil {
			return nil, yerr
		}
		return intOnly(op, xi, yi)
	case op.IsAlwaysFloat():
		xf, _ := value.AsFloat(x)
		yf, _ := value.AsFloat(y)
		return alwaysFloat(op, xf, yf)
	default: // float-preferring family: +, -, *, %, //
		xi, xIsInt := x.(value.Integer)
		yi, yIsInt := y.(value.Integer)
		if xIsInt && yIsInt {
			return intOnly(op, int64(xi), int64(yi))
		}
		xf, _ := value.AsFloat(x)
		yf, _ := value.AsFloat(y)
		return floatPreferring(op, xf, yf)
	}
}

func toInt(v value.Value) (int64, error) {
	switch v := v.(type) {
	case value.Integer:
		return int64(v), nil
	case value.Float:
		f := float64(v)
		if f != math.Trunc(f) || math.IsInf(f, 0) || f != f {
			return 0, &OpError{Kind: FloatToIntConversionFailed, Float: f}
		}
		if f < math.MinInt64 || f > math.MaxInt64 {
			return 0, &OpError{Kind: FloatToIntConversionFailed, Float: f}
		}
		return int64(f), nil
	}
	return 0, errInvalidType("int coercion")
}

func intOnly(op BinOp, x, y int64) (value.Value, error) {
	switch op {
	case Add:
		return value.Integer(x + y), nil
	case Subtract:
		return value.Integer(x - y), nil
	case Times:
		return value.Integer(x * y), nil
	case Modulo:
		if y == 0 {
			return nil, &OpError{Kind: DivideByZero}
		}
		m := x % y
		if m != 0 && (m^y) < 0 {
			m += y
		}
		return value.Integer(m), nil
	case IDiv:
		if y == 0 {
			return nil, &OpError{Kind: DivideByZero}
		}
		if x == math.MinInt64 && y == -1 {
			return value.Integer(math.MinInt64), nil // defined wraparound
		}
		q := x / y
		if (x%y != 0) && ((x < 0) != (y < 0)) {
			q--
		}
		return value.Integer(q), nil
	case BitAnd:
		return value.Integer(x & y), nil
	case BitOr:
		return value.Integer(x | y), nil
	case BitXor:
		return value.Integer(x ^ y), nil
	case ShiftLeft:
		return value.Integer(shift(x, y)), nil
	case ShiftRight:
		return value.Integer(shift(x, -y)), nil
	}
	return nil, errInvalidType(op.String())
}

// shift implements a << n for n in any range: |n|>64 yields zero, negative n
// inverts direction.
func shift(x, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return int64(uint64(x) << uint(n))
	}
	return int64(uint64(x) >> uint(-n))
}

func floatPreferring(op BinOp, x, y float64) (value.Value, error) {
	switch op {
	case Add:
		return value.Float(x + y), nil
	case Subtract:
		return value.Float(x - y), nil
	case Times:
		return value.Float(x * y), nil
	case Modulo:
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return value.Float(m), nil
	case IDiv:
		return value.Float(math.Floor(x / y)), nil
	}
	return nil, errInvalidType(op.String())
}

func alwaysFloat(op BinOp, x, y float64) (value.Value, error) {
	switch op {
	case Divide:
		return value.Float(x / y), nil
	case Exponentiation:
		return value.Float(math.Pow(x, y)), nil
	}
	return nil, errInvalidType(op.String())
}

func concatString(v value.Value) (string, bool) {
	switch v := v.(type) {
	case value.Str:
		return v.Bytes(), true
	case value.Integer:
		return v.String(), true
	case value.Float:
		return v.String(), true
	}
	return "", false
}

// ConcatWithPool performs the .. operator, interning the result into pool.
// Binary cannot do this itself because it has no Pool to intern into; the
// compiler and VM call this directly for Concat instead of going through
// Binary when a Pool is available (which is always, in practice).
func ConcatWithPool(pool *value.Pool, lhs, rhs value.Value) (value.Value, error) {
	ls, lok := concatString(lhs)
	rs, rok := concatString(rhs)
	if !lok || !rok {
		return nil, errInvalidType(Concat.String())
	}
	return value.NewStr(pool, ls+rs), nil
}
