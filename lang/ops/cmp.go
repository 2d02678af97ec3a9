package ops

import "github.com/mna/nenuphar/lang/value"

// compare evaluates one of the six comparison operators. Numbers compare by
// value across the int/float subtype boundary; strings compare
// lexicographically by byte content; everything else only supports ==/~=,
// by type then by identity/value, and raises CmpErr/DuoCmpErr for ordered
// comparisons between incomparable operands.
func compare(op BinOp, lhs, rhs value.Value) (value.Value, error) {
	switch op {
	case Equals:
		return value.Bool(valuesEqual(lhs, rhs)), nil
	case NotEqual:
		return value.Bool(!valuesEqual(lhs, rhs)), nil
	}

	if value.IsNumber(lhs) && value.IsNumber(rhs) {
		return compareNumbers(op, lhs, rhs)
	}
	ls, lok := lhs.(value.Str)
	rs, rok := rhs.(value.Str)
	if lok && rok {
		return compareStrings(op, ls.Bytes(), rs.Bytes())
	}

	if lhs.Type() == rhs.Type() {
		return nil, &OpError{Kind: DuoCmpErr, TypeName: lhs.Type()}
	}
	return nil, &OpError{Kind: CmpErr, Lhs: lhs.Type(), Rhs: rhs.Type()}
}

func compareNumbers(op BinOp, lhs, rhs value.Value) (value.Value, error) {
	xi, xIsInt := lhs.(value.Integer)
	yi, yIsInt := rhs.(value.Integer)
	if xIsInt && yIsInt {
		return value.Bool(orderInt(op, int64(xi), int64(yi))), nil
	}
	xf, _ := value.AsFloat(lhs)
	yf, _ := value.AsFloat(rhs)
	return value.Bool(orderFloat(op, xf, yf)), nil
}

func orderInt(op BinOp, x, y int64) bool {
	switch op {
	case LessThan:
		return x < y
	case LessEqual:
		return x <= y
	case GreaterThan:
		return x > y
	case GreaterEqual:
		return x >= y
	}
	return false
}

func orderFloat(op BinOp, x, y float64) bool {
	switch op {
	case LessThan:
		return x < y
	case LessEqual:
		return x <= y
	case GreaterThan:
		return x > y
	case GreaterEqual:
		return x >= y
	}
	return false
}

func compareStrings(op BinOp, x, y string) (value.Value, error) {
	switch op {
	case LessThan:
		return value.Bool(x < y), nil
	case LessEqual:
		return value.Bool(x <= y), nil
	case GreaterThan:
		return value.Bool(x > y), nil
	case GreaterEqual:
		return value.Bool(x >= y), nil
	}
	return nil, errInvalidType(op.String())
}

// valuesEqual implements Lua's == : numbers compare across subtypes by
// value, strings by content (via interned ID, so same-pool strings compare
// in O(1)), everything else by reference/Go equality.
func valuesEqual(lhs, rhs value.Value) bool {
	if value.IsNumber(lhs) && value.IsNumber(rhs) {
		xi, xIsInt := lhs.(value.Integer)
		yi, yIsInt := rhs.(value.Integer)
		if xIsInt && yIsInt {
			return xi == yi
		}
		xf, _ := value.AsFloat(lhs)
		yf, _ := value.AsFloat(rhs)
		return xf == yf
	}
	ls, lok := lhs.(value.Str)
	rs, rok := rhs.(value.Str)
	if lok && rok {
		return ls.ID == rs.ID && ls.Bytes() == rs.Bytes()
	}
	if lhs.Type() != rhs.Type() {
		return false
	}
	switch lv := lhs.(type) {
	case value.Nil:
		return true
	case value.Bool:
		rv := rhs.(value.Bool)
		return lv == rv
	default:
		return lhs == rhs
	}
}
