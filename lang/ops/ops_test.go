package ops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/nenuphar/lang/value"
)

func TestBinaryIntegerArithmeticWraps(t *testing.T) {
	v, err := Binary(Add, value.Integer(math.MaxInt64), value.Integer(1))
	require.NoError(t, err)
	require.Equal(t, value.Integer(math.MinInt64), v)
}

func TestBinaryFloatPromotion(t *testing.T) {
	v, err := Binary(Add, value.Integer(1), value.Float(2.5))
	require.NoError(t, err)
	require.Equal(t, value.Float(3.5), v)
}

func TestBinaryDivideAlwaysFloat(t *testing.T) {
	v, err := Binary(Divide, value.Integer(4), value.Integer(2))
	require.NoError(t, err)
	require.Equal(t, value.Float(2), v)
}

func TestBinaryFloorDivNegative(t *testing.T) {
	v, err := Binary(IDiv, value.Integer(-7), value.Integer(2))
	require.NoError(t, err)
	require.Equal(t, value.Integer(-4), v)
}

func TestBinaryModuloSignFollowsDivisor(t *testing.T) {
	v, err := Binary(Modulo, value.Integer(-7), value.Integer(2))
	require.NoError(t, err)
	require.Equal(t, value.Integer(1), v)
}

func TestBinaryDivideByZeroInteger(t *testing.T) {
	_, err := Binary(IDiv, value.Integer(1), value.Integer(0))
	require.Error(t, err)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, DivideByZero, opErr.Kind)
}

func TestBinaryFloorDivFloatOperandFloorsRatherThanErrors(t *testing.T) {
	// // on a float operand promotes to float and floors the quotient; it
	// must not try to convert the operand to an integer and fail.
	v, err := Binary(IDiv, value.Float(7.5), value.Integer(2))
	require.NoError(t, err)
	require.Equal(t, value.Float(3), v)
}

func TestBinaryFloorDivBothFloat(t *testing.T) {
	v, err := Binary(IDiv, value.Float(-7), value.Float(2))
	require.NoError(t, err)
	require.Equal(t, value.Float(-4), v)
}

func TestBinaryShiftOutOfRangeIsZero(t *testing.T) {
	v, err := Binary(ShiftLeft, value.Integer(1), value.Integer(64))
	require.NoError(t, err)
	require.Equal(t, value.Integer(0), v)

	v, err = Binary(ShiftLeft, value.Integer(1), value.Integer(-64))
	require.NoError(t, err)
	require.Equal(t, value.Integer(0), v)
}

func TestBinaryShiftNegativeInvertsDirection(t *testing.T) {
	v, err := Binary(ShiftLeft, value.Integer(1), value.Integer(-1))
	require.NoError(t, err)
	require.Equal(t, value.Integer(0), v)

	v, err = Binary(ShiftRight, value.Integer(4), value.Integer(-1))
	require.NoError(t, err)
	require.Equal(t, value.Integer(8), v)
}

func TestBinaryBitwiseRequiresIntegerRepresentable(t *testing.T) {
	_, err := Binary(BitAnd, value.Float(1.5), value.Integer(1))
	require.Error(t, err)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, FloatToIntConversionFailed, opErr.Kind)
}

func TestBinaryStringCoercion(t *testing.T) {
	pool := value.NewPool()
	v, err := Binary(Add, value.NewStr(pool, "10"), value.Integer(5))
	require.NoError(t, err)
	require.Equal(t, value.Integer(15), v)
}

func TestCompareNumbersAcrossSubtypes(t *testing.T) {
	v, err := Binary(LessThan, value.Integer(1), value.Float(1.5))
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), v)
}

func TestCompareStrings(t *testing.T) {
	pool := value.NewPool()
	v, err := Binary(LessThan, value.NewStr(pool, "abc"), value.NewStr(pool, "abd"))
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), v)
}

func TestCompareIncomparableTypesOrdered(t *testing.T) {
	_, err := Binary(LessThan, value.Integer(1), value.NilValue)
	require.Error(t, err)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, CmpErr, opErr.Kind)
}

func TestCompareIncomparableSameTypeOrdered(t *testing.T) {
	t1 := value.NewTable(0)
	t2 := value.NewTable(0)
	_, err := Binary(LessThan, t1, t2)
	require.Error(t, err)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, DuoCmpErr, opErr.Kind)
}

func TestEqualsAcrossTypesIsFalseNotError(t *testing.T) {
	v, err := Binary(Equals, value.Integer(1), value.NilValue)
	require.NoError(t, err)
	require.Equal(t, value.Bool(false), v)
}

func TestEqualsIntegerAndEqualFloat(t *testing.T) {
	v, err := Binary(Equals, value.Integer(2), value.Float(2.0))
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), v)
}

func TestConcatWithPool(t *testing.T) {
	pool := value.NewPool()
	v, err := ConcatWithPool(pool, value.NewStr(pool, "a"), value.Integer(1))
	require.NoError(t, err)
	s, ok := v.(value.Str)
	require.True(t, ok)
	require.Equal(t, "a1", s.Bytes())
}

func TestUnaryMinus(t *testing.T) {
	v, err := Unary(UnaryMinus, value.Integer(5))
	require.NoError(t, err)
	require.Equal(t, value.Integer(-5), v)
}

func TestUnaryNot(t *testing.T) {
	v, err := Unary(Not, value.NilValue)
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), v)
}

func TestUnaryLengthString(t *testing.T) {
	pool := value.NewPool()
	v, err := Unary(Length, value.NewStr(pool, "hello"))
	require.NoError(t, err)
	require.Equal(t, value.Integer(5), v)
}

func TestUnaryBitNot(t *testing.T) {
	v, err := Unary(UnaryBitNot, value.Integer(0))
	require.NoError(t, err)
	require.Equal(t, value.Integer(-1), v)
}

func TestAndOrShortCircuitValues(t *testing.T) {
	require.Equal(t, value.NilValue, And(value.NilValue, value.Integer(1)))
	require.Equal(t, value.Integer(1), And(value.Integer(2), value.Integer(1)))
	require.Equal(t, value.Integer(2), Or(value.Integer(2), value.Integer(1)))
	require.Equal(t, value.Integer(1), Or(value.Bool(false), value.Integer(1)))
}

func TestCoerceToNumberHex(t *testing.T) {
	pool := value.NewPool()
	v, ok := CoerceToNumber(value.NewStr(pool, "0x1A"))
	require.True(t, ok)
	require.Equal(t, value.Integer(26), v)
}

func TestCoerceToNumberHexFloat(t *testing.T) {
	pool := value.NewPool()
	v, ok := CoerceToNumber(value.NewStr(pool, "0x1p4"))
	require.True(t, ok)
	require.Equal(t, value.Float(16), v)
}

func TestCoerceToNumberRejectsGarbage(t *testing.T) {
	pool := value.NewPool()
	_, ok := CoerceToNumber(value.NewStr(pool, "not a number"))
	require.False(t, ok)
}
