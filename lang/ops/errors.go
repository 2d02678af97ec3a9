// Package ops implements the type-dispatched arithmetic, comparison and
// logic helpers shared by the compiler's constant folder and the VM's
// dispatch loop, so that folding a constant expression at compile time and
// executing the equivalent instructions at runtime produce identical
// results (see spec §4.7, §8 "constant folding is self-consistent").
package ops

import "fmt"

// Kind identifies the taxonomy of a runtime operator error, the OpError
// enum described in spec §6.
type Kind int

const (
	_ Kind = iota
	InvalidType
	FloatToIntConversionFailed
	CmpErr
	DuoCmpErr
	TableIndexOutOfBounds
	MissingLabel
	InvalidForInit
	InvalidForCond
	InvalidForStep
	NotATable
	NotACallable
	ByteCodeError
	DivideByZero
)

// OpError is the structured runtime error raised by an operator helper, the
// interpreter's call machinery, or a RaiseIfNot-guarded instruction.
type OpError struct {
	Kind Kind

	Op       string  // operator name, for InvalidType
	Float    float64 // offending value, for FloatToIntConversionFailed
	Lhs, Rhs string  // operand type names, for CmpErr
	TypeName string  // for DuoCmpErr / NotATable / NotACallable
	Wrapped  error   // for ByteCodeError
	Offset   int     // instruction offset, for ByteCodeError
}

func (e *OpError) Error() string {
	switch e.Kind {
	case InvalidType:
		return fmt.Sprintf("invalid operand type for %s", e.Op)
	case FloatToIntConversionFailed:
		return fmt.Sprintf("number has no integer representation: %g", e.Float)
	case CmpErr:
		return fmt.Sprintf("attempt to compare %s with %s", e.Lhs, e.Rhs)
	case DuoCmpErr:
		return fmt.Sprintf("attempt to compare two %s values", e.TypeName)
	case TableIndexOutOfBounds:
		return "table index out of bounds"
	case MissingLabel:
		return "goto target label not found"
	case InvalidForInit:
		return "'for' initial value must be a number"
	case InvalidForCond:
		return "'for' limit must be a number"
	case InvalidForStep:
		return "'for' step must be a non-zero number"
	case NotATable:
		return fmt.Sprintf("attempt to index a %s value", e.TypeName)
	case NotACallable:
		return fmt.Sprintf("attempt to call a %s value", e.TypeName)
	case ByteCodeError:
		return fmt.Sprintf("bytecode error at offset %d: %v", e.Offset, e.Wrapped)
	case DivideByZero:
		return "attempt to perform 'n//0' or 'n%0'"
	default:
		return "unknown operator error"
	}
}

func errInvalidType(op string) error { return &OpError{Kind: InvalidType, Op: op} }
