// Package scope implements the compiler's register allocator: the mapping
// from source identifiers to register addresses, the nested root/function/
// block scope chain that realises lexical scoping and closures, and the
// label namespaces used to resolve break/goto/loop jumps during a single
// linear pass over the AST.
//
// The design is adapted from the register allocator of the reference
// implementation this compiler replaces (a Rust tree of
// RootScope/FunctionScope/BlockScope types), reshaped into the teacher's
// idiom of small, explicitly-constructed compiler-state structs (pcomp,
// fcomp) with typed, wrapped errors instead of panics.
package scope

import "fmt"

// GlobalScopeID is the reserved scope identifier used for global variable
// registers (Register.Scope == GlobalScopeID).
const GlobalScopeID uint16 = 0

// Register addresses a single value slot: either a global (Scope ==
// GlobalScopeID), a local declared in some function at nesting depth Scope
// (the chunk's main function is depth 1; Offset is that function's flat
// local-register index, stable across every block of the function), or an
// anonymous register private to the current function's invocation
// (IsAnonymous == true, Scope is meaningless). At run time the executing
// function is at some depth d; Scope == d addresses its own local scope,
// and Scope < d addresses an enclosing function's scope reached through
// the ScopeSet's referenced-scopes list.
type Register struct {
	Scope       uint16
	Offset      uint16
	IsAnonymous bool
	IsConst     bool
}

func (r Register) String() string {
	if r.IsAnonymous {
		return fmt.Sprintf("anon[%d]", r.Offset)
	}
	if r.Scope == GlobalScopeID {
		return fmt.Sprintf("global[%d]", r.Offset)
	}
	return fmt.Sprintf("scope(%d)[%d]", r.Scope, r.Offset)
}

// LabelKind distinguishes the three label namespaces a function body can
// jump within: the synthetic labels generated for if/loop control flow, and
// user-written goto labels.
type LabelKind int

const (
	IfLabel LabelKind = iota
	LoopLabel
	UserLabel
)

// LabelID identifies a jump target uniquely within a function. Synthetic
// if/loop labels are scoped by the BlockScope that created them (so nested
// loops never collide); user labels are named and scoped the same way,
// letting the same label name be reused in sibling blocks.
type LabelID struct {
	Kind    LabelKind
	ScopeID int
	Seq     int
	Name    string
}

// CompileError is the family of structured errors the allocator raises when
// a program exceeds a structural limit or misuses scoping, matching the
// OpError convention of lang/ops: a Kind plus the fields relevant to it.
type CompileError struct {
	Kind ErrorKind
	Max  int
	Name string
}

// ErrorKind enumerates the distinct CompileError conditions.
type ErrorKind int

const (
	_ ErrorKind = iota
	TooManyGlobals
	TooManyLocals
	ScopeNestingTooDeep
	DuplicateLabel
	JumpIntoLocalScope
	NoVarArgsAvailable
	UnresolvedLabel
)

func (e *CompileError) Error() string {
	switch e.Kind {
	case TooManyGlobals:
		return fmt.Sprintf("too many global variables (max %d)", e.Max)
	case TooManyLocals:
		return fmt.Sprintf("too many local variables in scope (max %d)", e.Max)
	case ScopeNestingTooDeep:
		return fmt.Sprintf("block scopes nested too deeply (max %d)", e.Max)
	case DuplicateLabel:
		return fmt.Sprintf("label %q already defined in this scope", e.Name)
	case JumpIntoLocalScope:
		return fmt.Sprintf("goto %q jumps into the scope of a local variable", e.Name)
	case NoVarArgsAvailable:
		return "cannot use '...' outside a vararg function"
	case UnresolvedLabel:
		return fmt.Sprintf("no visible label %q for goto", e.Name)
	default:
		return "scope error"
	}
}
