// Package platform declares the plug-in boundary the core is built
// against (§6 "Platform plug-in interface"): everything CPU-specific —
// registers, the instruction table, pointer widths, branch lowering
// hints — is supplied by an implementation of Platform rather than
// compiled into the core. pkg/platform/mos6502 is one concrete,
// fully-wired sample implementation used to exercise the instruction
// selector end to end.
package platform

import (
	"math/big"

	"github.com/wiz-lang/wiz/pkg/ast"
)

// Int128 is the placeholder-value type named in §6; a 128-bit integer is
// more than any retro CPU's widest register needs, but keeps the
// representation CPU-width-agnostic. math/big.Int already models an
// arbitrary-precision signed integer, so it is reused here rather than
// hand-rolling a 128-bit type.
type Int128 = big.Int

// TestAndBranch is returned by GetTestAndBranch (§4.4.1): one test
// instruction plus a sequence of conditional branches derived from its
// resulting flags.
type TestAndBranch struct {
	TestInstructionType string
	TestOperands        []InstructionOperand
	Branches            []BranchDescriptor
}

// BranchDescriptor is one `branch` entry of a TestAndBranch (§4.4.1).
type BranchDescriptor struct {
	Flag                ast.Definition
	SuccessIfFlagEquals bool
	Taken               bool
}

// InstructionOperand mirrors §3's InstructionOperand tagged sum; it is
// declared here (rather than pkg/ir) because the platform's pattern
// table and GetTestAndBranch both need to construct and match against
// it without importing pkg/ir (which itself depends on Platform).
type InstructionOperand interface {
	isInstructionOperand()
}

// Register is an operand referencing a CPU register.
type Register struct {
	Definition ast.Definition
}

func (Register) isInstructionOperand() {}

// Integer is an immediate operand, optionally a not-yet-known
// link-time placeholder (§4.4.2 "createOperandFromExpression").
type Integer struct {
	Value       int64
	Placeholder bool
}

func (Integer) isInstructionOperand() {}

// Boolean is a compile-time-known boolean operand.
type Boolean struct {
	Value bool
}

func (Boolean) isInstructionOperand() {}

// Dereference is `*(addr)`, optionally far (bank-qualified).
type Dereference struct {
	Far     bool
	Address InstructionOperand
	Size    uint
}

func (Dereference) isInstructionOperand() {}

// Index is `*(base + index*scale)`.
type Index struct {
	Far         bool
	Base        InstructionOperand
	IndexOp     InstructionOperand
	Scale       uint
	ElementSize uint
}

func (Index) isInstructionOperand() {}

// BitIndex is `value $ bit`.
type BitIndex struct {
	Value InstructionOperand
	Bit   uint
}

func (BitIndex) isInstructionOperand() {}

// Binary is a structural binary-operator operand (used when an operand
// itself must be pattern-matched, e.g. a complex addressing mode).
type Binary struct {
	Op    ast.BinaryOperator
	Left  InstructionOperand
	Right InstructionOperand
}

func (Binary) isInstructionOperand() {}

// Unary is a structural unary-operator operand.
type Unary struct {
	Op      ast.UnaryOperator
	Operand InstructionOperand
}

func (Unary) isInstructionOperand() {}

// Platform is the plug-in boundary a concrete CPU backend implements
// (§6). The core (pkg/resolve, pkg/ir, pkg/bank) depends only on this
// interface, never on a concrete CPU package.
type Platform interface {
	// Name identifies the platform for diagnostics and config dumps.
	Name() string
	// ReserveDefinitions seeds the builtin scope with registers,
	// intrinsics, integer types, and mode attributes, and populates the
	// instruction table (§6).
	ReserveDefinitions(builtins BuiltinScope)
	// GetPointerSizedType returns the BuiltinIntegerType used for a
	// near pointer/function address on this platform.
	GetPointerSizedType() ast.Definition
	// GetFarPointerSizedType returns the BuiltinIntegerType used for a
	// far (bank-qualified) pointer/function address.
	GetFarPointerSizedType() ast.Definition
	// GetPlaceholderValue returns the bit pattern used to fill
	// link-time-unknown bytes during instruction selection (§4.4.2).
	GetPlaceholderValue() *Int128
	// GetZeroFlag returns the Definition of this platform's "result is
	// zero" condition flag, if directly testable, used to elide
	// explicit comparisons in for-loop lowering.
	GetZeroFlag() (ast.Definition, bool)
	// GetTestAndBranch implements the TestAndBranch protocol of
	// §4.4.1.
	GetTestAndBranch(op ast.BinaryOperator, left, right InstructionOperand, distanceHint int) (TestAndBranch, bool)
	// InstructionTable returns the pattern database populated by
	// ReserveDefinitions, consulted by the instruction selector (§4.4.2).
	InstructionTable() *Table
}

// BuiltinScope is the minimal surface ReserveDefinitions needs against
// the symbol table, kept narrow here to avoid pkg/platform depending on
// pkg/symbol (pkg/symbol instead depends on pkg/platform through no
// import at all; wiring happens in pkg/resolve).
type BuiltinScope interface {
	Define(name string, def ast.Definition) bool
}
