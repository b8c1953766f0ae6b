// Package ir implements the IR Emitter and Instruction Selector (C4):
// emitStatementIr walks the resolved, reduced AST a final time and
// produces the flat IrNode sequence C5 lays out and assembles (§4.4).
//
// Grounded on the teacher's pkg/asm/compiler (branch_table.go, insn.go,
// mir.go): that package also lowers a structured control-flow tree into
// a flat instruction sequence through a pattern-matched signature table
// and a branch-decomposition helper, which is the same shape this
// package gives platform.Table and the TestAndBranch protocol. The
// concrete operand/addressing-mode model differs (a constraint-system
// bus/register allocator there, a CPU instruction encoder here), so the
// node and operand types themselves are new rather than copied.
package ir

import (
	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/source"
)

// Node is one element of the linear IR list C4 produces and C5 consumes
// twice (§3 "IrNodes are appended in emission order during C4 and then
// consumed twice by C5").
type Node interface {
	Location() source.Location
	isNode()
}

type base struct {
	loc source.Location
}

// Location implements Node.
func (b base) Location() source.Location { return b.loc }

func newBase(loc source.Location) base { return base{loc} }

// LabelTarget is anything a Label IrNode or a goto/branch destination can
// name: a bare Label statement or a non-inlined Func, both of which
// carry a resolved address filled in by C5 pass 1. Declared here (rather
// than on ast.Definition/ast.Statement generally) because only these two
// AST nodes are ever addressed by IR; *ast.Label and *ast.Func both
// implement it via the GetAddress/SetAddress/TargetName methods added
// alongside this package.
type LabelTarget interface {
	GetAddress() *ast.Address
	SetAddress(*ast.Address)
	TargetName() string
}

// ============================================================================
// IrNode variants (§3 "IrNode")
// ============================================================================

// PushRelocation switches the active bank, optionally seeking to an
// absolute address, remembering the previous bank on a LIFO stack (§4.4
// "In <bank> @addr? { ... } -> PushRelocation(bank, addr); ...").
type PushRelocation struct {
	base
	Bank    string
	Address ast.Expression // nil unless the `in` statement seeks explicitly
}

func (*PushRelocation) isNode() {}

// NewPushRelocation constructs a PushRelocation node.
func NewPushRelocation(loc source.Location, bank string, address ast.Expression) *PushRelocation {
	return &PushRelocation{newBase(loc), bank, address}
}

// PopRelocation restores the bank active before the matching
// PushRelocation.
type PopRelocation struct {
	base
}

func (*PopRelocation) isNode() {}

// NewPopRelocation constructs a PopRelocation node.
func NewPopRelocation(loc source.Location) *PopRelocation {
	return &PopRelocation{newBase(loc)}
}

// Label marks Target's address as the current bank position (§4.5 pass
// 1: "Label sets func.address to the current bank address").
type Label struct {
	base
	Target LabelTarget
}

func (*Label) isNode() {}

// NewLabel constructs a Label node.
func NewLabel(loc source.Location, target LabelTarget) *Label {
	return &Label{newBase(loc), target}
}

// OperandRoot is one operand the selector built for an emission call
// (§4.4.2 "InstructionOperandRoot[]"). Exactly one of Expr or Target is
// set: a data operand carries the reduced expression it came from, which
// C5 pass 2 re-derives once bank addresses exist; a control-transfer
// operand (a goto/call/branch destination) instead carries the Label or
// Func it targets directly, since a branch target is never itself a
// data expression C3 would reduce.
type OperandRoot struct {
	Expr    ast.Expression
	Target  LabelTarget
	Operand platform.InstructionOperand
}

// Code is one matched instruction-table entry plus the operand roots it
// was matched against (§4.4.2).
type Code struct {
	base
	Entry    platform.Entry
	Operands []OperandRoot
}

func (*Code) isNode() {}

// NewCode constructs a Code node.
func NewCode(loc source.Location, entry platform.Entry, operands []OperandRoot) *Code {
	return &Code{newBase(loc), entry, operands}
}

// Var emits a constant variable's bytes into the current (stored) bank
// (§4.4 "Var (in a stored bank, non-extern, non-local) -> Var(def)").
type Var struct {
	base
	Def *ast.Var
}

func (*Var) isNode() {}

// NewVar constructs a Var node.
func NewVar(loc source.Location, def *ast.Var) *Var {
	return &Var{newBase(loc), def}
}
