package platform

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/wiz-lang/wiz/pkg/ast"
)

// ModeMask is a small fixed-universe set of CPU mode bits (e.g. 8-bit vs
// 16-bit accumulator/index width on a 65816). No scope stack of mode
// attributes is kept: the emitter always passes the zero value (no bits
// set) as the current mode, which matches only entries whose own mask
// has no bits set. Backed by bits-and-blooms/bitset
// for the same reason ast.FlagSet is: a tiny fixed-universe flag set
// gains nothing from a hand-rolled uint mask over the shared library
// type, and this is the same shape as ast.FlagSet.
type ModeMask struct {
	bits *bitset.BitSet
}

// NewModeMask constructs a mode mask with the given bit positions set.
func NewModeMask(bits ...uint) ModeMask {
	b := bitset.New(8)
	for _, pos := range bits {
		b.Set(pos)
	}
	//
	return ModeMask{b}
}

// Matches reports whether every bit set in this mask is also set in
// current — i.e. this mask's requirements are satisfied by the
// currently active CPU mode.
func (m ModeMask) Matches(current ModeMask) bool {
	if m.bits == nil {
		return true
	} else if current.bits == nil {
		return m.bits.None()
	}
	//
	clone := m.bits.Clone()
	clone.InPlaceDifference(current.bits)
	//
	return clone.None()
}

// OperatorKind tags what an instruction-table entry's Type field
// discriminates: a binary operator, a unary operator, a branch kind, or
// an intrinsic call (§4.4.2).
type OperatorKind uint8

// The kinds of thing an instruction signature's Type can denote.
const (
	OpBinary OperatorKind = iota
	OpUnary
	OpBranch
	OpIntrinsic
)

// Signature is the match key of one Entry (§4.4.2): the operator this
// entry implements, the CPU mode it requires, and the shape each operand
// must have.
type Signature struct {
	Kind     OperatorKind
	BinaryOp ast.BinaryOperator
	UnaryOp  ast.UnaryOperator
	Intrinsic ast.Definition
	// Flag and FlagEquals discriminate conditional-branch entries that
	// otherwise share an identical OpBranch operand shape (e.g. BEQ vs
	// BNE both take a single relative address operand): Flag nil means
	// an unconditional branch/call/goto, Flag non-nil means "take this
	// branch when Flag reads FlagEquals", matching one BranchDescriptor
	// of a platform.TestAndBranch (§4.4.1).
	Flag        ast.Definition
	FlagEquals  bool
	ModeMask ModeMask
	// OperandPatterns is matched positionally against the operand roots
	// the selector builds for a given emission call.
	OperandPatterns []OperandPattern
}

// OperandPattern is a single positional operand matcher plus its capture
// protocol (§3 "InstructionOperand... Each pattern variant declares a
// matching predicate and a capture protocol").
type OperandPattern struct {
	// Matches reports whether operand satisfies this pattern.
	Matches func(operand InstructionOperand) bool
	// Capture extracts the immediate value(s) this pattern contributes
	// to the instruction's encoded bytes, when it matches.
	Capture func(operand InstructionOperand) []byte
}

// Options carries the encoding metadata of one Entry (§4.4.2): the
// opcode bytes, which byte offsets each captured operand's bytes are
// spliced into, and which condition-flag Definitions the instruction
// affects (consulted by branch lowering when eliding a redundant test).
type Options struct {
	OpcodeBytes      []byte
	ParameterIndices []int
	AffectedFlags    []ast.Definition
}

// Encoding computes an instruction's size and emits its bytes once every
// operand's captures are known (§4.5 pass 1 asks for Size(); pass 2 asks
// for Write()).
type Encoding interface {
	// Size returns the number of bytes this instruction occupies, which
	// may depend on the capture lists (e.g. repeat-prefixed forms).
	Size(captures [][]byte) int
	// Write produces the final bytes given the operand captures and the
	// instruction's own address (needed for PC-relative forms).
	Write(captures [][]byte, address uint64) ([]byte, error)
}

// Entry is one row of the instruction table: a Signature to match, plus
// the Encoding and Options used once matched.
type Entry struct {
	Signature Signature
	Encoding  Encoding
	Options   Options
}

// Table is the pattern database a Platform populates during
// ReserveDefinitions (§4.4.2).
type Table struct {
	entries []Entry
}

// NewTable constructs an empty instruction table.
func NewTable() *Table {
	return &Table{}
}

// Add registers a new pattern entry.  Entries are matched in the order
// added, so more specific patterns should be added before more general
// fallbacks.
func (t *Table) Add(e Entry) {
	t.entries = append(t.entries, e)
}

// FindBinary returns the first entry matching a binary operator under
// the given mode and operands, per §4.4.2: "the first entry whose type
// matches, whose modeMask matches the current mode, and whose every
// pattern matches the corresponding operand".
func (t *Table) FindBinary(op ast.BinaryOperator, mode ModeMask, operands []InstructionOperand) (Entry, bool) {
	return t.find(func(s Signature) bool { return s.Kind == OpBinary && s.BinaryOp == op }, mode, operands)
}

// FindUnary is the unary-operator counterpart to FindBinary.
func (t *Table) FindUnary(op ast.UnaryOperator, mode ModeMask, operands []InstructionOperand) (Entry, bool) {
	return t.find(func(s Signature) bool { return s.Kind == OpUnary && s.UnaryOp == op }, mode, operands)
}

// FindIntrinsic looks up the entry for a call to a builtin intrinsic
// Definition.
func (t *Table) FindIntrinsic(def ast.Definition, mode ModeMask, operands []InstructionOperand) (Entry, bool) {
	return t.find(func(s Signature) bool { return s.Kind == OpIntrinsic && s.Intrinsic == def }, mode, operands)
}

// FindGoto looks up the entry for an unconditional branch/call (no
// BranchDescriptor involved).
func (t *Table) FindGoto(mode ModeMask, operands []InstructionOperand) (Entry, bool) {
	return t.find(func(s Signature) bool { return s.Kind == OpBranch && s.Flag == nil }, mode, operands)
}

// FindBranch looks up the entry implementing one BranchDescriptor of a
// TestAndBranch: the conditional-branch opcode taken when flag reads
// flagEquals (§4.4.1).
func (t *Table) FindBranch(flag ast.Definition, flagEquals bool, mode ModeMask, operands []InstructionOperand) (Entry, bool) {
	return t.find(func(s Signature) bool {
		return s.Kind == OpBranch && s.Flag == flag && s.FlagEquals == flagEquals
	}, mode, operands)
}

func (t *Table) find(matchesKind func(Signature) bool, mode ModeMask, operands []InstructionOperand) (Entry, bool) {
	for _, e := range t.entries {
		if !matchesKind(e.Signature) || !e.Signature.ModeMask.Matches(mode) {
			continue
		} else if !matchesOperands(e.Signature.OperandPatterns, operands) {
			continue
		}
		//
		return e, true
	}
	//
	return Entry{}, false
}

// Candidates returns every entry matching the given operator kind,
// irrespective of operand match, for NoMatchingInstruction diagnostics
// (§7: "diagnostics enumerate every candidate opcode pattern").
func (t *Table) Candidates(matchesKind func(Signature) bool) []Entry {
	var out []Entry
	for _, e := range t.entries {
		if matchesKind(e.Signature) {
			out = append(out, e)
		}
	}
	//
	return out
}

func matchesOperands(patterns []OperandPattern, operands []InstructionOperand) bool {
	if len(patterns) != len(operands) {
		return false
	}
	//
	for i, p := range patterns {
		if !p.Matches(operands[i]) {
			return false
		}
	}
	//
	return true
}
