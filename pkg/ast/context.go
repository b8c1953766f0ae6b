package ast

import "github.com/bits-and-blooms/bitset"

// Context is the evaluation context of an expression (§3): the minimum
// context that satisfies all of its operands.
type Context uint8

const (
	// CompileTime values are pure and available during compilation.
	CompileTime Context = iota
	// LinkTime values have bits known only once addresses are assigned.
	LinkTime
	// RunTime values are computed by emitted instructions.
	RunTime
)

// String implements fmt.Stringer.
func (c Context) String() string {
	switch c {
	case CompileTime:
		return "compile-time"
	case LinkTime:
		return "link-time"
	case RunTime:
		return "run-time"
	default:
		return "unknown"
	}
}

// JoinContext computes the minimum context satisfying two operands, per
// §4.3: CompileTime only if both are CompileTime; RunTime if either is
// RunTime; LinkTime otherwise.
func JoinContext(a, b Context) Context {
	if a == RunTime || b == RunTime {
		return RunTime
	} else if a == LinkTime || b == LinkTime {
		return LinkTime
	}
	//
	return CompileTime
}

// Flag bit positions within an ExpressionInfo's flag set (§3:
// "flags ⊆ {LValue, Const, WriteOnly, Far}").  Backed by
// github.com/bits-and-blooms/bitset rather than a hand-rolled mask, since
// the same small fixed-universe bit-set shape recurs for CPU mode masks
// in pkg/platform.
type Flag uint

const (
	// LValue marks an expression that denotes a storage location.
	LValue Flag = iota
	// Const marks an expression whose storage may not be assigned to.
	Const
	// WriteOnly marks an expression whose storage may not be read.
	WriteOnly
	// Far marks an expression whose address carries a bank byte in
	// addition to the 16-bit offset.
	Far
)

// FlagSet is a small immutable-by-convention set of Flag values.
type FlagSet struct {
	bits *bitset.BitSet
}

// NewFlagSet constructs a flag set containing exactly the given flags.
func NewFlagSet(flags ...Flag) FlagSet {
	b := bitset.New(4)
	for _, f := range flags {
		b.Set(uint(f))
	}
	//
	return FlagSet{b}
}

// Has reports whether a given flag is present.
func (s FlagSet) Has(f Flag) bool {
	if s.bits == nil {
		return false
	}
	//
	return s.bits.Test(uint(f))
}

// With returns a new set with the given flag added.
func (s FlagSet) With(f Flag) FlagSet {
	nb := s.clone()
	nb.Set(uint(f))
	//
	return FlagSet{nb}
}

// Without returns a new set with the given flag removed.
func (s FlagSet) Without(f Flag) FlagSet {
	nb := s.clone()
	nb.Clear(uint(f))
	//
	return FlagSet{nb}
}

// Union returns the union of two flag sets (used e.g. when indirection
// transfers a pointer's qualifiers onto its result, §4.3).
func (s FlagSet) Union(other FlagSet) FlagSet {
	nb := s.clone()
	if other.bits != nil {
		nb.InPlaceUnion(other.bits)
	}
	//
	return FlagSet{nb}
}

func (s FlagSet) clone() *bitset.BitSet {
	if s.bits == nil {
		return bitset.New(4)
	}
	//
	return s.bits.Clone()
}

// ExpressionInfo is filled in by the reducer (C3) on every reduced
// expression: "Each carries... an optional ExpressionInfo{context, type,
// flags}" (§3). A nil *ExpressionInfo means the expression has not yet
// been reduced.
type ExpressionInfo struct {
	Context Context
	Type    TypeExpression
	Flags   FlagSet
}
