package ast

import "github.com/wiz-lang/wiz/pkg/source"

// Definition is the tagged union over everything a name can be bound to
// (§3).  Definitions are created once during C1/C2 and, with a small
// number of specifically-called-out exceptions, never mutated afterwards
// (§3 Lifecycles).
type Definition interface {
	Node
	// Name returns the unqualified (last-segment) name this definition was
	// declared under.
	Name() string
	isDefinition()
}

// base definition fields shared by every variant.
type defBase struct {
	base
	name string
	// Scope enclosing this definition's declaration site; used by
	// diagnostics and by the resolver when re-entering for inline
	// expansion (§4.4).
	Parent any
}

// Name implements Definition.
func (d defBase) Name() string { return d.name }

func newDefBase(loc source.Location, name string) defBase {
	return defBase{NewBase(loc), name, nil}
}

// ============================================================================
// Var
// ============================================================================

// VarModifier is one of the storage-class modifiers a Var declaration may
// carry.
type VarModifier uint8

// Modifiers named in §3/§6: `var`, `const`, `writeonly`, `extern`.
const (
	ModVar VarModifier = iota
	ModConst
	ModWriteOnly
	ModExtern
)

// Address records how a Var's (or Func's) storage was placed, filled in by
// C5 pass 1 (or by R3 when an explicit `@addr` was given).
type Address struct {
	// Bank this address is within.
	Bank string
	// Absolute is the address from the start of the platform's address
	// space, when known.
	Absolute *uint64
	// RelativePosition is the offset from the start of the bank.
	RelativePosition uint64
}

// Var is a variable declaration: `var`/`const`/`writeonly`, optionally
// `extern`, optionally `@address`, optionally with an initializer.
type Var struct {
	defBase
	Modifiers     []VarModifier
	AddressExpr   Expression     // nil unless declared with `@expr`
	TypeExpr      TypeExpression // as declared
	ReducedType   TypeExpression // filled in by R2/R3
	StorageSize   *uint64        // filled in by R3 (calculateStorageSize)
	Initializer   Expression     // nil if none
	ResolvedAddr  *Address       // filled in by R3 (explicit) or C5 pass 1
	Function      *Func          // enclosing function, nil for globals
}

func (*Var) isDefinition() {}

// NewVar constructs a variable declaration, as the parser does once it has
// parsed a `var`/`const`/`writeonly` statement.
func NewVar(loc source.Location, name string, modifiers []VarModifier, typeExpr TypeExpression, addressExpr, initializer Expression) *Var {
	return &Var{defBase: newDefBase(loc, name), Modifiers: modifiers, TypeExpr: typeExpr, AddressExpr: addressExpr, Initializer: initializer}
}

// HasModifier reports whether this Var carries the given modifier.
func (v *Var) HasModifier(m VarModifier) bool {
	for _, x := range v.Modifiers {
		if x == m {
			return true
		}
	}
	//
	return false
}

// ============================================================================
// Func
// ============================================================================

// ReturnKind is how control leaves a function (§3).
type ReturnKind uint8

// The return-kind enumeration named in §3.
const (
	ReturnNone ReturnKind = iota
	ReturnReturn
	ReturnFarReturn
	ReturnIrqReturn
	ReturnNmiReturn
	ReturnGoto
	ReturnFarGoto
	ReturnCall
	ReturnFarCall
	ReturnBreak
	ReturnContinue
)

// Func is a function/inline-function/far-function declaration.
type Func struct {
	defBase
	Inlined                  bool
	Far                      bool
	Kind                     ReturnKind
	Parameters               []*Var
	ReturnTypeExpr           TypeExpression
	Signature                *FunctionType // built by R2
	Body                     []Statement
	ResolvedAddr             *Address // filled in by C5 pass 1, non-inline only
	Fallthrough              bool
	HasUnconditionalReturn   bool // filled in by C4 (emitStatementIr)
}

func (*Func) isDefinition() {}

// GetAddress returns the address C5 pass 1 assigned to this function, or
// nil before pass 1 runs (or always, for an inlined function).
func (f *Func) GetAddress() *Address { return f.ResolvedAddr }

// SetAddress records the address C5 pass 1 assigned to this function.
func (f *Func) SetAddress(a *Address) { f.ResolvedAddr = a }

// TargetName returns the function's own name, so a Func and a Label can
// both satisfy the same branch-target interface (pkg/ir.LabelTarget).
func (f *Func) TargetName() string { return f.Name() }

// NewFunc constructs a function declaration.
func NewFunc(loc source.Location, name string, inlined, far bool, params []*Var, returnTypeExpr TypeExpression, body []Statement) *Func {
	return &Func{defBase: newDefBase(loc, name), Inlined: inlined, Far: far, Parameters: params, ReturnTypeExpr: returnTypeExpr, Body: body}
}

// ============================================================================
// Let
// ============================================================================

// Let is a pure compile-time value binding, or (when parameterized) a
// compile-time function (GLOSSARY "Let").
type Let struct {
	defBase
	Parameters []string
	Body       Expression
}

func (*Let) isDefinition() {}

// NewLet constructs a compile-time value binding, or (when parameters is
// non-empty) a compile-time function.
func NewLet(loc source.Location, name string, parameters []string, body Expression) *Let {
	return &Let{defBase: newDefBase(loc, name), Parameters: parameters, Body: body}
}

// ============================================================================
// Bank
// ============================================================================

// BankKind distinguishes ROM-like stored banks from RAM-like unstored
// ones (§3 Bank).
type BankKind uint8

// The two bank kinds.
const (
	BankStored BankKind = iota
	BankUnstored
)

// Bank is a named, addressed region of the platform's memory map.
type Bank struct {
	defBase
	TypeExpr    TypeExpression // must reduce to `[BankKind; N]`
	AddressExpr Expression
	Handle      *BankHandle // filled in by R2
}

func (*Bank) isDefinition() {}

// NewBank constructs a bank declaration.
func NewBank(loc source.Location, name string, typeExpr TypeExpression, addressExpr Expression) *Bank {
	return &Bank{defBase: newDefBase(loc, name), TypeExpr: typeExpr, AddressExpr: addressExpr}
}

// BankHandle is the runtime handle allocated for a Bank definition; the
// actual byte-image lives in pkg/bank, this is just the linking key used
// while walking the AST/IR.
type BankHandle struct {
	Name     string
	Kind     BankKind
	Capacity uint64
	Origin   *uint64
}

// ============================================================================
// Namespace
// ============================================================================

// Namespace is a named scope; multiple declarations of the same namespace
// merge into one (R1).
type Namespace struct {
	defBase
	Body []Statement
	// Scope is the *symbol.Table backing this namespace, stored as `any`
	// to avoid pkg/ast importing pkg/symbol (which itself imports
	// pkg/ast for Definition). Set once by C1/C2 during reserveDefinitions.
	Scope any
}

func (*Namespace) isDefinition() {}

// NewNamespace constructs a namespace declaration with an empty body; the
// resolver (C1/C2) fills in Scope and appends to Body as it merges further
// declarations of the same name.
func NewNamespace(loc source.Location, name string) *Namespace {
	return &Namespace{defBase: newDefBase(loc, name)}
}

// ============================================================================
// Enum / EnumMember
// ============================================================================

// Enum is an enumeration over an underlying integer type.
type Enum struct {
	defBase
	UnderlyingTypeExpr TypeExpression
	Members            []*EnumMember
}

func (*Enum) isDefinition() {}

// NewEnum constructs an enum declaration.
func NewEnum(loc source.Location, name string, underlyingTypeExpr TypeExpression, members []*EnumMember) *Enum {
	return &Enum{defBase: newDefBase(loc, name), UnderlyingTypeExpr: underlyingTypeExpr, Members: members}
}

// EnumMember is one member of an Enum, with either an explicit value
// expression or none (auto-incremented per §4.2 phase R2).
type EnumMember struct {
	defBase
	ValueExpr     Expression // nil when implicit
	ResolvedValue int64      // filled in by R2
	Owner         *Enum
}

func (*EnumMember) isDefinition() {}

// NewEnumMember constructs one member of an Enum; valueExpr is nil for an
// implicit (auto-incremented) member.
func NewEnumMember(loc source.Location, name string, valueExpr Expression) *EnumMember {
	return &EnumMember{defBase: newDefBase(loc, name), ValueExpr: valueExpr}
}

// ============================================================================
// Struct / Union
// ============================================================================

// AggregateKind discriminates struct vs union layout (§3 "kind
// discriminator").
type AggregateKind uint8

// The two aggregate kinds.
const (
	KindStruct AggregateKind = iota
	KindUnion
)

// Struct is a struct or union declaration (kind discriminates the two).
type Struct struct {
	defBase
	Kind       AggregateKind
	Members    []*StructMember
	TotalSize  *uint64 // filled in by R2
}

func (*Struct) isDefinition() {}

// NewStruct constructs a struct or union declaration.
func NewStruct(loc source.Location, name string, kind AggregateKind, members []*StructMember) *Struct {
	return &Struct{defBase: newDefBase(loc, name), Kind: kind, Members: members}
}

// StructMember is one field of a Struct, with its byte offset computed by
// R2 (struct: running sum; union: always 0).
type StructMember struct {
	defBase
	TypeExpr TypeExpression
	Offset   uint64
	Owner    *Struct
}

func (*StructMember) isDefinition() {}

// NewStructMember constructs one field of a Struct/union.
func NewStructMember(loc source.Location, name string, typeExpr TypeExpression) *StructMember {
	return &StructMember{defBase: newDefBase(loc, name), TypeExpr: typeExpr}
}

// ============================================================================
// TypeAlias
// ============================================================================

// TypeAlias is `typealias Name = T;`.
type TypeAlias struct {
	defBase
	TargetExpr  TypeExpression
	ResolvedType TypeExpression
}

func (*TypeAlias) isDefinition() {}

// NewTypeAlias constructs a `typealias Name = T;` declaration.
func NewTypeAlias(loc source.Location, name string, targetExpr TypeExpression) *TypeAlias {
	return &TypeAlias{defBase: newDefBase(loc, name), TargetExpr: targetExpr}
}

// ============================================================================
// Builtins (seeded by the Platform plug-in, §6)
// ============================================================================

// BuiltinRegister is a CPU register exposed to designated storage.
type BuiltinRegister struct {
	defBase
	Width     uint // in bits
	WriteOnly bool
}

func (*BuiltinRegister) isDefinition() {}

// NewBuiltinRegister constructs a platform-seeded register definition
// (§6 "reserveDefinitions(builtins) seeds the builtin scope with
// registers").
func NewBuiltinRegister(loc source.Location, name string, widthBits uint, writeOnly bool) *BuiltinRegister {
	return &BuiltinRegister{newDefBase(loc, name), widthBits, writeOnly}
}

// BuiltinIntegerType is a builtin bounded integer type, e.g. u8/i16/iexpr.
type BuiltinIntegerType struct {
	defBase
	SizeBytes uint
	Min       int64
	Max       int64
	// Unbounded marks the special `iexpr` literal type (§4.3: "the
	// unbounded iexpr (compile-time literal)").
	Unbounded bool
}

func (*BuiltinIntegerType) isDefinition() {}

// NewBuiltinIntegerType constructs a platform-seeded bounded (or, when
// unbounded is true, the special `iexpr`) integer type definition.
func NewBuiltinIntegerType(loc source.Location, name string, sizeBytes uint, min, max int64, unbounded bool) *BuiltinIntegerType {
	return &BuiltinIntegerType{newDefBase(loc, name), sizeBytes, min, max, unbounded}
}

// BuiltinBoolType is the builtin boolean type.
type BuiltinBoolType struct {
	defBase
}

func (*BuiltinBoolType) isDefinition() {}

// NewBuiltinBoolType constructs the core `bool` type definition, seeded
// once per compilation regardless of platform.
func NewBuiltinBoolType(loc source.Location, name string) *BuiltinBoolType {
	return &BuiltinBoolType{newDefBase(loc, name)}
}

// BuiltinBankType is the builtin `bank` kind type used in a Bank's type
// expression (`[BankKind; N]`).
type BuiltinBankType struct {
	defBase
}

func (*BuiltinBankType) isDefinition() {}

// BuiltinRangeType is the builtin type of a range literal `a..b`.
type BuiltinRangeType struct {
	defBase
}

func (*BuiltinRangeType) isDefinition() {}

// BuiltinVoidIntrinsic is a builtin function-like intrinsic with no
// result (e.g. a NOP/wait instruction).
type BuiltinVoidIntrinsic struct {
	defBase
	Parameters []TypeExpression
}

func (*BuiltinVoidIntrinsic) isDefinition() {}

// BuiltinLoadIntrinsic is a builtin function-like intrinsic which
// produces a value (e.g. reading a hardware status register).
type BuiltinLoadIntrinsic struct {
	defBase
	Parameters []TypeExpression
	Result     TypeExpression
}

func (*BuiltinLoadIntrinsic) isDefinition() {}
