package ast

// Statement is the tagged union over the statement tree handed in by the
// parser (§3).  File and ImportReference appear only at the top of a
// compilation unit; the remaining variants nest arbitrarily inside
// Namespace/Func/If/While/... bodies.
type Statement interface {
	Node
	isStatement()
}

// ============================================================================
// File / Import
// ============================================================================

// File is a single parsed compilation unit: its own Body plus whichever
// ImportReferences it declared, per §6 "the parser supplies... one File
// per compilation unit".
type File struct {
	base
	Path    string
	Body    []Statement
	Imports []*ImportReference
}

func (*File) isStatement() {}

// ImportReference names another source path to merge into scope.  An
// empty path is a compile error (ErrEmptyImportPath, see DESIGN.md open
// question #1) rather than being treated as "the last imported module".
type ImportReference struct {
	base
	Path string
}

func (*ImportReference) isStatement() {}

// ============================================================================
// Attribution
// ============================================================================

// Attribution wraps a statement with one or more `#[...]` compile-time
// attributes, e.g. fallthrough hints consumed by C4 branch lowering.
// Condition carries `compile_if`'s argument expression; nil for every
// other attribute.
type Attribution struct {
	base
	Attributes []string
	Condition  Expression
	Inner      Statement
}

func (*Attribution) isStatement() {}

// ============================================================================
// Declarations as statements
// ============================================================================
//
// The declaration-shaped statements (Namespace, Let, Enum, Struct, Union,
// Var, Func, Bank, TypeAlias) wrap the corresponding Definition so the
// statement tree can be walked uniformly by C4/C5 without re-deriving
// which definitions live at which point in program order; R1 (reserve)
// is what actually populates the Definition side.

// NamespaceStmt is a `namespace Name { ... }` declaration statement.
type NamespaceStmt struct {
	base
	Def *Namespace
}

func (*NamespaceStmt) isStatement() {}

// LetStmt is a `let name = expr;` or `let name(params) = expr;`
// declaration statement.
type LetStmt struct {
	base
	Def *Let
}

func (*LetStmt) isStatement() {}

// EnumStmt is an `enum Name : T { ... }` declaration statement.
type EnumStmt struct {
	base
	Def *Enum
}

func (*EnumStmt) isStatement() {}

// StructStmt is a `struct Name { ... }` or `union Name { ... }`
// declaration statement (Def.Kind discriminates).
type StructStmt struct {
	base
	Def *Struct
}

func (*StructStmt) isStatement() {}

// VarStmt is a `var`/`const`/`writeonly` declaration statement.
type VarStmt struct {
	base
	Def *Var
}

func (*VarStmt) isStatement() {}

// FuncStmt is a `func`/`inline func`/`far func` declaration statement.
type FuncStmt struct {
	base
	Def *Func
}

func (*FuncStmt) isStatement() {}

// BankStmt is a `bank Name : [Kind; Size] @ address;` declaration
// statement.
type BankStmt struct {
	base
	Def *Bank
}

func (*BankStmt) isStatement() {}

// TypeAliasStmt is a `typealias Name = T;` declaration statement.
type TypeAliasStmt struct {
	base
	Def *TypeAlias
}

func (*TypeAliasStmt) isStatement() {}

// ============================================================================
// Control flow
// ============================================================================

// Label is a bare `name:` label target for goto/branch.
type Label struct {
	base
	Name string
	// ResolvedAddr is filled in by C5 pass 1, mirroring Func.ResolvedAddr
	// (§4.5 "Label sets func.address to the current bank address" applies
	// identically to a bare label, which has no other place to keep it).
	ResolvedAddr *Address
}

func (*Label) isStatement() {}

// NewLabel constructs a `name:` label statement. C4 also uses this to
// synthesize internal branch targets (loop begin/end, if-else/end,
// inline-call return points) that never appeared in source.
func NewLabel(loc source.Location, name string) *Label {
	return &Label{base: NewBase(loc), Name: name}
}

// GetAddress returns the address C5 pass 1 assigned to this label, or
// nil before pass 1 runs.
func (l *Label) GetAddress() *Address { return l.ResolvedAddr }

// SetAddress records the address C5 pass 1 assigned to this label.
func (l *Label) SetAddress(a *Address) { l.ResolvedAddr = a }

// TargetName returns the label's own name, identifying it in
// diagnostics the same way a Func's name does.
func (l *Label) TargetName() string { return l.Name }

// BranchKind enumerates the unconditional jump/call spellings (§3
// ReturnKind shares this vocabulary for Func; Branch is the statement
// form used mid-body).
type BranchKind uint8

// The branch kinds.
const (
	BranchGoto BranchKind = iota
	BranchFarGoto
	BranchCall
	BranchFarCall
	BranchBreak
	BranchContinue
	BranchReturn
	BranchFarReturn
	BranchIrqReturn
	BranchNmiReturn
)

// Branch is an unconditional control-transfer statement: goto/call/
// break/continue/return and their far/irq/nmi variants.
type Branch struct {
	base
	Kind   BranchKind
	Target Expression // destination for goto/call forms, nil otherwise
	Value  Expression // returned value, nil for void returns
}

func (*Branch) isStatement() {}

// If is `if cond { then } else { alt }`; Alt is nil when there is no
// else-branch.
type If struct {
	base
	Condition Expression
	Then      []Statement
	Alt       []Statement
}

func (*If) isStatement() {}

// While is `while cond { body }`.
type While struct {
	base
	Condition Expression
	Body      []Statement
}

func (*While) isStatement() {}

// DoWhile is `do { body } while cond;`.
type DoWhile struct {
	base
	Body      []Statement
	Condition Expression
}

func (*DoWhile) isStatement() {}

// For is `for counter in start..end by step { body }` (§4.4 "For c in
// start..end by step { B }"): Counter is an already-resolved, assignable
// identifier the loop counts through Source's inclusive bounds, stepping
// by Step each iteration. A nil Step means an implicit step of 1.
type For struct {
	base
	Counter Expression
	Source  Expression
	Step    Expression
	Body    []Statement
}

func (*For) isStatement() {}

// InlineFor is a compile-time-unrolled `inline for x in range { body }`
// loop (GLOSSARY "Inline for"): Source must reduce to a CompileTime
// range or array.
type InlineFor struct {
	base
	Binding string
	Source  Expression
	Body    []Statement
}

func (*InlineFor) isStatement() {}

// ============================================================================
// Expression statements
// ============================================================================

// ExpressionStmt is a bare expression evaluated for effect (an
// assignment, a call, an incremented counter, ...).
type ExpressionStmt struct {
	base
	Expr Expression
}

func (*ExpressionStmt) isStatement() {}

// In is the bank relocation statement `in holder { body }`: Holder names
// the bank that Body's code and variables are placed into. Body's names
// resolve in the enclosing scope, not relative to Holder.
type In struct {
	base
	Holder Expression
	Body   []Statement
}

func (*In) isStatement() {}

// ConfigEntry is one `key = expr;` pair inside a `config { ... }`
// directive. Key is the raw dotted path as written (e.g.
// "linker.fill_byte"); joining/splitting it is the config package's
// concern, not the AST's.
type ConfigEntry struct {
	Key   string
	Value Expression
}

// ConfigStmt is a `config { key = expr; ... }` directive (§6 "Config /
// defines"): each entry's RHS is reduced during C4 and the result
// recorded in the compilation's Config object, keyed by its dotted
// path.
type ConfigStmt struct {
	base
	Entries []ConfigEntry
}

func (*ConfigStmt) isStatement() {}

// NewConfigStmt constructs a config {} directive statement.
func NewConfigStmt(loc source.Location, entries []ConfigEntry) *ConfigStmt {
	return &ConfigStmt{base: NewBase(loc), Entries: entries}
}
