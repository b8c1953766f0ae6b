package ast

import "github.com/wiz-lang/wiz/pkg/source"

// Expression is the tagged union over expression syntax (§3).  The same
// sum type represents both the as-parsed tree hand off by the parser and
// the post-reduction tree produced by C3: reduction replaces nodes with
// new values (Identifier becomes ResolvedIdentifier, arithmetic over
// constants collapses to a literal, ...) rather than mutating in place.
type Expression interface {
	Node
	// Info returns the ExpressionInfo attached by the reducer, or nil if
	// this expression has not yet passed through C3.
	Info() *ExpressionInfo
	isExpression()
}

// exprBase is embedded by every concrete Expression to carry the
// optional post-reduction ExpressionInfo.
type exprBase struct {
	base
	info *ExpressionInfo
}

// Info implements Expression.
func (e exprBase) Info() *ExpressionInfo { return e.info }

// SetInfo attaches reducer output to this node. Since reduction produces
// new node values rather than mutating existing ones (§3), this is only
// ever called once, immediately after construction, by the reducer
// itself.
func (e *exprBase) SetInfo(info ExpressionInfo) { e.info = &info }

func newExprBase(loc source.Location) exprBase { return exprBase{base: NewBase(loc)} }

// ============================================================================
// Literals
// ============================================================================

// IntegerLiteral is an integer constant, typed `iexpr` until context
// narrows it (§4.3).
type IntegerLiteral struct {
	exprBase
	Value int64
}

func (*IntegerLiteral) isExpression() {}

// NewIntegerLiteral constructs an integer constant.
func NewIntegerLiteral(loc source.Location, value int64) *IntegerLiteral {
	return &IntegerLiteral{exprBase: newExprBase(loc), Value: value}
}

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	exprBase
	Value bool
}

func (*BooleanLiteral) isExpression() {}

// NewBooleanLiteral constructs a `true`/`false` constant.
func NewBooleanLiteral(loc source.Location, value bool) *BooleanLiteral {
	return &BooleanLiteral{exprBase: newExprBase(loc), Value: value}
}

// StringLiteral is a string/byte-string constant.
type StringLiteral struct {
	exprBase
	Value []byte
}

func (*StringLiteral) isExpression() {}

// NewStringLiteral constructs a string/byte-string constant.
func NewStringLiteral(loc source.Location, value []byte) *StringLiteral {
	return &StringLiteral{exprBase: newExprBase(loc), Value: value}
}

// ============================================================================
// Identifier / ResolvedIdentifier
// ============================================================================

// Identifier is an as-parsed dotted name, not yet resolved.
type Identifier struct {
	exprBase
	Pieces []string
}

func (*Identifier) isExpression() {}

// NewIdentifier constructs an as-parsed dotted name.
func NewIdentifier(loc source.Location, pieces []string) *Identifier {
	return &Identifier{exprBase: newExprBase(loc), Pieces: pieces}
}

// ResolvedIdentifier is produced by C2/C3 once an Identifier has been
// looked up against the enclosing Scope.
type ResolvedIdentifier struct {
	exprBase
	Pieces     []string
	Definition Definition
}

func (*ResolvedIdentifier) isExpression() {}

// NewResolvedIdentifier constructs an identifier already bound to its
// Definition, as produced by C2/C3.
func NewResolvedIdentifier(loc source.Location, pieces []string, def Definition) *ResolvedIdentifier {
	return &ResolvedIdentifier{exprBase: newExprBase(loc), Pieces: pieces, Definition: def}
}

// ============================================================================
// Operators
// ============================================================================

// UnaryOperator enumerates the prefix operators (§3/§4.3).
type UnaryOperator uint8

// The unary operators.
const (
	UnaryNeg UnaryOperator = iota
	UnaryPos
	UnaryNot
	UnaryBitNot
	UnaryDeref    // unary `*`
	UnaryAddrOf   // unary `&`
	UnaryFarAddrOf
	UnaryLowByte  // `<`
	UnaryHighByte // `>`
	UnaryBankByte // `#`
	UnaryGrouping // parenthesization, kept to preserve source ranges for diagnostics
)

// UnaryOperation is a prefix-operator expression.
type UnaryOperation struct {
	exprBase
	Op      UnaryOperator
	Operand Expression
}

func (*UnaryOperation) isExpression() {}

// NewUnaryOperation constructs a prefix-operator expression.
func NewUnaryOperation(loc source.Location, op UnaryOperator, operand Expression) *UnaryOperation {
	return &UnaryOperation{exprBase: newExprBase(loc), Op: op, Operand: operand}
}

// BinaryOperator enumerates the infix operators (§3/§4.3).
type BinaryOperator uint8

// The binary operators.
const (
	BinaryAdd BinaryOperator = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod
	BinaryShl
	BinaryShr
	BinaryBitAnd
	BinaryBitOr
	BinaryBitXor
	BinaryLogicalAnd
	BinaryLogicalOr
	BinaryEq
	BinaryNotEq
	BinaryLess
	BinaryLessEq
	BinaryGreater
	BinaryGreaterEq
	BinaryConcat  // `~` on array literals/strings
	BinaryAssign  // `=` as an expression, in contexts that allow it (e.g. inline for's binding)
	BinaryBitIndex // `x $ n`, testing bit n of x
	BinaryRotateLeft  // `<<<`, rotate within the result type's byte-width
	BinaryRotateRight // `>>>`, rotate within the result type's byte-width
)

// BinaryOperation is an infix-operator expression.
type BinaryOperation struct {
	exprBase
	Op    BinaryOperator
	Left  Expression
	Right Expression
}

func (*BinaryOperation) isExpression() {}

// NewBinaryOperation constructs an infix-operator expression.
func NewBinaryOperation(loc source.Location, op BinaryOperator, left, right Expression) *BinaryOperation {
	return &BinaryOperation{exprBase: newExprBase(loc), Op: op, Left: left, Right: right}
}

// ============================================================================
// Call / Cast
// ============================================================================

// Call is a function/intrinsic/let invocation.  Which of Func, Let, or a
// builtin intrinsic the call dispatches to is determined by what
// Callee.Info().Type (after C3 resolves Callee) or, for an unreduced
// Callee, Callee's ResolvedIdentifier.Definition denotes.
type Call struct {
	exprBase
	Callee    Expression
	Arguments []Expression
}

func (*Call) isExpression() {}

// NewCall constructs a function/intrinsic/let invocation.
func NewCall(loc source.Location, callee Expression, args []Expression) *Call {
	return &Call{exprBase: newExprBase(loc), Callee: callee, Arguments: args}
}

// CastKind distinguishes the two cast spellings described in the
// GLOSSARY / §4.3 ("BadCast", "RuntimeCastRequiresTemporary").
type CastKind uint8

// The cast kinds.
const (
	// CastAs is `expr as T`: reinterpreting bits, no value conversion.
	CastAs CastKind = iota
	// CastTo is `expr to T`: a narrowing/widening value conversion.
	CastTo
)

// Cast is `expr as T` or `expr to T`.
type Cast struct {
	exprBase
	Kind     CastKind
	Operand  Expression
	TypeExpr TypeExpression
}

func (*Cast) isExpression() {}

// NewCast constructs an `as`/`to` cast expression.
func NewCast(loc source.Location, kind CastKind, operand Expression, typeExpr TypeExpression) *Cast {
	return &Cast{exprBase: newExprBase(loc), Kind: kind, Operand: operand, TypeExpr: typeExpr}
}

// ============================================================================
// Aggregate literals
// ============================================================================

// TupleLiteral is `(e0, e1, ...)`.
type TupleLiteral struct {
	exprBase
	Elements []Expression
}

func (*TupleLiteral) isExpression() {}

// NewTupleLiteral constructs a `(e0, e1, ...)` expression.
func NewTupleLiteral(loc source.Location, elements []Expression) *TupleLiteral {
	return &TupleLiteral{exprBase: newExprBase(loc), Elements: elements}
}

// ArrayLiteral is `[e0, e1, ...]`.
type ArrayLiteral struct {
	exprBase
	Elements []Expression
}

func (*ArrayLiteral) isExpression() {}

// NewArrayLiteral constructs a `[e0, e1, ...]` expression.
func NewArrayLiteral(loc source.Location, elements []Expression) *ArrayLiteral {
	return &ArrayLiteral{exprBase: newExprBase(loc), Elements: elements}
}

// StructLiteral is `Name{field: value, ...}`.
type StructLiteral struct {
	exprBase
	TypeExpr TypeExpression
	Fields   map[string]Expression
	// FieldOrder preserves declaration order for stable constant
	// serialization (C5 §4.5 serializeConstantInitializer) and
	// diagnostics.
	FieldOrder []string
}

func (*StructLiteral) isExpression() {}

// NewStructLiteral constructs a `Name{field: value, ...}` expression.
func NewStructLiteral(loc source.Location, typeExpr TypeExpression, fields map[string]Expression, order []string) *StructLiteral {
	return &StructLiteral{exprBase: newExprBase(loc), TypeExpr: typeExpr, Fields: fields, FieldOrder: order}
}

// ArrayPadLiteral is `[value; count]`, filling an array with one
// repeated element.
type ArrayPadLiteral struct {
	exprBase
	Value Expression
	Count Expression
}

func (*ArrayPadLiteral) isExpression() {}

// NewArrayPadLiteral constructs a `[value; count]` expression.
func NewArrayPadLiteral(loc source.Location, value, count Expression) *ArrayPadLiteral {
	return &ArrayPadLiteral{exprBase: newExprBase(loc), Value: value, Count: count}
}

// ArrayComprehension is the form generating an array from a bound
// variable ranging over a source expression, e.g. `[x * 2 for x in xs]`.
type ArrayComprehension struct {
	exprBase
	Binding string
	Source  Expression
	Body    Expression
}

func (*ArrayComprehension) isExpression() {}

// NewArrayComprehension constructs a `[body for binding in source]` expression.
func NewArrayComprehension(loc source.Location, binding string, source, body Expression) *ArrayComprehension {
	return &ArrayComprehension{exprBase: newExprBase(loc), Binding: binding, Source: source, Body: body}
}

// RangeLiteral is `lo..hi`.
type RangeLiteral struct {
	exprBase
	Low  Expression
	High Expression
}

func (*RangeLiteral) isExpression() {}

// NewRangeLiteral constructs a `lo..hi` expression.
func NewRangeLiteral(loc source.Location, low, high Expression) *RangeLiteral {
	return &RangeLiteral{exprBase: newExprBase(loc), Low: low, High: high}
}

// ============================================================================
// Field access / indexing
// ============================================================================

// FieldAccess is `expr.field` or `expr[index]`, distinguished by whether
// Index is nil.
type FieldAccess struct {
	exprBase
	Operand Expression
	Field   string
	Index   Expression // non-nil for `[index]` access, nil for `.field`
}

func (*FieldAccess) isExpression() {}

// NewFieldAccess constructs an `expr.field` access.
func NewFieldAccess(loc source.Location, operand Expression, field string) *FieldAccess {
	return &FieldAccess{exprBase: newExprBase(loc), Operand: operand, Field: field}
}

// NewIndexAccess constructs an `expr[index]` access.
func NewIndexAccess(loc source.Location, operand, index Expression) *FieldAccess {
	return &FieldAccess{exprBase: newExprBase(loc), Operand: operand, Index: index}
}

// ============================================================================
// Type-level queries
// ============================================================================

// TypeOf is `typeof(expr)` used in expression position, evaluating to a
// TypeExpression value passed around at compile time.
type TypeOf struct {
	exprBase
	Operand Expression
}

func (*TypeOf) isExpression() {}

// NewTypeOf constructs a `typeof(expr)` expression.
func NewTypeOf(loc source.Location, operand Expression) *TypeOf {
	return &TypeOf{exprBase: newExprBase(loc), Operand: operand}
}

// TypeQueryKind enumerates the §3/§4.3 type-introspection operators.
type TypeQueryKind uint8

// The type query kinds.
const (
	QuerySizeOf TypeQueryKind = iota
	QueryAlignOf
)

// TypeQuery is `sizeof(T)` or `alignof(T)`.
type TypeQuery struct {
	exprBase
	Kind     TypeQueryKind
	TypeExpr TypeExpression
}

func (*TypeQuery) isExpression() {}

// NewTypeQuery constructs a `sizeof(T)`/`alignof(T)` expression.
func NewTypeQuery(loc source.Location, kind TypeQueryKind, typeExpr TypeExpression) *TypeQuery {
	return &TypeQuery{exprBase: newExprBase(loc), Kind: kind, TypeExpr: typeExpr}
}

// OffsetOf is `offsetof(T, member)`.
type OffsetOf struct {
	exprBase
	TypeExpr TypeExpression
	Member   string
}

func (*OffsetOf) isExpression() {}

// NewOffsetOf constructs an `offsetof(T, member)` expression.
func NewOffsetOf(loc source.Location, typeExpr TypeExpression, member string) *OffsetOf {
	return &OffsetOf{exprBase: newExprBase(loc), TypeExpr: typeExpr, Member: member}
}

// ============================================================================
// Embed / side effects
// ============================================================================

// Embed is `embed("path")`, a compile-time file inclusion producing a
// byte-array constant; failure is reported as EmbedFailed (§7).
type Embed struct {
	exprBase
	Path string
}

func (*Embed) isExpression() {}

// NewEmbed constructs an `embed("path")` expression.
func NewEmbed(loc source.Location, path string) *Embed {
	return &Embed{exprBase: newExprBase(loc), Path: path}
}

// SideEffect wraps an expression evaluated solely for its run-time
// effect in contexts that otherwise expect a value, e.g. the bumped
// counter of a `for` loop's post-statement when written as an
// expression statement (§3 Statement "In").
type SideEffect struct {
	exprBase
	Operand Expression
}

func (*SideEffect) isExpression() {}

// NewSideEffect wraps an expression evaluated solely for its run-time effect.
func NewSideEffect(loc source.Location, operand Expression) *SideEffect {
	return &SideEffect{exprBase: newExprBase(loc), Operand: operand}
}
