package ast

// TypeExpression is the tagged union over type syntax (§3).  Like
// Expression, the same sum type is used both for the as-parsed form
// (Identifier) and the post-resolution form (ResolvedIdentifier, pointing
// at the type-producing Definition).
type TypeExpression interface {
	Node
	isTypeExpression()
}

// ============================================================================
// Array
// ============================================================================

// ArrayType is `[Element; Size]`, or `[Element]` when Size is nil (the
// source grammar allows unsized array types in a handful of contexts, e.g.
// an array literal's inferred type).
type ArrayType struct {
	base
	Element TypeExpression
	Size    Expression
}

func (*ArrayType) isTypeExpression() {}

// ============================================================================
// Pointer
// ============================================================================

// PointerQualifier is one of the qualifiers a pointer type may carry.
type PointerQualifier uint8

// The pointer qualifiers named in the GLOSSARY and §3.
const (
	QualConst PointerQualifier = iota
	QualWriteOnly
	QualFar
)

// PointerType is `*T`, optionally qualified (`*const T`, `*far T`, ...).
type PointerType struct {
	base
	Element     TypeExpression
	Qualifiers  []PointerQualifier
}

func (*PointerType) isTypeExpression() {}

// HasQualifier reports whether this pointer type carries the given
// qualifier.
func (p *PointerType) HasQualifier(q PointerQualifier) bool {
	for _, x := range p.Qualifiers {
		if x == q {
			return true
		}
	}
	//
	return false
}

// ============================================================================
// Function
// ============================================================================

// FunctionType is the signature type of a func/inline func/far func
// declaration, also used as the reduced type of a Func Definition.
type FunctionType struct {
	base
	Parameters []TypeExpression
	Return     TypeExpression
	Far        bool
}

func (*FunctionType) isTypeExpression() {}

// ============================================================================
// Tuple
// ============================================================================

// TupleType is `(T0, T1, ...)`.
type TupleType struct {
	base
	Elements []TypeExpression
}

func (*TupleType) isTypeExpression() {}

// ============================================================================
// Identifier / ResolvedIdentifier
// ============================================================================

// IdentifierType is an as-parsed dotted type name, not yet resolved.
type IdentifierType struct {
	base
	Pieces []string
}

func (*IdentifierType) isTypeExpression() {}

// ResolvedIdentifierType is produced by the resolver (C2) once an
// IdentifierType has been looked up: "points to a type-producing
// Definition" (§3).
type ResolvedIdentifierType struct {
	base
	Pieces     []string
	Definition Definition
}

func (*ResolvedIdentifierType) isTypeExpression() {}

// ============================================================================
// TypeOf
// ============================================================================

// TypeOfType wraps an expression: `typeof(expr)`.
type TypeOfType struct {
	base
	Expr Expression
}

func (*TypeOfType) isTypeExpression() {}

// ============================================================================
// DesignatedStorage
// ============================================================================

// DesignatedStorageType binds a typed view to a specific L-value holder
// expression — "u8 in a" binds a byte-sized view onto whatever storage `a`
// denotes (a register, an address, ...). See GLOSSARY "Designated storage".
type DesignatedStorageType struct {
	base
	Element TypeExpression
	Holder  Expression
}

func (*DesignatedStorageType) isTypeExpression() {}
