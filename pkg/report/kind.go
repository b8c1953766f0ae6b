package report

// Kind identifies exactly one diagnostic category (§7).  Every diagnostic
// raised anywhere in the core maps to precisely one of these.
type Kind uint8

// The full enumeration from §7.  Grouped by the sub-section of §7 they
// appear under, in the same order as the spec.
const (
	// Parse-adjacent (normally raised by the out-of-scope parser, but the
	// core re-raises them when re-validating embedded/compile-time text).
	MalformedIntegerLiteral Kind = iota
	UnknownSuffix

	// Name resolution (C1/C2).
	Unresolved
	Ambiguous
	DuplicateName
	WrongKind

	// Type (C2/C3).
	TypeMismatch
	IntegerOutOfRange
	NarrowingRejected
	BadCast
	SizeOfUnknownType
	LValueRequired
	ConstAssignment
	WriteOnlyRead
	DesignatedStorageInvalid

	// Control flow (C4).
	BreakOutsideLoop
	ContinueOutsideLoop
	MissingReturn
	InlineReturnConventionMismatch
	ForRangeOutOfBounds

	// Evaluation (C3).
	LetRecursionLimit
	ArithmeticOverflow
	DivideByZero
	NonConstantInitializer
	EmbedFailed
	NotImplemented

	// Selection (C4).
	NoMatchingInstruction
	RuntimeCastRequiresTemporary
	WriteOnlyDestinationForInPlaceOp

	// Layout (C5).
	BankOverflow
	AddressOutsideRange
	BankStartExceedsPlatformRange
	InternalInvariantViolation
)

// names mirrors the constants above for human-readable diagnostics.
var names = map[Kind]string{
	MalformedIntegerLiteral:          "malformed integer literal",
	UnknownSuffix:                    "unknown suffix",
	Unresolved:                       "unresolved identifier",
	Ambiguous:                        "ambiguous identifier",
	DuplicateName:                    "duplicate name",
	WrongKind:                        "wrong kind",
	TypeMismatch:                     "type mismatch",
	IntegerOutOfRange:                "integer out of range",
	NarrowingRejected:                "narrowing rejected",
	BadCast:                          "bad cast",
	SizeOfUnknownType:                "size of unknown type",
	LValueRequired:                   "l-value required",
	ConstAssignment:                  "assignment to const",
	WriteOnlyRead:                    "read of writeonly value",
	DesignatedStorageInvalid:         "invalid designated storage",
	BreakOutsideLoop:                 "break outside loop",
	ContinueOutsideLoop:              "continue outside loop",
	MissingReturn:                    "missing return",
	InlineReturnConventionMismatch:   "inline return convention mismatch",
	ForRangeOutOfBounds:              "for-loop range requires an out-of-bounds comparison value",
	LetRecursionLimit:                "let recursion limit exceeded",
	ArithmeticOverflow:               "arithmetic overflow",
	DivideByZero:                     "divide by zero",
	NonConstantInitializer:           "non-constant initializer",
	EmbedFailed:                      "embed failed",
	NotImplemented:                   "not implemented",
	NoMatchingInstruction:            "no matching instruction",
	RuntimeCastRequiresTemporary:     "runtime cast requires temporary",
	WriteOnlyDestinationForInPlaceOp: "writeonly destination for in-place operator",
	BankOverflow:                     "bank overflow",
	AddressOutsideRange:              "address outside range",
	BankStartExceedsPlatformRange:    "bank start exceeds platform range",
	InternalInvariantViolation:       "internal invariant violation",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	//
	return "unknown diagnostic kind"
}

// IsFatal identifies the kinds which §7 calls out as "fatal flags... for
// catastrophic cases" that short-circuit immediately rather than allowing
// the enclosing phase to keep processing further statements.
func (k Kind) IsFatal() bool {
	switch k {
	case LetRecursionLimit, InternalInvariantViolation:
		return true
	default:
		return false
	}
}
