// Package resolve implements the Definition Resolver (C2): the three
// sequential sub-phases of §4.2 that turn a raw statement tree into a
// tree of bound, typed, storage-assigned Definitions, plus the common
// helpers (reduceTypeExpression, calculateStorageSize) phases R1-R3 and
// later phases share.
//
// Grounded on the teacher's pkg/corset/compiler/resolver.go (the
// worklist-driven, multi-pass "reserve names first, resolve types
// second" shape) generalized from Corset's column/function bindings to
// this specification's Var/Func/Let/Bank/Enum/Struct/TypeAlias
// definitions.
package resolve

import (
	"math"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/config"
	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/source"
	"github.com/wiz-lang/wiz/pkg/symbol"
	"github.com/wiz-lang/wiz/pkg/util/collection/stack"
)

// bankFrame is one entry of the LIFO (bank, relative-position) stack an
// `in` statement pushes (§4.2 R3: "the stack of (bank, relative
// position) is strictly LIFO").
type bankFrame struct {
	bankName string
	relative uint64
}

// Resolver drives R1-R3 over a forest of statement trees sharing one
// root scope, platform, and report.
type Resolver struct {
	Platform platform.Platform
	Report   *report.Report
	Builtins *config.Builtins

	root *symbol.Table
	// worklist is definitionsToResolve (§4.2 R1: "appending it to a
	// worklist").
	worklist  []ast.Definition
	bankStack *stack.Stack[bankFrame]
	// ramCursor tracks, per unstored (RAM-like) bank name, how many bytes
	// R3 has already allocated within it (§4.2 R3 "(b) allocates space in
	// the current bank via reserveRam for unstored banks"). A stored bank
	// needs no entry here: its Vars defer the real relative position to
	// C4/C5's Var IrNode and layout pass instead.
	ramCursor map[string]uint64

	iexprType *ast.BuiltinIntegerType
	boolType  *ast.BuiltinBoolType
}

// New constructs a Resolver with a fresh root scope seeded by the
// platform's builtins.
func New(p platform.Platform, r *report.Report, builtins *config.Builtins) *Resolver {
	root := symbol.NewRoot()
	// `iexpr` (the unbounded compile-time literal type) and `bool` are
	// core-language builtins rather than platform-specific ones (§3/§4.3:
	// "the unbounded iexpr (compile-time literal)"), so they are seeded
	// here once per compilation instead of by each Platform.
	iexprType := ast.NewBuiltinIntegerType(source.Location{}, "iexpr", 0, math.MinInt64, math.MaxInt64, true)
	boolType := ast.NewBuiltinBoolType(source.Location{}, "bool")
	root.Define("iexpr", iexprType)
	root.Define("bool", boolType)
	//
	p.ReserveDefinitions(root)
	//
	return &Resolver{
		Platform: p, Report: r, Builtins: builtins, root: root,
		bankStack: stack.NewStack[bankFrame](), ramCursor: make(map[string]uint64),
		iexprType: iexprType, boolType: boolType,
	}
}

// Root returns the top-level scope, e.g. for ResolveIdentifier calls
// made by C3/C4 outside of a specific nested scope.
func (rv *Resolver) Root() *symbol.Table {
	return rv.root
}

// IexprType returns the core unbounded compile-time-literal integer type
// (§4.3), shared by every literal the reducer produces until context
// narrows it.
func (rv *Resolver) IexprType() *ast.BuiltinIntegerType {
	return rv.iexprType
}

// BoolType returns the core boolean type shared by every boolean-valued
// expression the reducer produces.
func (rv *Resolver) BoolType() *ast.BuiltinBoolType {
	return rv.boolType
}

// ============================================================================
// Phase R1 — reserveDefinitions
// ============================================================================

// ReserveDefinitions walks stmts once within scope, creating every named
// declaration (§4.2 R1).
func (rv *Resolver) ReserveDefinitions(stmts []ast.Statement, scope *symbol.Table) {
	for _, stmt := range stmts {
		rv.reserveStatement(stmt, scope)
	}
}

func (rv *Resolver) reserveStatement(stmt ast.Statement, scope *symbol.Table) {
	switch s := stmt.(type) {
	case *ast.File:
		// The file's own scope is linked as a recursive import of the
		// enclosing scope so imports declared within it are transparent
		// to the rest of the program (§4.2 R1).
		fileScope := scope.NewChild(s.Path)
		scope.AddImport(fileScope)
		rv.ReserveDefinitions(s.Body, fileScope)
	case *ast.ImportReference:
		rv.reserveImport(s, scope)
	case *ast.Attribution:
		rv.reserveAttribution(s, scope)
	case *ast.NamespaceStmt:
		rv.reserveNamespace(s, scope)
	case *ast.LetStmt:
		rv.defineAndQueue(scope, s.Def.Name(), s.Def)
	case *ast.EnumStmt:
		rv.defineAndQueue(scope, s.Def.Name(), s.Def)
		for _, m := range s.Def.Members {
			rv.defineAndQueue(scope, m.Name(), m)
		}
	case *ast.StructStmt:
		rv.defineAndQueue(scope, s.Def.Name(), s.Def)
		for _, m := range s.Def.Members {
			rv.defineAndQueue(scope, m.Name(), m)
		}
	case *ast.VarStmt:
		rv.defineAndQueue(scope, s.Def.Name(), s.Def)
	case *ast.FuncStmt:
		rv.reserveFunc(s, scope)
	case *ast.BankStmt:
		rv.defineAndQueue(scope, s.Def.Name(), s.Def)
	case *ast.TypeAliasStmt:
		rv.defineAndQueue(scope, s.Def.Name(), s.Def)
	case *ast.If:
		rv.ReserveDefinitions(s.Then, scope)
		rv.ReserveDefinitions(s.Alt, scope)
	case *ast.While:
		rv.ReserveDefinitions(s.Body, scope)
	case *ast.DoWhile:
		rv.ReserveDefinitions(s.Body, scope)
	case *ast.For:
		rv.ReserveDefinitions(s.Body, scope)
	case *ast.InlineFor:
		// The body is reserved afresh per inline expansion by C4's
		// inline-site handling; R1 itself does not walk into it.
	case *ast.In:
		rv.ReserveDefinitions(s.Body, scope)
	default:
		// Label, Branch, ExpressionStmt: no definitions to reserve.
	}
}

func (rv *Resolver) defineAndQueue(scope *symbol.Table, name string, def ast.Definition) {
	if scope.Define(name, def) {
		rv.worklist = append(rv.worklist, def)
	} else {
		rv.duplicateName(def, name)
	}
}

func (rv *Resolver) duplicateName(def ast.Definition, name string) {
	rv.Report.Errorf(report.DuplicateName, def.Location(), "'%s' is already declared in this scope", name)
}

func (rv *Resolver) reserveImport(s *ast.ImportReference, scope *symbol.Table) {
	if s.Path == "" {
		rv.Report.Errorf(report.Unresolved, s.Location(), "import path must not be empty")
		return
	}
	// Re-link a previously-registered module scope as a recursive
	// import; the module registry itself is out of core scope (§6 file
	// I/O), so callers are expected to have already created the child
	// scope and attached it via AddImport before invoking ReserveDefinitions
	// on statements reachable from this ImportReference. Nothing further
	// to do here: the File case is what performs the actual linking.
	_ = scope
}

func (rv *Resolver) reserveAttribution(s *ast.Attribution, scope *symbol.Table) {
	skip := false
	//
	for _, attr := range s.Attributes {
		switch attr {
		case "compile_if":
			cond, ok := rv.evalCompileIf(s.Condition)
			if !ok {
				rv.Report.Errorf(report.NotImplemented, s.Location(), "compile_if condition is not a compile-time constant")
				continue
			}
			//
			if !cond {
				skip = true
			}
		case "irq", "nmi", "fallthrough":
			// Function-attributes validated against the enclosing Func
			// when R1 reaches it; recorded on the attribute stack by
			// the caller (pkg/compiler), not here.
		default:
			rv.Report.Errorf(report.NotImplemented, s.Location(), "unknown attribute '%s'", attr)
		}
	}
	//
	if skip {
		// §4.2 R1: "when compile_if evaluates to false, the wrapped
		// statement is skipped entirely" — no definitions reserved, so
		// R2/R3/C4 never see it either.
		return
	}
	//
	rv.reserveStatement(s.Inner, scope)
}

// evalCompileIf evaluates a `compile_if` argument at R1 time, before
// pkg/reduce's full constant-folding machinery exists for this tree (R1
// runs first and reduce.Reducer wraps *Resolver, so resolve cannot import
// it without a cycle). Only the handful of forms a compile_if condition
// plausibly takes are supported: literals, `!`/`&&`/`||` over those, and
// the has_def intrinsic against the driver-injected Builtins table.
func (rv *Resolver) evalCompileIf(cond ast.Expression) (bool, bool) {
	switch c := cond.(type) {
	case *ast.BooleanLiteral:
		return c.Value, true
	case *ast.IntegerLiteral:
		return c.Value != 0, true
	case *ast.UnaryOperation:
		if c.Op != ast.UnaryNot {
			return false, false
		}
		//
		v, ok := rv.evalCompileIf(c.Operand)
		return !v, ok
	case *ast.BinaryOperation:
		switch c.Op {
		case ast.BinaryLogicalAnd:
			l, ok := rv.evalCompileIf(c.Left)
			if !ok {
				return false, false
			}
			if !l {
				return false, true
			}
			//
			return rv.evalCompileIf(c.Right)
		case ast.BinaryLogicalOr:
			l, ok := rv.evalCompileIf(c.Left)
			if !ok {
				return false, false
			}
			if l {
				return true, true
			}
			//
			return rv.evalCompileIf(c.Right)
		default:
			return false, false
		}
	case *ast.Call:
		id, ok := c.Callee.(*ast.Identifier)
		if !ok || len(id.Pieces) != 1 || id.Pieces[0] != "has_def" || len(c.Arguments) != 1 {
			return false, false
		}
		//
		key, ok := c.Arguments[0].(*ast.StringLiteral)
		if !ok {
			return false, false
		}
		//
		return rv.Builtins.HasDef(string(key.Value)), true
	default:
		return false, false
	}
}

func (rv *Resolver) reserveNamespace(s *ast.NamespaceStmt, scope *symbol.Table) {
	// Multiple declarations of a namespace merge into one (§4.2 R1).
	var child *symbol.Table
	//
	if existing := scope.FindLocal(s.Def.Name()); existing != nil {
		if ns, ok := existing.(*ast.Namespace); ok {
			child, _ = ns.Scope.(*symbol.Table)
			s.Def.Scope = ns.Scope
		} else {
			rv.duplicateName(s.Def, s.Def.Name())
			return
		}
	} else {
		child = scope.NewChild(s.Def.Name())
		s.Def.Scope = child
		scope.Define(s.Def.Name(), s.Def)
		rv.worklist = append(rv.worklist, s.Def)
	}
	//
	rv.ReserveDefinitions(s.Def.Body, child)
}

func (rv *Resolver) reserveFunc(s *ast.FuncStmt, scope *symbol.Table) {
	if !scope.Define(s.Def.Name(), s.Def) {
		rv.duplicateName(s.Def, s.Def.Name())
		return
	}
	//
	rv.worklist = append(rv.worklist, s.Def)
	//
	// Func registers a child scope containing parameter definitions
	// (§4.2 R1); the body is reserved within it so `return`/recursive
	// calls and nested declarations see the parameters.
	child := scope.NewChild(s.Def.Name())
	//
	for _, param := range s.Def.Parameters {
		if !child.Define(param.Name(), param) {
			rv.duplicateName(param, param.Name())
		}
	}
	//
	rv.ReserveDefinitions(s.Def.Body, child)
}

// ============================================================================
// Phase R2 — resolveDefinitionTypes
// ============================================================================

// ResolveDefinitionTypes iterates the worklist twice (§4.2 R2): first
// resolving size-introducing declarations (Enum, Struct/Union,
// TypeAlias), then declarations that may depend on them (Var, Func,
// Bank).
func (rv *Resolver) ResolveDefinitionTypes() {
	for _, def := range rv.worklist {
		switch d := def.(type) {
		case *ast.Enum:
			rv.resolveEnum(d)
		case *ast.Struct:
			rv.resolveStruct(d)
		case *ast.TypeAlias:
			d.ResolvedType = rv.ReduceTypeExpression(d.TargetExpr)
		}
	}
	//
	for _, def := range rv.worklist {
		switch d := def.(type) {
		case *ast.Var:
			d.ReducedType = rv.ReduceTypeExpression(d.TypeExpr)
		case *ast.Func:
			rv.resolveFuncSignature(d)
		case *ast.Bank:
			rv.resolveBank(d)
		}
	}
}

func (rv *Resolver) resolveEnum(d *ast.Enum) {
	underlying := rv.ReduceTypeExpression(d.UnderlyingTypeExpr)
	d.UnderlyingTypeExpr = underlying
	//
	var previous int64 = -1
	var lastExplicit int64 = -1
	//
	for idx, m := range d.Members {
		if m.ValueExpr != nil {
			// A full const-expr evaluation belongs to C3; R2 only needs
			// a literal fast path since enum member initializers are
			// required to be CompileTime integer literals.
			if lit, ok := m.ValueExpr.(*ast.IntegerLiteral); ok {
				m.ResolvedValue = lit.Value
			} else {
				rv.Report.Errorf(report.NonConstantInitializer, m.Location(),
					"enum member '%s' must have a compile-time integer value", m.Name())
			}
			//
			previous = m.ResolvedValue
			lastExplicit = int64(idx)
		} else {
			m.ResolvedValue = previous + (int64(idx) - lastExplicit)
			previous = m.ResolvedValue
		}
	}
}

func (rv *Resolver) resolveStruct(d *ast.Struct) {
	var offset uint64
	var total uint64
	//
	for _, m := range d.Members {
		reduced := rv.ReduceTypeExpression(m.TypeExpr)
		m.TypeExpr = reduced
		//
		size, ok := rv.CalculateStorageSize(reduced, m.Name())
		if !ok {
			continue
		}
		//
		if d.Kind == ast.KindStruct {
			m.Offset = offset
			offset += size
			total = offset
		} else {
			m.Offset = 0
			if size > total {
				total = size
			}
		}
	}
	//
	d.TotalSize = &total
}

func (rv *Resolver) resolveFuncSignature(d *ast.Func) {
	params := make([]ast.TypeExpression, len(d.Parameters))
	//
	for i, param := range d.Parameters {
		param.ReducedType = rv.ReduceTypeExpression(param.TypeExpr)
		params[i] = param.ReducedType
	}
	//
	ret := rv.ReduceTypeExpression(d.ReturnTypeExpr)
	d.Signature = &ast.FunctionType{Parameters: params, Return: ret, Far: d.Far}
}

func (rv *Resolver) resolveBank(d *ast.Bank) {
	reduced := rv.ReduceTypeExpression(d.TypeExpr)
	d.TypeExpr = reduced
	//
	arr, ok := reduced.(*ast.ArrayType)
	if !ok {
		rv.Report.Errorf(report.TypeMismatch, d.Location(), "bank '%s' type must be [BankKind; N]", d.Name())
		return
	}
	//
	kind := ast.BankStored
	var size uint64
	//
	if _, ok := arr.Element.(*ast.IdentifierType); ok {
		// Unstored (RAM-like) banks are spelled with a distinguished
		// element identifier by convention (e.g. `ram`) that never
		// resolves to a sized type; the concrete keyword mapping is the
		// parser's concern, out of scope here. Its capacity is the
		// declared element count itself, since an unstored bank reserves
		// address space rather than byte-sized slots, so there is no
		// per-element size to multiply by (calculateStorageSize would
		// otherwise report a spurious SizeOfUnknownType for every such
		// declaration).
		kind = ast.BankUnstored
		//
		if lit, ok := arr.Size.(*ast.IntegerLiteral); ok {
			size = uint64(lit.Value)
		} else {
			rv.Report.Errorf(report.SizeOfUnknownType, d.Location(), "bank '%s' size is not a compile-time constant", d.Name())
			return
		}
	} else if calcSize, ok := rv.CalculateStorageSize(arr, d.Name()); ok {
		size = calcSize
	} else {
		return
	}
	//
	d.Handle = &ast.BankHandle{Name: d.Name(), Kind: kind, Capacity: size}
}

// ============================================================================
// Phase R3 — reserveVariableStorage
// ============================================================================

// ReserveVariableStorage walks stmts again, computing storage sizes and
// addresses for every Var statement (§4.2 R3).
func (rv *Resolver) ReserveVariableStorage(stmts []ast.Statement, scope *symbol.Table) {
	for _, stmt := range stmts {
		rv.reserveStorageStatement(stmt, scope)
	}
}

func (rv *Resolver) reserveStorageStatement(stmt ast.Statement, scope *symbol.Table) {
	switch s := stmt.(type) {
	case *ast.VarStmt:
		rv.reserveVarStorage(s.Def)
	case *ast.NamespaceStmt:
		if child, ok := s.Def.Scope.(*symbol.Table); ok {
			rv.ReserveVariableStorage(s.Def.Body, child)
		}
	case *ast.FuncStmt:
		rv.ReserveVariableStorage(s.Def.Body, scope)
	case *ast.If:
		rv.ReserveVariableStorage(s.Then, scope)
		rv.ReserveVariableStorage(s.Alt, scope)
	case *ast.While:
		rv.ReserveVariableStorage(s.Body, scope)
	case *ast.DoWhile:
		rv.ReserveVariableStorage(s.Body, scope)
	case *ast.For:
		rv.ReserveVariableStorage(s.Body, scope)
	case *ast.In:
		rv.reserveIn(s, scope)
	case *ast.Attribution:
		if rv.ShouldSkipAttribution(s) {
			return
		}
		//
		rv.reserveStorageStatement(s.Inner, scope)
	}
}

// AttributionCondition evaluates an Attribution's compile_if gate, if it
// has one; ok is false whenever there is no compile_if attribute to gate
// on, or its condition isn't one evalCompileIf can fold (R1 already
// reports a diagnostic for the latter case).
func (rv *Resolver) AttributionCondition(s *ast.Attribution) (cond bool, ok bool) {
	for _, attr := range s.Attributes {
		if attr == "compile_if" {
			return rv.evalCompileIf(s.Condition)
		}
	}
	//
	return false, false
}

// ShouldSkipAttribution reports whether s's wrapped statement must be
// skipped entirely (§4.2 R1): only true when compile_if evaluates to a
// known false. Shared by R3 and C4 so every phase after R1 agrees with
// R1's own reserve-or-skip decision.
func (rv *Resolver) ShouldSkipAttribution(s *ast.Attribution) bool {
	cond, ok := rv.AttributionCondition(s)
	return ok && !cond
}

func (rv *Resolver) reserveIn(s *ast.In, scope *symbol.Table) {
	// An `in` statement pushes the named bank and optionally seeks to an
	// address; the stack of (bank, relative position) is strictly LIFO
	// (§4.2 R3), restored via a scoped-acquisition push/defer-pop.
	name := holderBankName(s.Holder)
	rv.bankStack.Push(bankFrame{bankName: name})
	defer rv.bankStack.Pop()
	//
	rv.ReserveVariableStorage(s.Body, scope)
}

func holderBankName(e ast.Expression) string {
	if id, ok := e.(*ast.Identifier); ok && len(id.Pieces) > 0 {
		return id.Pieces[len(id.Pieces)-1]
	}
	//
	return ""
}

func (rv *Resolver) reserveVarStorage(d *ast.Var) {
	if d.HasModifier(ast.ModExtern) && d.AddressExpr == nil {
		rv.Report.Errorf(report.DesignatedStorageInvalid, d.Location(), "extern '%s' requires an explicit address", d.Name())
		return
	}
	//
	if _, designated := d.ReducedType.(*ast.DesignatedStorageType); designated {
		if d.HasModifier(ast.ModConst) || d.HasModifier(ast.ModWriteOnly) || d.HasModifier(ast.ModExtern) {
			rv.Report.Errorf(report.DesignatedStorageInvalid, d.Location(),
				"'%s' designated storage may not be const, writeonly, or extern", d.Name())
			return
		}
	}
	//
	if d.Function != nil && d.Initializer != nil {
		rv.Report.Errorf(report.NonConstantInitializer, d.Location(),
			"local variable '%s' may not have an initializer", d.Name())
	}
	//
	size, ok := rv.CalculateStorageSize(d.ReducedType, d.Name())
	if !ok {
		return
	}
	//
	d.StorageSize = &size
	//
	if d.AddressExpr != nil {
		if lit, ok := d.AddressExpr.(*ast.IntegerLiteral); ok {
			addr := uint64(lit.Value)
			d.ResolvedAddr = &ast.Address{Absolute: &addr}
		}
		//
		return
	}
	//
	if !rv.bankStack.IsEmpty() {
		frame := rv.bankStack.Peek(0)
		//
		if bank, unstored := rv.unstoredBank(frame.bankName); unstored {
			start := rv.ramCursor[frame.bankName]
			end := start + size
			if bank.Handle.Capacity > 0 && end > bank.Handle.Capacity {
				rv.Report.Errorf(report.BankOverflow, d.Location(),
					"'%s' overflows bank '%s' (capacity %d bytes)", d.Name(), frame.bankName, bank.Handle.Capacity)
				return
			}
			//
			rv.ramCursor[frame.bankName] = end
			d.ResolvedAddr = &ast.Address{Bank: frame.bankName, RelativePosition: start}
			//
			return
		}
		//
		d.ResolvedAddr = &ast.Address{Bank: frame.bankName, RelativePosition: frame.relative}
	}
	// Stored banks defer the exact relative position to C4/C5's Var IR
	// node and layout pass; this only records which bank a variable
	// belongs to.
}

// unstoredBank resolves name to its Bank definition, reporting whether it
// is an unstored (RAM-like) bank whose Var storage this phase must
// allocate sequentially itself (§4.2 R3 "(b)"): unlike a stored bank,
// an unstored one has no C4 IrNode::Var and no C5 layout pass to assign
// a real position later, so R3 is the only phase that ever will.
// Resolution failures are swallowed (a bad bank name is reported once,
// elsewhere, by whatever validates the `in` holder itself) rather than
// raising a diagnostic once per variable declared inside it.
func (rv *Resolver) unstoredBank(name string) (*ast.Bank, bool) {
	def, n := symbol.ResolveIdentifier(rv.root, []string{name}, source.Location{}, report.NewReport())
	bank, ok := def.(*ast.Bank)
	if !ok || n != 1 || bank.Handle == nil {
		return nil, false
	}
	//
	return bank, bank.Handle.Kind == ast.BankUnstored
}

// ============================================================================
// Common helpers
// ============================================================================

// ReduceTypeExpression implements the shared reduceTypeExpression helper
// (§4.2): resolves identifier types, validates array sizes, and enforces
// designated-storage holder constraints.
func (rv *Resolver) ReduceTypeExpression(t ast.TypeExpression) ast.TypeExpression {
	switch v := t.(type) {
	case nil:
		return nil
	case *ast.IdentifierType:
		def, n := symbol.ResolveIdentifier(rv.root, v.Pieces, v.Location(), rv.Report)
		if def == nil || n != len(v.Pieces) {
			return v
		}
		//
		return &ast.ResolvedIdentifierType{Pieces: v.Pieces, Definition: def}
	case *ast.ArrayType:
		if v.Size != nil {
			if lit, ok := v.Size.(*ast.IntegerLiteral); ok && lit.Value < 0 {
				rv.Report.Errorf(report.IntegerOutOfRange, v.Location(), "array size must be non-negative")
			}
		}
		//
		return &ast.ArrayType{Element: rv.ReduceTypeExpression(v.Element), Size: v.Size}
	case *ast.PointerType:
		return &ast.PointerType{Element: rv.ReduceTypeExpression(v.Element), Qualifiers: v.Qualifiers}
	case *ast.FunctionType:
		params := make([]ast.TypeExpression, len(v.Parameters))
		for i, p := range v.Parameters {
			params[i] = rv.ReduceTypeExpression(p)
		}
		//
		return &ast.FunctionType{Parameters: params, Return: rv.ReduceTypeExpression(v.Return), Far: v.Far}
	case *ast.TupleType:
		elems := make([]ast.TypeExpression, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = rv.ReduceTypeExpression(e)
		}
		//
		return &ast.TupleType{Elements: elems}
	case *ast.DesignatedStorageType:
		info := v.Holder.Info()
		if info != nil {
			if !info.Flags.Has(ast.LValue) {
				rv.Report.Errorf(report.LValueRequired, v.Location(), "designated storage holder must be an l-value")
			} else if info.Flags.Has(ast.Const) || info.Flags.Has(ast.WriteOnly) {
				rv.Report.Errorf(report.DesignatedStorageInvalid, v.Location(),
					"designated storage holder must not be const or writeonly")
			}
		}
		//
		return &ast.DesignatedStorageType{Element: rv.ReduceTypeExpression(v.Element), Holder: v.Holder}
	default:
		return t
	}
}

// CalculateStorageSize implements §4.2's calculateStorageSize: computes
// a byte size for t, or returns ok=false (with a diagnostic already
// recorded) when t is unsized.
func (rv *Resolver) CalculateStorageSize(t ast.TypeExpression, description string) (uint64, bool) {
	switch v := t.(type) {
	case *ast.ResolvedIdentifierType:
		return rv.calculateDefinitionSize(v.Definition, description)
	case *ast.ArrayType:
		if v.Size == nil {
			rv.Report.Errorf(report.SizeOfUnknownType, v.Location(), "'%s' has unsized array type", description)
			return 0, false
		}
		//
		lit, ok := v.Size.(*ast.IntegerLiteral)
		if !ok {
			rv.Report.Errorf(report.SizeOfUnknownType, v.Location(), "'%s' array size is not a compile-time constant", description)
			return 0, false
		}
		//
		elemSize, ok := rv.CalculateStorageSize(v.Element, description)
		if !ok {
			return 0, false
		}
		//
		total := elemSize * uint64(lit.Value)
		if lit.Value != 0 && total/uint64(lit.Value) != elemSize {
			rv.Report.Errorf(report.ArithmeticOverflow, v.Location(), "'%s' array size overflows", description)
			return 0, false
		}
		//
		return total, true
	case *ast.PointerType:
		if v.HasQualifier(ast.QualFar) {
			return rv.calculateDefinitionSize(rv.Platform.GetFarPointerSizedType(), description)
		}
		//
		return rv.calculateDefinitionSize(rv.Platform.GetPointerSizedType(), description)
	case *ast.FunctionType:
		if v.Far {
			return rv.calculateDefinitionSize(rv.Platform.GetFarPointerSizedType(), description)
		}
		//
		return rv.calculateDefinitionSize(rv.Platform.GetPointerSizedType(), description)
	case *ast.TupleType:
		var total uint64
		for _, e := range v.Elements {
			size, ok := rv.CalculateStorageSize(e, description)
			if !ok {
				return 0, false
			}
			//
			total += size
		}
		//
		return total, true
	case *ast.DesignatedStorageType:
		return rv.CalculateStorageSize(v.Element, description)
	default:
		rv.Report.Errorf(report.SizeOfUnknownType, t.Location(), "'%s' has unsized type", description)
		return 0, false
	}
}

func (rv *Resolver) calculateDefinitionSize(def ast.Definition, description string) (uint64, bool) {
	switch d := def.(type) {
	case *ast.BuiltinIntegerType:
		return uint64(d.SizeBytes), true
	case *ast.BuiltinBoolType:
		return 1, true
	case *ast.Struct:
		if d.TotalSize == nil {
			rv.Report.Errorf(report.SizeOfUnknownType, d.Location(), "'%s' size not yet resolved", description)
			return 0, false
		}
		//
		return *d.TotalSize, true
	case *ast.Enum:
		return rv.calculateDefinitionSize(underlyingDef(d), description)
	case *ast.TypeAlias:
		return rv.CalculateStorageSize(d.ResolvedType, description)
	default:
		rv.Report.Errorf(report.SizeOfUnknownType, def.Location(), "'%s' has unsized type", description)
		return 0, false
	}
}

func underlyingDef(e *ast.Enum) ast.Definition {
	if r, ok := e.UnderlyingTypeExpr.(*ast.ResolvedIdentifierType); ok {
		return r.Definition
	}
	//
	return nil
}
