// Package reduce implements the Expression Reducer (C3, §4.3): the
// workhorse reduceExpression that turns an as-parsed Expression tree into
// one whose every node carries a populated ExpressionInfo (context, type,
// flags), folding what can be folded at compile time and leaving the
// rest as a structurally-normalized run/link-time expression for C4.
//
// Reducer wraps a *resolve.Resolver rather than duplicating its fields
// (Platform, Report, Builtins) and common helpers (ReduceTypeExpression,
// CalculateStorageSize), since §4.2 states R1-R3 and later phases share
// them — grounded on the teacher's own layering, where pkg/corset's
// constraint lowering passes are built on top of, not beside, its
// resolver/binder.
package reduce

import (
	"fmt"
	"math"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/resolve"
	"github.com/wiz-lang/wiz/pkg/source"
	"github.com/wiz-lang/wiz/pkg/symbol"
)

// maxLetRecursionDepth is the §4.3 "recursion-depth limit (>=128 fails
// with an annotated stack trace)".
const maxLetRecursionDepth = 128

// callFrame is one entry of the let-invocation stack, used both to
// enforce maxLetRecursionDepth and to render §7's annotated stack trace.
type callFrame struct {
	loc  source.Location
	name string
}

// Reducer drives reduceExpression over expressions sharing one
// Resolver's platform, report, and builtins table.
type Reducer struct {
	*resolve.Resolver

	callStack []callFrame

	// Loader fetches the bytes behind an `embed "path"` literal. File
	// I/O and the import manager that resolves a path to a canonical
	// location are out of core scope (the same boundary reserveImport
	// draws in pkg/resolve); a nil Loader makes every embed fail with
	// EmbedFailed, which is the correct behavior for a core that has not
	// been wired to a driver yet.
	Loader func(path string) ([]byte, error)

	embedCache map[string][]byte
}

// New constructs a Reducer over an already-built Resolver, after R1-R3
// have run.
func New(rv *resolve.Resolver) *Reducer {
	return &Reducer{Resolver: rv}
}

// Reduce implements reduceExpression (§4.3): returns a new expression
// whose Info() is populated, or (nil, false) on failure having already
// recorded a diagnostic. An expression that already carries Info is
// returned unchanged, so repeated passes over a partially-reduced tree
// (e.g. from ReduceTypeExpression's DesignatedStorageType holder) are
// idempotent.
func (rd *Reducer) Reduce(scope *symbol.Table, e ast.Expression) (ast.Expression, bool) {
	if e == nil {
		return nil, true
	}
	//
	if info := e.Info(); info != nil {
		return e, true
	}
	//
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		out := ast.NewIntegerLiteral(v.Location(), v.Value)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.iexprTypeExpr()})
		return out, true
	case *ast.BooleanLiteral:
		out := ast.NewBooleanLiteral(v.Location(), v.Value)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.boolTypeExpr()})
		return out, true
	case *ast.StringLiteral:
		out := ast.NewStringLiteral(v.Location(), v.Value)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.byteArrayTypeExpr(len(v.Value))})
		return out, true
	case *ast.Identifier:
		return rd.reduceIdentifier(scope, v)
	case *ast.ResolvedIdentifier:
		return v, true
	case *ast.UnaryOperation:
		return rd.reduceUnary(scope, v)
	case *ast.BinaryOperation:
		return rd.reduceBinary(scope, v)
	case *ast.Call:
		return rd.reduceCall(scope, v)
	case *ast.Cast:
		return rd.reduceCast(scope, v)
	case *ast.TupleLiteral:
		return rd.reduceTuple(scope, v)
	case *ast.ArrayLiteral:
		return rd.reduceArray(scope, v)
	case *ast.StructLiteral:
		return rd.reduceStructLiteral(scope, v)
	case *ast.ArrayPadLiteral:
		return rd.reduceArrayPad(scope, v)
	case *ast.ArrayComprehension:
		return rd.reduceComprehension(scope, v)
	case *ast.RangeLiteral:
		return rd.reduceRange(scope, v)
	case *ast.FieldAccess:
		return rd.reduceFieldAccess(scope, v)
	case *ast.TypeOf:
		return rd.reduceTypeOf(scope, v)
	case *ast.TypeQuery:
		return rd.reduceTypeQuery(v)
	case *ast.OffsetOf:
		return rd.reduceOffsetOf(v)
	case *ast.Embed:
		return rd.reduceEmbed(v)
	case *ast.SideEffect:
		return rd.reduceSideEffect(scope, v)
	default:
		rd.Report.Errorf(report.NotImplemented, e.Location(), "expression kind not implemented")
		return nil, false
	}
}

// ============================================================================
// Identifier
// ============================================================================

func (rd *Reducer) reduceIdentifier(scope *symbol.Table, id *ast.Identifier) (ast.Expression, bool) {
	def, n := symbol.ResolveIdentifier(scope, id.Pieces, id.Location(), rd.Report)
	if def == nil || n != len(id.Pieces) {
		return nil, false
	}
	//
	switch d := def.(type) {
	case *ast.Var:
		return rd.reduceVarRef(id.Location(), id.Pieces, d)
	case *ast.Func:
		return rd.reduceFuncRef(id.Location(), id.Pieces, d)
	case *ast.Let:
		if len(d.Parameters) > 0 {
			rd.Report.Errorf(report.TypeMismatch, id.Location(), "'%s' must be called with %d argument(s)", d.Name(), len(d.Parameters))
			return nil, false
		}
		//
		return rd.evalLetBody(scope, d, id.Location())
	case *ast.EnumMember:
		out := ast.NewResolvedIdentifier(id.Location(), id.Pieces, d)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: enumMemberTypeExpr(d)})
		return out, true
	case *ast.BuiltinRegister:
		return rd.reduceRegisterRef(id.Location(), id.Pieces, d)
	default:
		rd.Report.Errorf(report.TypeMismatch, id.Location(), "'%s' is not a value", def.Name())
		return nil, false
	}
}

func (rd *Reducer) reduceVarRef(loc source.Location, pieces []string, d *ast.Var) (ast.Expression, bool) {
	typ := d.ReducedType
	if typ == nil {
		typ = rd.ReduceTypeExpression(d.TypeExpr)
	}
	//
	// Reading a variable's value happens at run time (a memory load)
	// regardless of whether its storage address is itself known at
	// compile time, link time, or not at all — LinkTime is reserved for
	// address-valued expressions (§4.3), produced by `&var` below, not
	// by a bare reference. A const var's value is its initializer's own
	// context, since no load is actually emitted for it.
	ctx := ast.RunTime
	if d.HasModifier(ast.ModConst) && d.Initializer != nil {
		if info := d.Initializer.Info(); info != nil {
			ctx = info.Context
		}
	}
	//
	flags := ast.NewFlagSet(ast.LValue)
	if d.HasModifier(ast.ModConst) {
		flags = flags.With(ast.Const)
	}
	if d.HasModifier(ast.ModWriteOnly) {
		flags = flags.With(ast.WriteOnly)
	}
	//
	out := ast.NewResolvedIdentifier(loc, pieces, d)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: typ, Flags: flags})
	return out, true
}

func (rd *Reducer) reduceFuncRef(loc source.Location, pieces []string, d *ast.Func) (ast.Expression, bool) {
	var quals []ast.PointerQualifier
	if d.Far {
		quals = append(quals, ast.QualFar)
	}
	//
	out := ast.NewResolvedIdentifier(loc, pieces, d)
	out.SetInfo(ast.ExpressionInfo{Context: ast.LinkTime, Type: &ast.PointerType{Element: d.Signature, Qualifiers: quals}})
	return out, true
}

func (rd *Reducer) reduceRegisterRef(loc source.Location, pieces []string, d *ast.BuiltinRegister) (ast.Expression, bool) {
	widthBytes := uint((d.Width + 7) / 8)
	//
	var maxVal int64 = math.MaxInt64
	if d.Width < 63 {
		maxVal = (int64(1) << d.Width) - 1
	}
	//
	regType := &ast.ResolvedIdentifierType{Pieces: []string{d.Name()}, Definition: &ast.BuiltinIntegerType{SizeBytes: widthBytes, Min: 0, Max: maxVal}}
	//
	flags := ast.NewFlagSet(ast.LValue)
	if d.WriteOnly {
		flags = flags.With(ast.WriteOnly)
	}
	//
	out := ast.NewResolvedIdentifier(loc, pieces, d)
	out.SetInfo(ast.ExpressionInfo{Context: ast.RunTime, Type: regType, Flags: flags})
	return out, true
}

func enumMemberTypeExpr(m *ast.EnumMember) ast.TypeExpression {
	if m.Owner == nil {
		return nil
	}
	//
	return &ast.ResolvedIdentifierType{Pieces: []string{m.Owner.Name()}, Definition: m.Owner}
}

// ============================================================================
// Unary operators
// ============================================================================

func (rd *Reducer) reduceUnary(scope *symbol.Table, u *ast.UnaryOperation) (ast.Expression, bool) {
	operand, ok := rd.Reduce(scope, u.Operand)
	if !ok {
		return nil, false
	}
	//
	switch u.Op {
	case ast.UnaryGrouping:
		// Grouping exists to preserve source ranges for diagnostics
		// before reduction; it carries no semantics of its own, so
		// reduction collapses it onto its (already located) operand.
		return operand, true
	case ast.UnaryNeg, ast.UnaryPos, ast.UnaryBitNot:
		return rd.reduceUnaryArith(u.Location(), u.Op, operand)
	case ast.UnaryNot:
		return rd.reduceUnaryNot(u.Location(), operand)
	case ast.UnaryDeref:
		return rd.reduceDeref(u.Location(), operand)
	case ast.UnaryAddrOf, ast.UnaryFarAddrOf:
		return rd.reduceAddrOf(u.Location(), operand, u.Op == ast.UnaryFarAddrOf)
	case ast.UnaryLowByte, ast.UnaryHighByte, ast.UnaryBankByte:
		return rd.reduceByteExtraction(u.Location(), u.Op, operand)
	default:
		rd.Report.Errorf(report.NotImplemented, u.Location(), "unary operator not implemented")
		return nil, false
	}
}

func (rd *Reducer) reduceUnaryArith(loc source.Location, op ast.UnaryOperator, operand ast.Expression) (ast.Expression, bool) {
	t, ok := underlyingIntegerType(infoType(operand))
	if !ok {
		rd.Report.Errorf(report.TypeMismatch, loc, "operator requires an integer operand")
		return nil, false
	}
	//
	if flagsOf(operand).Has(ast.WriteOnly) {
		rd.Report.Errorf(report.WriteOnlyRead, loc, "operand is writeonly")
		return nil, false
	}
	//
	if lit, isLit := operand.(*ast.IntegerLiteral); isLit && contextOf(operand) == ast.CompileTime {
		var val int64
		switch op {
		case ast.UnaryNeg:
			val = -lit.Value
		case ast.UnaryPos:
			val = lit.Value
		case ast.UnaryBitNot:
			val = ^lit.Value
		}
		//
		if !t.Unbounded && (val < t.Min || val > t.Max) {
			rd.Report.Errorf(report.ArithmeticOverflow, loc, "result %d out of range for '%s'", val, t.Name())
			return nil, false
		}
		//
		out := ast.NewIntegerLiteral(loc, val)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: infoType(operand)})
		return out, true
	}
	//
	out := ast.NewUnaryOperation(loc, op, operand)
	out.SetInfo(ast.ExpressionInfo{Context: contextOf(operand), Type: infoType(operand)})
	return out, true
}

func (rd *Reducer) reduceUnaryNot(loc source.Location, operand ast.Expression) (ast.Expression, bool) {
	if !isBoolType(infoType(operand)) {
		rd.Report.Errorf(report.TypeMismatch, loc, "! requires a bool operand")
		return nil, false
	}
	//
	if lit, isLit := operand.(*ast.BooleanLiteral); isLit && contextOf(operand) == ast.CompileTime {
		out := ast.NewBooleanLiteral(loc, !lit.Value)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.boolTypeExpr()})
		return out, true
	}
	//
	out := ast.NewUnaryOperation(loc, ast.UnaryNot, operand)
	out.SetInfo(ast.ExpressionInfo{Context: contextOf(operand), Type: rd.boolTypeExpr()})
	return out, true
}

func (rd *Reducer) reduceDeref(loc source.Location, operand ast.Expression) (ast.Expression, bool) {
	pt, ok := infoType(operand).(*ast.PointerType)
	if !ok {
		rd.Report.Errorf(report.TypeMismatch, loc, "* requires a pointer operand")
		return nil, false
	}
	//
	// Indirection through a pointer transfers the pointer's qualifiers
	// to the result's flags (§4.3).
	flags := ast.NewFlagSet(ast.LValue)
	if pt.HasQualifier(ast.QualConst) {
		flags = flags.With(ast.Const)
	}
	if pt.HasQualifier(ast.QualWriteOnly) {
		flags = flags.With(ast.WriteOnly)
	}
	if pt.HasQualifier(ast.QualFar) {
		flags = flags.With(ast.Far)
	}
	//
	out := ast.NewUnaryOperation(loc, ast.UnaryDeref, operand)
	out.SetInfo(ast.ExpressionInfo{Context: ast.RunTime, Type: pt.Element, Flags: flags})
	return out, true
}

func (rd *Reducer) reduceAddrOf(loc source.Location, operand ast.Expression, far bool) (ast.Expression, bool) {
	if !flagsOf(operand).Has(ast.LValue) {
		rd.Report.Errorf(report.LValueRequired, loc, "& requires an l-value operand")
		return nil, false
	}
	//
	var quals []ast.PointerQualifier
	if flagsOf(operand).Has(ast.Const) {
		quals = append(quals, ast.QualConst)
	}
	if flagsOf(operand).Has(ast.WriteOnly) {
		quals = append(quals, ast.QualWriteOnly)
	}
	if far {
		quals = append(quals, ast.QualFar)
	}
	//
	op := ast.UnaryAddrOf
	flags := ast.FlagSet{}
	if far {
		op = ast.UnaryFarAddrOf
		flags = flags.With(ast.Far)
	}
	//
	out := ast.NewUnaryOperation(loc, op, operand)
	out.SetInfo(ast.ExpressionInfo{Context: ast.LinkTime, Type: &ast.PointerType{Element: infoType(operand), Qualifiers: quals}, Flags: flags})
	return out, true
}

func (rd *Reducer) reduceByteExtraction(loc source.Location, op ast.UnaryOperator, operand ast.Expression) (ast.Expression, bool) {
	if _, ok := underlyingIntegerType(infoType(operand)); !ok {
		rd.Report.Errorf(report.TypeMismatch, loc, "byte-extraction operator requires an integer operand")
		return nil, false
	}
	//
	byteType := byteTypeExpr()
	//
	if lit, isLit := operand.(*ast.IntegerLiteral); isLit && contextOf(operand) == ast.CompileTime {
		var val int64
		switch op {
		case ast.UnaryLowByte:
			val = lit.Value & 0xFF
		case ast.UnaryHighByte:
			val = (lit.Value >> 8) & 0xFF
		case ast.UnaryBankByte:
			val = (lit.Value >> 16) & 0xFF
		}
		//
		out := ast.NewIntegerLiteral(loc, val)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: byteType})
		return out, true
	}
	//
	out := ast.NewUnaryOperation(loc, op, operand)
	out.SetInfo(ast.ExpressionInfo{Context: contextOf(operand), Type: byteType})
	return out, true
}

// ============================================================================
// Binary operators
// ============================================================================

func (rd *Reducer) reduceBinary(scope *symbol.Table, b *ast.BinaryOperation) (ast.Expression, bool) {
	left, lok := rd.Reduce(scope, b.Left)
	//
	// `false && x` and `true || x` fold without reducing x at all (§4.3).
	if lb, ok := left.(*ast.BooleanLiteral); lok && ok && contextOf(left) == ast.CompileTime &&
		((b.Op == ast.BinaryLogicalAnd && !lb.Value) || (b.Op == ast.BinaryLogicalOr && lb.Value)) {
		return rd.reduceLogical(b.Location(), b.Op, left, nil)
	}
	//
	right, rok := rd.Reduce(scope, b.Right)
	//
	if !lok || !rok {
		return nil, false
	}
	//
	// §9: `&`/`|`/`^` on boolean operands are the logical, not bitwise,
	// operator — `&&`/`||`/`!=` respectively — rather than falling
	// through to reduceArithmetic's integer-only path.
	if isBoolType(infoType(left)) && isBoolType(infoType(right)) {
		switch b.Op {
		case ast.BinaryBitAnd:
			return rd.reduceLogical(b.Location(), ast.BinaryLogicalAnd, left, right)
		case ast.BinaryBitOr:
			return rd.reduceLogical(b.Location(), ast.BinaryLogicalOr, left, right)
		case ast.BinaryBitXor:
			return rd.reduceComparison(b.Location(), ast.BinaryNotEq, left, right)
		}
	}
	//
	switch b.Op {
	case ast.BinaryAdd, ast.BinarySub, ast.BinaryMul, ast.BinaryDiv, ast.BinaryMod,
		ast.BinaryBitAnd, ast.BinaryBitOr, ast.BinaryBitXor, ast.BinaryShl, ast.BinaryShr:
		return rd.reduceArithmetic(b.Location(), b.Op, left, right)
	case ast.BinaryRotateLeft, ast.BinaryRotateRight:
		return rd.reduceRotate(b.Location(), b.Op, left, right)
	case ast.BinaryConcat:
		return rd.reduceConcat(b.Location(), left, right)
	case ast.BinaryEq, ast.BinaryNotEq, ast.BinaryLess, ast.BinaryLessEq, ast.BinaryGreater, ast.BinaryGreaterEq:
		return rd.reduceComparison(b.Location(), b.Op, left, right)
	case ast.BinaryLogicalAnd, ast.BinaryLogicalOr:
		return rd.reduceLogical(b.Location(), b.Op, left, right)
	case ast.BinaryAssign:
		return rd.reduceAssign(b.Location(), left, right)
	case ast.BinaryBitIndex:
		return rd.reduceBitIndex(b.Location(), left, right)
	default:
		rd.Report.Errorf(report.NotImplemented, b.Location(), "binary operator not implemented")
		return nil, false
	}
}

func (rd *Reducer) reduceArithmetic(loc source.Location, op ast.BinaryOperator, left, right ast.Expression) (ast.Expression, bool) {
	lt, lok := underlyingIntegerType(infoType(left))
	rt, rok := underlyingIntegerType(infoType(right))
	//
	if !lok || !rok {
		rd.Report.Errorf(report.TypeMismatch, loc, "'%s' is not defined between these operand types", binaryOpName(op))
		return nil, false
	}
	//
	// If one side is the unbounded iexpr and the other a bounded type T,
	// narrow the literal to T iff it fits (§4.3).
	if lt.Unbounded && !rt.Unbounded {
		if lit, ok := left.(*ast.IntegerLiteral); ok && !withinBounds(rt, lit.Value) {
			rd.Report.Errorf(report.NarrowingRejected, loc, "literal %d does not fit '%s'", lit.Value, rt.Name())
			return nil, false
		}
	}
	if rt.Unbounded && !lt.Unbounded {
		if lit, ok := right.(*ast.IntegerLiteral); ok && !withinBounds(lt, lit.Value) {
			rd.Report.Errorf(report.NarrowingRejected, loc, "literal %d does not fit '%s'", lit.Value, lt.Name())
			return nil, false
		}
	}
	//
	dest := narrowDest(lt, rt)
	ctx := ast.JoinContext(contextOf(left), contextOf(right))
	//
	li, lLit := left.(*ast.IntegerLiteral)
	ri, rLit := right.(*ast.IntegerLiteral)
	//
	if ctx == ast.CompileTime && lLit && rLit {
		val, ok := evalArithmetic(rd.Report, loc, op, li.Value, ri.Value)
		if !ok {
			return nil, false
		}
		//
		if !dest.Unbounded && !withinBounds(dest, val) {
			rd.Report.Errorf(report.ArithmeticOverflow, loc, "result %d out of range for '%s'", val, dest.Name())
			return nil, false
		}
		//
		out := ast.NewIntegerLiteral(loc, val)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: typeExprOf(dest)})
		return out, true
	}
	//
	out := ast.NewBinaryOperation(loc, op, left, right)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: typeExprOf(dest)})
	return out, true
}

// reduceRotate lowers `<<<`/`>>>` (§4.3): the left operand rotates within
// the byte-width of the result type, the rotation amount reduced modulo
// 8*size first.
func (rd *Reducer) reduceRotate(loc source.Location, op ast.BinaryOperator, left, right ast.Expression) (ast.Expression, bool) {
	lt, lok := underlyingIntegerType(infoType(left))
	rt, rok := underlyingIntegerType(infoType(right))
	//
	if !lok || !rok {
		rd.Report.Errorf(report.TypeMismatch, loc, "'%s' is not defined between these operand types", binaryOpName(op))
		return nil, false
	}
	//
	dest := narrowDest(lt, rt)
	if dest.Unbounded {
		rd.Report.Errorf(report.TypeMismatch, loc, "'%s' requires a fixed-width result type", binaryOpName(op))
		return nil, false
	}
	//
	bits := uint(dest.SizeBytes) * 8
	ctx := ast.JoinContext(contextOf(left), contextOf(right))
	//
	li, lLit := left.(*ast.IntegerLiteral)
	ri, rLit := right.(*ast.IntegerLiteral)
	//
	if ctx == ast.CompileTime && lLit && rLit {
		val := rotateInt(op, li.Value, ri.Value, bits)
		//
		out := ast.NewIntegerLiteral(loc, val)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: typeExprOf(dest)})
		return out, true
	}
	//
	out := ast.NewBinaryOperation(loc, op, left, right)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: typeExprOf(dest)})
	return out, true
}

// rotateInt rotates v's low bits-wide field by amount (reduced mod bits,
// taking the sign of a negative amount into account).
func rotateInt(op ast.BinaryOperator, v, amount int64, bits uint) int64 {
	m := int64(bits)
	amt := uint(((amount % m) + m) % m)
	mask := (int64(1) << bits) - 1
	uv := v & mask
	//
	if amt == 0 {
		return uv
	}
	//
	if op == ast.BinaryRotateLeft {
		return ((uv << amt) | (uv >> (bits - amt))) & mask
	}
	//
	return ((uv >> amt) | (uv << (bits - amt))) & mask
}

func evalArithmetic(r *report.Report, loc source.Location, op ast.BinaryOperator, l, rgt int64) (int64, bool) {
	switch op {
	case ast.BinaryAdd:
		return l + rgt, true
	case ast.BinarySub:
		return l - rgt, true
	case ast.BinaryMul:
		return l * rgt, true
	case ast.BinaryDiv:
		if rgt == 0 {
			r.Errorf(report.DivideByZero, loc, "division by zero")
			return 0, false
		}
		//
		return l / rgt, true
	case ast.BinaryMod:
		if rgt == 0 {
			r.Errorf(report.DivideByZero, loc, "division by zero")
			return 0, false
		}
		//
		return l % rgt, true
	case ast.BinaryBitAnd:
		return l & rgt, true
	case ast.BinaryBitOr:
		return l | rgt, true
	case ast.BinaryBitXor:
		return l ^ rgt, true
	case ast.BinaryShl:
		return l << uint(rgt), true
	case ast.BinaryShr:
		return l >> uint(rgt), true
	default:
		r.Errorf(report.NotImplemented, loc, "operator not implemented")
		return 0, false
	}
}

func (rd *Reducer) reduceConcat(loc source.Location, left, right ast.Expression) (ast.Expression, bool) {
	la, lok := asArrayElements(left)
	ra, rok := asArrayElements(right)
	//
	if !lok || !rok {
		rd.Report.Errorf(report.TypeMismatch, loc, "~ requires both operands be array-literal-kind")
		return nil, false
	}
	//
	elems := append(append([]ast.Expression{}, la...), ra...)
	//
	var elemType ast.TypeExpression
	if len(elems) > 0 {
		elemType = infoType(elems[0])
	}
	//
	out := ast.NewArrayLiteral(loc, elems)
	out.SetInfo(ast.ExpressionInfo{
		Context: ast.JoinContext(contextOf(left), contextOf(right)),
		Type:    &ast.ArrayType{Element: elemType, Size: ast.NewIntegerLiteral(loc, int64(len(elems)))},
	})
	return out, true
}

func asArrayElements(e ast.Expression) ([]ast.Expression, bool) {
	switch v := e.(type) {
	case *ast.ArrayLiteral:
		return v.Elements, true
	case *ast.StringLiteral:
		elems := make([]ast.Expression, len(v.Value))
		for i, b := range v.Value {
			lit := ast.NewIntegerLiteral(v.Location(), int64(b))
			lit.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: byteTypeExpr()})
			elems[i] = lit
		}
		//
		return elems, true
	default:
		return nil, false
	}
}

func (rd *Reducer) reduceComparison(loc source.Location, op ast.BinaryOperator, left, right ast.Expression) (ast.Expression, bool) {
	ctx := ast.JoinContext(contextOf(left), contextOf(right))
	//
	li, lLit := left.(*ast.IntegerLiteral)
	ri, rLit := right.(*ast.IntegerLiteral)
	//
	if ctx == ast.CompileTime && lLit && rLit {
		out := ast.NewBooleanLiteral(loc, compareInts(op, li.Value, ri.Value))
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.boolTypeExpr()})
		return out, true
	}
	//
	out := ast.NewBinaryOperation(loc, op, left, right)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: rd.boolTypeExpr()})
	return out, true
}

func compareInts(op ast.BinaryOperator, a, b int64) bool {
	switch op {
	case ast.BinaryEq:
		return a == b
	case ast.BinaryNotEq:
		return a != b
	case ast.BinaryLess:
		return a < b
	case ast.BinaryLessEq:
		return a <= b
	case ast.BinaryGreater:
		return a > b
	case ast.BinaryGreaterEq:
		return a >= b
	default:
		return false
	}
}

func (rd *Reducer) reduceLogical(loc source.Location, op ast.BinaryOperator, left, right ast.Expression) (ast.Expression, bool) {
	// Short-circuit at compile time when one side is a literal (§4.3);
	// only the left side can short-circuit. reduceBinary does not reduce
	// the right side in that case and passes a nil right.
	if lb, ok := left.(*ast.BooleanLiteral); ok && contextOf(left) == ast.CompileTime {
		if op == ast.BinaryLogicalAnd && !lb.Value {
			out := ast.NewBooleanLiteral(loc, false)
			out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.boolTypeExpr()})
			return out, true
		}
		//
		if op == ast.BinaryLogicalOr && lb.Value {
			out := ast.NewBooleanLiteral(loc, true)
			out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.boolTypeExpr()})
			return out, true
		}
		//
		return right, true
	}
	//
	ctx := ast.JoinContext(contextOf(left), contextOf(right))
	out := ast.NewBinaryOperation(loc, op, left, right)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: rd.boolTypeExpr()})
	return out, true
}

func (rd *Reducer) reduceAssign(loc source.Location, left, right ast.Expression) (ast.Expression, bool) {
	flags := flagsOf(left)
	//
	if !flags.Has(ast.LValue) {
		rd.Report.Errorf(report.LValueRequired, loc, "assignment target must be an l-value")
		return nil, false
	}
	//
	if flags.Has(ast.Const) {
		rd.Report.Errorf(report.ConstAssignment, loc, "cannot assign to a const value")
		return nil, false
	}
	//
	out := ast.NewBinaryOperation(loc, ast.BinaryAssign, left, right)
	out.SetInfo(ast.ExpressionInfo{Context: ast.RunTime, Type: infoType(left)})
	return out, true
}

func (rd *Reducer) reduceBitIndex(loc source.Location, value, bit ast.Expression) (ast.Expression, bool) {
	_, vok := underlyingIntegerType(infoType(value))
	_, bok := underlyingIntegerType(infoType(bit))
	//
	if !vok || !bok {
		rd.Report.Errorf(report.TypeMismatch, loc, "$ requires an integer value and bit index")
		return nil, false
	}
	//
	ctx := ast.JoinContext(contextOf(value), contextOf(bit))
	//
	if vl, vlit := value.(*ast.IntegerLiteral); vlit {
		if bl, blit := bit.(*ast.IntegerLiteral); blit && ctx == ast.CompileTime {
			result := (vl.Value>>uint(bl.Value))&1 != 0
			out := ast.NewBooleanLiteral(loc, result)
			out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.boolTypeExpr()})
			return out, true
		}
	}
	//
	out := ast.NewBinaryOperation(loc, ast.BinaryBitIndex, value, bit)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: rd.boolTypeExpr()})
	return out, true
}

func binaryOpName(op ast.BinaryOperator) string {
	switch op {
	case ast.BinaryAdd:
		return "+"
	case ast.BinarySub:
		return "-"
	case ast.BinaryMul:
		return "*"
	case ast.BinaryDiv:
		return "/"
	case ast.BinaryMod:
		return "%"
	case ast.BinaryShl:
		return "<<"
	case ast.BinaryShr:
		return ">>"
	case ast.BinaryBitAnd:
		return "&"
	case ast.BinaryBitOr:
		return "|"
	case ast.BinaryBitXor:
		return "^"
	case ast.BinaryRotateLeft:
		return "<<<"
	case ast.BinaryRotateRight:
		return ">>>"
	default:
		return "<op>"
	}
}

// ============================================================================
// Calls
// ============================================================================

func (rd *Reducer) reduceCall(scope *symbol.Table, c *ast.Call) (ast.Expression, bool) {
	if id, ok := c.Callee.(*ast.Identifier); ok && len(id.Pieces) == 1 {
		switch id.Pieces[0] {
		case "has_def":
			return rd.reduceHasDef(scope, c)
		case "get_def":
			return rd.reduceGetDef(scope, c)
		}
	}
	//
	def, ok := rd.resolveCallee(scope, c.Callee)
	if !ok {
		return nil, false
	}
	//
	switch d := def.(type) {
	case *ast.Let:
		return rd.reduceLetCall(scope, c, d)
	case *ast.Func:
		return rd.reduceFuncCall(scope, c, d)
	case *ast.BuiltinVoidIntrinsic:
		return rd.reduceVoidIntrinsicCall(scope, c, d)
	case *ast.BuiltinLoadIntrinsic:
		return rd.reduceLoadIntrinsicCall(scope, c, d)
	default:
		rd.Report.Errorf(report.TypeMismatch, c.Location(), "'%s' is not callable", def.Name())
		return nil, false
	}
}

// resolveCallee finds the Definition a call's Callee denotes without
// reducing it, since reducing a bare Let/Func identifier produces a
// value (the let's evaluated body, or a function pointer) rather than
// the Definition itself that argument-binding needs.
func (rd *Reducer) resolveCallee(scope *symbol.Table, callee ast.Expression) (ast.Definition, bool) {
	switch e := callee.(type) {
	case *ast.Identifier:
		def, n := symbol.ResolveIdentifier(scope, e.Pieces, e.Location(), rd.Report)
		if def == nil || n != len(e.Pieces) {
			return nil, false
		}
		//
		return def, true
	case *ast.ResolvedIdentifier:
		return e.Definition, true
	default:
		rd.Report.Errorf(report.TypeMismatch, callee.Location(), "expression is not callable")
		return nil, false
	}
}

func (rd *Reducer) reduceLetCall(scope *symbol.Table, c *ast.Call, let *ast.Let) (ast.Expression, bool) {
	if len(c.Arguments) != len(let.Parameters) {
		rd.Report.Errorf(report.TypeMismatch, c.Location(), "'%s' expects %d argument(s), got %d", let.Name(), len(let.Parameters), len(c.Arguments))
		return nil, false
	}
	//
	child := scope.NewChild(let.Name())
	//
	for i, param := range let.Parameters {
		arg, ok := rd.Reduce(scope, c.Arguments[i])
		if !ok {
			return nil, false
		}
		//
		// Binding a parameter to its (already-reduced) argument as a
		// zero-parameter Let lets ordinary identifier resolution inside
		// the body substitute it, reusing the bare-Let evaluation path
		// rather than a separate substitution mechanism.
		child.Define(param, ast.NewLet(c.Arguments[i].Location(), param, nil, arg))
	}
	//
	return rd.evalLetBody(child, let, c.Location())
}

// evalLetBody evaluates a Let's Body within scope, guarded by the
// recursion-depth limit (§4.3/§7).
func (rd *Reducer) evalLetBody(scope *symbol.Table, let *ast.Let, loc source.Location) (ast.Expression, bool) {
	if len(rd.callStack) >= maxLetRecursionDepth {
		rd.reportLetRecursionLimit(loc, let.Name())
		return nil, false
	}
	//
	rd.callStack = append(rd.callStack, callFrame{loc: loc, name: let.Name()})
	result, ok := rd.Reduce(scope, let.Body)
	rd.callStack = rd.callStack[:len(rd.callStack)-1]
	//
	return result, ok
}

func (rd *Reducer) reportLetRecursionLimit(loc source.Location, name string) {
	annotations := make([]report.Annotation, len(rd.callStack))
	for i, f := range rd.callStack {
		annotations[i] = report.Annotation{Location: f.loc, Message: report.LetRecursionFrame(i, f.loc, f.name)}
	}
	//
	rd.Report.Add(report.LetRecursionLimit, loc, fmt.Sprintf("'%s' exceeded the let recursion limit (%d)", name, maxLetRecursionDepth), annotations...)
}

func (rd *Reducer) reduceFuncCall(scope *symbol.Table, c *ast.Call, fn *ast.Func) (ast.Expression, bool) {
	if fn.Signature == nil {
		rd.Report.Errorf(report.InternalInvariantViolation, c.Location(), "'%s' signature not yet resolved", fn.Name())
		return nil, false
	}
	//
	if len(c.Arguments) != len(fn.Signature.Parameters) {
		rd.Report.Errorf(report.TypeMismatch, c.Location(), "'%s' expects %d argument(s), got %d", fn.Name(), len(fn.Signature.Parameters), len(c.Arguments))
		return nil, false
	}
	//
	args, ok := rd.reduceArguments(scope, c.Arguments)
	if !ok {
		return nil, false
	}
	//
	out := ast.NewCall(c.Location(), ast.NewResolvedIdentifier(c.Callee.Location(), []string{fn.Name()}, fn), args)
	out.SetInfo(ast.ExpressionInfo{Context: ast.RunTime, Type: fn.Signature.Return})
	return out, true
}

func (rd *Reducer) reduceVoidIntrinsicCall(scope *symbol.Table, c *ast.Call, in *ast.BuiltinVoidIntrinsic) (ast.Expression, bool) {
	if len(c.Arguments) != len(in.Parameters) {
		rd.Report.Errorf(report.TypeMismatch, c.Location(), "'%s' expects %d argument(s), got %d", in.Name(), len(in.Parameters), len(c.Arguments))
		return nil, false
	}
	//
	args, ok := rd.reduceArguments(scope, c.Arguments)
	if !ok {
		return nil, false
	}
	//
	out := ast.NewCall(c.Location(), ast.NewResolvedIdentifier(c.Callee.Location(), []string{in.Name()}, in), args)
	out.SetInfo(ast.ExpressionInfo{Context: ast.RunTime})
	return out, true
}

func (rd *Reducer) reduceLoadIntrinsicCall(scope *symbol.Table, c *ast.Call, in *ast.BuiltinLoadIntrinsic) (ast.Expression, bool) {
	if len(c.Arguments) != len(in.Parameters) {
		rd.Report.Errorf(report.TypeMismatch, c.Location(), "'%s' expects %d argument(s), got %d", in.Name(), len(in.Parameters), len(c.Arguments))
		return nil, false
	}
	//
	args, ok := rd.reduceArguments(scope, c.Arguments)
	if !ok {
		return nil, false
	}
	//
	out := ast.NewCall(c.Location(), ast.NewResolvedIdentifier(c.Callee.Location(), []string{in.Name()}, in), args)
	out.SetInfo(ast.ExpressionInfo{Context: ast.RunTime, Type: in.Result})
	return out, true
}

func (rd *Reducer) reduceArguments(scope *symbol.Table, args []ast.Expression) ([]ast.Expression, bool) {
	out := make([]ast.Expression, len(args))
	//
	for i, a := range args {
		reduced, ok := rd.Reduce(scope, a)
		if !ok {
			return nil, false
		}
		//
		out[i] = reduced
	}
	//
	return out, true
}

func (rd *Reducer) reduceHasDef(scope *symbol.Table, c *ast.Call) (ast.Expression, bool) {
	if len(c.Arguments) != 1 {
		rd.Report.Errorf(report.TypeMismatch, c.Location(), "has_def expects 1 argument, got %d", len(c.Arguments))
		return nil, false
	}
	//
	key, ok := rd.reduceStringKey(scope, c.Arguments[0])
	if !ok {
		return nil, false
	}
	//
	out := ast.NewBooleanLiteral(c.Location(), rd.Builtins.HasDef(key))
	out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.boolTypeExpr()})
	return out, true
}

func (rd *Reducer) reduceGetDef(scope *symbol.Table, c *ast.Call) (ast.Expression, bool) {
	if len(c.Arguments) != 2 {
		rd.Report.Errorf(report.TypeMismatch, c.Location(), "get_def expects 2 arguments, got %d", len(c.Arguments))
		return nil, false
	}
	//
	key, ok := rd.reduceStringKey(scope, c.Arguments[0])
	if !ok {
		return nil, false
	}
	//
	fallback, ok := rd.Reduce(scope, c.Arguments[1])
	if !ok {
		return nil, false
	}
	//
	return rd.Reduce(scope, rd.Builtins.GetDef(key, fallback))
}

func (rd *Reducer) reduceStringKey(scope *symbol.Table, e ast.Expression) (string, bool) {
	reduced, ok := rd.Reduce(scope, e)
	if !ok {
		return "", false
	}
	//
	lit, isStr := reduced.(*ast.StringLiteral)
	if !isStr {
		rd.Report.Errorf(report.TypeMismatch, e.Location(), "expected a string literal key")
		return "", false
	}
	//
	return string(lit.Value), true
}

// ============================================================================
// Cast
// ============================================================================

func (rd *Reducer) reduceCast(scope *symbol.Table, c *ast.Cast) (ast.Expression, bool) {
	operand, ok := rd.Reduce(scope, c.Operand)
	if !ok {
		return nil, false
	}
	//
	destType := rd.ReduceTypeExpression(c.TypeExpr)
	//
	if isInlineFuncType(destType) || isInlineFuncType(infoType(operand)) {
		rd.Report.Errorf(report.BadCast, c.Location(), "cast may not involve an inline function")
		return nil, false
	}
	//
	destInt, destIsInt := underlyingIntegerType(destType)
	_, srcIsInt := underlyingIntegerType(infoType(operand))
	//
	if destIsInt && srcIsInt {
		if lit, isLit := operand.(*ast.IntegerLiteral); isLit && contextOf(operand) == ast.CompileTime {
			if c.Kind == ast.CastTo && !destInt.Unbounded && !withinBounds(destInt, lit.Value) {
				rd.Report.Errorf(report.NarrowingRejected, c.Location(), "value %d does not fit '%s'", lit.Value, destInt.Name())
				return nil, false
			}
			//
			val := truncateToWidth(lit.Value, destInt.SizeBytes)
			//
			out := ast.NewIntegerLiteral(c.Location(), val)
			out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: destType})
			return out, true
		}
	}
	//
	out := ast.NewCast(c.Location(), c.Kind, operand, destType)
	out.SetInfo(ast.ExpressionInfo{Context: contextOf(operand), Type: destType, Flags: flagsOf(operand)})
	return out, true
}

func isInlineFuncType(t ast.TypeExpression) bool {
	rit, ok := t.(*ast.ResolvedIdentifierType)
	if !ok {
		return false
	}
	//
	fn, ok := rit.Definition.(*ast.Func)
	return ok && fn.Inlined
}

func truncateToWidth(v int64, sizeBytes uint) int64 {
	if sizeBytes == 0 || sizeBytes >= 8 {
		return v
	}
	//
	mask := int64(1)<<(8*sizeBytes) - 1
	return v & mask
}

// ============================================================================
// Aggregate literals
// ============================================================================

func (rd *Reducer) reduceTuple(scope *symbol.Table, t *ast.TupleLiteral) (ast.Expression, bool) {
	elems := make([]ast.Expression, len(t.Elements))
	types := make([]ast.TypeExpression, len(t.Elements))
	ctx := ast.CompileTime
	//
	for i, e := range t.Elements {
		reduced, ok := rd.Reduce(scope, e)
		if !ok {
			return nil, false
		}
		//
		elems[i] = reduced
		types[i] = infoType(reduced)
		ctx = ast.JoinContext(ctx, contextOf(reduced))
	}
	//
	out := ast.NewTupleLiteral(t.Location(), elems)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: &ast.TupleType{Elements: types}})
	return out, true
}

func (rd *Reducer) reduceArray(scope *symbol.Table, a *ast.ArrayLiteral) (ast.Expression, bool) {
	elems := make([]ast.Expression, len(a.Elements))
	ctx := ast.CompileTime
	//
	var elemType ast.TypeExpression
	//
	for i, e := range a.Elements {
		reduced, ok := rd.Reduce(scope, e)
		if !ok {
			return nil, false
		}
		//
		elems[i] = reduced
		if elemType == nil {
			elemType = infoType(reduced)
		}
		//
		ctx = ast.JoinContext(ctx, contextOf(reduced))
	}
	//
	out := ast.NewArrayLiteral(a.Location(), elems)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: &ast.ArrayType{Element: elemType, Size: ast.NewIntegerLiteral(a.Location(), int64(len(elems)))}})
	return out, true
}

func (rd *Reducer) reduceStructLiteral(scope *symbol.Table, s *ast.StructLiteral) (ast.Expression, bool) {
	destType := rd.ReduceTypeExpression(s.TypeExpr)
	fields := make(map[string]ast.Expression, len(s.Fields))
	ctx := ast.CompileTime
	//
	for _, name := range s.FieldOrder {
		reduced, ok := rd.Reduce(scope, s.Fields[name])
		if !ok {
			return nil, false
		}
		//
		fields[name] = reduced
		ctx = ast.JoinContext(ctx, contextOf(reduced))
	}
	//
	out := ast.NewStructLiteral(s.Location(), destType, fields, append([]string(nil), s.FieldOrder...))
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: destType})
	return out, true
}

func (rd *Reducer) reduceArrayPad(scope *symbol.Table, p *ast.ArrayPadLiteral) (ast.Expression, bool) {
	value, ok := rd.Reduce(scope, p.Value)
	if !ok {
		return nil, false
	}
	//
	count, ok := rd.Reduce(scope, p.Count)
	if !ok {
		return nil, false
	}
	//
	elemType := infoType(value)
	ctx := ast.JoinContext(contextOf(value), contextOf(count))
	//
	if lit, isLit := count.(*ast.IntegerLiteral); isLit && ctx == ast.CompileTime {
		elems := make([]ast.Expression, lit.Value)
		for i := range elems {
			elems[i] = value
		}
		//
		out := ast.NewArrayLiteral(p.Location(), elems)
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: &ast.ArrayType{Element: elemType, Size: lit}})
		return out, true
	}
	//
	out := ast.NewArrayPadLiteral(p.Location(), value, count)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: &ast.ArrayType{Element: elemType, Size: count}})
	return out, true
}

func (rd *Reducer) reduceComprehension(scope *symbol.Table, c *ast.ArrayComprehension) (ast.Expression, bool) {
	src, ok := rd.Reduce(scope, c.Source)
	if !ok {
		return nil, false
	}
	//
	arr, isArr := src.(*ast.ArrayLiteral)
	if !isArr || contextOf(src) != ast.CompileTime {
		// Run-time-sourced comprehensions desugar to a loop during C4's
		// IR emission; that lowering is not yet wired up, so for now
		// only a compile-time-known source can be reduced here.
		rd.Report.Errorf(report.NotImplemented, c.Location(), "array comprehension over a non-compile-time source is not supported")
		return nil, false
	}
	//
	elems := make([]ast.Expression, len(arr.Elements))
	var elemType ast.TypeExpression
	ctx := ast.CompileTime
	//
	for i, e := range arr.Elements {
		child := scope.NewChild("")
		child.Define(c.Binding, ast.NewLet(e.Location(), c.Binding, nil, e))
		//
		reduced, ok := rd.Reduce(child, c.Body)
		if !ok {
			return nil, false
		}
		//
		elems[i] = reduced
		if elemType == nil {
			elemType = infoType(reduced)
		}
		//
		ctx = ast.JoinContext(ctx, contextOf(reduced))
	}
	//
	out := ast.NewArrayLiteral(c.Location(), elems)
	out.SetInfo(ast.ExpressionInfo{Context: ctx, Type: &ast.ArrayType{Element: elemType, Size: ast.NewIntegerLiteral(c.Location(), int64(len(elems)))}})
	return out, true
}

func (rd *Reducer) reduceRange(scope *symbol.Table, r *ast.RangeLiteral) (ast.Expression, bool) {
	low, ok := rd.Reduce(scope, r.Low)
	if !ok {
		return nil, false
	}
	//
	high, ok := rd.Reduce(scope, r.High)
	if !ok {
		return nil, false
	}
	//
	out := ast.NewRangeLiteral(r.Location(), low, high)
	out.SetInfo(ast.ExpressionInfo{Context: ast.JoinContext(contextOf(low), contextOf(high)), Type: rangeTypeExpr()})
	return out, true
}

// ============================================================================
// Field access / indexing
// ============================================================================

func (rd *Reducer) reduceFieldAccess(scope *symbol.Table, f *ast.FieldAccess) (ast.Expression, bool) {
	operand, ok := rd.Reduce(scope, f.Operand)
	if !ok {
		return nil, false
	}
	//
	if f.Index != nil {
		return rd.reduceIndex(scope, f.Location(), operand, f.Index)
	}
	//
	return rd.reduceMember(f.Location(), operand, f.Field)
}

func (rd *Reducer) reduceIndex(scope *symbol.Table, loc source.Location, operand, indexExpr ast.Expression) (ast.Expression, bool) {
	index, ok := rd.Reduce(scope, indexExpr)
	if !ok {
		return nil, false
	}
	//
	switch t := infoType(operand).(type) {
	case *ast.ArrayType:
		if arr, isLit := operand.(*ast.ArrayLiteral); isLit {
			if lit, isInt := index.(*ast.IntegerLiteral); isInt && contextOf(index) == ast.CompileTime {
				if lit.Value < 0 || int(lit.Value) >= len(arr.Elements) {
					rd.Report.Errorf(report.ArithmeticOverflow, loc, "array index %d out of range", lit.Value)
					return nil, false
				}
				//
				return arr.Elements[lit.Value], true
			}
		}
		//
		out := ast.NewIndexAccess(loc, operand, index)
		out.SetInfo(ast.ExpressionInfo{Context: ast.JoinContext(contextOf(operand), contextOf(index)), Type: t.Element, Flags: flagsOf(operand)})
		return out, true
	case *ast.TupleType:
		lit, isInt := index.(*ast.IntegerLiteral)
		if !isInt {
			rd.Report.Errorf(report.TypeMismatch, loc, "tuple index must be a compile-time integer")
			return nil, false
		}
		//
		if int(lit.Value) < 0 || int(lit.Value) >= len(t.Elements) {
			rd.Report.Errorf(report.ArithmeticOverflow, loc, "tuple index %d out of range", lit.Value)
			return nil, false
		}
		//
		if tup, isLit := operand.(*ast.TupleLiteral); isLit {
			return tup.Elements[lit.Value], true
		}
		//
		out := ast.NewIndexAccess(loc, operand, index)
		out.SetInfo(ast.ExpressionInfo{Context: ast.RunTime, Type: t.Elements[lit.Value]})
		return out, true
	case *ast.PointerType:
		out := ast.NewIndexAccess(loc, operand, index)
		out.SetInfo(ast.ExpressionInfo{Context: ast.RunTime, Type: t.Element, Flags: ast.NewFlagSet(ast.LValue)})
		return out, true
	default:
		rd.Report.Errorf(report.TypeMismatch, loc, "value of this type cannot be indexed")
		return nil, false
	}
}

func (rd *Reducer) reduceMember(loc source.Location, operand ast.Expression, field string) (ast.Expression, bool) {
	if field == "len" {
		return rd.reduceLenField(loc, operand)
	}
	//
	opType := infoType(operand)
	//
	if pt, isPtr := opType.(*ast.PointerType); isPtr {
		deref := ast.NewUnaryOperation(loc, ast.UnaryDeref, operand)
		deref.SetInfo(ast.ExpressionInfo{Context: ast.RunTime, Type: pt.Element, Flags: ast.NewFlagSet(ast.LValue)})
		return rd.reduceMember(loc, deref, field)
	}
	//
	st, ok := underlyingStructDef(opType)
	if !ok {
		rd.Report.Errorf(report.TypeMismatch, loc, "'%s' is not a struct", field)
		return nil, false
	}
	//
	for _, m := range st.Members {
		if m.Name() == field {
			out := ast.NewFieldAccess(loc, operand, field)
			out.SetInfo(ast.ExpressionInfo{Context: contextOf(operand), Type: m.TypeExpr, Flags: flagsOf(operand)})
			return out, true
		}
	}
	//
	rd.Report.Errorf(report.Unresolved, loc, "'%s' has no member '%s'", st.Name(), field)
	return nil, false
}

func (rd *Reducer) reduceLenField(loc source.Location, operand ast.Expression) (ast.Expression, bool) {
	switch t := infoType(operand).(type) {
	case *ast.ArrayType:
		if lit, ok := t.Size.(*ast.IntegerLiteral); ok {
			out := ast.NewIntegerLiteral(loc, lit.Value)
			out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.iexprTypeExpr()})
			return out, true
		}
	}
	//
	if s, isStr := operand.(*ast.StringLiteral); isStr {
		out := ast.NewIntegerLiteral(loc, int64(len(s.Value)))
		out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.iexprTypeExpr()})
		return out, true
	}
	//
	if r, isRange := operand.(*ast.RangeLiteral); isRange {
		if lo, ok := r.Low.(*ast.IntegerLiteral); ok {
			if hi, ok := r.High.(*ast.IntegerLiteral); ok {
				out := ast.NewIntegerLiteral(loc, hi.Value-lo.Value)
				out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.iexprTypeExpr()})
				return out, true
			}
		}
	}
	//
	rd.Report.Errorf(report.SizeOfUnknownType, loc, "'.len' requires an array, string, or range")
	return nil, false
}

// ============================================================================
// Type-level queries
// ============================================================================

func (rd *Reducer) reduceTypeOf(scope *symbol.Table, t *ast.TypeOf) (ast.Expression, bool) {
	operand, ok := rd.Reduce(scope, t.Operand)
	if !ok {
		return nil, false
	}
	//
	out := ast.NewTypeOf(t.Location(), operand)
	out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: infoType(operand)})
	return out, true
}

func (rd *Reducer) reduceTypeQuery(q *ast.TypeQuery) (ast.Expression, bool) {
	reduced := rd.ReduceTypeExpression(q.TypeExpr)
	//
	// The layout model is byte-packed (§4.2 R2: struct/union offsets are
	// a running byte sum with no padding), so alignof has no meaning
	// beyond a type's own size.
	size, ok := rd.CalculateStorageSize(reduced, queryDescription(q.Kind))
	if !ok {
		return nil, false
	}
	//
	out := ast.NewIntegerLiteral(q.Location(), int64(size))
	out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.iexprTypeExpr()})
	return out, true
}

func queryDescription(k ast.TypeQueryKind) string {
	if k == ast.QueryAlignOf {
		return "alignof operand"
	}
	//
	return "sizeof operand"
}

func (rd *Reducer) reduceOffsetOf(o *ast.OffsetOf) (ast.Expression, bool) {
	reduced := rd.ReduceTypeExpression(o.TypeExpr)
	//
	st, ok := underlyingStructDef(reduced)
	if !ok {
		rd.Report.Errorf(report.TypeMismatch, o.Location(), "offsetof requires a struct or union type")
		return nil, false
	}
	//
	for _, m := range st.Members {
		if m.Name() == o.Member {
			out := ast.NewIntegerLiteral(o.Location(), int64(m.Offset))
			out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: rd.iexprTypeExpr()})
			return out, true
		}
	}
	//
	rd.Report.Errorf(report.Unresolved, o.Location(), "'%s' has no member '%s'", st.Name(), o.Member)
	return nil, false
}

func (rd *Reducer) reduceEmbed(e *ast.Embed) (ast.Expression, bool) {
	if rd.embedCache == nil {
		rd.embedCache = make(map[string][]byte)
	}
	//
	data, cached := rd.embedCache[e.Path]
	if !cached {
		if rd.Loader == nil {
			rd.Report.Errorf(report.EmbedFailed, e.Location(), "embed \"%s\" failed: no import manager configured", e.Path)
			return nil, false
		}
		//
		loaded, err := rd.Loader(e.Path)
		if err != nil {
			rd.Report.Errorf(report.EmbedFailed, e.Location(), "embed \"%s\" failed: %v", e.Path, err)
			return nil, false
		}
		//
		data = loaded
		rd.embedCache[e.Path] = data
	}
	//
	out := ast.NewStringLiteral(e.Location(), data)
	out.SetInfo(ast.ExpressionInfo{Context: ast.CompileTime, Type: byteArrayTypeExprN(len(data))})
	return out, true
}

func (rd *Reducer) reduceSideEffect(scope *symbol.Table, s *ast.SideEffect) (ast.Expression, bool) {
	operand, ok := rd.Reduce(scope, s.Operand)
	if !ok {
		return nil, false
	}
	//
	out := ast.NewSideEffect(s.Location(), operand)
	out.SetInfo(ast.ExpressionInfo{Context: ast.RunTime})
	return out, true
}

// ============================================================================
// Shared small helpers
// ============================================================================

func infoType(e ast.Expression) ast.TypeExpression {
	if e == nil {
		return nil
	}
	//
	if info := e.Info(); info != nil {
		return info.Type
	}
	//
	return nil
}

func contextOf(e ast.Expression) ast.Context {
	if e == nil {
		return ast.CompileTime
	}
	//
	if info := e.Info(); info != nil {
		return info.Context
	}
	//
	return ast.RunTime
}

func flagsOf(e ast.Expression) ast.FlagSet {
	if e == nil {
		return ast.FlagSet{}
	}
	//
	if info := e.Info(); info != nil {
		return info.Flags
	}
	//
	return ast.FlagSet{}
}

func underlyingIntegerType(t ast.TypeExpression) (*ast.BuiltinIntegerType, bool) {
	rit, ok := t.(*ast.ResolvedIdentifierType)
	if !ok {
		return nil, false
	}
	//
	switch d := rit.Definition.(type) {
	case *ast.BuiltinIntegerType:
		return d, true
	case *ast.Enum:
		return underlyingIntegerType(d.UnderlyingTypeExpr)
	case *ast.TypeAlias:
		return underlyingIntegerType(d.ResolvedType)
	default:
		return nil, false
	}
}

func underlyingStructDef(t ast.TypeExpression) (*ast.Struct, bool) {
	rit, ok := t.(*ast.ResolvedIdentifierType)
	if !ok {
		return nil, false
	}
	//
	switch d := rit.Definition.(type) {
	case *ast.Struct:
		return d, true
	case *ast.TypeAlias:
		return underlyingStructDef(d.ResolvedType)
	default:
		return nil, false
	}
}

func isBoolType(t ast.TypeExpression) bool {
	rit, ok := t.(*ast.ResolvedIdentifierType)
	if !ok {
		return false
	}
	//
	_, ok = rit.Definition.(*ast.BuiltinBoolType)
	return ok
}

func withinBounds(t *ast.BuiltinIntegerType, v int64) bool {
	return v >= t.Min && v <= t.Max
}

func narrowDest(l, r *ast.BuiltinIntegerType) *ast.BuiltinIntegerType {
	if l.Unbounded && !r.Unbounded {
		return r
	}
	//
	if r.Unbounded && !l.Unbounded {
		return l
	}
	//
	return l
}

func typeExprOf(def ast.Definition) ast.TypeExpression {
	return &ast.ResolvedIdentifierType{Pieces: []string{def.Name()}, Definition: def}
}

func (rd *Reducer) iexprTypeExpr() ast.TypeExpression {
	return typeExprOf(rd.IexprType())
}

func (rd *Reducer) boolTypeExpr() ast.TypeExpression {
	return typeExprOf(rd.BoolType())
}

func (rd *Reducer) byteArrayTypeExpr(n int) ast.TypeExpression {
	return byteArrayTypeExprN(n)
}

func byteArrayTypeExprN(n int) ast.TypeExpression {
	return &ast.ArrayType{Element: byteTypeExpr(), Size: ast.NewIntegerLiteral(source.Location{}, int64(n))}
}

// byteTypeExpr synthesizes an anonymous 8-bit unsigned integer type for
// byte-extraction/embed results, the same way pkg/platform/mos6502
// synthesizes GetPointerSizedType's BuiltinIntegerType inline rather
// than requiring every platform to pre-declare a universally-named byte
// type under a fixed identifier.
func byteTypeExpr() ast.TypeExpression {
	return &ast.ResolvedIdentifierType{Pieces: []string{"u8"}, Definition: &ast.BuiltinIntegerType{SizeBytes: 1, Min: 0, Max: 0xFF}}
}

func rangeTypeExpr() ast.TypeExpression {
	return &ast.ResolvedIdentifierType{Pieces: []string{"range"}, Definition: &ast.BuiltinRangeType{}}
}
