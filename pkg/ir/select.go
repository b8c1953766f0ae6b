package ir

import (
	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/source"
	"github.com/wiz-lang/wiz/pkg/symbol"
)

// createOperandFromExpression turns a reduced expression into the
// platform.InstructionOperand shape the table matches against (§4.4.2
// "createOperandFromExpression"). Structural operands (Dereference,
// Index, BitIndex, Binary, Unary) let a table entry match a whole
// addressing-mode expression in one pattern, rather than requiring every
// sub-expression to already be register-resident.
func (em *Emitter) createOperandFromExpression(scope *symbol.Table, e ast.Expression) (OperandRoot, bool) {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		return OperandRoot{Expr: e, Operand: platform.Integer{Value: v.Value}}, true
	case *ast.BooleanLiteral:
		return OperandRoot{Expr: e, Operand: platform.Boolean{Value: v.Value}}, true
	case *ast.ResolvedIdentifier:
		return em.createOperandFromIdentifier(v)
	case *ast.UnaryOperation:
		return em.createOperandFromUnary(scope, v)
	case *ast.BinaryOperation:
		if v.Op == ast.BinaryBitIndex {
			value, ok := em.createOperandFromExpression(scope, v.Left)
			bit, bitOk := asConstantUint(v.Right)
			if !ok || !bitOk {
				return OperandRoot{}, false
			}
			//
			return OperandRoot{Expr: e, Operand: platform.BitIndex{Value: value.Operand, Bit: bit}}, true
		}
		//
		left, lok := em.createOperandFromExpression(scope, v.Left)
		right, rok := em.createOperandFromExpression(scope, v.Right)
		if !lok || !rok {
			return OperandRoot{}, false
		}
		//
		return OperandRoot{Expr: e, Operand: platform.Binary{Op: v.Op, Left: left.Operand, Right: right.Operand}}, true
	case *ast.FieldAccess:
		if v.Index != nil {
			base, bok := em.createOperandFromExpression(scope, v.Operand)
			index, iok := em.createOperandFromExpression(scope, v.Index)
			if !bok || !iok {
				return OperandRoot{}, false
			}
			//
			size := elementSize(v.Info())
			return OperandRoot{Expr: e, Operand: platform.Index{Base: base.Operand, IndexOp: index.Operand, Scale: 1, ElementSize: size}}, true
		}
		//
		return OperandRoot{}, false
	default:
		return OperandRoot{}, false
	}
}

func (em *Emitter) createOperandFromIdentifier(id *ast.ResolvedIdentifier) (OperandRoot, bool) {
	switch d := id.Definition.(type) {
	case *ast.BuiltinRegister:
		return OperandRoot{Expr: id, Operand: platform.Register{Definition: d}}, true
	case *ast.Var:
		// A static variable's value is its address, since the selector
		// only ever sees the l-value form here (the reducer already
		// folded any read into whatever context needed the value); the
		// byte at that address is re-derived from Target once C5 pass 1
		// assigns it.
		return OperandRoot{Target: varTarget{d}, Operand: platform.Integer{Placeholder: true}}, true
	default:
		return OperandRoot{}, false
	}
}

// varTarget adapts an *ast.Var to LabelTarget so a data operand that
// denotes a variable's address can be resolved the same way a branch
// target is, without requiring ast.Var to carry the full GetAddress/
// SetAddress/TargetName surface Func and Label implement natively.
type varTarget struct {
	def *ast.Var
}

func (v varTarget) GetAddress() *ast.Address  { return v.def.ResolvedAddr }
func (v varTarget) SetAddress(a *ast.Address) { v.def.ResolvedAddr = a }
func (v varTarget) TargetName() string        { return v.def.Name() }

func (em *Emitter) createOperandFromUnary(scope *symbol.Table, v *ast.UnaryOperation) (OperandRoot, bool) {
	switch v.Op {
	case ast.UnaryDeref:
		addr, ok := em.createOperandFromExpression(scope, v.Operand)
		if !ok {
			return OperandRoot{}, false
		}
		//
		size := elementSize(v.Info())
		return OperandRoot{Expr: v, Operand: platform.Dereference{Address: addr.Operand, Size: size}}, true
	case ast.UnaryAddrOf, ast.UnaryFarAddrOf, ast.UnaryGrouping:
		// Grouping is transparent; &x/&&x at this point denotes the
		// operand's own address, already what createOperandFromExpression
		// produces for an l-value identifier.
		return em.createOperandFromExpression(scope, v.Operand)
	default:
		operand, ok := em.createOperandFromExpression(scope, v.Operand)
		if !ok {
			return OperandRoot{}, false
		}
		//
		return OperandRoot{Expr: v, Operand: platform.Unary{Op: v.Op, Operand: operand.Operand}}, true
	}
}

func elementSize(info *ast.ExpressionInfo) uint {
	if info == nil || info.Type == nil {
		return 1
	}
	//
	if it, ok := info.Type.(*ast.ResolvedIdentifierType); ok {
		if bt, ok := it.Definition.(*ast.BuiltinIntegerType); ok {
			return bt.SizeBytes
		}
	}
	//
	return 1
}

func asConstantUint(e ast.Expression) (uint, bool) {
	lit, ok := e.(*ast.IntegerLiteral)
	if !ok || lit.Value < 0 {
		return 0, false
	}
	//
	return uint(lit.Value), true
}

// ============================================================================
// Statement/expression-for-effect selection (§4.4.2)
// ============================================================================

// selectExpression picks and emits the instruction(s) implementing one
// reduced expression evaluated for effect: an assignment, a call, or a
// bare side-effecting operator use.
func (em *Emitter) selectExpression(scope *symbol.Table, e ast.Expression) {
	switch v := e.(type) {
	case *ast.BinaryOperation:
		if v.Op == ast.BinaryAssign {
			em.selectAssign(scope, v)
			return
		}
		//
		em.selectOperator(scope, e, platform.OpBinary, v.Op, ast.UnaryNeg)
	case *ast.UnaryOperation:
		em.selectOperator(scope, e, platform.OpUnary, ast.BinaryAdd, v.Op)
	case *ast.Call:
		em.selectCall(scope, v)
	default:
		// A bare identifier/literal statement has no observable effect;
		// nothing to select.
	}
}

// selectAssign lowers `dest = value` (§4.4.2). When value is itself a
// Call, the call's side effect (and any argument side effects) must
// happen before the assignment's own operand construction observes
// dest, so it is selected first.
func (em *Emitter) selectAssign(scope *symbol.Table, b *ast.BinaryOperation) {
	if call, ok := b.Right.(*ast.Call); ok {
		em.selectCall(scope, call)
	}
	//
	left, lok := em.createOperandFromExpression(scope, b.Left)
	right, rok := em.createOperandFromExpression(scope, b.Right)
	if !lok || !rok {
		em.Report.Errorf(report.NoMatchingInstruction, b.Location(), "could not form operands for assignment")
		return
	}
	//
	operands := []OperandRoot{left, right}
	if em.tryEmit(b.Location(), platform.OpBinary, ast.BinaryAssign, ast.UnaryNeg, operands) {
		return
	}
	//
	// Two-operand in-place rewrite: `x = x OP y` matches a destructive
	// accumulate-style opcode keyed on OP itself rather than on Assign
	// (§4.4.2's named two-operand/three-operand rewrite).
	if rb, ok := b.Right.(*ast.BinaryOperation); ok && sameLeaf(b.Left, rb.Left) {
		rightOfRight, ok := em.createOperandFromExpression(scope, rb.Right)
		if ok && em.tryEmit(b.Location(), platform.OpBinary, rb.Op, ast.UnaryNeg, []OperandRoot{left, rightOfRight}) {
			return
		}
	}
	//
	// Leafify: retry with the right operand's own leaf value when it was
	// built as a structural operand the table has no pattern for.
	if leaf, ok := leafifyExpression(b.Right); ok {
		if leafOperand, ok := em.createOperandFromExpression(scope, leaf); ok {
			if em.tryEmit(b.Location(), platform.OpBinary, ast.BinaryAssign, ast.UnaryNeg, []OperandRoot{left, leafOperand}) {
				return
			}
		}
	}
	//
	em.reportNoMatch(b.Location(), func(s platform.Signature) bool { return s.Kind == platform.OpBinary && s.BinaryOp == ast.BinaryAssign })
}

// selectOperator lowers a bare (non-assignment) operator statement, e.g.
// `x += 1`'s reduced in-place form, or an intrinsic-like unary side
// effect such as `x++` lowered to UnaryPos.
func (em *Emitter) selectOperator(scope *symbol.Table, e ast.Expression, kind platform.OperatorKind, binOp ast.BinaryOperator, unOp ast.UnaryOperator) {
	var operands []OperandRoot
	switch v := e.(type) {
	case *ast.BinaryOperation:
		left, lok := em.createOperandFromExpression(scope, v.Left)
		right, rok := em.createOperandFromExpression(scope, v.Right)
		if !lok || !rok {
			em.reportNoMatch(e.Location(), func(s platform.Signature) bool { return s.Kind == kind })
			return
		}
		//
		operands = []OperandRoot{left, right}
	case *ast.UnaryOperation:
		operand, ok := em.createOperandFromExpression(scope, v.Operand)
		if !ok {
			em.reportNoMatch(e.Location(), func(s platform.Signature) bool { return s.Kind == kind })
			return
		}
		//
		operands = []OperandRoot{operand}
	}
	//
	if !em.tryEmit(e.Location(), kind, binOp, unOp, operands) {
		em.reportNoMatch(e.Location(), func(s platform.Signature) bool { return s.Kind == kind })
	}
}

// tryEmit attempts a single direct table match for kind/binOp/unOp
// against operands, emitting a Code node and reporting success.
func (em *Emitter) tryEmit(loc source.Location, kind platform.OperatorKind, binOp ast.BinaryOperator, unOp ast.UnaryOperator, operands []OperandRoot) bool {
	raw := make([]platform.InstructionOperand, len(operands))
	for i, o := range operands {
		raw[i] = o.Operand
	}
	//
	var entry platform.Entry
	var ok bool
	switch kind {
	case platform.OpBinary:
		entry, ok = em.Platform.InstructionTable().FindBinary(binOp, em.mode, raw)
	case platform.OpUnary:
		entry, ok = em.Platform.InstructionTable().FindUnary(unOp, em.mode, raw)
	}
	//
	if !ok {
		return false
	}
	//
	em.emit(NewCode(loc, entry, operands))
	return true
}

func sameLeaf(a, b ast.Expression) bool {
	ra, aok := a.(*ast.ResolvedIdentifier)
	rb, bok := b.(*ast.ResolvedIdentifier)
	return aok && bok && ra.Definition == rb.Definition
}

// leafifyExpression strips one layer of transparent wrapping (grouping,
// a redundant cast) to retry instruction selection against the
// underlying value (§4.4.2's "leafify" rewrite).
func leafifyExpression(e ast.Expression) (ast.Expression, bool) {
	switch v := e.(type) {
	case *ast.UnaryOperation:
		if v.Op == ast.UnaryGrouping {
			return v.Operand, true
		}
		//
		return nil, false
	case *ast.Cast:
		return v.Operand, true
	default:
		return nil, false
	}
}

// selectCall lowers a call expression used for effect: arguments are
// selected for their own side effects first (left to right), then the
// call itself is matched against the table as an OpIntrinsic entry (a
// user Func call instead lowers through emitInlineOrDirectCall).
func (em *Emitter) selectCall(scope *symbol.Table, call *ast.Call) {
	for _, arg := range call.Arguments {
		if nested, ok := arg.(*ast.Call); ok {
			em.selectCall(scope, nested)
		}
	}
	//
	callee, ok := call.Callee.(*ast.ResolvedIdentifier)
	if !ok {
		em.Report.Errorf(report.NoMatchingInstruction, call.Location(), "call target is not resolved")
		return
	}
	//
	switch def := callee.Definition.(type) {
	case *ast.Func:
		em.emitInlineOrDirectCall(scope, call, def)
	default:
		em.selectIntrinsicCall(scope, call, callee.Definition)
	}
}

func (em *Emitter) selectIntrinsicCall(scope *symbol.Table, call *ast.Call, def ast.Definition) {
	operands := make([]OperandRoot, 0, len(call.Arguments))
	raw := make([]platform.InstructionOperand, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		operand, ok := em.createOperandFromExpression(scope, arg)
		if !ok {
			em.Report.Errorf(report.NoMatchingInstruction, call.Location(), "could not form operand for call argument")
			return
		}
		//
		operands = append(operands, operand)
		raw = append(raw, operand.Operand)
	}
	//
	entry, ok := em.Platform.InstructionTable().FindIntrinsic(def, em.mode, raw)
	if !ok {
		em.reportNoMatch(call.Location(), func(s platform.Signature) bool { return s.Kind == platform.OpIntrinsic && s.Intrinsic == def })
		return
	}
	//
	em.emit(NewCode(call.Location(), entry, operands))
}

// emitInlineOrDirectCall lowers a call to a user Func: a non-inlined
// function becomes a direct transfer-of-control (§4.4 Branch lowering
// reused here since a call is just a goto that returns); an inlined
// function's body is re-emitted at the call site instead, with `return`
// inside it rewritten to a jump past the expansion. Only emission is
// repeated per call site: R1/R2/R3 are not run again on the body, so
// declarations inside it keep the symbols and storage reserved for the
// function's own declaration.
func (em *Emitter) emitInlineOrDirectCall(scope *symbol.Table, call *ast.Call, fn *ast.Func) {
	if !fn.Inlined {
		em.emitGoto(call.Location(), fn)
		return
	}
	//
	em.emitInlineExpansion(scope, call, fn)
}

// emitInlineExpansion binds each argument as a zero-parameter compile-time
// Let in a fresh child scope (§ DESIGN.md open question on Let
// call-argument binding scope applies identically here), then emits the
// function body directly with a synthesized return label substituting
// for any `return` inside it.
func (em *Emitter) emitInlineExpansion(scope *symbol.Table, call *ast.Call, fn *ast.Func) {
	child := scope.NewChild(fn.Name() + "$inline")
	for i, p := range fn.Parameters {
		if i >= len(call.Arguments) {
			break
		}
		//
		child.Define(p.Name(), ast.NewLet(call.Location(), p.Name(), nil, call.Arguments[i]))
	}
	//
	returnLabel := em.synthLabel(call.Location(), "inline_return")
	//
	outerLabels := em.currentLabels
	em.currentLabels = collectLabels(fn.Body)
	//
	em.returnStack.Push(returnFrame{kind: fn.Kind, holder: returnHolder(fn), label: returnLabel})
	em.EmitStatements(fn.Body, child)
	em.returnStack.Pop()
	//
	em.currentLabels = outerLabels
	em.emit(NewLabel(call.Location(), returnLabel))
}
