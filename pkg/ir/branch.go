package ir

import (
	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/source"
	"github.com/wiz-lang/wiz/pkg/symbol"
)

// collectLabels builds a name -> *ast.Label map over a function body's
// own statement list (goto targets are resolved against the enclosing
// function only; Label statements carry no symbol-table Definition, so
// R1/R2/R3 never see them — see DESIGN.md).
func collectLabels(body []ast.Statement) map[string]*ast.Label {
	labels := map[string]*ast.Label{}
	var walk func([]ast.Statement)
	walk = func(stmts []ast.Statement) {
		for _, s := range stmts {
			switch v := s.(type) {
			case *ast.Attribution:
				walk([]ast.Statement{v.Inner})
			case *ast.Label:
				labels[v.Name] = v
			case *ast.If:
				walk(v.Then)
				walk(v.Alt)
			case *ast.While:
				walk(v.Body)
			case *ast.DoWhile:
				walk(v.Body)
			case *ast.For:
				walk(v.Body)
			case *ast.InlineFor:
				walk(v.Body)
			case *ast.In:
				walk(v.Body)
			}
		}
	}
	//
	walk(body)
	return labels
}

// targetLabel resolves a goto/call Branch's Target expression against
// the function-local label set collectLabels built.
func (em *Emitter) targetLabel(labels map[string]*ast.Label, target ast.Expression) (*ast.Label, bool) {
	id, ok := target.(*ast.Identifier)
	if !ok || len(id.Pieces) != 1 {
		return nil, false
	}
	//
	l, ok := labels[id.Pieces[0]]
	return l, ok
}

// emitBranchStatement lowers a goto/call/break/continue/return statement
// (§4.4: "Branch -> goto/call resolves its Target label; break/continue
// jump to the enclosing loop frame; return assigns Value into the
// designated holder, if any, then returns").
func (em *Emitter) emitBranchStatement(s *ast.Branch, scope *symbol.Table) {
	switch s.Kind {
	case ast.BranchGoto, ast.BranchFarGoto, ast.BranchCall, ast.BranchFarCall:
		em.emitDirectTransfer(s, scope)
	case ast.BranchBreak:
		if em.loopStack.IsEmpty() {
			em.Report.Errorf(report.BreakOutsideLoop, s.Location(), "break outside loop")
			return
		}
		//
		em.emitGoto(s.Location(), em.loopStack.Peek(0).end)
	case ast.BranchContinue:
		if em.loopStack.IsEmpty() {
			em.Report.Errorf(report.ContinueOutsideLoop, s.Location(), "continue outside loop")
			return
		}
		//
		em.emitGoto(s.Location(), em.loopStack.Peek(0).begin)
	case ast.BranchReturn, ast.BranchFarReturn, ast.BranchIrqReturn, ast.BranchNmiReturn:
		em.emitExplicitReturn(s, scope)
	}
}

// emitDirectTransfer lowers goto/far goto/call/far call: all four are an
// unconditional transfer to Target, differing only in the physical
// opcode the table supplies for OpBranch plus call-vs-goto addressing,
// which the current sample platform does not yet distinguish (every
// OpBranch entry is matched purely by operand shape and Flag, not by
// call-vs-jump intent); see DESIGN.md.
func (em *Emitter) emitDirectTransfer(s *ast.Branch, scope *symbol.Table) {
	// A bare label name is never itself a scope definition (collectLabels
	// builds its own map precisely because labels aren't reserved by C2),
	// so it must be checked before reducing Target as an ordinary
	// expression: reducing it first would report a spurious Unresolved
	// diagnostic for every plain `goto label;`.
	if l, ok := em.targetLabel(em.currentLabels, s.Target); ok {
		em.emitGoto(s.Location(), l)
		return
	}
	//
	reduced, ok := em.Reduce(scope, s.Target)
	if !ok {
		return
	}
	//
	id, isIdent := reduced.(*ast.ResolvedIdentifier)
	if isIdent {
		if fn, isFn := id.Definition.(*ast.Func); isFn {
			em.emitGoto(s.Location(), fn)
			return
		}
	}
	//
	em.Report.Errorf(report.Unresolved, s.Location(), "goto target is not a label or function")
}

// emitGoto emits an unconditional transfer to target via the platform's
// flagless (Flag == nil), operand-count-one OpBranch entry (§4.4.1).
func (em *Emitter) emitGoto(loc source.Location, target LabelTarget) {
	operand := OperandRoot{Target: target, Operand: platform.Integer{Placeholder: true}}
	//
	entry, ok := em.Platform.InstructionTable().FindGoto(em.mode, []platform.InstructionOperand{operand.Operand})
	if !ok {
		em.reportNoMatch(loc, func(s platform.Signature) bool { return s.Kind == platform.OpBranch && s.Flag == nil })
		return
	}
	//
	em.emit(NewCode(loc, entry, []OperandRoot{operand}))
}

// emitReturnOpcode emits the platform's bare, operandless physical
// return (§4.4.1: the selector's FindGoto call with no operands picks
// out the table's zero-operand OpBranch entry, e.g. RTS).
func (em *Emitter) emitReturnOpcode(loc source.Location) {
	entry, ok := em.Platform.InstructionTable().FindGoto(em.mode, nil)
	if !ok {
		em.reportNoMatch(loc, func(s platform.Signature) bool { return s.Kind == platform.OpBranch && s.Flag == nil })
		return
	}
	//
	em.emit(NewCode(loc, entry, nil))
}

func (em *Emitter) reportNoMatch(loc source.Location, matchesKind func(platform.Signature) bool) {
	candidates := em.Platform.InstructionTable().Candidates(matchesKind)
	em.Report.Errorf(report.NoMatchingInstruction, loc, "no matching instruction (%d candidate pattern(s) considered)", len(candidates))
}

// emitExplicitReturn lowers a `return value;` statement against the
// innermost returnFrame (§4.4: assign Value into the designated holder,
// then return; an inline expansion's frame instead jumps to its
// synthesized return label so the inlined body rejoins its call site).
func (em *Emitter) emitExplicitReturn(s *ast.Branch, scope *symbol.Table) {
	if em.returnStack.IsEmpty() {
		em.Report.Errorf(report.InternalInvariantViolation, s.Location(), "return outside function")
		return
	}
	//
	em.emitReturn(s.Location(), em.returnStack.Peek(0), s.Value, scope)
}

func (em *Emitter) emitReturn(loc source.Location, frame returnFrame, value ast.Expression, scope *symbol.Table) {
	if value != nil && frame.holder != nil {
		assign := ast.NewBinaryOperation(loc, ast.BinaryAssign, frame.holder, value)
		if reduced, ok := em.Reduce(scope, assign); ok {
			em.selectExpression(scope, reduced)
		}
	}
	//
	if frame.label != nil {
		em.emitGoto(loc, frame.label)
		return
	}
	//
	em.emitReturnOpcode(loc)
}

// terminatesUnconditionally reports whether reaching the end of body is
// impossible, so emitFunc can skip the implicit physical return
// (ast.Func.HasUnconditionalReturn, "filled in by C4"). Conservative: a
// loop is never assumed to guarantee termination through a break, since
// proving that in general requires more flow analysis than this core
// does: worst case, an extra unreachable return instruction is emitted.
func terminatesUnconditionally(body []ast.Statement) bool {
	if len(body) == 0 {
		return false
	}
	//
	last := body[len(body)-1]
	if a, ok := last.(*ast.Attribution); ok {
		return terminatesUnconditionally([]ast.Statement{a.Inner})
	}
	//
	switch s := last.(type) {
	case *ast.Branch:
		switch s.Kind {
		case ast.BranchReturn, ast.BranchFarReturn, ast.BranchIrqReturn, ast.BranchNmiReturn,
			ast.BranchGoto, ast.BranchFarGoto:
			return true
		default:
			return false
		}
	case *ast.If:
		return len(s.Alt) > 0 && terminatesUnconditionally(s.Then) && terminatesUnconditionally(s.Alt)
	default:
		return false
	}
}

// ============================================================================
// Structured control flow
// ============================================================================

func (em *Emitter) emitIf(s *ast.If, scope *symbol.Table) {
	if len(s.Alt) == 0 {
		end := em.synthLabel(s.Location(), "if_end")
		em.emitBranchIfFalse(scope, s.Condition, end)
		em.EmitStatements(s.Then, scope)
		em.emit(NewLabel(s.Location(), end))
		return
	}
	//
	alt := em.synthLabel(s.Location(), "if_else")
	end := em.synthLabel(s.Location(), "if_end")
	em.emitBranchIfFalse(scope, s.Condition, alt)
	em.EmitStatements(s.Then, scope)
	em.emitGoto(s.Location(), end)
	em.emit(NewLabel(s.Location(), alt))
	em.EmitStatements(s.Alt, scope)
	em.emit(NewLabel(s.Location(), end))
}

func (em *Emitter) emitWhile(s *ast.While, scope *symbol.Table) {
	begin := em.synthLabel(s.Location(), "while_begin")
	end := em.synthLabel(s.Location(), "while_end")
	//
	em.emit(NewLabel(s.Location(), begin))
	em.emitBranchIfFalse(scope, s.Condition, end)
	//
	em.loopStack.Push(loopFrame{begin: begin, end: end})
	em.EmitStatements(s.Body, scope)
	em.loopStack.Pop()
	//
	em.emitGoto(s.Location(), begin)
	em.emit(NewLabel(s.Location(), end))
}

func (em *Emitter) emitDoWhile(s *ast.DoWhile, scope *symbol.Table) {
	begin := em.synthLabel(s.Location(), "do_begin")
	continueLabel := em.synthLabel(s.Location(), "do_continue")
	end := em.synthLabel(s.Location(), "do_end")
	//
	em.emit(NewLabel(s.Location(), begin))
	//
	em.loopStack.Push(loopFrame{begin: continueLabel, end: end})
	em.EmitStatements(s.Body, scope)
	em.loopStack.Pop()
	//
	em.emit(NewLabel(s.Location(), continueLabel))
	em.emitBranchIfTrue(scope, s.Condition, begin)
	em.emit(NewLabel(s.Location(), end))
}

// emitFor lowers `for counter in start..end by step { body }` (§4.4 "For
// c in start..end by step { B }"): init; beg: B; increment; branch-if-
// !done to beg. continue re-enters at the increment, same as break/
// continue in every other loop shape here.
//
// The termination test has two forms (§8): when the range spans a whole
// 0..=max(T) by 1 and the platform exposes a zero flag, the increment's
// own wraparound sets it and no comparison is emitted at all; otherwise
// counter is compared against high+step directly. A range whose
// high+step doesn't fit T, and that isn't eligible for the zero-flag
// form, is rejected rather than silently emitting a bogus comparison
// constant.
func (em *Emitter) emitFor(s *ast.For, scope *symbol.Table) {
	child := scope.NewChild("for")
	//
	source, ok := em.Reduce(child, s.Source)
	if !ok {
		return
	}
	//
	rng, ok := source.(*ast.RangeLiteral)
	if !ok {
		em.Report.Errorf(report.NotImplemented, s.Location(), "for-loop source does not reduce to a start..end range")
		return
	}
	//
	step := ast.Expression(ast.NewIntegerLiteral(s.Location(), 1))
	if s.Step != nil {
		step = s.Step
	}
	//
	em.emitExpressionStmt(&ast.ExpressionStmt{Expr: ast.NewBinaryOperation(s.Location(), ast.BinaryAssign, s.Counter, rng.Low)}, child)
	//
	begin := em.synthLabel(s.Location(), "for_begin")
	continueLabel := em.synthLabel(s.Location(), "for_continue")
	end := em.synthLabel(s.Location(), "for_end")
	//
	em.emit(NewLabel(s.Location(), begin))
	//
	em.loopStack.Push(loopFrame{begin: continueLabel, end: end})
	em.EmitStatements(s.Body, child)
	em.loopStack.Pop()
	//
	em.emit(NewLabel(s.Location(), continueLabel))
	//
	incrStep, ok := em.Reduce(child, step)
	if !ok {
		return
	}
	//
	em.emitExpressionStmt(&ast.ExpressionStmt{Expr: ast.NewBinaryOperation(s.Location(), ast.BinaryAssign, s.Counter,
		ast.NewBinaryOperation(s.Location(), ast.BinaryAdd, s.Counter, incrStep))}, child)
	//
	if !em.emitForTermination(s, child, rng, incrStep, begin) {
		return
	}
	//
	em.emit(NewLabel(s.Location(), end))
}

// emitForTermination emits the branch-if-!done half of a for-loop's
// lowering and reports whether emission may continue with the trailing
// end label. See emitFor's doc comment for the two termination forms §8
// distinguishes.
func (em *Emitter) emitForTermination(s *ast.For, scope *symbol.Table, rng *ast.RangeLiteral, step ast.Expression, begin *ast.Label) bool {
	counterType, hasType := forCounterType(s.Counter)
	//
	lowLit, lowIsLit := rng.Low.(*ast.IntegerLiteral)
	stepLit, stepIsLit := step.(*ast.IntegerLiteral)
	highLit, highIsLit := rng.High.(*ast.IntegerLiteral)
	//
	fullRangeByOne := hasType && lowIsLit && stepIsLit && highIsLit &&
		lowLit.Value == 0 && stepLit.Value == 1 && highLit.Value == counterType.Max
	//
	if fullRangeByOne {
		if zero, ok := em.Platform.GetZeroFlag(); ok {
			targetOperand := OperandRoot{Target: begin, Operand: platform.Integer{Placeholder: true}}
			entry, ok := em.Platform.InstructionTable().FindBranch(zero, false, em.mode, []platform.InstructionOperand{targetOperand.Operand})
			if !ok {
				em.reportNoMatch(s.Location(), func(sig platform.Signature) bool { return sig.Kind == platform.OpBranch && sig.Flag == zero })
				return false
			}
			//
			em.emit(NewCode(s.Location(), entry, []OperandRoot{targetOperand}))
			return true
		}
	}
	//
	doneExpr := ast.Expression(ast.NewBinaryOperation(s.Location(), ast.BinaryAdd, rng.High, step))
	if highIsLit && stepIsLit {
		doneValue := highLit.Value + stepLit.Value
		if hasType && !withinForBounds(counterType, doneValue) {
			em.Report.Errorf(report.ForRangeOutOfBounds, s.Location(),
				"for-loop range requires comparing against %d, outside %s", doneValue, counterType.Name())
			return false
		}
		//
		doneExpr = ast.NewIntegerLiteral(s.Location(), doneValue)
	}
	//
	notDone := ast.NewBinaryOperation(s.Location(), ast.BinaryNotEq, s.Counter, doneExpr)
	em.emitBranchIfTrue(scope, notDone, begin)
	return true
}

// forCounterType extracts a for-loop counter's underlying integer type,
// needed to test the §8 "full 0..=max(T) by 1" boundary condition.
func forCounterType(counter ast.Expression) (*ast.BuiltinIntegerType, bool) {
	info := counter.Info()
	if info == nil || info.Type == nil {
		return nil, false
	}
	//
	rit, ok := info.Type.(*ast.ResolvedIdentifierType)
	if !ok {
		return nil, false
	}
	//
	bt, ok := rit.Definition.(*ast.BuiltinIntegerType)
	return bt, ok
}

func withinForBounds(t *ast.BuiltinIntegerType, v int64) bool {
	return t.Unbounded || (v >= t.Min && v <= t.Max)
}

// emitInlineFor fully unrolls a compile-time range/array source at
// emission time (GLOSSARY "Inline for"): each iteration gets its own
// child scope binding Binding to the iteration's compile-time value, so
// the body is emitted once per element with no runtime loop at all.
func (em *Emitter) emitInlineFor(s *ast.InlineFor, scope *symbol.Table) {
	reduced, ok := em.Reduce(scope, s.Source)
	if !ok {
		return
	}
	//
	values, ok := inlineForValues(reduced)
	if !ok {
		em.Report.Errorf(report.NotImplemented, s.Location(), "inline for source does not reduce to a compile-time sequence")
		return
	}
	//
	for _, v := range values {
		child := scope.NewChild("inline_for")
		child.Define(s.Binding, ast.NewLet(s.Location(), s.Binding, nil, v))
		em.EmitStatements(s.Body, child)
	}
}

// inlineForValues extracts the element literals an InlineFor source
// reduced to: either a compile-time ArrayLiteral, or a RangeLiteral
// whose bounds are both IntegerLiterals.
func inlineForValues(e ast.Expression) ([]ast.Expression, bool) {
	switch v := e.(type) {
	case *ast.ArrayLiteral:
		return v.Elements, true
	case *ast.RangeLiteral:
		low, lok := v.Low.(*ast.IntegerLiteral)
		high, hok := v.High.(*ast.IntegerLiteral)
		if !lok || !hok {
			return nil, false
		}
		//
		var out []ast.Expression
		for n := low.Value; n <= high.Value; n++ {
			out = append(out, ast.NewIntegerLiteral(e.Location(), n))
		}
		//
		return out, true
	default:
		return nil, false
	}
}

// ============================================================================
// Condition lowering (§4.4.1)
// ============================================================================

// emitBranchIfTrue emits the code transferring control to target exactly
// when cond evaluates true, falling through otherwise.
func (em *Emitter) emitBranchIfTrue(scope *symbol.Table, cond ast.Expression, target *ast.Label) {
	em.emitCondition(scope, cond, target, true)
}

// emitBranchIfFalse is emitBranchIfTrue's complement.
func (em *Emitter) emitBranchIfFalse(scope *symbol.Table, cond ast.Expression, target *ast.Label) {
	em.emitCondition(scope, cond, target, false)
}

// emitCondition implements §4.4.1's structural decomposition: `!`
// inverts which outcome branches, `&&`/`||` short-circuit through a
// synthesized "after" label, anything else is a leaf condition lowered
// through the platform's TestAndBranch protocol.
func (em *Emitter) emitCondition(scope *symbol.Table, cond ast.Expression, target *ast.Label, wantTrue bool) {
	if u, ok := cond.(*ast.UnaryOperation); ok && u.Op == ast.UnaryNot {
		em.emitCondition(scope, u.Operand, target, !wantTrue)
		return
	}
	//
	if b, ok := cond.(*ast.BinaryOperation); ok {
		switch b.Op {
		case ast.BinaryLogicalAnd:
			if wantTrue {
				after := em.synthLabel(cond.Location(), "and_false")
				em.emitCondition(scope, b.Left, after, false)
				em.emitCondition(scope, b.Right, target, true)
				em.emit(NewLabel(cond.Location(), after))
			} else {
				em.emitCondition(scope, b.Left, target, false)
				em.emitCondition(scope, b.Right, target, false)
			}
			return
		case ast.BinaryLogicalOr:
			if wantTrue {
				em.emitCondition(scope, b.Left, target, true)
				em.emitCondition(scope, b.Right, target, true)
			} else {
				after := em.synthLabel(cond.Location(), "or_true")
				em.emitCondition(scope, b.Left, after, true)
				em.emitCondition(scope, b.Right, target, false)
				em.emit(NewLabel(cond.Location(), after))
			}
			return
		case ast.BinaryEq, ast.BinaryNotEq, ast.BinaryLess, ast.BinaryLessEq, ast.BinaryGreater, ast.BinaryGreaterEq:
			em.emitComparisonBranch(scope, b, target, wantTrue)
			return
		}
	}
	//
	em.emitBooleanValueBranch(scope, cond, target, wantTrue)
}

// flipComparison returns the operator obtained by swapping a comparison's
// operands (a OP b  <=>  b FLIP(OP) a), used to retry GetTestAndBranch
// commutatively when the direct orientation has no supported test
// (§4.4.1 "commutative flip").
func flipComparison(op ast.BinaryOperator) ast.BinaryOperator {
	switch op {
	case ast.BinaryLess:
		return ast.BinaryGreater
	case ast.BinaryLessEq:
		return ast.BinaryGreaterEq
	case ast.BinaryGreater:
		return ast.BinaryLess
	case ast.BinaryGreaterEq:
		return ast.BinaryLessEq
	default:
		return op
	}
}

func (em *Emitter) emitComparisonBranch(scope *symbol.Table, b *ast.BinaryOperation, target *ast.Label, wantTrue bool) {
	left, lok := em.Reduce(scope, b.Left)
	right, rok := em.Reduce(scope, b.Right)
	if !lok || !rok {
		return
	}
	//
	leftOperand, leftOk := em.createOperandFromExpression(scope, left)
	rightOperand, rightOk := em.createOperandFromExpression(scope, right)
	if !leftOk || !rightOk {
		return
	}
	//
	if tb, ok := em.Platform.GetTestAndBranch(b.Op, leftOperand.Operand, rightOperand.Operand, 0); ok {
		em.emitTestAndBranch(b.Location(), tb, b.Op, []OperandRoot{leftOperand, rightOperand}, target, wantTrue)
		return
	}
	//
	flipped := flipComparison(b.Op)
	if tb, ok := em.Platform.GetTestAndBranch(flipped, rightOperand.Operand, leftOperand.Operand, 0); ok {
		em.emitTestAndBranch(b.Location(), tb, flipped, []OperandRoot{rightOperand, leftOperand}, target, wantTrue)
		return
	}
	//
	em.emitBooleanValueBranch(scope, b, target, wantTrue)
}

func (em *Emitter) emitTestAndBranch(loc source.Location, tb platform.TestAndBranch, op ast.BinaryOperator, testOperands []OperandRoot, target *ast.Label, wantTrue bool) {
	operands := make([]platform.InstructionOperand, len(testOperands))
	for i, o := range testOperands {
		operands[i] = o.Operand
	}
	//
	entry, ok := em.Platform.InstructionTable().FindBinary(op, em.mode, operands)
	if !ok {
		em.reportNoMatch(loc, func(s platform.Signature) bool { return s.Kind == platform.OpBinary && s.BinaryOp == op })
		return
	}
	//
	em.emit(NewCode(loc, entry, testOperands))
	//
	for _, d := range tb.Branches {
		if !d.Taken {
			continue
		}
		//
		wantFlagEquals := d.SuccessIfFlagEquals
		if !wantTrue {
			wantFlagEquals = !wantFlagEquals
		}
		//
		targetOperand := OperandRoot{Target: target, Operand: platform.Integer{Placeholder: true}}
		bEntry, bOk := em.Platform.InstructionTable().FindBranch(d.Flag, wantFlagEquals, em.mode, []platform.InstructionOperand{targetOperand.Operand})
		if !bOk {
			em.reportNoMatch(loc, func(s platform.Signature) bool { return s.Kind == platform.OpBranch && s.Flag == d.Flag })
			continue
		}
		//
		em.emit(NewCode(loc, bEntry, []OperandRoot{targetOperand}))
	}
}

// emitBooleanValueBranch is the final fallback (§4.4.1): no direct or
// flipped test exists, so cond is selected as an ordinary boolean-valued
// expression and the result is compared against the zero flag.
func (em *Emitter) emitBooleanValueBranch(scope *symbol.Table, cond ast.Expression, target *ast.Label, wantTrue bool) {
	reduced, ok := em.Reduce(scope, cond)
	if !ok {
		return
	}
	//
	em.selectExpression(scope, reduced)
	//
	zero, ok := em.Platform.GetZeroFlag()
	if !ok {
		em.Report.Errorf(report.NoMatchingInstruction, cond.Location(), "platform has no zero flag to branch on a boolean value")
		return
	}
	//
	targetOperand := OperandRoot{Target: target, Operand: platform.Integer{Placeholder: true}}
	entry, ok := em.Platform.InstructionTable().FindBranch(zero, !wantTrue, em.mode, []platform.InstructionOperand{targetOperand.Operand})
	if !ok {
		em.reportNoMatch(cond.Location(), func(s platform.Signature) bool { return s.Kind == platform.OpBranch && s.Flag == zero })
		return
	}
	//
	em.emit(NewCode(cond.Location(), entry, []OperandRoot{targetOperand}))
}
