package ir

import (
	"testing"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/config"
	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/platform/mos6502"
	"github.com/wiz-lang/wiz/pkg/reduce"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/resolve"
	"github.com/wiz-lang/wiz/pkg/source"
	"github.com/wiz-lang/wiz/pkg/symbol"
)

func noLoc() source.Location {
	return source.Location{}
}

func newEmitter() (*Emitter, *symbol.Table) {
	rv := resolve.New(mos6502.New(), report.NewReport(), config.NewBuiltins())
	rd := reduce.New(rv)
	return New(rd), rv.Root()
}

func mustHaveNoDiagnostics(t *testing.T, em *Emitter) {
	t.Helper()
	if em.Report.HasErrors() {
		t.Fatalf("expected no diagnostics, got %v", em.Report.Diagnostics())
	}
}

// regIdentifier builds an as-parsed reference to one of the platform's
// builtin registers (already reserved into scope by resolve.New).
func regIdentifier(name string) *ast.Identifier {
	return ast.NewIdentifier(noLoc(), []string{name})
}

func Test_EmitVar_InStoredBank(t *testing.T) {
	em, scope := newEmitter()
	//
	bank := ast.NewBank(noLoc(), "ram", &ast.ArrayType{Element: &ast.IdentifierType{Pieces: []string{"u8"}}, Size: &ast.IntegerLiteral{Value: 256}}, nil)
	bank.Handle = &ast.BankHandle{Name: "ram", Kind: ast.BankStored, Capacity: 256}
	scope.Define("ram", bank)
	//
	v := ast.NewVar(noLoc(), "counter", nil, &ast.IdentifierType{Pieces: []string{"u8"}}, nil, nil)
	in := &ast.In{Holder: ast.NewIdentifier(noLoc(), []string{"ram"}), Body: []ast.Statement{&ast.VarStmt{Def: v}}}
	//
	em.EmitStatements([]ast.Statement{in}, scope)
	mustHaveNoDiagnostics(t, em)
	//
	nodes := em.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected [PushRelocation, Var, PopRelocation], got %d nodes: %#v", len(nodes), nodes)
	}
	if _, ok := nodes[0].(*PushRelocation); !ok {
		t.Fatalf("expected first node to be a PushRelocation, got %T", nodes[0])
	}
	varNode, ok := nodes[1].(*Var)
	if !ok || varNode.Def != v {
		t.Fatalf("expected second node to be Var(counter), got %T", nodes[1])
	}
	if _, ok := nodes[2].(*PopRelocation); !ok {
		t.Fatalf("expected third node to be a PopRelocation, got %T", nodes[2])
	}
}

func Test_EmitVar_ExternSkipped(t *testing.T) {
	em, scope := newEmitter()
	//
	v := ast.NewVar(noLoc(), "port", []ast.VarModifier{ast.ModExtern}, &ast.IdentifierType{Pieces: []string{"u8"}}, ast.NewIntegerLiteral(noLoc(), 0x2000), nil)
	//
	em.EmitStatements([]ast.Statement{&ast.VarStmt{Def: v}}, scope)
	mustHaveNoDiagnostics(t, em)
	//
	if len(em.Nodes()) != 0 {
		t.Fatalf("expected an extern variable to emit nothing, got %#v", em.Nodes())
	}
}

func Test_EmitFunc_SimpleAssignment(t *testing.T) {
	em, scope := newEmitter()
	//
	// func main() { a = a + 1; }
	assign := ast.NewBinaryOperation(noLoc(), ast.BinaryAssign, regIdentifier("a"),
		ast.NewBinaryOperation(noLoc(), ast.BinaryAdd, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 1)))
	body := []ast.Statement{&ast.ExpressionStmt{Expr: assign}}
	fn := ast.NewFunc(noLoc(), "main", false, false, nil, nil, body)
	//
	em.EmitStatements([]ast.Statement{&ast.FuncStmt{Def: fn}}, scope)
	mustHaveNoDiagnostics(t, em)
	//
	nodes := em.Nodes()
	if len(nodes) < 2 {
		t.Fatalf("expected at least a Label and a Code node, got %d nodes: %#v", len(nodes), nodes)
	}
	label, ok := nodes[0].(*Label)
	if !ok || label.Target != LabelTarget(fn) {
		t.Fatalf("expected the function's entry Label first, got %T", nodes[0])
	}
	if !fn.HasUnconditionalReturn {
		last, ok := nodes[len(nodes)-1].(*Code)
		if !ok || len(last.Entry.Signature.OperandPatterns) != 0 {
			t.Fatalf("expected an implicit physical return to be appended, got %#v", nodes[len(nodes)-1])
		}
	}
}

func Test_EmitFunc_ExplicitReturnSkipsImplicitOne(t *testing.T) {
	em, scope := newEmitter()
	//
	body := []ast.Statement{&ast.Branch{Kind: ast.BranchReturn}}
	fn := ast.NewFunc(noLoc(), "leaf", false, false, nil, nil, body)
	//
	em.EmitStatements([]ast.Statement{&ast.FuncStmt{Def: fn}}, scope)
	mustHaveNoDiagnostics(t, em)
	//
	if !fn.HasUnconditionalReturn {
		t.Fatal("expected a function ending in an explicit return to be marked HasUnconditionalReturn")
	}
	//
	// Label + one RTS, nothing appended after it.
	nodes := em.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("expected exactly [Label, Code(RTS)], got %d nodes: %#v", len(nodes), nodes)
	}
}

func Test_EmitIf_NoElse_SynthesizesEndLabel(t *testing.T) {
	em, scope := newEmitter()
	//
	cond := ast.NewBinaryOperation(noLoc(), ast.BinaryEq, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 0))
	ifStmt := &ast.If{Condition: cond, Then: []ast.Statement{&ast.Branch{Kind: ast.BranchContinue}}}
	//
	em.loopStack.Push(loopFrame{begin: ast.NewLabel(noLoc(), "begin"), end: ast.NewLabel(noLoc(), "end")})
	em.EmitStatement(ifStmt, scope)
	mustHaveNoDiagnostics(t, em)
	//
	nodes := em.Nodes()
	last, ok := nodes[len(nodes)-1].(*Label)
	if !ok {
		t.Fatalf("expected the if's synthesized end label to be the final node, got %T", nodes[len(nodes)-1])
	}
	if last.Target.TargetName() == "" {
		t.Fatal("expected the synthesized label to carry a non-empty name")
	}
	//
	// cond false -> conditional branch straight to end: CMP + BNE (skip-if-false).
	foundBranch := false
	for _, n := range nodes {
		if _, ok := n.(*Code); ok {
			foundBranch = true
		}
	}
	if !foundBranch {
		t.Fatal("expected at least one Code node selecting the comparison/branch instructions")
	}
}

func Test_EmitWhile_StructuresBeginAndEndLabels(t *testing.T) {
	em, scope := newEmitter()
	//
	cond := ast.NewBinaryOperation(noLoc(), ast.BinaryNotEq, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 0))
	loop := &ast.While{Condition: cond, Body: []ast.Statement{&ast.ExpressionStmt{
		Expr: ast.NewBinaryOperation(noLoc(), ast.BinaryAssign, regIdentifier("a"),
			ast.NewBinaryOperation(noLoc(), ast.BinaryAdd, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 1))),
	}}}
	//
	em.EmitStatement(loop, scope)
	mustHaveNoDiagnostics(t, em)
	//
	nodes := em.Nodes()
	begin, ok := nodes[0].(*Label)
	if !ok {
		t.Fatalf("expected the loop's begin label first, got %T", nodes[0])
	}
	end, ok := nodes[len(nodes)-1].(*Label)
	if !ok {
		t.Fatalf("expected the loop's end label last, got %T", nodes[len(nodes)-1])
	}
	if begin.Target == end.Target {
		t.Fatal("expected distinct begin/end labels")
	}
	//
	// The body's assignment must fall between the two labels.
	sawCode := false
	for _, n := range nodes[1 : len(nodes)-1] {
		if _, ok := n.(*Code); ok {
			sawCode = true
		}
	}
	if !sawCode {
		t.Fatal("expected the loop body's assignment to select at least one instruction")
	}
}

func Test_EmitDoWhile_ConditionAtEnd(t *testing.T) {
	em, scope := newEmitter()
	//
	cond := ast.NewBinaryOperation(noLoc(), ast.BinaryNotEq, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 0))
	loop := &ast.DoWhile{Body: []ast.Statement{&ast.Branch{Kind: ast.BranchBreak}}, Condition: cond}
	//
	em.EmitStatement(loop, scope)
	mustHaveNoDiagnostics(t, em)
	//
	nodes := em.Nodes()
	if _, ok := nodes[0].(*Label); !ok {
		t.Fatalf("expected a begin label first, got %T", nodes[0])
	}
	// break inside a do-while must goto the loop's own end label, not fall
	// into the trailing condition test.
	foundGotoToEnd := false
	for _, n := range nodes {
		code, ok := n.(*Code)
		if !ok || len(code.Operands) == 0 {
			continue
		}
		if tgt, ok := code.Operands[0].Target.(*ast.Label); ok && tgt == nodes[len(nodes)-1].(*Label).Target {
			foundGotoToEnd = true
		}
	}
	if !foundGotoToEnd {
		t.Fatal("expected break to emit a goto targeting the do-while's end label")
	}
}

// resolvedCounter builds a for-loop counter identifier whose Info carries
// a resolved integer type, the shape C3 would have left it in by the time
// C4 sees it — needed to exercise emitFor's §8 boundary check, which the
// bare as-parsed regIdentifier used elsewhere in this file can't drive.
func resolvedCounter(t *testing.T, scope *symbol.Table, name string) *ast.ResolvedIdentifier {
	t.Helper()
	//
	def, n := symbol.ResolveIdentifier(scope, []string{name}, noLoc(), nil)
	if n != 1 {
		t.Fatalf("expected %q to resolve in scope", name)
	}
	//
	u8, n := symbol.ResolveIdentifier(scope, []string{"u8"}, noLoc(), nil)
	if n != 1 {
		t.Fatal("expected u8 to resolve in scope")
	}
	//
	id := ast.NewResolvedIdentifier(noLoc(), []string{name}, def)
	id.SetInfo(ast.ExpressionInfo{Context: ast.RunTime, Type: &ast.ResolvedIdentifierType{Pieces: []string{"u8"}, Definition: u8}})
	return id
}

// Test_EmitFor_PartialRangeUsesComparison exercises the general
// termination test: a range short of the counter type's max compares
// against high+step directly rather than relying on the zero flag.
func Test_EmitFor_PartialRangeUsesComparison(t *testing.T) {
	em, scope := newEmitter()
	//
	loop := &ast.For{
		Counter: regIdentifier("a"),
		Source:  ast.NewRangeLiteral(noLoc(), ast.NewIntegerLiteral(noLoc(), 0), ast.NewIntegerLiteral(noLoc(), 9)),
		Body:    []ast.Statement{&ast.Branch{Kind: ast.BranchContinue}},
	}
	//
	em.EmitStatement(loop, scope)
	mustHaveNoDiagnostics(t, em)
	//
	var sawTen bool
	for _, n := range em.Nodes() {
		code, ok := n.(*Code)
		if !ok {
			continue
		}
		for _, op := range code.Operands {
			if lit, ok := op.Operand.(platform.Integer); ok && lit.Value == 10 {
				sawTen = true
			}
		}
	}
	if !sawTen {
		t.Fatal("expected the comparison to test the counter against high+step (10)")
	}
}

// Test_EmitFor_FullRangeByOneUsesZeroFlag confirms the §8 optimization:
// a full 0..=max(T) by 1 range elides the comparison entirely and
// branches directly on the zero flag the increment itself sets.
func Test_EmitFor_FullRangeByOneUsesZeroFlag(t *testing.T) {
	em, scope := newEmitter()
	counter := resolvedCounter(t, scope, "a")
	//
	loop := &ast.For{
		Counter: counter,
		Source:  ast.NewRangeLiteral(noLoc(), ast.NewIntegerLiteral(noLoc(), 0), ast.NewIntegerLiteral(noLoc(), 0xFF)),
		Body:    []ast.Statement{&ast.Branch{Kind: ast.BranchContinue}},
	}
	//
	em.EmitStatement(loop, scope)
	mustHaveNoDiagnostics(t, em)
	//
	for _, n := range em.Nodes() {
		code, ok := n.(*Code)
		if !ok {
			continue
		}
		if code.Entry.Signature.Kind == platform.OpBranch && code.Entry.Signature.Flag != nil {
			return
		}
	}
	t.Fatal("expected a zero-flag branch, with no CMP against a literal comparison value")
}

// Test_EmitFor_OutOfRangeComparisonIsError confirms §8's error case: a
// range whose high+step overflows the counter's type, and that isn't the
// full-0..=max(T)-by-1 shape, is rejected rather than silently emitting a
// comparison constant that can't fit.
func Test_EmitFor_OutOfRangeComparisonIsError(t *testing.T) {
	em, scope := newEmitter()
	counter := resolvedCounter(t, scope, "a")
	//
	loop := &ast.For{
		Counter: counter,
		Source:  ast.NewRangeLiteral(noLoc(), ast.NewIntegerLiteral(noLoc(), 1), ast.NewIntegerLiteral(noLoc(), 0xFF)),
		Body:    []ast.Statement{&ast.Branch{Kind: ast.BranchContinue}},
	}
	//
	em.EmitStatement(loop, scope)
	if !em.Report.HasErrors() {
		t.Fatal("expected a diagnostic for a range whose high+step overflows the counter type")
	}
	//
	found := false
	for _, d := range em.Report.Diagnostics() {
		if d.Kind == report.ForRangeOutOfBounds {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a ForRangeOutOfBounds diagnostic, got %v", em.Report.Diagnostics())
	}
}

func Test_EmitComparisonBranch_UsesCmpAndBeqBne(t *testing.T) {
	em, scope := newEmitter()
	//
	cond := ast.NewBinaryOperation(noLoc(), ast.BinaryEq, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 5))
	target := ast.NewLabel(noLoc(), "target")
	//
	em.emitBranchIfFalse(scope, cond, target)
	mustHaveNoDiagnostics(t, em)
	//
	nodes := em.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("expected [Code(CMP), Code(BNE)], got %d nodes: %#v", len(nodes), nodes)
	}
	cmp, ok := nodes[0].(*Code)
	if !ok || cmp.Entry.Signature.BinaryOp != ast.BinaryEq {
		t.Fatalf("expected a CMP entry matched under BinaryEq, got %#v", nodes[0])
	}
	branch, ok := nodes[1].(*Code)
	if !ok || branch.Entry.Signature.Flag == nil || branch.Entry.Signature.FlagEquals {
		t.Fatalf("expected the false-branch to take BNE (FlagEquals=false), got %#v", nodes[1])
	}
	if branch.Operands[0].Target != LabelTarget(target) {
		t.Fatalf("expected the branch operand to target the supplied label, got %#v", branch.Operands[0])
	}
}

func Test_EmitGoto_ToLabelInBody(t *testing.T) {
	em, scope := newEmitter()
	//
	label := ast.NewLabel(noLoc(), "loop")
	body := []ast.Statement{
		label,
		&ast.Branch{Kind: ast.BranchGoto, Target: ast.NewIdentifier(noLoc(), []string{"loop"})},
	}
	fn := ast.NewFunc(noLoc(), "spin", false, false, nil, nil, body)
	//
	em.EmitStatements([]ast.Statement{&ast.FuncStmt{Def: fn}}, scope)
	mustHaveNoDiagnostics(t, em)
	//
	nodes := em.Nodes()
	var gotoCode *Code
	for _, n := range nodes {
		if c, ok := n.(*Code); ok && c.Entry.Signature.Kind == platform.OpBranch && c.Entry.Signature.Flag == nil && len(c.Operands) == 1 {
			gotoCode = c
		}
	}
	if gotoCode == nil {
		t.Fatal("expected a JMP Code node emitted for the goto")
	}
	if gotoCode.Operands[0].Target != LabelTarget(label) {
		t.Fatalf("expected the goto's operand to target the 'loop' label, got %#v", gotoCode.Operands[0])
	}
}

func Test_EmitInlineCall_ExpandsBodyAtCallSite(t *testing.T) {
	em, scope := newEmitter()
	//
	// inline func addOne(n) { a = n + 1; }
	body := []ast.Statement{&ast.ExpressionStmt{
		Expr: ast.NewBinaryOperation(noLoc(), ast.BinaryAssign, regIdentifier("a"),
			ast.NewBinaryOperation(noLoc(), ast.BinaryAdd, ast.NewIdentifier(noLoc(), []string{"n"}), ast.NewIntegerLiteral(noLoc(), 1))),
	}}
	param := ast.NewVar(noLoc(), "n", nil, &ast.IdentifierType{Pieces: []string{"u8"}}, nil, nil)
	fn := ast.NewFunc(noLoc(), "addOne", true, false, []*ast.Var{param}, nil, body)
	// Normally filled in by resolve's R2 (resolveFuncSignature); set
	// directly here since this test exercises C4 in isolation.
	fn.Signature = &ast.FunctionType{Parameters: []ast.TypeExpression{&ast.IdentifierType{Pieces: []string{"u8"}}}}
	scope.Define("addOne", fn)
	//
	call := ast.NewCall(noLoc(), ast.NewIdentifier(noLoc(), []string{"addOne"}), []ast.Expression{ast.NewIntegerLiteral(noLoc(), 41)})
	//
	em.EmitStatement(&ast.ExpressionStmt{Expr: call}, scope)
	mustHaveNoDiagnostics(t, em)
	//
	foundAssign := false
	for _, n := range em.Nodes() {
		if _, ok := n.(*Code); ok {
			foundAssign = true
		}
	}
	if !foundAssign {
		t.Fatal("expected the inline call's body to be expanded and selected at the call site")
	}
	//
	// No Label/Code was ever emitted for addOne itself as a declaration.
	em2, scope2 := newEmitter()
	em2.EmitStatements([]ast.Statement{&ast.FuncStmt{Def: fn}}, scope2)
	if len(em2.Nodes()) != 0 {
		t.Fatal("expected an inline function's own declaration to emit nothing")
	}
}

func Test_EmitConfig_RecordsReducedEntries(t *testing.T) {
	em, scope := newEmitter()
	//
	stmt := ast.NewConfigStmt(noLoc(), []ast.ConfigEntry{
		{Key: "linker.fill_byte", Value: ast.NewIntegerLiteral(noLoc(), 0xFF)},
		{Key: "platform.name", Value: ast.NewBinaryOperation(noLoc(), ast.BinaryAdd, ast.NewIntegerLiteral(noLoc(), 1), ast.NewIntegerLiteral(noLoc(), 1))},
	})
	//
	em.EmitStatement(stmt, scope)
	mustHaveNoDiagnostics(t, em)
	//
	if len(em.Nodes()) != 0 {
		t.Fatal("expected a config directive to emit no IrNode")
	}
	//
	fillByte, ok := em.Config.Get("linker.fill_byte")
	if !ok {
		t.Fatal("expected linker.fill_byte to be recorded")
	}
	if lit, ok := fillByte.(*ast.IntegerLiteral); !ok || lit.Value != 0xFF {
		t.Fatalf("expected the stored value to be the literal 0xFF, got %#v", fillByte)
	}
	//
	name, ok := em.Config.Get("platform.name")
	if !ok {
		t.Fatal("expected platform.name to be recorded")
	}
	if lit, ok := name.(*ast.IntegerLiteral); !ok || lit.Value != 2 {
		t.Fatalf("expected the second entry's RHS to have been reduced (1+1=2), got %#v", name)
	}
}
