package bank

import (
	"testing"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/config"
	"github.com/wiz-lang/wiz/pkg/ir"
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

func newAssembler() (*Assembler, *ir.Emitter, *symbol.Table) {
	rv := resolve.New(mos6502.New(), report.NewReport(), config.NewBuiltins())
	rd := reduce.New(rv)
	return New(rd), ir.New(rd), rv.Root()
}

func regIdentifier(name string) *ast.Identifier {
	return ast.NewIdentifier(noLoc(), []string{name})
}

var u8Def = ast.NewBuiltinIntegerType(noLoc(), "u8", 1, 0, 0xFF, false)

func u8Type() ast.TypeExpression {
	return &ast.ResolvedIdentifierType{Pieces: []string{"u8"}, Definition: u8Def}
}

func defineStoredBank(scope *symbol.Table, name string, origin uint64, capacity uint64) *ast.Bank {
	bank := ast.NewBank(noLoc(), name, &ast.ArrayType{Element: u8Type(), Size: ast.NewIntegerLiteral(noLoc(), int64(capacity))}, ast.NewIntegerLiteral(noLoc(), int64(origin)))
	bank.Handle = &ast.BankHandle{Name: name, Kind: ast.BankStored, Capacity: capacity}
	scope.Define(name, bank)
	return bank
}

func defineUnstoredBank(scope *symbol.Table, name string, capacity uint64) *ast.Bank {
	bank := ast.NewBank(noLoc(), name, &ast.ArrayType{Element: u8Type(), Size: ast.NewIntegerLiteral(noLoc(), int64(capacity))}, nil)
	bank.Handle = &ast.BankHandle{Name: name, Kind: ast.BankUnstored, Capacity: capacity}
	scope.Define(name, bank)
	return bank
}

func mustHaveNoDiagnostics(t *testing.T, as *Assembler) {
	t.Helper()
	if as.Report.HasErrors() {
		t.Fatalf("expected no diagnostics, got %v", as.Report.Diagnostics())
	}
}

func Test_LayoutEmit_StoredBank_CodeAndImplicitReturn(t *testing.T) {
	as, em, scope := newAssembler()
	defineStoredBank(scope, "rom", 0x8000, 0x100)
	//
	// func main() { a = 1; }
	assign := ast.NewBinaryOperation(noLoc(), ast.BinaryAssign, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 1))
	body := []ast.Statement{&ast.ExpressionStmt{Expr: assign}}
	fn := ast.NewFunc(noLoc(), "main", false, false, nil, nil, body)
	in := &ast.In{Holder: regIdentifier("rom"), Body: []ast.Statement{&ast.FuncStmt{Def: fn}}}
	//
	em.EmitStatements([]ast.Statement{in}, scope)
	if em.Report.HasErrors() {
		t.Fatalf("emitter reported diagnostics: %v", em.Report.Diagnostics())
	}
	//
	nodes := em.Nodes()
	as.Layout(nodes)
	mustHaveNoDiagnostics(t, as)
	as.Emit(nodes)
	mustHaveNoDiagnostics(t, as)
	//
	img, ok := as.Images()["rom"]
	if !ok {
		t.Fatal("expected an image for 'rom' after assembly")
	}
	//
	// LDA #1 (A9 01) then the implicit RTS (60).
	want := []byte{0xA9, 0x01, 0x60}
	got := img.Bytes()
	if len(got) != len(want) {
		t.Fatalf("expected %d bytes, got %d: % X", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: expected %02X, got %02X (full: % X)", i, want[i], got[i], got)
		}
	}
	//
	if fn.ResolvedAddr == nil || fn.ResolvedAddr.Absolute == nil || *fn.ResolvedAddr.Absolute != 0x8000 {
		t.Fatalf("expected main's entry label at $8000, got %#v", fn.ResolvedAddr)
	}
}

func Test_LayoutVar_UnstoredBank_AllocatesStorage(t *testing.T) {
	as, em, scope := newAssembler()
	defineUnstoredBank(scope, "ram", 0x100)
	//
	v := ast.NewVar(noLoc(), "counter", nil, u8Type(), nil, nil)
	in := &ast.In{Holder: regIdentifier("ram"), Body: []ast.Statement{&ast.VarStmt{Def: v}}}
	//
	em.EmitStatements([]ast.Statement{in}, scope)
	if em.Report.HasErrors() {
		t.Fatalf("emitter reported diagnostics: %v", em.Report.Diagnostics())
	}
	//
	// An unstored bank's Var never reaches C4's emit table (§4.4: "Var (in
	// a stored bank...)") — storage for it is accounted purely by R3's
	// reserveVarStorage, not by a C5 Var IrNode. Confirm that and exercise
	// layout/emit over the (empty) node list regardless.
	nodes := em.Nodes()
	if len(nodes) != 0 {
		t.Fatalf("expected an unstored bank's var to emit no IrNode, got %#v", nodes)
	}
	//
	as.Layout(nodes)
	as.Emit(nodes)
	mustHaveNoDiagnostics(t, as)
}

func Test_Layout_ElidesRedundantGotoToFollowingLabel(t *testing.T) {
	as, em, scope := newAssembler()
	defineStoredBank(scope, "rom", 0, 0x100)
	//
	label := ast.NewLabel(noLoc(), "skip")
	body := []ast.Statement{
		&ast.Branch{Kind: ast.BranchGoto, Target: regIdentifier("skip")},
		label,
		&ast.ExpressionStmt{Expr: ast.NewBinaryOperation(noLoc(), ast.BinaryAssign, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 1))},
	}
	fn := ast.NewFunc(noLoc(), "f", false, false, nil, nil, body)
	in := &ast.In{Holder: regIdentifier("rom"), Body: []ast.Statement{&ast.FuncStmt{Def: fn}}}
	//
	em.EmitStatements([]ast.Statement{in}, scope)
	if em.Report.HasErrors() {
		t.Fatalf("emitter reported diagnostics: %v", em.Report.Diagnostics())
	}
	//
	nodes := em.Nodes()
	as.Layout(nodes)
	mustHaveNoDiagnostics(t, as)
	as.Emit(nodes)
	mustHaveNoDiagnostics(t, as)
	//
	img := as.Images()["rom"]
	// The goto-to-immediately-following-label is elided entirely, so only
	// LDA #1 (2 bytes) and the implicit RTS (1 byte) remain.
	want := []byte{0xA9, 0x01, 0x60}
	got := img.Bytes()
	if len(got) != len(want) {
		t.Fatalf("expected the redundant goto to be elided leaving %d bytes, got %d: % X", len(want), len(got), got)
	}
}

func Test_Emit_ConditionalBranch_ComputesRelativeOffset(t *testing.T) {
	as, em, scope := newAssembler()
	defineStoredBank(scope, "rom", 0, 0x100)
	//
	cond := ast.NewBinaryOperation(noLoc(), ast.BinaryEq, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 0))
	ifStmt := &ast.If{Condition: cond, Then: []ast.Statement{
		&ast.ExpressionStmt{Expr: ast.NewBinaryOperation(noLoc(), ast.BinaryAssign, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 1))},
	}}
	fn := ast.NewFunc(noLoc(), "f", false, false, nil, nil, []ast.Statement{ifStmt})
	in := &ast.In{Holder: regIdentifier("rom"), Body: []ast.Statement{&ast.FuncStmt{Def: fn}}}
	//
	em.EmitStatements([]ast.Statement{in}, scope)
	if em.Report.HasErrors() {
		t.Fatalf("emitter reported diagnostics: %v", em.Report.Diagnostics())
	}
	//
	nodes := em.Nodes()
	as.Layout(nodes)
	mustHaveNoDiagnostics(t, as)
	as.Emit(nodes)
	mustHaveNoDiagnostics(t, as)
	//
	img := as.Images()["rom"]
	got := img.Bytes()
	// CMP #0 (C9 00), BNE rel (D0 xx) skipping the then-branch's LDA #1
	// (A9 01, 2 bytes), landing exactly on the trailing RTS (60).
	if len(got) < 6 {
		t.Fatalf("expected at least 6 bytes (CMP, BNE, LDA, RTS), got % X", got)
	}
	if got[0] != 0xC9 || got[1] != 0x00 {
		t.Fatalf("expected CMP #0 first, got % X", got[:2])
	}
	if got[2] != 0xD0 {
		t.Fatalf("expected BNE next, got %02X", got[2])
	}
	offset := int8(got[3])
	if int(offset) != len(got)-5 {
		t.Fatalf("expected BNE to skip over the then-branch (%d bytes), offset was %d", len(got)-5, offset)
	}
}

func Test_Layout_ReportsBankOverflow(t *testing.T) {
	as, em, scope := newAssembler()
	defineStoredBank(scope, "rom", 0, 2)
	//
	// LDA #1 (2 bytes) then the implicit RTS (1 byte) overflows a 2-byte bank.
	assign := ast.NewBinaryOperation(noLoc(), ast.BinaryAssign, regIdentifier("a"), ast.NewIntegerLiteral(noLoc(), 1))
	fn := ast.NewFunc(noLoc(), "f", false, false, nil, nil, []ast.Statement{&ast.ExpressionStmt{Expr: assign}})
	in := &ast.In{Holder: regIdentifier("rom"), Body: []ast.Statement{&ast.FuncStmt{Def: fn}}}
	//
	em.EmitStatements([]ast.Statement{in}, scope)
	if em.Report.HasErrors() {
		t.Fatalf("emitter reported diagnostics: %v", em.Report.Diagnostics())
	}
	//
	as.Layout(em.Nodes())
	if !as.Report.HasErrors() {
		t.Fatal("expected a BankOverflow diagnostic when a bank's contents exceed its capacity")
	}
	//
	found := false
	for _, d := range as.Report.Diagnostics() {
		if d.Kind == report.BankOverflow {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a BankOverflow diagnostic specifically, got %v", as.Report.Diagnostics())
	}
}

func Test_SerializeConstantInitializer_StructAndArray(t *testing.T) {
	as, _, _ := newAssembler()
	//
	// struct Point { x: u8, y: u8 }
	xMember := ast.NewStructMember(noLoc(), "x", u8Type())
	yMember := ast.NewStructMember(noLoc(), "y", u8Type())
	sdef := ast.NewStruct(noLoc(), "Point", ast.KindStruct, []*ast.StructMember{xMember, yMember})
	total := uint64(2)
	sdef.TotalSize = &total
	structType := &ast.ResolvedIdentifierType{Pieces: []string{"Point"}, Definition: sdef}
	//
	lit := &ast.StructLiteral{
		Fields:     map[string]ast.Expression{"x": ast.NewIntegerLiteral(noLoc(), 3), "y": ast.NewIntegerLiteral(noLoc(), 4)},
		FieldOrder: []string{"x", "y"},
	}
	//
	bytes, ok := as.serializeConstantInitializer(lit, structType, noLoc())
	if !ok {
		t.Fatalf("expected struct initializer to serialize, got diagnostics %v", as.Report.Diagnostics())
	}
	if len(bytes) != 2 || bytes[0] != 3 || bytes[1] != 4 {
		t.Fatalf("expected [3, 4], got %v", bytes)
	}
	//
	// [u8; 3] array of literals.
	arrType := &ast.ArrayType{Element: u8Type(), Size: ast.NewIntegerLiteral(noLoc(), 3)}
	arr := &ast.ArrayLiteral{Elements: []ast.Expression{
		ast.NewIntegerLiteral(noLoc(), 1), ast.NewIntegerLiteral(noLoc(), 2), ast.NewIntegerLiteral(noLoc(), 3),
	}}
	//
	arrBytes, ok := as.serializeConstantInitializer(arr, arrType, noLoc())
	if !ok {
		t.Fatalf("expected array initializer to serialize, got diagnostics %v", as.Report.Diagnostics())
	}
	if len(arrBytes) != 3 || arrBytes[0] != 1 || arrBytes[1] != 2 || arrBytes[2] != 3 {
		t.Fatalf("expected [1, 2, 3], got %v", arrBytes)
	}
}

func Test_SerializeConstantInitializer_UnionPadsToTotalSize(t *testing.T) {
	as, _, _ := newAssembler()
	//
	// union Cell { byte: u8, word: u16 }, total size forced to 2.
	byteMember := ast.NewStructMember(noLoc(), "byte", u8Type())
	wordType := &ast.IdentifierType{Pieces: []string{"u16"}}
	wordMember := ast.NewStructMember(noLoc(), "word", wordType)
	sdef := ast.NewStruct(noLoc(), "Cell", ast.KindUnion, []*ast.StructMember{byteMember, wordMember})
	total := uint64(2)
	sdef.TotalSize = &total
	unionType := &ast.ResolvedIdentifierType{Pieces: []string{"Cell"}, Definition: sdef}
	//
	lit := &ast.StructLiteral{
		Fields:     map[string]ast.Expression{"byte": ast.NewIntegerLiteral(noLoc(), 7)},
		FieldOrder: []string{"byte"},
	}
	//
	bytes, ok := as.serializeConstantInitializer(lit, unionType, noLoc())
	if !ok {
		t.Fatalf("expected union initializer to serialize, got diagnostics %v", as.Report.Diagnostics())
	}
	if len(bytes) != 2 || bytes[0] != 7 || bytes[1] != 0 {
		t.Fatalf("expected [7, 0] (padded to the union's 2-byte total size), got %v", bytes)
	}
}
