package ir

import (
	"fmt"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/config"
	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/reduce"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/source"
	"github.com/wiz-lang/wiz/pkg/symbol"
	"github.com/wiz-lang/wiz/pkg/util/collection/stack"
)

// loopFrame is the continue/break label pair for one enclosing loop
// (§5 "a continue/break/return label triple (rebound at each enclosing
// loop/function)").
type loopFrame struct {
	begin *ast.Label
	end   *ast.Label
}

// returnFrame is the third member of that triple: how the currently
// enclosing function returns. Inlined function expansions rewrite
// `return` to a jump to label instead of a physical return instruction (§4.4 "Inline
// function expansions... a synthesized 'return label'").
type returnFrame struct {
	kind   ast.ReturnKind
	holder ast.Expression // designated-storage holder for the return value, nil if void
	label  *ast.Label     // non-nil only while expanding an inline function
}

// Emitter drives C4 (§4.4): it walks a resolved, reduced statement tree
// and appends IrNode values, calling back into the shared Reducer
// (embedded, so expressions encountered along the way — conditions,
// assignment right-hand-sides, call arguments — reduce through the same
// C3 machinery C2/C3 already use) and querying the Platform's
// instruction table to select opcodes.
type Emitter struct {
	*reduce.Reducer

	nodes []Node

	bankStack   *stack.Stack[string]
	loopStack   *stack.Stack[loopFrame]
	returnStack *stack.Stack[returnFrame]

	// currentLabels is the goto-target map of the function body
	// currently being emitted (see collectLabels in branch.go).
	currentLabels map[string]*ast.Label

	// mode is the CPU mode currently active. Mode-switching attributes
	// (§4.4.2 "current mode flags are tracked by a scope stack driven by
	// attributes") have no parsed representation yet — Attribution
	// carries bare attribute name strings, not a mode value — so mode
	// stays the zero value (no mode bits set) for the whole compilation;
	// see DESIGN.md.
	mode platform.ModeMask

	synthSeq int

	// Config accumulates `config { key = expr; ... }` directive entries
	// as they are emitted (§5/§6 "The Config object is populated by the
	// config {...} directive during C4").
	Config *config.Config
}

// New constructs an Emitter sharing rd's scope/report/platform state.
func New(rd *reduce.Reducer) *Emitter {
	return &Emitter{
		Reducer:     rd,
		bankStack:   stack.NewStack[string](),
		loopStack:   stack.NewStack[loopFrame](),
		returnStack: stack.NewStack[returnFrame](),
		Config:      config.NewConfig(),
	}
}

// Nodes returns the IR list emitted so far, in emission order (§3 "IrNodes
// are appended in emission order during C4").
func (em *Emitter) Nodes() []Node {
	return em.nodes
}

func (em *Emitter) emit(n Node) {
	em.nodes = append(em.nodes, n)
}

func (em *Emitter) synthLabel(loc source.Location, purpose string) *ast.Label {
	em.synthSeq++
	return ast.NewLabel(loc, fmt.Sprintf("$%s_%d", purpose, em.synthSeq))
}

// EmitStatements lowers a statement list in order (§4.4 "emitStatementIr
// walks the AST a final time").
func (em *Emitter) EmitStatements(stmts []ast.Statement, scope *symbol.Table) {
	for _, s := range stmts {
		em.EmitStatement(s, scope)
	}
}

// EmitStatement lowers one statement per the §4.4 table.
func (em *Emitter) EmitStatement(stmt ast.Statement, scope *symbol.Table) {
	switch s := stmt.(type) {
	case *ast.Attribution:
		if em.ShouldSkipAttribution(s) {
			return
		}
		//
		em.EmitStatement(s.Inner, scope)
	case *ast.NamespaceStmt:
		child, _ := s.Def.Scope.(*symbol.Table)
		em.EmitStatements(s.Def.Body, child)
	case *ast.LetStmt, *ast.EnumStmt, *ast.StructStmt, *ast.BankStmt, *ast.TypeAliasStmt:
		// Address-free bookkeeping only; nothing to emit (§4.4).
	case *ast.VarStmt:
		em.emitVar(s.Def, scope)
	case *ast.FuncStmt:
		em.emitFunc(s.Def, scope)
	case *ast.In:
		em.emitIn(s, scope)
	case *ast.Label:
		em.emit(NewLabel(s.Location(), s))
	case *ast.Branch:
		em.emitBranchStatement(s, scope)
	case *ast.If:
		em.emitIf(s, scope)
	case *ast.While:
		em.emitWhile(s, scope)
	case *ast.DoWhile:
		em.emitDoWhile(s, scope)
	case *ast.For:
		em.emitFor(s, scope)
	case *ast.InlineFor:
		em.emitInlineFor(s, scope)
	case *ast.ExpressionStmt:
		em.emitExpressionStmt(s, scope)
	case *ast.ConfigStmt:
		em.emitConfig(s, scope)
	default:
		em.Report.Errorf(report.NotImplemented, stmt.Location(), "statement kind not implemented")
	}
}

// emitIn lowers `in holder { body }` (§4.4 "In <bank> @addr? { ... } ->
// PushRelocation(bank, addr); ... ; PopRelocation"). The holder is always
// a bare bank identifier by the time it reaches the core; an explicit
// seek address is carried on the Bank definition itself (AddressExpr),
// not re-expressed here, so PushRelocation's Address is always nil.
func (em *Emitter) emitIn(s *ast.In, scope *symbol.Table) {
	name := holderBankName(s.Holder)
	//
	em.emit(NewPushRelocation(s.Location(), name, nil))
	em.bankStack.Push(name)
	em.EmitStatements(s.Body, scope)
	em.bankStack.Pop()
	em.emit(NewPopRelocation(s.Location()))
}

// holderBankName mirrors pkg/resolve's unexported helper of the same
// name: an `in` statement's holder is a bare (possibly dotted)
// identifier naming the bank to push.
func holderBankName(e ast.Expression) string {
	if id, ok := e.(*ast.Identifier); ok && len(id.Pieces) > 0 {
		return id.Pieces[len(id.Pieces)-1]
	}
	//
	return ""
}

func (em *Emitter) currentBank() (*ast.Bank, bool) {
	if em.bankStack.IsEmpty() {
		return nil, false
	}
	//
	name := em.bankStack.Peek(0)
	def, n := symbol.ResolveIdentifier(em.Root(), []string{name}, source.Location{}, em.Report)
	//
	bank, ok := def.(*ast.Bank)
	if !ok || n != 1 {
		return nil, false
	}
	//
	return bank, true
}

// emitVar lowers a Var statement (§4.4: "Var (in a stored bank,
// non-extern, non-local) -> Var(def)"; local variables and extern
// variables never occupy static storage the core itself emits bytes
// for).
func (em *Emitter) emitVar(d *ast.Var, scope *symbol.Table) {
	if d.HasModifier(ast.ModExtern) || d.Function != nil {
		return
	}
	//
	bank, ok := em.currentBank()
	if !ok || bank.Handle == nil || bank.Handle.Kind != ast.BankStored {
		return
	}
	//
	em.emit(NewVar(d.Location(), d))
}

// emitFunc lowers a Func declaration (§4.4: "Func -> Label; emit body;
// implicit return if void function without unconditional return").
// Inline functions are not emitted at their declaration site at all —
// their body is emitted once per call site, without re-running R1/R2/R3
// on it; see emitInlineExpansion in select.go.
func (em *Emitter) emitFunc(d *ast.Func, scope *symbol.Table) {
	if d.Inlined {
		return
	}
	//
	em.emit(NewLabel(d.Location(), d))
	//
	child := scope.NewChild(d.Name())
	for _, p := range d.Parameters {
		child.Define(p.Name(), p)
	}
	//
	outerLabels := em.currentLabels
	em.currentLabels = collectLabels(d.Body)
	//
	em.returnStack.Push(returnFrame{kind: d.Kind, holder: returnHolder(d)})
	em.EmitStatements(d.Body, child)
	frame := em.returnStack.Pop()
	//
	em.currentLabels = outerLabels
	//
	d.HasUnconditionalReturn = terminatesUnconditionally(d.Body)
	if !d.HasUnconditionalReturn {
		em.emitReturn(d.Location(), frame, nil, child)
	}
}

// returnHolder produces the designated-storage holder expression a
// `return value;` assigns into before physically returning, when the
// function's return type is a DesignatedStorageType (GLOSSARY
// "Designated storage"); most functions return through a plain type and
// have no such holder (the value is simply left in whatever the
// platform's calling convention reads, out of this core's scope).
func returnHolder(d *ast.Func) ast.Expression {
	if d.Signature == nil {
		return nil
	}
	//
	if ds, ok := d.Signature.Return.(*ast.DesignatedStorageType); ok {
		return ds.Holder
	}
	//
	return nil
}

func (em *Emitter) emitExpressionStmt(s *ast.ExpressionStmt, scope *symbol.Table) {
	reduced, ok := em.Reduce(scope, s.Expr)
	if !ok {
		return
	}
	//
	em.selectExpression(scope, reduced)
}

// emitConfig lowers `config { key = expr; ... }` (§5/§6): each entry's
// right-hand side is reduced through the same C3 machinery as any other
// expression, then recorded in Config keyed by its dotted path. Entries
// contribute no IrNode; they only ever affect later has_def/get_def
// lookups and whatever the driver does with the final Config.
func (em *Emitter) emitConfig(s *ast.ConfigStmt, scope *symbol.Table) {
	for _, entry := range s.Entries {
		reduced, ok := em.Reduce(scope, entry.Value)
		if !ok {
			continue
		}
		//
		em.Config.Set(entry.Key, reduced)
	}
}
