// Package compiler wires C1-C5 together into the single top-level
// entrypoint a driver calls once per compile (§2 "five cooperating
// components, invoked once per compile in strict order").
//
// Grounded on the teacher's pkg/corset/compiler.go Compiler[M]: build a
// value via New, configure it with chainable SetXxx methods, then call
// Compile exactly once. Compile runs each phase in order and aborts as
// soon as a phase's Report records any diagnostic, exactly like the
// teacher's Compile() bailing out after ResolveCircuit/TypeCheckCircuit
// before ever reaching PreprocessCircuit.
package compiler

import (
	log "github.com/sirupsen/logrus"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/bank"
	"github.com/wiz-lang/wiz/pkg/config"
	"github.com/wiz-lang/wiz/pkg/ir"
	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/reduce"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/resolve"
)

// Result is everything a successful Compile produces: the assembled
// bank images (§4.5) and the flat IR they were built from, kept around
// for debug-dump tooling (pkg/bank.NewDump).
type Result struct {
	Images map[string]*bank.Image
	Nodes  []ir.Node
	Config *config.Config
}

// Compiler packages up everything needed to compile one program's
// statement tree down to a set of assembled bank images, the same
// construct-then-configure-then-Compile shape as the teacher's
// Compiler[M].
type Compiler struct {
	platform platform.Platform
	stmts    []ast.Statement
	builtins *config.Builtins
	debug    bool
	report   *report.Report
}

// New constructs a Compiler for the given platform and top-level
// statement tree. The Report is created here so a caller can inspect
// diagnostics even after a failed Compile.
func New(p platform.Platform, stmts []ast.Statement) *Compiler {
	return &Compiler{
		platform: p,
		stmts:    stmts,
		builtins: config.NewBuiltins(),
		report:   report.NewReport(),
	}
}

// SetDebug enables Debug-level phase logging and the Report's own
// verbose diagnostic logging.
func (c *Compiler) SetDebug(flag bool) *Compiler {
	c.debug = flag
	return c
}

// SetDefine injects one `has_def`/`get_def` builtin (§6) before
// compilation begins; the CLI's `--set key` flag calls it with the
// value true.
func (c *Compiler) SetDefine(key string, value ast.Expression) *Compiler {
	c.builtins.Set(key, value)
	return c
}

// Report returns the shared diagnostic sink, valid before, during, and
// after Compile.
func (c *Compiler) Report() *report.Report {
	return c.report
}

// Compile runs C2-C5 over the statement tree this Compiler was built
// with, in the strict order §2 mandates, validating the Report after
// each phase and bailing out at the first one that recorded an error.
func (c *Compiler) Compile() (*Result, bool) {
	c.report.Verbose = c.debug
	//
	if c.debug {
		log.Debug("compiler: starting compilation")
	}
	//
	rv := resolve.New(c.platform, c.report, c.builtins)
	root := rv.Root()
	//
	if c.debug {
		log.Debug("resolve: reserving definitions")
	}
	//
	rv.ReserveDefinitions(c.stmts, root)
	if !c.report.Validate() {
		log.Warnf("resolve: %d diagnostic(s) reserving definitions", len(c.report.Diagnostics()))
		return nil, false
	}
	//
	if c.debug {
		log.Debug("resolve: resolving definition types")
	}
	//
	rv.ResolveDefinitionTypes()
	if !c.report.Validate() {
		log.Warnf("resolve: %d diagnostic(s) resolving definition types", len(c.report.Diagnostics()))
		return nil, false
	}
	//
	if c.debug {
		log.Debug("resolve: reserving variable storage")
	}
	//
	rv.ReserveVariableStorage(c.stmts, root)
	if !c.report.Validate() {
		log.Warnf("resolve: %d diagnostic(s) reserving variable storage", len(c.report.Diagnostics()))
		return nil, false
	}
	//
	rd := reduce.New(rv)
	em := ir.New(rd)
	//
	if c.debug {
		log.Debug("ir: emitting statements")
	}
	//
	em.EmitStatements(c.stmts, root)
	if !c.report.Validate() {
		log.Warnf("ir: %d diagnostic(s) emitting statements", len(c.report.Diagnostics()))
		return nil, false
	}
	//
	nodes := em.Nodes()
	as := bank.New(rd)
	//
	if c.debug {
		log.Debug("bank: layout pass")
	}
	//
	as.Layout(nodes)
	if !c.report.Validate() {
		log.Warnf("bank: %d diagnostic(s) during layout", len(c.report.Diagnostics()))
		return nil, false
	}
	//
	if c.debug {
		log.Debug("bank: emit pass")
	}
	//
	as.Emit(nodes)
	if !c.report.Validate() {
		log.Warnf("bank: %d diagnostic(s) during emit", len(c.report.Diagnostics()))
		return nil, false
	}
	//
	if c.debug {
		log.Debug("compiler: finished compilation")
	}
	//
	return &Result{Images: as.Images(), Nodes: nodes, Config: em.Config}, true
}
