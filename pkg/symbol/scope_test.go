package symbol

import (
	"testing"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/source"
)

func testVar(name string) *ast.Var {
	return &ast.Var{}
}

func noLoc() source.Location {
	return source.Location{}
}

func Test_Define_01(t *testing.T) {
	root := NewRoot()
	//
	if !root.Define("x", testVar("x")) {
		t.Fatal("expected first definition of x to succeed")
	}
}

func Test_Define_02(t *testing.T) {
	root := NewRoot()
	root.Define("x", testVar("x"))
	//
	if root.Define("x", testVar("x")) {
		t.Fatal("expected second definition of x to fail (DuplicateName)")
	}
}

func Test_ResolveIdentifier_01(t *testing.T) {
	root := NewRoot()
	v := testVar("x")
	root.Define("x", v)
	//
	r := report.NewReport()
	def, n := ResolveIdentifier(root, []string{"x"}, noLoc(), r)
	//
	if def != v || n != 1 {
		t.Fatalf("expected to resolve x, got %v (stopped at %d)", def, n)
	}
	//
	if r.HasErrors() {
		t.Fatalf("expected no diagnostics, got %v", r.Diagnostics())
	}
}

func Test_ResolveIdentifier_02(t *testing.T) {
	root := NewRoot()
	//
	r := report.NewReport()
	def, _ := ResolveIdentifier(root, []string{"missing"}, noLoc(), r)
	//
	if def != nil {
		t.Fatal("expected unresolved lookup to return nil")
	}
	//
	if !r.HasErrors() || r.Diagnostics()[0].Kind != report.Unresolved {
		t.Fatalf("expected an Unresolved diagnostic, got %v", r.Diagnostics())
	}
}

func Test_ResolveIdentifier_03(t *testing.T) {
	// Outer scope defines x; inner (child) scope should see it via
	// outward search when not locally shadowed.
	root := NewRoot()
	v := testVar("x")
	root.Define("x", v)
	child := root.NewChild("")
	//
	r := report.NewReport()
	def, _ := ResolveIdentifier(child, []string{"x"}, noLoc(), r)
	//
	if def != v {
		t.Fatalf("expected child scope to see outer x, got %v", def)
	}
}

func Test_ResolveIdentifier_04(t *testing.T) {
	// An import makes another scope's members visible without
	// qualification, but does not let that scope see this one.
	root := NewRoot()
	lib := root.NewChild("lib")
	v := testVar("helper")
	lib.Define("helper", v)
	root.AddImport(lib)
	//
	r := report.NewReport()
	def, _ := ResolveIdentifier(root, []string{"helper"}, noLoc(), r)
	//
	if def != v {
		t.Fatalf("expected import to expose helper, got %v", def)
	}
}

func Test_ResolveIdentifier_05(t *testing.T) {
	// Two distinct definitions of the same name reachable via separate
	// imports must be reported Ambiguous, not silently pick one.
	root := NewRoot()
	a := root.NewChild("a")
	b := root.NewChild("b")
	a.Define("x", testVar("x"))
	b.Define("x", testVar("x"))
	root.AddImport(a)
	root.AddImport(b)
	//
	r := report.NewReport()
	def, _ := ResolveIdentifier(root, []string{"x"}, noLoc(), r)
	//
	if def != nil {
		t.Fatal("expected ambiguous lookup to return nil")
	}
	//
	if !r.HasErrors() || r.Diagnostics()[0].Kind != report.Ambiguous {
		t.Fatalf("expected an Ambiguous diagnostic, got %v", r.Diagnostics())
	}
}

func Test_AddImport_01(t *testing.T) {
	root := NewRoot()
	//
	if root.AddImport(root) {
		t.Fatal("expected a scope importing itself to be rejected")
	}
}

