// Package symbol implements the Symbol & Scope Store (C1): nested scopes
// that own a name -> ast.Definition mapping plus a recursive-import list,
// and the resolveIdentifier algorithm used by the resolver (C2) and the
// reducer (C3) to turn a dotted Identifier into a single ast.Definition.
//
// The shape follows the teacher's pkg/corset ModuleScope/LocalScope
// (scope.go): a tree of scopes searched outward on miss, plus a list of
// "imported" scopes searched transparently alongside the local one. Unlike
// the teacher, bindings here are plain ast.Definition values rather than
// column/function bindings, since this compiler's symbol space is names
// bound to vars/funcs/lets/banks/types rather than trace columns.
package symbol

import (
	"fmt"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/source"
)

// Table is a single lexical/namespace scope (GLOSSARY "SymbolTable"): a
// map from name to a unique local Definition, plus a list of other
// scopes recursively searched on lookup.
type Table struct {
	name string
	// parent is the enclosing scope reached when a name is not found
	// locally or via an import; nil for the root scope.
	parent *Table
	// defs maps a local name to its unique Definition.
	defs map[string]ast.Definition
	// order preserves declaration order, for deterministic diagnostics
	// and for Struct/Enum member iteration.
	order []string
	// imports is the recursive-import list (§4.1 "Import semantics").
	imports []*Table
}

// NewRoot constructs the top-level scope of a compilation.
func NewRoot() *Table {
	return &Table{name: "", defs: make(map[string]ast.Definition)}
}

// NewChild constructs a new scope nested within this one, e.g. for a
// Namespace or Func body.
func (t *Table) NewChild(name string) *Table {
	return &Table{name: name, parent: t, defs: make(map[string]ast.Definition)}
}

// Parent returns the enclosing scope, or nil for the root.
func (t *Table) Parent() *Table { return t.parent }

// Name returns this scope's own name (e.g. a Namespace's name), empty
// for the root and for anonymous block scopes.
func (t *Table) Name() string { return t.name }

// Define inserts name -> def into this scope.  Returns false (without
// modifying the scope) if name is already locally bound, per §4.1:
// "fails with DuplicateName when a local name collides".
func (t *Table) Define(name string, def ast.Definition) bool {
	if _, ok := t.defs[name]; ok {
		return false
	}
	//
	t.defs[name] = def
	t.order = append(t.order, name)
	//
	return true
}

// AddImport links other as a recursive import of this scope (§4.1). It
// is rejected — returning false — if it would create a scope importing
// itself, directly or transitively; the actual cycle guard used during
// lookup is in findImportedMemberDefinitions, this is just the
// admission-time sanity check mirroring the teacher's "a scope must not
// be imported into itself".
func (t *Table) AddImport(other *Table) bool {
	if other == t {
		return false
	}
	//
	t.imports = append(t.imports, other)
	//
	return true
}

// Definitions returns every locally-declared definition, in declaration
// order (used by R2's Struct/Enum member passes and by C5 when walking a
// Bank's contents).
func (t *Table) Definitions() []ast.Definition {
	defs := make([]ast.Definition, 0, len(t.order))
	for _, name := range t.order {
		defs = append(defs, t.defs[name])
	}
	//
	return defs
}

// findLocalMemberDefinition returns the definition bound to name
// directly in this scope, or nil.
func (t *Table) findLocalMemberDefinition(name string) ast.Definition {
	return t.defs[name]
}

// FindLocal is the exported counterpart to findLocalMemberDefinition,
// used by C2 (R1) to detect a pre-existing Namespace declaration to
// merge into, per §4.2: "Namespace reuses an existing namespace scope if
// one with the same name was already created".
func (t *Table) FindLocal(name string) ast.Definition {
	return t.findLocalMemberDefinition(name)
}

// findImportedMemberDefinitions searches every recursively-imported
// scope for name, collecting all distinct matches (by pointer identity)
// across the whole import closure. visited guards against the cyclic
// import case the invariants in §3 call out: "transitive lookup must
// terminate (implementations use an insertion guard)".
func (t *Table) findImportedMemberDefinitions(name string, visited map[*Table]bool) []ast.Definition {
	var found []ast.Definition
	//
	for _, imp := range t.imports {
		if visited[imp] {
			continue
		}
		//
		visited[imp] = true
		//
		if d := imp.findLocalMemberDefinition(name); d != nil {
			found = appendDistinct(found, d)
		}
		//
		found = appendAllDistinct(found, imp.findImportedMemberDefinitions(name, visited))
	}
	//
	return found
}

// findUnqualifiedDefinitions searches local, then this scope's imports,
// then outward through enclosing scopes (and their imports), collecting
// every distinct candidate (§4.1: "collect all matching candidates (dedup
// by pointer)").
func (t *Table) findUnqualifiedDefinitions(name string) []ast.Definition {
	var found []ast.Definition
	//
	if d := t.findLocalMemberDefinition(name); d != nil {
		found = appendDistinct(found, d)
	}
	//
	found = appendAllDistinct(found, t.findImportedMemberDefinitions(name, map[*Table]bool{}))
	//
	if len(found) == 0 && t.parent != nil {
		return t.parent.findUnqualifiedDefinitions(name)
	}
	//
	return found
}

func appendDistinct(defs []ast.Definition, d ast.Definition) []ast.Definition {
	for _, existing := range defs {
		if existing == d {
			return defs
		}
	}
	//
	return append(defs, d)
}

func appendAllDistinct(defs []ast.Definition, more []ast.Definition) []ast.Definition {
	for _, d := range more {
		defs = appendDistinct(defs, d)
	}
	//
	return defs
}

// ResolveIdentifier implements §4.1 resolveIdentifier: starting from
// scope, walk pieces one at a time, each step narrowing to exactly one
// candidate before the next piece is considered. Returns the resolved
// Definition and the number of pieces consumed; on failure it reports
// Unresolved or Ambiguous to r and returns (nil, stoppedAt).
func ResolveIdentifier(scope *Table, pieces []string, loc source.Location, r *report.Report) (ast.Definition, int) {
	if len(pieces) == 0 {
		return nil, 0
	}
	//
	var result ast.Definition
	//
	for i, piece := range pieces {
		var candidates []ast.Definition
		//
		if i == 0 {
			candidates = scope.findUnqualifiedDefinitions(piece)
		} else {
			ns, ok := result.(*ast.Namespace)
			if !ok {
				// Should be unreachable: the previous iteration only
				// continues when result was a Namespace.
				r.Errorf(report.Unresolved, loc, "%s is not a namespace", qualifiedPrefix(pieces, i))
				return nil, i
			}
			//
			nsScope, ok := ns.Scope.(*Table)
			if !ok {
				r.Errorf(report.InternalInvariantViolation, loc, "namespace %s has no scope", ns.Name())
				return nil, i
			}
			//
			candidates = nsScope.findLocalMemberDefinitions(piece)
		}
		//
		if len(candidates) == 0 {
			r.Errorf(report.Unresolved, loc, "unresolved symbol `%s`", qualifiedPrefix(pieces, i+1))
			return nil, i
		} else if len(candidates) > 1 {
			annotations := make([]report.Annotation, len(candidates))
			for j, c := range candidates {
				annotations[j] = report.Annotation{Location: c.Location(), Message: "conflicting declaration"}
			}
			//
			r.Add(report.Ambiguous, loc, fmt.Sprintf("ambiguous symbol `%s`", qualifiedPrefix(pieces, i+1)), annotations...)
			return nil, i
		}
		//
		result = candidates[0]
		//
		if _, ok := result.(*ast.Namespace); ok {
			if i < len(pieces)-1 {
				continue
			}
			// Last piece resolved to a namespace: path ends short.
			r.Errorf(report.Unresolved, loc, "`%s` is a namespace, not a value", qualifiedPrefix(pieces, i+1))
			return nil, i + 1
		}
	}
	//
	return result, len(pieces)
}

func qualifiedPrefix(pieces []string, n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += "."
		}
		//
		s += pieces[i]
	}
	//
	return s
}

// findLocalMemberDefinitions is the multi-result counterpart to
// findLocalMemberDefinition, used when walking into a namespace: the
// namespace's own scope may itself have imports contributing candidates.
func (t *Table) findLocalMemberDefinitions(name string) []ast.Definition {
	var found []ast.Definition
	if d := t.findLocalMemberDefinition(name); d != nil {
		found = appendDistinct(found, d)
	}
	//
	return appendAllDistinct(found, t.findImportedMemberDefinitions(name, map[*Table]bool{}))
}
