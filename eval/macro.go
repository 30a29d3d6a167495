package eval

import "github.com/scholzdev/githook/ast"

// macro is a bound `macro NAME(PARAMS) { BODY }` definition: its
// parameter names, its body, and the Frame it closed over at definition
// time (spec.md §9 "Macro capture").
type macro struct {
	params   []string
	body     []ast.Statement
	captured *Frame
}

// macroTable is the flat, file-scoped macro namespace (spec.md §3:
// "Macro names within a single file are unique"). It is not part of the
// Frame chain: macro visibility is file-wide, not lexically scoped like
// variables.
type macroTable struct {
	unqualified map[string]*macro
	imported    map[string]map[string]*macro // alias -> name -> macro
}

func newMacroTable() *macroTable {
	return &macroTable{
		unqualified: make(map[string]*macro),
		imported:    make(map[string]map[string]*macro),
	}
}

func (t *macroTable) define(name string, m *macro) {
	t.unqualified[name] = m
}

func (t *macroTable) importNamespace(alias string, macros map[string]*macro) {
	t.imported[alias] = macros
}

func (t *macroTable) lookup(namespace, name string) (*macro, bool) {
	if namespace == "" {
		m, ok := t.unqualified[name]
		return m, ok
	}
	ns, ok := t.imported[namespace]
	if !ok {
		return nil, false
	}
	m, ok := ns[name]
	return m, ok
}

// names lists every callable reference, `name` for unqualified macros and
// `namespace:name` for imported ones, for "did you mean" suggestions.
func (t *macroTable) names() map[string]struct{} {
	out := make(map[string]struct{}, len(t.unqualified))
	for name := range t.unqualified {
		out[name] = struct{}{}
	}
	for ns, macros := range t.imported {
		for name := range macros {
			out[ns+":"+name] = struct{}{}
		}
	}
	return out
}
