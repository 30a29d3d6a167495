package eval

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/span"
)

// execImport resolves and registers an `import "PATH" (as ALIAS)?`
// statement's macros under its namespace (spec.md §4.3 "Import").
func (e *Evaluator) execImport(s ast.Import, frame *Frame) error {
	if s.Path == "" {
		return &Error{Kind: ImportFailed, Span: s.Span(), Message: "import path must not be empty"}
	}
	absPath := joinImportPath(filepath.Dir(e.host.ScriptPath), s.Path)
	macros, err := e.resolveMacros(absPath, s.Span())
	if err != nil {
		return err
	}
	alias := s.Alias
	if alias == "" {
		alias = strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	}
	e.macros.importNamespace(alias, macros)
	return nil
}

func joinImportPath(fromDir, path string) string {
	clean := strings.TrimPrefix(path, "./")
	return filepath.Join(fromDir, clean)
}

// resolveMacros parses absPath via the configured Resolver and extracts
// its top-level MacroDef nodes, following spec.md §4.5's contract
// `resolve(path) -> Vec<MacroDef>`. Nested `import` statements are walked
// recursively only to detect cycles (spec.md §8 "Cycle safety"); their
// macros are not transitively re-exported under the importing alias — a
// deliberate hygiene choice, since the resolver contract names only the
// directly imported file's own definitions.
func (e *Evaluator) resolveMacros(absPath string, sp span.Span) (map[string]*macro, error) {
	if e.importStack[absPath] {
		return nil, &Error{Kind: CycleDetected, Span: sp, Message: fmt.Sprintf("import cycle detected at %s", absPath)}
	}
	if e.host.Resolver == nil {
		return nil, &Error{Kind: ImportFailed, Span: sp, Message: "no macro resolver configured"}
	}
	e.importStack[absPath] = true
	defer delete(e.importStack, absPath)

	stmts, err := e.host.Resolver.Resolve(absPath)
	if err != nil {
		return nil, &Error{Kind: ImportFailed, Span: sp, Message: err.Error()}
	}

	macros := make(map[string]*macro)
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case ast.MacroDef:
			// Cross-file macros capture only the shared builtins frame,
			// never the importing script's own frame (spec.md §9 "Cross-
			// file macros do not capture a frame").
			macros[st.Name] = &macro{params: st.Params, body: st.Body, captured: e.builtins}
		case ast.Import:
			nestedPath := joinImportPath(filepath.Dir(absPath), st.Path)
			if _, err := e.resolveMacros(nestedPath, st.Span()); err != nil {
				return nil, err
			}
		}
	}
	return macros, nil
}
