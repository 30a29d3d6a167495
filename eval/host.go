package eval

import (
	"github.com/FollowTheProcess/collections"

	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/hostctx"
	"github.com/scholzdev/githook/value"
)

// GroupFilter is the host-supplied `only`/`skip` filter consulted on each
// `group` statement (spec.md §6). A group runs iff (Only is empty or
// contains its name) and (Skip does not contain its name). Backed by
// `github.com/FollowTheProcess/collections`'s Set.
type GroupFilter struct {
	Only *collections.Set[string]
	Skip *collections.Set[string]
}

// Enabled reports whether the group named name should execute.
func (f GroupFilter) Enabled(name string) bool {
	if f.Only != nil && f.Only.Len() > 0 && !f.Only.Contains(name) {
		return false
	}
	if f.Skip != nil && f.Skip.Contains(name) {
		return false
	}
	return true
}

// Resolver loads and parses an imported hook script, returning its
// top-level statements. The eval package never reads a filesystem itself:
// it extracts MacroDef nodes from the returned statements and recurses
// into nested Import statements purely to detect cycles (spec.md §4.5).
// The path join happens in eval (joinImportPath); the concrete
// implementation (cache lookup, content-hash revalidation) lives in the
// `cache` package.
type Resolver interface {
	Resolve(absPath string) ([]ast.Statement, error)
}

// MacroSource supplies built-in macro definitions that live outside any
// imported or locally-defined script, e.g. the standard-library registry
// (SPEC_FULL.md §6). Its definitions are registered under their module
// name exactly like an imported file's macros: same non-capturing
// `builtins`-frame closure semantics, same `module:name` call syntax.
// Consuming stdlib through this interface, rather than importing the
// `stdlib` package directly, keeps eval's only external dependency an
// interface (spec.md §1).
type MacroSource interface {
	Macros() map[string][]ast.MacroDef
}

// HostEnv is the evaluator's seed state, populated by the CLI/LSP driver
// before execution begins (spec.md §6 "HostEnv contract").
type HostEnv struct {
	Git         *hostctx.GitContext
	Env         *hostctx.EnvContext
	Http        *hostctx.HttpContext // nil when no HTTP facade is configured
	GroupFilter GroupFilter
	Resolver    Resolver
	// Stdlib supplies the built-in macro registry, if any (nil disables
	// `@module:name(...)` calls into it).
	Stdlib MacroSource
	// ScriptPath is the absolute path of the main script being evaluated,
	// used to resolve relative `import` paths (spec.md §4.5).
	ScriptPath string
	// CollectAllBlocks switches the default stop-on-first-block policy
	// (spec.md §9 Open Question) to accumulate every Blocked message,
	// at any nesting level, instead of returning on the first one.
	CollectAllBlocks bool
}

// Evaluator walks an AST in the context of a HostEnv, per spec.md §4.3.
type Evaluator struct {
	host        HostEnv
	builtins    *Frame
	scriptFrame *Frame
	macros      *macroTable
	importStack map[string]bool
	messages    []string
}

// New constructs an Evaluator seeded with host, building the outermost
// "builtins" frame (git/env/http/files, per spec.md §3 "Variable scope")
// and a per-script frame chained under it for the main file's top-level
// bindings.
func New(host HostEnv) *Evaluator {
	builtins := newFrame(nil)
	if host.Git != nil {
		builtins.set("git", value.Handle{Object: host.Git})
		if host.Git.Files != nil {
			builtins.set("files", value.Handle{Object: host.Git.Files})
		}
	}
	if host.Env != nil {
		builtins.set("env", value.Handle{Object: host.Env})
	}
	if host.Http != nil {
		builtins.set("http", value.Handle{Object: host.Http})
	}
	ev := &Evaluator{
		host:        host,
		builtins:    builtins,
		scriptFrame: newFrame(builtins),
		macros:      newMacroTable(),
		importStack: make(map[string]bool),
	}
	if host.Stdlib != nil {
		for module, defs := range host.Stdlib.Macros() {
			ns := make(map[string]*macro, len(defs))
			for _, def := range defs {
				// Registered against builtins, never scriptFrame: stdlib
				// macros must not see the calling script's own variables,
				// the same non-capture rule imported macros follow.
				ns[def.Name] = &macro{params: def.Params, body: def.Body, captured: builtins}
			}
			ev.macros.importNamespace(module, ns)
		}
	}
	return ev
}

// ExecuteStatements runs stmts (the main script's top-level statements)
// to completion, implementing spec.md §4.6's top-level propagation row:
// Continue exits 0, Blocked carries its message(s), Break/ContinueLoop at
// top level are errors (there is no enclosing loop or macro to catch
// them).
func (e *Evaluator) ExecuteStatements(stmts []ast.Statement) (ExecutionResult, error) {
	result, err := e.execStatements(stmts, e.scriptFrame)
	if err != nil {
		return ExecutionResult{}, err
	}
	switch result.Kind {
	case Break:
		return ExecutionResult{}, &Error{Kind: BreakOutsideLoop, Message: "break outside of a foreach loop"}
	case ContinueLoop:
		return ExecutionResult{}, &Error{Kind: ContinueOutsideLoop, Message: "continue outside of a foreach loop"}
	}
	if e.host.CollectAllBlocks && len(e.messages) > 0 {
		return blockedResult(joinMessages(e.messages)), nil
	}
	return result, nil
}

func joinMessages(messages []string) string {
	out := messages[0]
	for _, m := range messages[1:] {
		out += "\n" + m
	}
	return out
}
