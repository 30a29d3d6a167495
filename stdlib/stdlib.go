// Package stdlib is the standard-library macro registry: a flat catalog
// of pre-written hook-script macros consumed by the evaluator through the
// `eval.MacroSource` lookup interface (spec.md §1 "standard-library macro
// registry... consumed through a lookup interface", SPEC_FULL.md §6).
//
// Grounded on `original_source/githook-macros/src/stdlib.rs`'s
// `export_macro` attribute, which tags a function with a module/name/doc
// triple collected into an `inventory`-backed registry at compile time.
// Go has no attribute macros or link-time registries, so the same shape
// (module, name, doc, generator) is expressed directly: each entry holds
// its hook-script source, parsed by Load the way the `cache` package
// parses an imported file.
package stdlib

import (
	"fmt"

	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/lexer"
	"github.com/scholzdev/githook/parser"
)

// entrySource is one catalog entry before parsing: the Rust original's
// `MacroEntry{module, name, doc, generator}`, with `generator` replaced by
// a parseable hook-script snippet.
type entrySource struct {
	module string
	name   string
	doc    string
	source string
}

// catalog is the standard-library macro source, grouped by module. Each
// snippet is a single `macro NAME(PARAMS) { BODY }` definition written in
// the same hook-script syntax a repository author would use directly.
var catalog = []entrySource{
	{
		module: "stdlib",
		name:   "deny_files_matching",
		doc:    "Blocks if any staged file path contains pattern.",
		source: `macro deny_files_matching(pattern) {
  foreach f in git.files.staged {
    block if f.contains(pattern) message "blocked file matching \"" + pattern + "\": " + f
  }
}`,
	},
	{
		module: "stdlib",
		name:   "require_branch_prefix",
		doc:    "Blocks unless the current branch name starts with prefix.",
		source: `macro require_branch_prefix(prefix) {
  block if not git.branch.name.starts_with(prefix) message "branch \"" + git.branch.name + "\" must start with \"" + prefix + "\""
}`,
	},
	{
		module: "stdlib",
		name:   "deny_commit_message_contains",
		doc:    "Blocks if the HEAD commit message contains needle.",
		source: `macro deny_commit_message_contains(needle) {
  block if git.commit.message.contains(needle) message "commit message contains forbidden text: " + needle
}`,
	},
	{
		module: "stdlib",
		name:   "deny_added_secret_markers",
		doc:    "Blocks if any added diff line contains a common secret marker.",
		source: `macro deny_added_secret_markers() {
  foreach line in git.diff.added_lines {
    block if line.contains("BEGIN RSA PRIVATE KEY") message "possible private key added: " + line
    block if line.contains("BEGIN OPENSSH PRIVATE KEY") message "possible private key added: " + line
    block if line.contains("AWS_SECRET_ACCESS_KEY") message "possible AWS credential added: " + line
  }
}`,
	},
	{
		module: "stdlib",
		name:   "block_merge_into",
		doc:    "Blocks an in-progress merge whose target matches protected.",
		source: `macro block_merge_into(protected) {
  block if git.merge.target == protected message "direct merges into \"" + protected + "\" are not allowed"
}`,
	},
}

// Registry is a parsed, ready-to-register view of catalog, satisfying
// eval.MacroSource.
type Registry struct {
	byModule map[string][]ast.MacroDef
	entries  []Entry
}

// Entry is a catalog entry after parsing, exposed for `--show-macros`
// style introspection (SPEC_FULL.md §4).
type Entry struct {
	Module string
	Name   string
	Doc    string
}

// Load parses every catalog entry once and returns the resulting
// Registry. A malformed catalog entry is a programming error in this
// package, not a user-facing one, so Load returns an error rather than
// panicking (a future entry added here is still caught before shipping).
func Load() (*Registry, error) {
	r := &Registry{byModule: make(map[string][]ast.MacroDef)}
	for _, e := range catalog {
		def, err := parseMacro(e.source)
		if err != nil {
			return nil, fmt.Errorf("stdlib: parsing %s:%s: %w", e.module, e.name, err)
		}
		r.byModule[e.module] = append(r.byModule[e.module], def)
		r.entries = append(r.entries, Entry{Module: e.module, Name: e.name, Doc: e.doc})
	}
	return r, nil
}

func parseMacro(source string) (ast.MacroDef, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return ast.MacroDef{}, err
	}
	stmts, err := parser.Parse(tokens)
	if err != nil {
		return ast.MacroDef{}, err
	}
	if len(stmts) != 1 {
		return ast.MacroDef{}, fmt.Errorf("expected exactly one statement, got %d", len(stmts))
	}
	def, ok := stmts[0].(ast.MacroDef)
	if !ok {
		return ast.MacroDef{}, fmt.Errorf("expected a macro definition, got %T", stmts[0])
	}
	return def, nil
}

// Macros implements eval.MacroSource.
func (r *Registry) Macros() map[string][]ast.MacroDef {
	return r.byModule
}

// Entries lists every catalog entry's module/name/doc, sorted by
// insertion order, for `--show-macros` output.
func (r *Registry) Entries() []Entry {
	return r.entries
}
