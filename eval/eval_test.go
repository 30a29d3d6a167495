package eval

import (
	"testing"

	"github.com/FollowTheProcess/collections"
	"github.com/google/go-cmp/cmp"

	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/hostctx"
	"github.com/scholzdev/githook/lexer"
	"github.com/scholzdev/githook/parser"
	"github.com/scholzdev/githook/stdlib"
	"github.com/scholzdev/githook/value"
)

// assertResult deep-compares the full ExecutionResult (Kind and Message
// together) in one diff, rather than two separate field checks.
func assertResult(t *testing.T, got ExecutionResult, want ExecutionResult) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected ExecutionResult (-want +got):\n%s", diff)
	}
}

func newTestSet(items ...string) *collections.Set[string] {
	return collections.NewSet(items...)
}

func mustRun(t *testing.T, src string, host HostEnv) ExecutionResult {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	stmts, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	result, err := New(host).ExecuteStatements(stmts)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return result
}

// Grounded on original_source/crates/githook-eval/tests/boolean_tests.rs:
// a handful of boolean-condition scenarios around `block if`.

func TestBlockIfTrueBlocks(t *testing.T) {
	result := mustRun(t, "let x = true\nblock if x message \"fail\"", HostEnv{})
	if result.Kind != Blocked || result.Message != "fail" {
		t.Fatalf("got %+v", result)
	}
}

func TestBlockIfFalseContinues(t *testing.T) {
	result := mustRun(t, "let x = false\nblock if x message \"fail\"", HostEnv{})
	if result.Kind != Continue {
		t.Fatalf("got %+v", result)
	}
}

func TestBlockIfNotTrueContinues(t *testing.T) {
	result := mustRun(t, "block if not true message \"m\"", HostEnv{})
	if result.Kind != Continue {
		t.Fatalf("got %+v", result)
	}
}

// spec.md §8 scenario 6: env.USER binds as a String.
func TestEnvPropertyBindsString(t *testing.T) {
	host := HostEnv{Env: hostctx.NewEnvContext(map[string]string{"USER": "alice"})}
	tokens, err := lexer.Tokenize("let u = env.USER")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	stmts, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := New(host)
	if _, err := ev.ExecuteStatements(stmts); err != nil {
		t.Fatalf("execute: %v", err)
	}
	v, ok := ev.scriptFrame.get("u")
	if !ok {
		t.Fatal("u not bound")
	}
	if v != value.String("alice") {
		t.Fatalf("got %#v", v)
	}
}

// spec.md §8 scenario 7: foreach over git.files.staged blocks on a match.
func TestForEachBlocksOnStagedSecret(t *testing.T) {
	files := hostctx.NewFilesCollection(
		[]string{"a.txt", "secret.key", "b.txt"},
		[]string{"a.txt", "secret.key", "b.txt"},
		nil, nil, nil, nil, nil,
	)
	git := hostctx.NewGitContext(nil, files, nil, nil, nil, nil, nil)
	src := `foreach f in git.files.staged {
  block if f == "secret.key" message "blocked: " + f
}`
	result := mustRun(t, src, HostEnv{Git: git})
	if result.Kind != Blocked || result.Message != "blocked: secret.key" {
		t.Fatalf("got %+v", result)
	}
}

// SPEC_FULL.md §3's "file.size > 5MB" example, reaching the FileContext
// handle through FilesCollection.file(path) rather than constructing one
// directly.
func TestFileSizeBlocksOnLargeStagedFile(t *testing.T) {
	files := hostctx.NewFilesCollection(
		[]string{"big.bin"}, []string{"big.bin"}, nil, nil, nil, nil,
		map[string]int64{"big.bin": 6 * 1024 * 1024},
	)
	git := hostctx.NewGitContext(nil, files, nil, nil, nil, nil, nil)
	src := `foreach f in git.files.staged {
  block if git.files.file(f).size > 5MB message git.files.file(f).human_size() + " is too large"
}`
	result := mustRun(t, src, HostEnv{Git: git})
	assertResult(t, result, ExecutionResult{Kind: Blocked, Message: "6.3 MB is too large"})
}

// SPEC_FULL.md §3's diff.stats wiring: the FilesChanged/Insertions counts
// a Git adapter would compute are reachable as git.diff.stats.*.
func TestDiffStatsReachableFromGitDiff(t *testing.T) {
	diff := hostctx.NewDiffCollection([]string{"+line one", "+line two"}, []string{"-line three"}, 1)
	git := hostctx.NewGitContext(nil, nil, diff, nil, nil, nil, nil)
	src := `let n = git.diff.stats.files_changed
block if n > 0 message "changed " + n + " files"`
	result := mustRun(t, src, HostEnv{Git: git})
	assertResult(t, result, ExecutionResult{Kind: Blocked, Message: "changed 1 files"})
}

// spec.md §8 scenario 8: a macro call yields Blocked to its caller.
func TestMacroCallPropagatesBlocked(t *testing.T) {
	src := "macro m(x) { block if x > 10 message \"big\" }\n@m(42)"
	result := mustRun(t, src, HostEnv{})
	if result.Kind != Blocked || result.Message != "big" {
		t.Fatalf("got %+v", result)
	}
}

func TestBreakExitsForEachAsContinue(t *testing.T) {
	src := `foreach x in [1, 2, 3] {
  break
}`
	result := mustRun(t, src, HostEnv{})
	if result.Kind != Continue {
		t.Fatalf("got %+v", result)
	}
}

func TestShortCircuitAndSkipsRight(t *testing.T) {
	src := "let calls = 0\nlet _ = false and @boom()"
	// @boom is undefined; if `and` evaluated the right-hand side this
	// would fail with UndefinedMacro instead of continuing.
	result := mustRun(t, src, HostEnv{})
	if result.Kind != Continue {
		t.Fatalf("got %+v", result)
	}
}

func TestShortCircuitOrSkipsRight(t *testing.T) {
	src := "let _ = true or @boom()"
	result := mustRun(t, src, HostEnv{})
	if result.Kind != Continue {
		t.Fatalf("got %+v", result)
	}
}

func TestGroupDisabledBySkipFilter(t *testing.T) {
	src := `group "lint" {
  block if true message "should not run"
}`
	host := HostEnv{GroupFilter: GroupFilter{Skip: newTestSet("lint")}}
	result := mustRun(t, src, host)
	if result.Kind != Continue {
		t.Fatalf("got %+v", result)
	}
}

func TestGroupEnabledByOnlyFilter(t *testing.T) {
	src := `group "lint" {
  block if true message "blocked"
}`
	host := HostEnv{GroupFilter: GroupFilter{Only: newTestSet("lint")}}
	result := mustRun(t, src, host)
	if result.Kind != Blocked {
		t.Fatalf("got %+v", result)
	}
}

func TestUndefinedVariableSuggestsClosestName(t *testing.T) {
	src := "let width = 1\nlet y = widht"
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	stmts, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = New(HostEnv{}).ExecuteStatements(stmts)
	evalErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if evalErr.Kind != UndefinedVariable {
		t.Fatalf("got kind %v", evalErr.Kind)
	}
}

// Cross-file macro closures must not see the importing script's own
// frame (spec.md §9 "Cross-file macros do not capture a frame").
func TestImportedMacroDoesNotCaptureCallerFrame(t *testing.T) {
	lib := "macro m() { block if local_secret message \"leak\" }"
	libStmts, err := parseSource(lib)
	if err != nil {
		t.Fatalf("parse lib: %v", err)
	}
	resolver := stubResolver{"/repo/lib.ghook": libStmts}
	src := "let local_secret = true\nimport \"lib.ghook\"\n@lib:m()"
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	stmts, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	host := HostEnv{Resolver: resolver, ScriptPath: "/repo/script.ghook"}
	_, err = New(host).ExecuteStatements(stmts)
	evalErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error (undefined variable local_secret), got %T (%v)", err, err)
	}
	if evalErr.Kind != UndefinedVariable {
		t.Fatalf("got kind %v: %v", evalErr.Kind, evalErr)
	}
}

// Integration check that eval.MacroSource wiring actually reaches a real
// stdlib macro call, and that it sees only `builtins`, not the caller's
// own frame (same non-capture rule as cross-file imports).
func TestStdlibMacroCallsIntoRegistry(t *testing.T) {
	reg, err := stdlib.Load()
	if err != nil {
		t.Fatalf("stdlib.Load: %v", err)
	}
	branch := hostctx.NewBranchInfo("wip/scratch", "")
	git := hostctx.NewGitContext(branch, nil, nil, nil, nil, nil, nil)
	host := HostEnv{Git: git, Stdlib: reg}
	result := mustRun(t, `@stdlib:require_branch_prefix("feature/")`, host)
	if result.Kind != Blocked {
		t.Fatalf("got %+v", result)
	}
}

func TestImportCycleDetected(t *testing.T) {
	aSrc := "import \"b.ghook\""
	bSrc := "import \"a.ghook\""
	aStmts, err := parseSource(aSrc)
	if err != nil {
		t.Fatalf("parse a: %v", err)
	}
	bStmts, err := parseSource(bSrc)
	if err != nil {
		t.Fatalf("parse b: %v", err)
	}
	resolver := stubResolver{
		"/repo/a.ghook": aStmts,
		"/repo/b.ghook": bStmts,
	}
	src := "import \"a.ghook\""
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	stmts, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	host := HostEnv{Resolver: resolver, ScriptPath: "/repo/script.ghook"}
	_, err = New(host).ExecuteStatements(stmts)
	evalErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if evalErr.Kind != CycleDetected {
		t.Fatalf("got kind %v", evalErr.Kind)
	}
}

func parseSource(src string) ([]ast.Statement, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return parser.Parse(tokens)
}

type stubResolver map[string][]ast.Statement

func (s stubResolver) Resolve(absPath string) ([]ast.Statement, error) {
	stmts, ok := s[absPath]
	if !ok {
		return nil, &Error{Kind: ImportFailed, Message: "no such file: " + absPath}
	}
	return stmts, nil
}
