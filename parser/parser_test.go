package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/lexer"
	"github.com/scholzdev/githook/token"
)

// ignoreSpans diffs AST trees field-for-field while ignoring byte/line/column
// position, which would otherwise make every expected tree as fragile as the
// exact source text it was parsed from.
var ignoreSpans = cmpopts.IgnoreFields(ast.Base{}, "Sp")

func parse(t *testing.T, src string) []ast.Statement {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q) returned error: %v", src, err)
	}
	stmts, err := Parse(tokens)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", src, err)
	}
	return stmts
}

func TestParseLet(t *testing.T) {
	stmts := parse(t, `let x = true`)
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(stmts))
	}
	let, ok := stmts[0].(ast.Let)
	if !ok {
		t.Fatalf("stmts[0] = %#v, want ast.Let", stmts[0])
	}
	if let.Name != "x" {
		t.Errorf("Name = %q, want x", let.Name)
	}
	if _, ok := let.Expr.(ast.BoolLit); !ok {
		t.Errorf("Expr = %#v, want ast.BoolLit", let.Expr)
	}
}

func TestParseBlockIfMessage(t *testing.T) {
	stmts := parse(t, `block if x message "fail"`)
	blk, ok := stmts[0].(ast.Block)
	if !ok {
		t.Fatalf("stmts[0] = %#v, want ast.Block", stmts[0])
	}
	if _, ok := blk.Condition.(ast.Identifier); !ok {
		t.Errorf("Condition = %#v, want ast.Identifier", blk.Condition)
	}
	msg, ok := blk.Message.(ast.StringLit)
	if !ok || len(msg.Parts) != 1 {
		t.Fatalf("Message = %#v, want single-part StringLit", blk.Message)
	}
}

// Deep-compares the whole expression tree rather than unwrapping one node
// at a time, so precedence/associativity (1 + 2 * 3 parses as 1 + (2 * 3))
// is checked structurally end to end.
func TestParseArithmeticPrecedenceDeepEqual(t *testing.T) {
	stmts := parse(t, `let x = 1 + 2 * 3`)
	want := []ast.Statement{
		ast.Let{
			Name: "x",
			Expr: ast.Binary{
				Op:   ast.BinAdd,
				Left: ast.NumberLit{Value: 1},
				Right: ast.Binary{
					Op:    ast.BinMul,
					Left:  ast.NumberLit{Value: 2},
					Right: ast.NumberLit{Value: 3},
				},
			},
		},
	}
	if diff := cmp.Diff(want, stmts, ignoreSpans); diff != "" {
		t.Errorf("unexpected AST (-want +got):\n%s", diff)
	}
}

func TestParseMemberCallChainDeepEqual(t *testing.T) {
	stmts := parse(t, `block if git.files.file(f).size > 5MB message "too big"`)
	want := []ast.Statement{
		ast.Block{
			Condition: ast.Binary{
				Op: ast.BinGt,
				Left: ast.Member{
					Target: ast.Call{
						Callee: ast.Member{
							Target:   ast.Member{Target: ast.Identifier{Name: "git"}, Property: "files"},
							Property: "file",
						},
						Args: []ast.Expression{ast.Identifier{Name: "f"}},
					},
					Property: "size",
				},
				Right: ast.NumberLit{Value: 5 * 1024 * 1024},
			},
			Message: ast.StringLit{Parts: []ast.Expression{ast.StringText{Value: "too big"}}},
		},
	}
	if diff := cmp.Diff(want, stmts, ignoreSpans); diff != "" {
		t.Errorf("unexpected AST (-want +got):\n%s", diff)
	}
}

func TestParseIfElseIf(t *testing.T) {
	src := "if a {\nlet x = 1\n} else if b {\nlet y = 2\n} else {\nlet z = 3\n}"
	stmts := parse(t, src)
	top, ok := stmts[0].(ast.If)
	if !ok {
		t.Fatalf("stmts[0] = %#v, want ast.If", stmts[0])
	}
	if len(top.Then) != 1 {
		t.Fatalf("Then has %d statements, want 1", len(top.Then))
	}
	if len(top.Else) != 1 {
		t.Fatalf("Else has %d statements, want 1", len(top.Else))
	}
	nested, ok := top.Else[0].(ast.If)
	if !ok {
		t.Fatalf("Else[0] = %#v, want nested ast.If", top.Else[0])
	}
	if len(nested.Else) != 1 {
		t.Fatalf("nested Else has %d statements, want 1", len(nested.Else))
	}
}

func TestParseForEach(t *testing.T) {
	src := "foreach f in git.files.staged {\nblock if f == \"secret.key\" message \"blocked: \" + f\n}"
	stmts := parse(t, src)
	fe, ok := stmts[0].(ast.ForEach)
	if !ok {
		t.Fatalf("stmts[0] = %#v, want ast.ForEach", stmts[0])
	}
	if fe.Var != "f" {
		t.Errorf("Var = %q, want f", fe.Var)
	}
	if len(fe.Body) != 1 {
		t.Fatalf("Body has %d statements, want 1", len(fe.Body))
	}
	member, ok := fe.Iterable.(ast.Member)
	if !ok || member.Property != "staged" {
		t.Fatalf("Iterable = %#v, want member access ending in .staged", fe.Iterable)
	}
}

func TestParseMacroDefAndDuplicate(t *testing.T) {
	_, err := Parse(mustTokenize(t, "macro m(x) {\nblock if x > 10 message \"big\"\n}\nmacro m(y) {\nlet z = y\n}"))
	if err == nil {
		t.Fatal("expected DuplicateMacro error")
	}
	perr, ok := err.(*Error)
	if !ok || perr.Kind != DuplicateMacro {
		t.Fatalf("err = %#v, want DuplicateMacro", err)
	}
}

func TestParseMacroCallExpression(t *testing.T) {
	stmts := parse(t, `macro m(x) { block if x > 10 message "big" }
@m(42)`)
	exprStmt, ok := stmts[1].(ast.ExprStmt)
	if !ok {
		t.Fatalf("stmts[1] = %#v, want ast.ExprStmt", stmts[1])
	}
	call, ok := exprStmt.Expr.(ast.MacroCall)
	if !ok {
		t.Fatalf("Expr = %#v, want ast.MacroCall", exprStmt.Expr)
	}
	if call.Name != "m" || len(call.Args) != 1 {
		t.Errorf("call = %#v, want name m with 1 arg", call)
	}
}

func TestParseNamespacedMacroCall(t *testing.T) {
	stmts := parse(t, `@ns:name(1, 2)`)
	exprStmt := stmts[0].(ast.ExprStmt)
	call := exprStmt.Expr.(ast.MacroCall)
	if call.Namespace != "ns" || call.Name != "name" || len(call.Args) != 2 {
		t.Errorf("call = %#v, want ns:name(1,2)", call)
	}
}

func TestParseImportWithAlias(t *testing.T) {
	stmts := parse(t, `import "lib.ghook" as lib`)
	imp, ok := stmts[0].(ast.Import)
	if !ok {
		t.Fatalf("stmts[0] = %#v, want ast.Import", stmts[0])
	}
	if imp.Path != "lib.ghook" || imp.Alias != "lib" {
		t.Errorf("imp = %#v, want {lib.ghook, lib}", imp)
	}
}

func TestParsePrecedence(t *testing.T) {
	stmts := parse(t, `let x = 1 + 2 * 3 == 7 and not false`)
	let := stmts[0].(ast.Let)
	top, ok := let.Expr.(ast.Binary)
	if !ok || top.Op != ast.BinAnd {
		t.Fatalf("top-level op = %#v, want BinAnd", let.Expr)
	}
	eq, ok := top.Left.(ast.Binary)
	if !ok || eq.Op != ast.BinEq {
		t.Fatalf("left of 'and' = %#v, want BinEq", top.Left)
	}
	add, ok := eq.Left.(ast.Binary)
	if !ok || add.Op != ast.BinAdd {
		t.Fatalf("left of '==' = %#v, want BinAdd", eq.Left)
	}
	mul, ok := add.Right.(ast.Binary)
	if !ok || mul.Op != ast.BinMul {
		t.Fatalf("right of '+' = %#v, want BinMul (* binds tighter)", add.Right)
	}
	not, ok := top.Right.(ast.Unary)
	if !ok || not.Op != ast.UnaryNot {
		t.Fatalf("right of 'and' = %#v, want UnaryNot", top.Right)
	}
}

func TestParseUnaryMinusBindsTighterThanMultiply(t *testing.T) {
	stmts := parse(t, `let x = -2 * 3`)
	let := stmts[0].(ast.Let)
	mul := let.Expr.(ast.Binary)
	if mul.Op != ast.BinMul {
		t.Fatalf("op = %#v, want BinMul", mul.Op)
	}
	if _, ok := mul.Left.(ast.Unary); !ok {
		t.Fatalf("left = %#v, want Unary neg", mul.Left)
	}
}

func TestParsePostfixChain(t *testing.T) {
	stmts := parse(t, `let x = git.files.staged[0]`)
	let := stmts[0].(ast.Let)
	idx, ok := let.Expr.(ast.Index)
	if !ok {
		t.Fatalf("Expr = %#v, want ast.Index", let.Expr)
	}
	member, ok := idx.Target.(ast.Member)
	if !ok || member.Property != "staged" {
		t.Fatalf("Target = %#v, want member access ending in .staged", idx.Target)
	}
}

func TestParseMethodCall(t *testing.T) {
	stmts := parse(t, `let r = http.get("https://example.com")`)
	let := stmts[0].(ast.Let)
	call, ok := let.Expr.(ast.Call)
	if !ok {
		t.Fatalf("Expr = %#v, want ast.Call", let.Expr)
	}
	member, ok := call.Callee.(ast.Member)
	if !ok || member.Property != "get" {
		t.Fatalf("Callee = %#v, want member access to .get", call.Callee)
	}
	if len(call.Args) != 1 {
		t.Fatalf("Args has %d elements, want 1", len(call.Args))
	}
}

func TestParseArrayLiteral(t *testing.T) {
	stmts := parse(t, `let x = [1, 2, 3]`)
	let := stmts[0].(ast.Let)
	arr, ok := let.Expr.(ast.ArrayLit)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("Expr = %#v, want 3-element ArrayLit", let.Expr)
	}
}

func TestParseStringInterpolation(t *testing.T) {
	stmts := parse(t, `let msg = "hello ${name}!"`)
	let := stmts[0].(ast.Let)
	lit, ok := let.Expr.(ast.StringLit)
	if !ok {
		t.Fatalf("Expr = %#v, want ast.StringLit", let.Expr)
	}
	if len(lit.Parts) != 3 {
		t.Fatalf("Parts has %d elements, want 3 (text, ident, text)", len(lit.Parts))
	}
	if text, ok := lit.Parts[0].(ast.StringText); !ok || text.Value != "hello " {
		t.Errorf("Parts[0] = %#v, want StringText(\"hello \")", lit.Parts[0])
	}
	if ident, ok := lit.Parts[1].(ast.Identifier); !ok || ident.Name != "name" {
		t.Errorf("Parts[1] = %#v, want Identifier(name)", lit.Parts[1])
	}
	if text, ok := lit.Parts[2].(ast.StringText); !ok || text.Value != "!" {
		t.Errorf("Parts[2] = %#v, want StringText(\"!\")", lit.Parts[2])
	}
}

func TestParseReassignment(t *testing.T) {
	stmts := parse(t, "let x = 1\nx = 2")
	let2, ok := stmts[1].(ast.Let)
	if !ok || let2.Name != "x" {
		t.Fatalf("stmts[1] = %#v, want reassignment of x", stmts[1])
	}
}

func TestParseInvalidAssignmentTarget(t *testing.T) {
	_, err := Parse(mustTokenize(t, `file.size = 5`))
	if err == nil {
		t.Fatal("expected InvalidAssignmentTarget error")
	}
	perr, ok := err.(*Error)
	if !ok || perr.Kind != InvalidAssignmentTarget {
		t.Fatalf("err = %#v, want InvalidAssignmentTarget", err)
	}
}

func TestParseGroup(t *testing.T) {
	stmts := parse(t, "group secrets {\nlet x = 1\n}")
	g, ok := stmts[0].(ast.Group)
	if !ok || g.Name != "secrets" {
		t.Fatalf("stmts[0] = %#v, want group \"secrets\"", stmts[0])
	}
}

func TestParseBreakContinue(t *testing.T) {
	stmts := parse(t, "foreach f in files {\nbreak\ncontinue\n}")
	fe := stmts[0].(ast.ForEach)
	if _, ok := fe.Body[0].(ast.Break); !ok {
		t.Errorf("Body[0] = %#v, want ast.Break", fe.Body[0])
	}
	if _, ok := fe.Body[1].(ast.Continue); !ok {
		t.Errorf("Body[1] = %#v, want ast.Continue", fe.Body[1])
	}
}

func TestParseEmptyBlock(t *testing.T) {
	stmts := parse(t, "if true {\n}")
	ifStmt := stmts[0].(ast.If)
	if len(ifStmt.Then) != 0 {
		t.Errorf("Then has %d statements, want 0", len(ifStmt.Then))
	}
}

func TestParseUnexpectedEOF(t *testing.T) {
	_, err := Parse(mustTokenize(t, `let x =`))
	if err == nil {
		t.Fatal("expected an error for incomplete let binding")
	}
}

func mustTokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q) returned error: %v", src, err)
	}
	return tokens
}
