package eval

import (
	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/value"
)

// execStatements runs stmts in order against frame, implementing
// spec.md §4.6's "sequential stmts" propagation row: Continue advances,
// Break/ContinueLoop return immediately, and Blocked returns immediately
// unless the host runs in CollectAllBlocks mode, in which case the
// message is recorded and execution of the remaining siblings continues
// (spec.md §4.3 "Blocked is sticky").
func (e *Evaluator) execStatements(stmts []ast.Statement, frame *Frame) (ExecutionResult, error) {
	for _, stmt := range stmts {
		result, err := e.execStatement(stmt, frame)
		if blocked, ok := err.(*blockedSignal); ok {
			result, err = blockedResult(blocked.message), nil
		}
		if err != nil {
			return ExecutionResult{}, err
		}
		switch result.Kind {
		case Continue:
			continue
		case Blocked:
			if e.host.CollectAllBlocks {
				e.messages = append(e.messages, result.Message)
				continue
			}
			return result, nil
		default: // Break, ContinueLoop
			return result, nil
		}
	}
	return continueResult(), nil
}

func (e *Evaluator) execStatement(stmt ast.Statement, frame *Frame) (ExecutionResult, error) {
	switch s := stmt.(type) {
	case ast.Let:
		v, err := e.evalExpr(s.Expr, frame)
		if err != nil {
			return ExecutionResult{}, err
		}
		frame.set(s.Name, v)
		return continueResult(), nil

	case ast.If:
		cond, err := e.evalExpr(s.Condition, frame)
		if err != nil {
			return ExecutionResult{}, err
		}
		if value.Truthy(cond) {
			return e.execStatements(s.Then, frame)
		}
		return e.execStatements(s.Else, frame)

	case ast.ForEach:
		return e.execForEach(s, frame)

	case ast.Group:
		if !e.host.GroupFilter.Enabled(s.Name) {
			return continueResult(), nil
		}
		return e.execStatements(s.Body, frame)

	case ast.MacroDef:
		e.macros.define(s.Name, &macro{params: s.Params, body: s.Body, captured: frame})
		return continueResult(), nil

	case ast.Import:
		if err := e.execImport(s, frame); err != nil {
			return ExecutionResult{}, err
		}
		return continueResult(), nil

	case ast.Block:
		cond, err := e.evalExpr(s.Condition, frame)
		if err != nil {
			return ExecutionResult{}, err
		}
		if !value.Truthy(cond) {
			return continueResult(), nil
		}
		msg, err := e.evalExpr(s.Message, frame)
		if err != nil {
			return ExecutionResult{}, err
		}
		return blockedResult(value.ToString(msg)), nil

	case ast.ExprStmt:
		return e.execExprStmt(s, frame)

	case ast.Break:
		return breakResult(), nil

	case ast.Continue:
		return continueLoopResult(), nil

	default:
		return ExecutionResult{}, &Error{Kind: TypeError, Span: stmt.Span(), Message: "unknown statement node"}
	}
}

// execExprStmt runs an expression used in statement position. A bare
// MacroCall is handled specially: its own body's ExecutionResult becomes
// this statement's result directly (spec.md §4.6 "macro body" row),
// rather than being funnelled through the Blocked-as-error sentinel used
// when a MacroCall is nested inside a larger expression.
func (e *Evaluator) execExprStmt(s ast.ExprStmt, frame *Frame) (ExecutionResult, error) {
	if call, ok := s.Expr.(ast.MacroCall); ok {
		return e.callMacro(call, frame)
	}
	if _, err := e.evalExpr(s.Expr, frame); err != nil {
		if blocked, ok := err.(*blockedSignal); ok {
			return blockedResult(blocked.message), nil
		}
		return ExecutionResult{}, err
	}
	return continueResult(), nil
}

// execForEach implements spec.md §4.3's ForEach semantics: the iterable
// must be an Array, an Iterable Handle, or a String (iterated over its
// lines). Break exits the loop with Continue; ContinueLoop advances to
// the next element; Blocked short-circuits and propagates.
func (e *Evaluator) execForEach(s ast.ForEach, frame *Frame) (ExecutionResult, error) {
	iter, err := e.evalExpr(s.Iterable, frame)
	if err != nil {
		return ExecutionResult{}, err
	}
	elements, err := iterate(iter)
	if err != nil {
		return ExecutionResult{}, &Error{Kind: NotIterable, Span: s.Iterable.Span(), Message: err.Error()}
	}
	loopFrame := newFrame(frame)
	for _, elem := range elements {
		loopFrame.set(s.Var, elem)
		result, err := e.execStatements(s.Body, loopFrame)
		if err != nil {
			return ExecutionResult{}, err
		}
		switch result.Kind {
		case Break:
			return continueResult(), nil
		case ContinueLoop:
			continue
		case Blocked:
			return result, nil
		}
	}
	return continueResult(), nil
}

func iterate(v value.Value) ([]value.Value, error) {
	switch val := v.(type) {
	case value.Array:
		return append([]value.Value(nil), val...), nil
	case value.String:
		lines := splitLines(string(val))
		out := make([]value.Value, len(lines))
		for i, l := range lines {
			out[i] = value.String(l)
		}
		return out, nil
	case value.Handle:
		if it, ok := val.Object.(value.Iterable); ok {
			return it.Iterate(), nil
		}
		return nil, &value.TypeError{Op: "foreach", Left: val.Kind()}
	default:
		return nil, &value.TypeError{Op: "foreach", Left: v.Kind()}
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
