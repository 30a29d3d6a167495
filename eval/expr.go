package eval

import (
	"fmt"
	"strings"

	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/span"
	"github.com/scholzdev/githook/value"
)

// evalExpr evaluates expr against frame, returning its Value. A nested
// MacroCall whose body resolves to Blocked surfaces as a *blockedSignal
// error rather than a Value — every caller up the expression tree just
// propagates the error untouched, and the statement boundary
// (execExprStmt, execStatements) is what finally unwraps it back into an
// ExecutionResult.
func (e *Evaluator) evalExpr(expr ast.Expression, frame *Frame) (value.Value, error) {
	switch node := expr.(type) {
	case ast.NullLit:
		return value.Null{}, nil
	case ast.BoolLit:
		return value.Bool(node.Value), nil
	case ast.NumberLit:
		return value.Number(node.Value), nil
	case ast.StringText:
		return value.String(node.Value), nil
	case ast.StringLit:
		return e.evalStringLit(node, frame)
	case ast.Identifier:
		v, ok := frame.get(node.Name)
		if !ok {
			suggestion := suggest(node.Name, frame.names())
			return nil, &Error{Kind: UndefinedVariable, Span: node.Span(),
				Message: withSuggestion(fmt.Sprintf("undefined variable %q", node.Name), suggestion)}
		}
		return v, nil
	case ast.Member:
		return e.evalMember(node, frame)
	case ast.Index:
		return e.evalIndex(node, frame)
	case ast.Call:
		return e.evalCall(node, frame)
	case ast.Unary:
		return e.evalUnary(node, frame)
	case ast.Binary:
		return e.evalBinary(node, frame)
	case ast.ArrayLit:
		return e.evalArrayLit(node, frame)
	case ast.MacroCall:
		return e.evalMacroCallExpr(node, frame)
	default:
		return nil, &Error{Kind: TypeError, Span: expr.Span(), Message: "unknown expression node"}
	}
}

func (e *Evaluator) evalStringLit(node ast.StringLit, frame *Frame) (value.Value, error) {
	var b strings.Builder
	for _, part := range node.Parts {
		v, err := e.evalExpr(part, frame)
		if err != nil {
			return nil, err
		}
		b.WriteString(value.ToString(v))
	}
	return value.String(b.String()), nil
}

func (e *Evaluator) evalMember(node ast.Member, frame *Frame) (value.Value, error) {
	target, err := e.evalExpr(node.Target, frame)
	if err != nil {
		return nil, err
	}
	v, ok, candidates := propertyOf(target, node.Property)
	if !ok {
		suggestion := suggest(node.Property, candidates)
		return nil, &Error{Kind: NoSuchProperty, Span: node.Span(),
			Message: withSuggestion(fmt.Sprintf("%s has no property %q", target.Kind(), node.Property), suggestion)}
	}
	return v, nil
}

func (e *Evaluator) evalIndex(node ast.Index, frame *Frame) (value.Value, error) {
	target, err := e.evalExpr(node.Target, frame)
	if err != nil {
		return nil, err
	}
	idx, err := e.evalExpr(node.Index, frame)
	if err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case value.Array:
		n, ok := idx.(value.Number)
		if !ok {
			return nil, &Error{Kind: TypeError, Span: node.Span(), Message: "array index must be a number"}
		}
		i := int(n)
		if i < 0 || i >= len(t) {
			return value.Null{}, nil
		}
		return t[i], nil
	case value.String:
		n, ok := idx.(value.Number)
		if !ok {
			return nil, &Error{Kind: TypeError, Span: node.Span(), Message: "string index must be a number"}
		}
		i := int(n)
		if i < 0 || i >= len(t) {
			return value.Null{}, nil
		}
		return t[i : i+1], nil
	default:
		return nil, &Error{Kind: NotIterable, Span: node.Span(), Message: fmt.Sprintf("%s is not indexable", target.Kind())}
	}
}

func (e *Evaluator) evalCall(node ast.Call, frame *Frame) (value.Value, error) {
	member, ok := node.Callee.(ast.Member)
	if !ok {
		return nil, &Error{Kind: TypeError, Span: node.Span(), Message: "expression is not callable"}
	}
	target, err := e.evalExpr(member.Target, frame)
	if err != nil {
		return nil, err
	}
	method, ok, candidates := methodOf(target, member.Property)
	if !ok {
		suggestion := suggest(member.Property, candidates)
		return nil, &Error{Kind: NoSuchMethod, Span: node.Span(),
			Message: withSuggestion(fmt.Sprintf("%s has no method %q", target.Kind(), member.Property), suggestion)}
	}
	args := make([]value.Value, len(node.Args))
	for i, a := range node.Args {
		v, err := e.evalExpr(a, frame)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	result, err := method(args)
	if err != nil {
		return nil, wrapValueError(node.Span(), err)
	}
	return result, nil
}

func (e *Evaluator) evalUnary(node ast.Unary, frame *Frame) (value.Value, error) {
	operand, err := e.evalExpr(node.Operand, frame)
	if err != nil {
		return nil, err
	}
	switch node.Op {
	case ast.UnaryNot:
		return value.Bool(!value.Truthy(operand)), nil
	case ast.UnaryNeg:
		n, ok := operand.(value.Number)
		if !ok {
			return nil, &Error{Kind: TypeError, Span: node.Span(),
				Message: fmt.Sprintf("unary - not supported for %s", operand.Kind())}
		}
		return value.Number(-float64(n)), nil
	default:
		return nil, &Error{Kind: TypeError, Span: node.Span(), Message: "unknown unary operator"}
	}
}

// evalBinary implements spec.md §4.4's arithmetic/comparison/logical
// rules. And/Or short-circuit and yield the last-evaluated operand's raw
// Value rather than a forced Bool.
func (e *Evaluator) evalBinary(node ast.Binary, frame *Frame) (value.Value, error) {
	if node.Op == ast.BinAnd {
		left, err := e.evalExpr(node.Left, frame)
		if err != nil {
			return nil, err
		}
		if !value.Truthy(left) {
			return left, nil
		}
		return e.evalExpr(node.Right, frame)
	}
	if node.Op == ast.BinOr {
		left, err := e.evalExpr(node.Left, frame)
		if err != nil {
			return nil, err
		}
		if value.Truthy(left) {
			return left, nil
		}
		return e.evalExpr(node.Right, frame)
	}

	left, err := e.evalExpr(node.Left, frame)
	if err != nil {
		return nil, err
	}
	right, err := e.evalExpr(node.Right, frame)
	if err != nil {
		return nil, err
	}

	switch node.Op {
	case ast.BinAdd:
		v, err := value.Add(left, right)
		if err != nil {
			return nil, wrapValueError(node.Span(), err)
		}
		return v, nil
	case ast.BinSub, ast.BinMul, ast.BinDiv, ast.BinMod:
		v, err := value.Arithmetic(opSymbol(node.Op), left, right)
		if err != nil {
			return nil, wrapValueError(node.Span(), err)
		}
		return v, nil
	case ast.BinEq:
		return value.Bool(value.Equal(left, right)), nil
	case ast.BinNeq:
		return value.Bool(!value.Equal(left, right)), nil
	case ast.BinLt, ast.BinLte, ast.BinGt, ast.BinGte:
		cmp, err := value.Compare(left, right)
		if err != nil {
			return nil, wrapValueError(node.Span(), err)
		}
		return value.Bool(compareMatches(node.Op, cmp)), nil
	default:
		return nil, &Error{Kind: TypeError, Span: node.Span(), Message: "unknown binary operator"}
	}
}

func opSymbol(op ast.BinaryOp) string {
	switch op {
	case ast.BinSub:
		return "-"
	case ast.BinMul:
		return "*"
	case ast.BinDiv:
		return "/"
	case ast.BinMod:
		return "%"
	default:
		return ""
	}
}

func compareMatches(op ast.BinaryOp, cmp int) bool {
	switch op {
	case ast.BinLt:
		return cmp < 0
	case ast.BinLte:
		return cmp <= 0
	case ast.BinGt:
		return cmp > 0
	case ast.BinGte:
		return cmp >= 0
	default:
		return false
	}
}

func (e *Evaluator) evalArrayLit(node ast.ArrayLit, frame *Frame) (value.Value, error) {
	elements := make(value.Array, len(node.Elements))
	for i, el := range node.Elements {
		v, err := e.evalExpr(el, frame)
		if err != nil {
			return nil, err
		}
		elements[i] = v
	}
	return elements, nil
}

// evalMacroCallExpr handles a MacroCall nested inside a larger expression
// (spec.md §3: MacroCall "may appear as statement or expression"). Continue
// yields Null (the language has no explicit return value); Blocked
// surfaces as a blockedSignal for the enclosing statement boundary to catch;
// Break/ContinueLoop escaping a macro body are always errors regardless of
// call position, so callMacro has already converted them.
func (e *Evaluator) evalMacroCallExpr(node ast.MacroCall, frame *Frame) (value.Value, error) {
	result, err := e.callMacro(node, frame)
	if err != nil {
		return nil, err
	}
	if result.Kind == Blocked {
		return nil, &blockedSignal{message: result.Message}
	}
	return value.Null{}, nil
}

// callMacro resolves, binds, and runs a macro's body, shared by both the
// statement-position and expression-position call sites.
func (e *Evaluator) callMacro(call ast.MacroCall, frame *Frame) (ExecutionResult, error) {
	m, ok := e.macros.lookup(call.Namespace, call.Name)
	if !ok {
		key := call.Name
		if call.Namespace != "" {
			key = call.Namespace + ":" + call.Name
		}
		suggestion := suggest(key, e.macros.names())
		return ExecutionResult{}, &Error{Kind: UndefinedMacro, Span: call.Span(),
			Message: withSuggestion(fmt.Sprintf("undefined macro %q", key), suggestion)}
	}
	if len(call.Args) != len(m.params) {
		return ExecutionResult{}, &Error{Kind: ArityMismatch, Span: call.Span(),
			Message: fmt.Sprintf("macro %s expects %d argument(s), got %d", call.Name, len(m.params), len(call.Args))}
	}
	args := make([]value.Value, len(call.Args))
	for i, a := range call.Args {
		v, err := e.evalExpr(a, frame)
		if err != nil {
			return ExecutionResult{}, err
		}
		args[i] = v
	}
	callFrame := newFrame(m.captured)
	for i, p := range m.params {
		callFrame.set(p, args[i])
	}
	result, err := e.execStatements(m.body, callFrame)
	if err != nil {
		return ExecutionResult{}, err
	}
	switch result.Kind {
	case Break:
		return ExecutionResult{}, &Error{Kind: BreakOutsideLoop, Span: call.Span(), Message: "break outside of a foreach loop"}
	case ContinueLoop:
		return ExecutionResult{}, &Error{Kind: ContinueOutsideLoop, Span: call.Span(), Message: "continue outside of a foreach loop"}
	default:
		return result, nil
	}
}

// wrapValueError lifts a value-package sentinel error (TypeError,
// DivisionByZeroError) into an eval.Error carrying sp, so every evaluator
// error looks the same to the driver regardless of which layer raised it.
func wrapValueError(sp span.Span, err error) error {
	switch e := err.(type) {
	case *value.TypeError:
		return &Error{Kind: TypeError, Span: sp, Message: e.Error()}
	case *value.DivisionByZeroError:
		return &Error{Kind: DivisionByZero, Span: sp, Message: e.Error()}
	default:
		return err
	}
}
