// Package parser implements githook's statement parser and Pratt-style
// expression parser.
//
// It uses a token-slice cursor with cur/advance/check/expect helpers and an
// `illegalToken`-style error carrying a span plus expected/got
// description. The precedence-climbing expression parser is built
// directly from the operator precedence table in the language grammar.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scholzdev/githook/ast"
	"github.com/scholzdev/githook/lexer"
	"github.com/scholzdev/githook/span"
	"github.com/scholzdev/githook/token"
)

// ErrorKind identifies the category of a parse Error.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	UnexpectedEOF
	DuplicateMacro
	InvalidAssignmentTarget
	InvalidImport
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "unexpected token"
	case UnexpectedEOF:
		return "unexpected end of file"
	case DuplicateMacro:
		return "duplicate macro"
	case InvalidAssignmentTarget:
		return "invalid assignment target"
	case InvalidImport:
		return "invalid import"
	default:
		return "parse error"
	}
}

// Error is returned when the parser cannot build a valid statement from the
// token stream.
type Error struct {
	Kind    ErrorKind
	Span    span.Span
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span, e.Kind, e.Message)
}

// Precedence levels, low to high, per spec.md §4.2.
const (
	precLowest = iota
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
)

var binaryPrecedence = map[token.Type]int{
	token.OR:      precOr,
	token.AND:     precAnd,
	token.EQ:      precEquality,
	token.NEQ:     precEquality,
	token.LT:      precRelational,
	token.LTE:     precRelational,
	token.GT:      precRelational,
	token.GTE:     precRelational,
	token.PLUS:    precAdditive,
	token.MINUS:   precAdditive,
	token.STAR:    precMultiplicative,
	token.SLASH:   precMultiplicative,
	token.PERCENT: precMultiplicative,
}

var binaryOp = map[token.Type]ast.BinaryOp{
	token.OR:      ast.BinOr,
	token.AND:     ast.BinAnd,
	token.EQ:      ast.BinEq,
	token.NEQ:     ast.BinNeq,
	token.LT:      ast.BinLt,
	token.LTE:     ast.BinLte,
	token.GT:      ast.BinGt,
	token.GTE:     ast.BinGte,
	token.PLUS:    ast.BinAdd,
	token.MINUS:   ast.BinSub,
	token.STAR:    ast.BinMul,
	token.SLASH:   ast.BinDiv,
	token.PERCENT: ast.BinMod,
}

// Parser is githook's recursive-descent statement parser, with a
// precedence-climbing expression parser nested inside it.
type Parser struct {
	tokens     []token.Token
	pos        int
	macroNames map[string]struct{}
}

// Parse parses a full token stream (as produced by lexer.Tokenize) into the
// sequence of top-level statements, per spec.md §4.2's contract
// `parse(tokens) -> Result<Vec<Statement>, ParseError>`.
func Parse(tokens []token.Token) ([]ast.Statement, error) {
	p := &Parser{tokens: tokens, macroNames: make(map[string]struct{})}
	var stmts []ast.Statement
	p.skipNewlines()
	for !p.check(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return stmts, err
		}
		stmts = append(stmts, stmt)
		p.skipNewlines()
	}
	return stmts, nil
}

// --- cursor helpers ------------------------------------------------------

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() token.Token {
	tok := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(typ token.Type) bool {
	return p.cur().Type == typ
}

func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) expect(typ token.Type) (token.Token, error) {
	if !p.check(typ) {
		got := p.cur()
		if got.Type == token.EOF {
			return got, &Error{Kind: UnexpectedEOF, Span: got.Span, Message: fmt.Sprintf("expected %s", typ)}
		}
		return got, &Error{
			Kind:    UnexpectedToken,
			Span:    got.Span,
			Message: fmt.Sprintf("expected %s, got %s", typ, got.Type),
		}
	}
	return p.advance(), nil
}

func combine(start, end span.Span) span.Span {
	return span.New(start.Start, end.End, start.Line, start.Column)
}

// --- statements ------------------------------------------------------------

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Type {
	case token.LET:
		return p.parseLet()
	case token.IF:
		return p.parseIf()
	case token.FOREACH:
		return p.parseForEach()
	case token.GROUP:
		return p.parseGroup()
	case token.MACRO:
		return p.parseMacroDef()
	case token.IMPORT:
		return p.parseImport()
	case token.BLOCK:
		return p.parseBlock()
	case token.BREAK:
		tok := p.advance()
		return ast.Break{Base: ast.NewBase(tok.Span)}, nil
	case token.CONTINUE:
		tok := p.advance()
		return ast.Continue{Base: ast.NewBase(tok.Span)}, nil
	default:
		return p.parseExprStatement()
	}
}

// parseBlockStatements parses a brace-delimited `{ STMT* }` body, absorbing
// blank newline terminators between statements and before the closing
// brace, per spec.md §4.2 "Blank terminators between statements are
// absorbed".
func (p *Parser) parseBlockStatements() ([]ast.Statement, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	p.skipNewlines()
	var stmts []ast.Statement
	for !p.check(token.RBRACE) {
		if p.check(token.EOF) {
			return nil, &Error{Kind: UnexpectedEOF, Span: p.cur().Span, Message: "expected '}'"}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		p.skipNewlines()
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseLet() (ast.Statement, error) {
	start := p.advance().Span // 'let'
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return ast.Let{Base: ast.NewBase(combine(start, expr.Span())), Name: nameTok.Value, Expr: expr}, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	start := p.advance().Span // 'if'
	cond, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlockStatements()
	if err != nil {
		return nil, err
	}
	endSpan := start
	if len(then) > 0 {
		endSpan = then[len(then)-1].Span()
	}
	var elseBody []ast.Statement
	if p.check(token.ELSE) {
		p.advance()
		if p.check(token.IF) {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			elseBody = []ast.Statement{elseIf}
			endSpan = elseIf.Span()
		} else {
			elseBody, err = p.parseBlockStatements()
			if err != nil {
				return nil, err
			}
			if len(elseBody) > 0 {
				endSpan = elseBody[len(elseBody)-1].Span()
			}
		}
	}
	return ast.If{Base: ast.NewBase(combine(start, endSpan)), Condition: cond, Then: then, Else: elseBody}, nil
}

func (p *Parser) parseForEach() (ast.Statement, error) {
	start := p.advance().Span // 'foreach'
	varTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlockStatements()
	if err != nil {
		return nil, err
	}
	endSpan := iterable.Span()
	if len(body) > 0 {
		endSpan = body[len(body)-1].Span()
	}
	return ast.ForEach{Base: ast.NewBase(combine(start, endSpan)), Var: varTok.Value, Iterable: iterable, Body: body}, nil
}

func (p *Parser) parseGroup() (ast.Statement, error) {
	start := p.advance().Span // 'group'
	var name string
	switch p.cur().Type {
	case token.STRING:
		name = p.advance().Value
	case token.IDENT:
		name = p.advance().Value
	default:
		got := p.cur()
		return nil, &Error{Kind: UnexpectedToken, Span: got.Span, Message: fmt.Sprintf("expected group name, got %s", got.Type)}
	}
	body, err := p.parseBlockStatements()
	if err != nil {
		return nil, err
	}
	endSpan := start
	if len(body) > 0 {
		endSpan = body[len(body)-1].Span()
	}
	return ast.Group{Base: ast.NewBase(combine(start, endSpan)), Name: name, Body: body}, nil
}

func (p *Parser) parseMacroDef() (ast.Statement, error) {
	start := p.advance().Span // 'macro'
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, dup := p.macroNames[nameTok.Value]; dup {
		return nil, &Error{Kind: DuplicateMacro, Span: nameTok.Span, Message: fmt.Sprintf("macro %q is already defined in this file", nameTok.Value)}
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	if !p.check(token.RPAREN) {
		for {
			paramTok, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			params = append(params, paramTok.Value)
			if p.check(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlockStatements()
	if err != nil {
		return nil, err
	}
	p.macroNames[nameTok.Value] = struct{}{}
	endSpan := start
	if len(body) > 0 {
		endSpan = body[len(body)-1].Span()
	}
	return ast.MacroDef{Base: ast.NewBase(combine(start, endSpan)), Name: nameTok.Value, Params: params, Body: body}, nil
}

func (p *Parser) parseImport() (ast.Statement, error) {
	start := p.advance().Span // 'import'
	pathTok, err := p.expect(token.STRING)
	if err != nil {
		return nil, err
	}
	if pathTok.Value == "" {
		return nil, &Error{Kind: InvalidImport, Span: pathTok.Span, Message: "import path must not be empty"}
	}
	end := pathTok.Span
	alias := ""
	if p.check(token.AS) {
		p.advance()
		aliasTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		alias = aliasTok.Value
		end = aliasTok.Span
	}
	return ast.Import{Base: ast.NewBase(combine(start, end)), Path: pathTok.Value, Alias: alias}, nil
}

func (p *Parser) parseBlock() (ast.Statement, error) {
	start := p.advance().Span // 'block'
	if _, err := p.expect(token.IF); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.MESSAGE); err != nil {
		return nil, err
	}
	msg, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	return ast.Block{Base: ast.NewBase(combine(start, msg.Span())), Condition: cond, Message: msg}, nil
}

func (p *Parser) parseExprStatement() (ast.Statement, error) {
	start := p.cur().Span
	expr, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}
	if p.check(token.ASSIGN) {
		ident, ok := expr.(ast.Identifier)
		if !ok {
			return nil, &Error{
				Kind:    InvalidAssignmentTarget,
				Span:    expr.Span(),
				Message: "left-hand side of '=' must be a plain variable name",
			}
		}
		p.advance()
		rhs, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		return ast.Let{Base: ast.NewBase(combine(start, rhs.Span())), Name: ident.Name, Expr: rhs}, nil
	}
	return ast.ExprStmt{Base: ast.NewBase(expr.Span()), Expr: expr}, nil
}

// --- expressions -----------------------------------------------------------

func (p *Parser) parseExpression(minPrec int) (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := binaryPrecedence[p.cur().Type]
		if !ok || prec < minPrec {
			break
		}
		opTok := p.advance()
		right, err := p.parseExpression(prec + 1) // left-associative
		if err != nil {
			return nil, err
		}
		left = ast.Binary{
			Base:  ast.NewBase(combine(left.Span(), right.Span())),
			Op:    binaryOp[opTok.Type],
			Left:  left,
			Right: right,
		}
	}
	return left, nil
}

// parseUnary handles the two prefix operators. `not` sits below equality in
// spec.md §4.2's precedence table, so its operand is parsed at equality
// precedence: `not a == b` parses as `not (a == b)`. Unary `-` sits above
// multiplicative, so it binds tighter than any binary operator.
func (p *Parser) parseUnary() (ast.Expression, error) {
	switch p.cur().Type {
	case token.NOT:
		start := p.advance().Span
		operand, err := p.parseExpression(precEquality)
		if err != nil {
			return nil, err
		}
		return ast.Unary{Base: ast.NewBase(combine(start, operand.Span())), Op: ast.UnaryNot, Operand: operand}, nil
	case token.MINUS:
		start := p.advance().Span
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Base: ast.NewBase(combine(start, operand.Span())), Op: ast.UnaryNeg, Operand: operand}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case token.DOT:
			p.advance()
			// Keywords are valid property names after '.', e.g. `git.commit.message`.
			nameTok := p.cur()
			if token.LookupIdent(nameTok.Value) != nameTok.Type {
				_, err := p.expect(token.IDENT)
				return nil, err
			}
			p.advance()
			member := ast.Member{Base: ast.NewBase(combine(expr.Span(), nameTok.Span)), Target: expr, Property: nameTok.Value}
			if p.check(token.LPAREN) {
				args, endSpan, err := p.parseArgList()
				if err != nil {
					return nil, err
				}
				expr = ast.Call{Base: ast.NewBase(combine(expr.Span(), endSpan)), Callee: member, Args: args}
			} else {
				expr = member
			}
		case token.LBRACKET:
			p.advance()
			idx, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			end, err := p.expect(token.RBRACKET)
			if err != nil {
				return nil, err
			}
			expr = ast.Index{Base: ast.NewBase(combine(expr.Span(), end.Span)), Target: expr, Index: idx}
		case token.LPAREN:
			args, endSpan, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			expr = ast.Call{Base: ast.NewBase(combine(expr.Span(), endSpan)), Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

// parseArgList parses a parenthesised, comma-separated argument list,
// assuming the cursor sits on the opening '('. Returns the closing paren's
// span as the list's end.
func (p *Parser) parseArgList() ([]ast.Expression, span.Span, error) {
	p.advance() // '('
	var args []ast.Expression
	if !p.check(token.RPAREN) {
		for {
			arg, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, span.Span{}, err
			}
			args = append(args, arg)
			if p.check(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	end, err := p.expect(token.RPAREN)
	if err != nil {
		return nil, span.Span{}, err
	}
	return args, end.Span, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok := p.cur()
	switch tok.Type {
	case token.NUMBER:
		p.advance()
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, &Error{Kind: UnexpectedToken, Span: tok.Span, Message: fmt.Sprintf("invalid number literal %q", tok.Value)}
		}
		return ast.NumberLit{Base: ast.NewBase(tok.Span), Value: value}, nil
	case token.STRING:
		p.advance()
		return parseStringInterpolation(tok)
	case token.TRUE:
		p.advance()
		return ast.BoolLit{Base: ast.NewBase(tok.Span), Value: true}, nil
	case token.FALSE:
		p.advance()
		return ast.BoolLit{Base: ast.NewBase(tok.Span), Value: false}, nil
	case token.NULL:
		p.advance()
		return ast.NullLit{Base: ast.NewBase(tok.Span)}, nil
	case token.IDENT:
		p.advance()
		return ast.Identifier{Base: ast.NewBase(tok.Span), Name: tok.Value}, nil
	case token.AT:
		return p.parseMacroCall()
	case token.LPAREN:
		p.advance()
		expr, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case token.LBRACKET:
		return p.parseArrayLiteral()
	case token.EOF:
		return nil, &Error{Kind: UnexpectedEOF, Span: tok.Span, Message: "expected an expression"}
	default:
		return nil, &Error{Kind: UnexpectedToken, Span: tok.Span, Message: fmt.Sprintf("unexpected token %s in expression", tok.Type)}
	}
}

func (p *Parser) parseMacroCall() (ast.Expression, error) {
	start := p.advance().Span // '@'
	firstTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	namespace := ""
	name := firstTok.Value
	if p.check(token.COLON) {
		p.advance()
		nameTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		namespace = firstTok.Value
		name = nameTok.Value
	}
	args, end, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	return ast.MacroCall{Base: ast.NewBase(combine(start, end)), Namespace: namespace, Name: name, Args: args}, nil
}

func (p *Parser) parseArrayLiteral() (ast.Expression, error) {
	start := p.advance().Span // '['
	var elems []ast.Expression
	if !p.check(token.RBRACKET) {
		for {
			elem, err := p.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
			if p.check(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	end, err := p.expect(token.RBRACKET)
	if err != nil {
		return nil, err
	}
	return ast.ArrayLit{Base: ast.NewBase(combine(start, end.Span)), Elements: elems}, nil
}

// parseStringInterpolation splits a STRING token's already-escape-resolved
// value on `${...}` markers into a StringLit of alternating StringText
// chunks and parsed sub-expressions, per spec.md §4.1/§9 ("parse ${...}
// segments into an expression list at parse time").
func parseStringInterpolation(tok token.Token) (ast.Expression, error) {
	raw := tok.Value
	var parts []ast.Expression
	var text strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			if text.Len() > 0 {
				parts = append(parts, ast.StringText{Base: ast.NewBase(tok.Span), Value: text.String()})
				text.Reset()
			}
			depth := 1
			j := i + 2
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			if depth != 0 {
				return nil, &Error{Kind: UnexpectedEOF, Span: tok.Span, Message: "unterminated '${' interpolation in string literal"}
			}
			inner := raw[i+2 : j]
			innerTokens, err := lexer.Tokenize(inner)
			if err != nil {
				return nil, &Error{Kind: UnexpectedToken, Span: tok.Span, Message: fmt.Sprintf("invalid interpolated expression %q: %v", inner, err)}
			}
			sub := &Parser{tokens: innerTokens, macroNames: make(map[string]struct{})}
			expr, err := sub.parseExpression(precLowest)
			if err != nil {
				return nil, err
			}
			if !sub.check(token.EOF) {
				return nil, &Error{Kind: UnexpectedToken, Span: tok.Span, Message: fmt.Sprintf("unexpected trailing tokens in interpolated expression %q", inner)}
			}
			parts = append(parts, expr)
			i = j + 1
			continue
		}
		text.WriteByte(raw[i])
		i++
	}
	if text.Len() > 0 || len(parts) == 0 {
		parts = append(parts, ast.StringText{Base: ast.NewBase(tok.Span), Value: text.String()})
	}
	return ast.StringLit{Base: ast.NewBase(tok.Span), Parts: parts}, nil
}
