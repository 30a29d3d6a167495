// Package lexer implements githook's single-pass, state-function lexer.
//
// The state-function shape (a lexFn returns the next lexFn) is based on
// Rob Pike's "Lexical Scanning in Go". Tokens are appended directly to a
// slice rather than streamed over a channel from a goroutine: githook's
// evaluator is deliberately single-threaded (spec.md §5) and a hook
// script is typically under 200 lines, so there is nothing to gain from
// overlapping lexing with parsing, and a slice keeps Tokenize's contract
// a plain `(source string) -> ([]Token, error)` function.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/scholzdev/githook/span"
	"github.com/scholzdev/githook/token"
)

const eof = -1

// multipliers maps a case-folded size-unit suffix to its power-of-1024
// multiplier, per spec.md §4.1: "Multiplier is 1024^k where k in {1,2,3,4}".
var multipliers = map[string]float64{
	"kb": 1024,
	"mb": 1024 * 1024,
	"gb": 1024 * 1024 * 1024,
	"tb": 1024 * 1024 * 1024 * 1024,
}

// Error is returned when the lexer encounters source it cannot tokenize.
type Error struct {
	Span    span.Span
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Message)
}

// lexFn represents the lexer's current state as a function returning the
// next state; a nil return terminates the scan.
type lexFn func(*lexer) lexFn

// lexer is githook's lexical scanner.
type lexer struct {
	input     string
	start     int // Byte offset of the current token's start
	pos       int // Current byte offset
	width     int // Width in bytes of the last rune read
	line      int // Current 1-indexed line
	col       int // Current 1-indexed column
	startLine int
	startCol  int
	tokens    []token.Token
	err       *Error
}

// Tokenize scans source into a slice of spanned tokens, terminated by a
// single EOF token, or returns a lex Error on the first unrecognised
// input.
func Tokenize(source string) ([]token.Token, error) {
	l := &lexer{input: source, line: 1, col: 1, startLine: 1, startCol: 1}
	for state := lexFn(lexStart); state != nil; {
		state = state(l)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.tokens, nil
}

func (l *lexer) rest() string {
	if l.pos >= len(l.input) {
		return ""
	}
	return l.input[l.pos:]
}

func (l *lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *lexer) next() rune {
	if l.atEOF() {
		l.width = 0
		return eof
	}
	r, width := utf8.DecodeRuneInString(l.rest())
	l.width = width
	l.pos += width
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) peek() rune {
	if l.atEOF() {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.rest())
	return r
}

func (l *lexer) peekAt(offset int) rune {
	rest := l.rest()
	for i := 0; i < offset; i++ {
		if rest == "" {
			return eof
		}
		_, w := utf8.DecodeRuneInString(rest)
		rest = rest[w:]
	}
	if rest == "" {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return r
}

func (l *lexer) backup() {
	l.pos -= l.width
	if l.width == 1 && l.pos < len(l.input) && l.input[l.pos] == '\n' {
		l.line--
	} else {
		l.col--
	}
}

// mark captures the lexer's current position as the start of the next
// emitted token.
func (l *lexer) mark() {
	l.start = l.pos
	l.startLine = l.line
	l.startCol = l.col
}

func (l *lexer) emit(typ token.Type) {
	l.tokens = append(l.tokens, token.Token{
		Type:  typ,
		Value: l.input[l.start:l.pos],
		Span:  span.New(l.start, l.pos, l.startLine, l.startCol),
	})
	l.mark()
}

func (l *lexer) emitValue(typ token.Type, value string) {
	l.tokens = append(l.tokens, token.Token{
		Type:  typ,
		Value: value,
		Span:  span.New(l.start, l.pos, l.startLine, l.startCol),
	})
	l.mark()
}

func (l *lexer) errorf(format string, args ...interface{}) lexFn {
	l.err = &Error{
		Span:    span.New(l.start, l.pos, l.startLine, l.startCol),
		Message: fmt.Sprintf(format, args...),
	}
	return nil
}

// lexStart is the lexer's top-level dispatch, consulted between tokens.
func lexStart(l *lexer) lexFn {
	l.mark()
	r := l.next()

	switch {
	case r == eof:
		l.backup()
		l.emit(token.EOF)
		return nil
	case r == '\n':
		// Consecutive newlines (and the whitespace between them) collapse
		// to a single terminator token, per spec.md §4.1.
		for {
			p := l.peek()
			if p == '\n' || isSpace(p) {
				l.next()
				continue
			}
			break
		}
		l.emit(token.NEWLINE)
		return lexStart
	case isSpace(r):
		l.mark()
		return lexStart
	case r == '#':
		return lexComment
	case r == '"':
		return lexString
	case unicode.IsDigit(r):
		l.backup()
		return lexNumber
	case unicode.IsLetter(r) || r == '_':
		l.backup()
		return lexIdent
	default:
		l.backup()
		return lexOperator
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r'
}

func lexComment(l *lexer) lexFn {
	for {
		r := l.peek()
		if r == '\n' || r == eof {
			break
		}
		l.next()
	}
	l.mark() // Comments are skipped, not emitted
	return lexStart
}

func lexIdent(l *lexer) lexFn {
	for isIdentRune(l.peek()) {
		l.next()
	}
	value := l.input[l.start:l.pos]
	typ := token.LookupIdent(value)
	l.emit(typ)
	return lexStart
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// lexNumber scans a number literal, applying a trailing KB/MB/GB/TB
// multiplier (case-insensitive) per spec.md §4.1. The emitted token's
// Value already holds the scaled decimal value.
func lexNumber(l *lexer) lexFn {
	for unicode.IsDigit(l.peek()) {
		l.next()
	}
	if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
		l.next()
		for unicode.IsDigit(l.peek()) {
			l.next()
		}
	}
	numText := l.input[l.start:l.pos]

	// A size-unit suffix is exactly two letters drawn from KB/MB/GB/TB.
	var unit string
	if unicode.IsLetter(l.peek()) && unicode.IsLetter(l.peekAt(1)) {
		unit = string(l.next()) + string(l.next())
	}

	if isIdentRune(l.peek()) {
		// Trailing identifier characters after the digits (and any unit)
		// make this a bad numeric literal either way.
		for isIdentRune(l.peek()) {
			l.next()
		}
		return l.errorf("invalid number literal %q", l.input[l.start:l.pos])
	}

	value, err := strconv.ParseFloat(numText, 64)
	if err != nil {
		return l.errorf("invalid number literal %q", numText)
	}

	if unit != "" {
		mult, ok := multipliers[strings.ToLower(unit)]
		if !ok {
			return l.errorf("invalid size unit %q", unit)
		}
		value *= mult
	}

	l.emitValue(token.NUMBER, strconv.FormatFloat(value, 'g', -1, 64))
	return lexStart
}

// lexString scans a double-quoted string literal. Escapes are resolved
// in-place; `${...}` interpolation markers are left untouched in the
// emitted Value since per spec.md §4.1 interpolation is parsed as
// sub-expressions downstream, by the parser (chosen consistently, per §9).
func lexString(l *lexer) lexFn {
	var sb strings.Builder
	for {
		r := l.next()
		switch {
		case r == '"':
			l.emitValue(token.STRING, sb.String())
			return lexStart
		case r == eof || r == '\n':
			return l.errorf("unterminated string literal")
		case r == '\\':
			esc := l.next()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case eof:
				return l.errorf("unterminated string literal")
			default:
				return l.errorf("invalid escape sequence '\\%c'", esc)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

// operators is checked longest-match-first so e.g. "==" is preferred over
// "=" per spec.md §4.1.
var operators = []struct {
	text string
	typ  token.Type
}{
	{"==", token.EQ},
	{"!=", token.NEQ},
	{"<=", token.LTE},
	{">=", token.GTE},
	{"(", token.LPAREN},
	{")", token.RPAREN},
	{"{", token.LBRACE},
	{"}", token.RBRACE},
	{"[", token.LBRACKET},
	{"]", token.RBRACKET},
	{",", token.COMMA},
	{".", token.DOT},
	{":", token.COLON},
	{"=", token.ASSIGN},
	{"<", token.LT},
	{">", token.GT},
	{"+", token.PLUS},
	{"-", token.MINUS},
	{"*", token.STAR},
	{"/", token.SLASH},
	{"%", token.PERCENT},
	{"@", token.AT},
}

func lexOperator(l *lexer) lexFn {
	for _, op := range operators {
		if strings.HasPrefix(l.rest(), op.text) {
			for range op.text {
				l.next()
			}
			l.emit(op.typ)
			return lexStart
		}
	}
	r := l.next()
	return l.errorf("unexpected character %q", r)
}
