package eval

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/exp/maps"

	"github.com/scholzdev/githook/span"
)

// ErrorKind identifies the category of an evaluation-time Error, matching
// spec.md §7's EvalError taxonomy.
type ErrorKind int

const (
	UndefinedVariable ErrorKind = iota
	UndefinedMacro
	NoSuchProperty
	NoSuchMethod
	TypeError
	DivisionByZero
	ArityMismatch
	NotIterable
	ImportFailed
	CycleDetected
	BreakOutsideLoop
	ContinueOutsideLoop
)

func (k ErrorKind) String() string {
	switch k {
	case UndefinedVariable:
		return "undefined variable"
	case UndefinedMacro:
		return "undefined macro"
	case NoSuchProperty:
		return "no such property"
	case NoSuchMethod:
		return "no such method"
	case TypeError:
		return "type error"
	case DivisionByZero:
		return "division by zero"
	case ArityMismatch:
		return "arity mismatch"
	case NotIterable:
		return "not iterable"
	case ImportFailed:
		return "import failed"
	case CycleDetected:
		return "import cycle detected"
	case BreakOutsideLoop:
		return "break outside loop"
	case ContinueOutsideLoop:
		return "continue outside loop"
	default:
		return "evaluation error"
	}
}

// Error is githook's evaluation-time error, carrying a Span for diagnostic
// rendering (spec.md §7: "Every error carries a Span").
type Error struct {
	Kind    ErrorKind
	Span    span.Span
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span, e.Kind, e.Message)
}

// blockedSignal is the sentinel error used to bubble a Blocked control
// signal out of an expression context (`evalExpr` returns `(Value, error)`,
// not ExecutionResult). It is produced only by a macro call whose body
// evaluates to Blocked, and is unwrapped back into an ExecutionResult at
// the statement boundary (execExprStmt, and execStatements for every other
// statement kind).
type blockedSignal struct {
	message string
}

func (b *blockedSignal) Error() string { return "blocked: " + b.message }

// suggest finds the closest fuzzy match for name among a set of keys,
// using fuzzy.RankFindNormalizedFold + sort.Sort and taking the top
// rank. Returns "" if candidates is empty or nothing matches.
func suggest(name string, candidates map[string]struct{}) string {
	names := maps.Keys(candidates)
	sort.Strings(names)
	matches := fuzzy.RankFindNormalizedFold(name, names)
	sort.Sort(matches)
	if len(matches) != 0 {
		return matches[0].Target
	}
	return ""
}

func withSuggestion(message, suggestion string) string {
	if suggestion == "" {
		return message
	}
	return fmt.Sprintf("%s (did you mean %q?)", message, suggestion)
}
