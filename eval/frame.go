package eval

import "github.com/scholzdev/githook/value"

// Frame is one level of githook's variable scope stack (spec.md §3
// "Variable scope"). Let binds into the frame it is evaluated in;
// ForEach pushes a fresh Frame for its loop variable; If and Group
// deliberately do not push a Frame, so bindings made inside them remain
// visible after the block (spec.md §3: "assignments inside are visible
// after the block — matching dynamic-language semantics").
type Frame struct {
	vars   map[string]value.Value
	parent *Frame
}

// newFrame constructs a Frame chained to parent (nil for the outermost
// frame holding built-in bindings).
func newFrame(parent *Frame) *Frame {
	return &Frame{vars: make(map[string]value.Value), parent: parent}
}

// get resolves name by walking the frame chain from innermost to
// outermost, returning ok=false if no frame binds it.
func (f *Frame) get(name string) (value.Value, bool) {
	for fr := f; fr != nil; fr = fr.parent {
		if v, ok := fr.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// set binds name in this frame (not a parent), implementing shadowing:
// a `let` in a nested frame never mutates an outer binding of the same
// name.
func (f *Frame) set(name string, v value.Value) {
	f.vars[name] = v
}

// names collects every binding visible from f, innermost shadowing
// outermost, for "did you mean" suggestions on UndefinedVariable.
func (f *Frame) names() map[string]struct{} {
	out := make(map[string]struct{})
	for fr := f; fr != nil; fr = fr.parent {
		for k := range fr.vars {
			if _, seen := out[k]; !seen {
				out[k] = struct{}{}
			}
		}
	}
	return out
}
