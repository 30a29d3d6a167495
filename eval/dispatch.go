package eval

import (
	"strings"

	"github.com/scholzdev/githook/value"
)

// propertyOf dispatches `target.name` per spec.md §4.3: a Handle consults
// its host object's property table, a String or Array consults a small
// fixed built-in table, anything else has no properties. The returned
// candidate set feeds "did you mean" suggestions on a miss.
func propertyOf(target value.Value, name string) (value.Value, bool, map[string]struct{}) {
	switch t := target.(type) {
	case value.Handle:
		v, ok := t.Object.Property(name)
		return v, ok, nil
	case value.String:
		return stringProperty(t, name)
	case value.Array:
		return arrayProperty(t, name)
	default:
		return nil, false, nil
	}
}

// methodOf dispatches `target.name(args...)`, mirroring propertyOf.
func methodOf(target value.Value, name string) (value.Method, bool, map[string]struct{}) {
	switch t := target.(type) {
	case value.Handle:
		m, ok := t.Object.Method(name)
		return m, ok, nil
	case value.String:
		return stringMethod(t, name)
	case value.Array:
		return arrayMethod(t, name)
	default:
		return nil, false, nil
	}
}

var stringPropertyNames = map[string]struct{}{"length": {}}

func stringProperty(s value.String, name string) (value.Value, bool, map[string]struct{}) {
	if name == "length" {
		return value.Number(len(s)), true, nil
	}
	return nil, false, stringPropertyNames
}

var stringMethodNames = map[string]struct{}{
	"upper": {}, "lower": {}, "contains": {}, "split": {}, "starts_with": {}, "ends_with": {},
}

func stringMethod(s value.String, name string) (value.Method, bool, map[string]struct{}) {
	switch name {
	case "upper":
		return func(args []value.Value) (value.Value, error) {
			return value.String(strings.ToUpper(string(s))), nil
		}, true, nil
	case "lower":
		return func(args []value.Value) (value.Value, error) {
			return value.String(strings.ToLower(string(s))), nil
		}, true, nil
	case "contains":
		return func(args []value.Value) (value.Value, error) {
			sub, err := singleStringArg("contains", args)
			if err != nil {
				return nil, err
			}
			return value.Bool(strings.Contains(string(s), string(sub))), nil
		}, true, nil
	case "split":
		return func(args []value.Value) (value.Value, error) {
			sep, err := singleStringArg("split", args)
			if err != nil {
				return nil, err
			}
			parts := strings.Split(string(s), string(sep))
			out := make(value.Array, len(parts))
			for i, p := range parts {
				out[i] = value.String(p)
			}
			return out, nil
		}, true, nil
	case "starts_with":
		return func(args []value.Value) (value.Value, error) {
			prefix, err := singleStringArg("starts_with", args)
			if err != nil {
				return nil, err
			}
			return value.Bool(strings.HasPrefix(string(s), string(prefix))), nil
		}, true, nil
	case "ends_with":
		return func(args []value.Value) (value.Value, error) {
			suffix, err := singleStringArg("ends_with", args)
			if err != nil {
				return nil, err
			}
			return value.Bool(strings.HasSuffix(string(s), string(suffix))), nil
		}, true, nil
	default:
		return nil, false, stringMethodNames
	}
}

var arrayPropertyNames = map[string]struct{}{"length": {}, "first": {}, "last": {}}

func arrayProperty(a value.Array, name string) (value.Value, bool, map[string]struct{}) {
	switch name {
	case "length":
		return value.Number(len(a)), true, nil
	case "first":
		if len(a) == 0 {
			return value.Null{}, true, nil
		}
		return a[0], true, nil
	case "last":
		if len(a) == 0 {
			return value.Null{}, true, nil
		}
		return a[len(a)-1], true, nil
	default:
		return nil, false, arrayPropertyNames
	}
}

var arrayMethodNames = map[string]struct{}{"contains": {}}

func arrayMethod(a value.Array, name string) (value.Method, bool, map[string]struct{}) {
	if name != "contains" {
		return nil, false, arrayMethodNames
	}
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, &value.TypeError{Op: "contains", Left: "arity mismatch"}
		}
		for _, elem := range a {
			if value.Equal(elem, args[0]) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	}, true, nil
}

func singleStringArg(op string, args []value.Value) (value.String, error) {
	if len(args) != 1 {
		return "", &value.TypeError{Op: op, Left: "arity mismatch"}
	}
	s, ok := args[0].(value.String)
	if !ok {
		return "", &value.TypeError{Op: op, Left: args[0].Kind(), Right: "string"}
	}
	return s, nil
}
