package exprlang

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relaykit/chainforge/pkg/value"
)

// ReferenceError reports a '$path' reference that could not be resolved
// against a context, because the base step id is absent (never ran,
// skipped, or errored) or a dotted segment does not exist in its output.
type ReferenceError struct {
	Path string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference $%s", e.Path)
}

// fullRefPattern matches a string that is *entirely* a '$id(.segment)*'
// reference. Partial interpolation is not supported: a string merely
// containing '$' is a literal.
var fullRefPattern = regexp.MustCompile(`^\$[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// IsReferenceLiteral reports whether s is, in its entirety, a '$...'
// reference expression.
func IsReferenceLiteral(s string) bool {
	return fullRefPattern.MatchString(s)
}

// Resolve looks up a dotted '$'-less path ("s2" or "s2.level") against a
// context of completed step outputs.
func Resolve(path string, ctx map[string]any) (any, error) {
	id, rest, _ := strings.Cut(path, ".")
	base, ok := ctx[id]
	if !ok {
		return nil, &ReferenceError{Path: path}
	}
	if rest == "" {
		return base, nil
	}
	v, ok := value.Get(base, rest)
	if !ok {
		return nil, &ReferenceError{Path: path}
	}
	return v, nil
}

// ResolveArgs recursively resolves a step's args through ctx: full-string
// '$' references are resolved, maps and slices are walked element by
// element, and every other literal passes through unchanged.
func ResolveArgs(args map[string]any, ctx map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		rv, err := ResolveValue(v, ctx)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}

// ResolveValue resolves a single dynamic value (literal, reference string,
// map, or slice) against ctx.
func ResolveValue(v any, ctx map[string]any) (any, error) {
	switch t := v.(type) {
	case string:
		if IsReferenceLiteral(t) {
			return Resolve(t[1:], ctx)
		}
		return t, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			rv, err := ResolveValue(vv, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			rv, err := ResolveValue(vv, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}
