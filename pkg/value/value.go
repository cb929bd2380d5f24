// Package value defines the dynamic data universe shared by plan context,
// tool arguments, and tool outputs: nil, bool, float64, string, []any and
// map[string]any, the same shapes encoding/json already produces.
package value

import (
	"fmt"
	"sort"
	"strings"
)

// Get walks a dotted path ("level" or "a.b.c") through v, which must be a
// map[string]any at each traversal step. It reports ok=false if any segment
// is missing or the value at that point is not a map.
func Get(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	segments := strings.Split(path, ".")
	cur := v
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		next, present := m[seg]
		if !present {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Truthy applies the guard language's truthiness rule: non-empty,
// non-zero, non-false, non-null.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// IsNumber reports whether v is a numeric value in this universe.
func IsNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

// Compare implements the three-tier comparison rule used by the guard
// language's ordered and equality operators: numeric when both sides are
// numbers, lexical when both sides are strings, equality-only otherwise.
// op is one of "==", "!=", "<", "<=", ">", ">=". ordered reports whether an
// ordered comparison was requested between operands that don't support
// ordering (equality-only types), which callers surface as ExpressionError.
func Compare(op string, left, right any) (result bool, ordered bool, err error) {
	if ln, lok := IsNumber(left); lok {
		if rn, rok := IsNumber(right); rok {
			return compareOrdered(op, ln, rn), false, nil
		}
	}
	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok {
			return compareOrdered(op, ls, rs), false, nil
		}
	}
	switch op {
	case "==":
		return DeepEqual(left, right), false, nil
	case "!=":
		return !DeepEqual(left, right), false, nil
	default:
		return false, true, fmt.Errorf("cannot order-compare %s and %s with %q", typeName(left), typeName(right), op)
	}
}

func compareOrdered[T float64 | string](op string, l, r T) bool {
	switch op {
	case "==":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64, int:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// DeepEqual compares two dynamic values structurally.
func DeepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, present := bv[k]
			if !present || !DeepEqual(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		an, aok := IsNumber(a)
		bn, bok := IsNumber(b)
		if aok && bok {
			return an == bn
		}
		return a == b
	}
}

// DeepCopy returns a structural copy of v so that callers handed a value out
// of a shared context cannot mutate the owner's copy.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = DeepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = DeepCopy(vv)
		}
		return out
	default:
		return v
	}
}

// SortedKeys returns the keys of m in sorted order, useful for deterministic
// error messages and diagram rendering.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
