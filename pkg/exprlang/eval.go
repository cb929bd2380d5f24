package exprlang

import (
	"fmt"

	"github.com/relaykit/chainforge/pkg/value"
)

// EvalError wraps a type-violation or internal evaluation failure distinct
// from an unresolved reference, which is always a *ReferenceError instead.
type EvalError struct {
	msg string
}

func (e *EvalError) Error() string { return e.msg }

// EvalBool evaluates a parsed guard/escalation expression against ctx,
// applying short-circuit and/or and the bare-reference truthiness rule. A
// missing reference surfaces as *ReferenceError; a type-mismatched ordered
// comparison surfaces as *EvalError.
func EvalBool(n Node, ctx map[string]any) (bool, error) {
	switch t := n.(type) {
	case BinaryNode:
		switch t.Op {
		case "and":
			left, err := EvalBool(t.Left, ctx)
			if err != nil || !left {
				return false, err
			}
			return EvalBool(t.Right, ctx)
		case "or":
			left, err := EvalBool(t.Left, ctx)
			if err != nil {
				return false, err
			}
			if left {
				return true, nil
			}
			return EvalBool(t.Right, ctx)
		default:
			lv, err := evalAtomValue(t.Left, ctx)
			if err != nil {
				return false, err
			}
			rv, err := evalAtomValue(t.Right, ctx)
			if err != nil {
				return false, err
			}
			result, ordered, err := value.Compare(t.Op, lv, rv)
			if ordered {
				return false, &EvalError{msg: err.Error()}
			}
			return result, nil
		}
	case NotNode:
		v, err := EvalBool(t.Operand, ctx)
		if err != nil {
			return false, err
		}
		return !v, nil
	case RefNode, LiteralNode:
		v, err := evalAtomValue(t, ctx)
		if err != nil {
			return false, err
		}
		return value.Truthy(v), nil
	default:
		return false, &EvalError{msg: fmt.Sprintf("unknown node type %T", n)}
	}
}

func evalAtomValue(n Node, ctx map[string]any) (any, error) {
	switch t := n.(type) {
	case RefNode:
		return Resolve(t.Path, ctx)
	case LiteralNode:
		return t.Value, nil
	default:
		return nil, &EvalError{msg: fmt.Sprintf("%T is not valid in an atom position", n)}
	}
}
