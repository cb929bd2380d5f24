package exprlang

// Node is the hand-rolled expression AST for the guard/escalation grammar
// of §4.2: or/and/not/cmp/atom/ref, nothing else. There is no arithmetic,
// no function calls, no indexing beyond dotted reference paths.
type Node interface {
	isNode()
}

// BinaryNode covers 'and', 'or', and every comparison operator. Op is one
// of "and", "or", "==", "!=", "<", "<=", ">", ">=".
type BinaryNode struct {
	Op    string
	Left  Node
	Right Node
}

// NotNode negates its operand.
type NotNode struct {
	Operand Node
}

// RefNode is a '$id(.segment)*' reference.
type RefNode struct {
	Path string // "id" or "id.segment.segment"
}

// LiteralNode is a number, string, bool, or null atom.
type LiteralNode struct {
	Value any
}

func (BinaryNode) isNode()  {}
func (NotNode) isNode()     {}
func (RefNode) isNode()     {}
func (LiteralNode) isNode() {}
