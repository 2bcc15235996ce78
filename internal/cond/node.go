package cond

// Node is the only shape COND needs from the external predicate tree
// (spec §4.3: "Walk the predicate-tree node"). A real SQL layer's AST
// node implements this; COND never parses SQL itself, per the module's
// non-goal of query-language parsing.
type Node interface {
	// Kind reports this node's predicate shape.
	Kind() MatchKind
	// FieldIndex reports which field of the indexed file this node's
	// left operand (after alternation) refers to.
	FieldIndex() int
	// Operand returns this node's right-hand value operand, or nil for
	// EqualsToNull/Unknown which carry none.
	Operand() Node
	// IsFieldReference reports whether this node is a bare column
	// reference rather than a literal value.
	IsFieldReference() bool
	// Literal returns the node's literal text value. Only meaningful
	// when IsFieldReference is false.
	Literal() string
	// EscapeChar returns the LIKE escape character for a Like node, or
	// 0 if none was specified.
	EscapeChar() rune
	// Operands returns a binary comparison's two children in tree
	// order (before alternation); len is 2 for binary shapes, 0 for
	// unary/leaf shapes (EqualsToNull, Unknown).
	Operands() []Node
	// Collation reports the PAD/NO-PAD requirement the predicate tree
	// declared for this term's comparison (spec §4.3 step 3), as
	// determined by the comparison's own operand types — independent
	// of whatever collation the indexed field itself was declared
	// with. Classify compares this against the field's declared
	// collation and demotes the term to residual on mismatch.
	Collation() Collation
}
