package plan

// NodeKind tags one arena-allocated plan node, replacing the
// original's polymorphic ChosenInterface/AndImpl/OrImpl/NotImpl/
// PartialXxx class hierarchy with a single tagged variant, per spec
// §9's design note ("an arena of planner nodes with integer handles,
// tagged by a NodeKind enum, instead of a polymorphic ChosenInterface
// hierarchy — idiomatic Go prefers data-plus-switch over an interface
// per combinator").
type NodeKind int

const (
	// NodeLeaf is a single classified Candidate.
	NodeLeaf NodeKind = iota
	// NodeLeafUnknown is a leaf predicate COND could not parse
	// (spec §4.3 step 1's "cannot-use-index"). Its bucket is always
	// NeedScan, so an OR containing one is NeedScan; an AND with another
	// usable operand leads with that operand instead.
	NodeLeafUnknown
	// NodeAnd combines Children by conjunction (spec §4.4.3 AND).
	NodeAnd
	// NodeOr combines Children by disjunction (spec §4.4.3 OR).
	NodeOr
	// NodeNot complements its single child (spec §4.4.3 NOT).
	NodeNot
	// NodePartial is a Fetch combinator: one fetching child plus
	// check-per-tuple residual children (spec §4.4.3 Fetch).
	NodePartial
)

func (k NodeKind) String() string {
	switch k {
	case NodeLeafUnknown:
		return "LeafUnknown"
	case NodeAnd:
		return "And"
	case NodeOr:
		return "Or"
	case NodeNot:
		return "Not"
	case NodePartial:
		return "Partial"
	default:
		return "Leaf"
	}
}

// NodeHandle is an opaque reference into an Arena: the index of the
// node in allocation order, so the first node allocated has handle 0.
type NodeHandle int

// Node is one entry in the plan arena.
type Node struct {
	Kind      NodeKind
	Candidate *Candidate  // valid when Kind == NodeLeaf
	Children  []NodeHandle
	Cost      Cost
	Bucket    Bucket
}

// Arena owns every node of one planning pass, addressed by integer
// handle so the combinator logic never needs pointer identity or a
// garbage collector pass to detect sharing — two combinators may cheaply
// reference the same child handle.
type Arena struct {
	nodes []Node
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) alloc(n Node) NodeHandle {
	a.nodes = append(a.nodes, n)
	return NodeHandle(len(a.nodes) - 1)
}

// Node dereferences h. Panics on an out-of-range handle, the arena
// equivalent of a nil-pointer dereference — handles are only ever
// produced by this Arena's own alloc methods.
func (a *Arena) Node(h NodeHandle) *Node {
	return &a.nodes[h]
}

// Leaf allocates a classified-candidate leaf node.
func (a *Arena) Leaf(c *Candidate) NodeHandle {
	return a.alloc(Node{Kind: NodeLeaf, Candidate: c, Cost: c.Cost, Bucket: c.Bucket})
}

// LeafUnknown allocates a leaf for a predicate term COND/PLN could not
// turn into an index condition.
func (a *Arena) LeafUnknown() NodeHandle {
	return a.alloc(Node{Kind: NodeLeafUnknown, Bucket: NeedScan})
}

// And allocates a conjunction of children.
func (a *Arena) And(children []NodeHandle, cost Cost, bucket Bucket) NodeHandle {
	return a.alloc(Node{Kind: NodeAnd, Children: children, Cost: cost, Bucket: bucket})
}

// Or allocates a disjunction of children.
func (a *Arena) Or(children []NodeHandle, cost Cost, bucket Bucket) NodeHandle {
	return a.alloc(Node{Kind: NodeOr, Children: children, Cost: cost, Bucket: bucket})
}

// Not allocates a complement of a single child.
func (a *Arena) Not(child NodeHandle, cost Cost) NodeHandle {
	return a.alloc(Node{Kind: NodeNot, Children: []NodeHandle{child}, Cost: cost, Bucket: NeedScan})
}

// Partial allocates a Fetch combinator: children[0] is the fetching
// operand, children[1:] are check-per-tuple residual operands.
func (a *Arena) Partial(children []NodeHandle, cost Cost) NodeHandle {
	return a.alloc(Node{Kind: NodePartial, Children: children, Cost: cost, Bucket: Fetch})
}
