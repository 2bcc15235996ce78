// Package cond compiles a predicate-tree fragment into the lower/upper
// key bounds and residual checks a B⁺-tree scan needs, ADAPTED from
// original_source/Driver/Btree2/Btree2/Condition.h: the C++
// Condition::LimitCond/Cond/ParseValue triple maps onto Go structs of
// the same shape, and the text serialisation that crosses the COND →
// BT/VEC boundary is reproduced byte-for-byte (spec §4.3's round-trip
// invariant).
package cond

import "github.com/relstore/idxengine/internal/kernel"

// MatchKind is one parsed predicate term's shape, ADAPTED from the
// teacher's TreeNodeInterface::Type values actually handled by
// Condition::parse.
type MatchKind int

const (
	Undefined MatchKind = iota
	Equals
	NotEquals
	GreaterThan
	GreaterThanEquals
	LessThan
	LessThanEquals
	EqualsToNull
	Like
	Unknown
)

func (k MatchKind) String() string {
	switch k {
	case Equals:
		return "Equals"
	case NotEquals:
		return "NotEquals"
	case GreaterThan:
		return "GreaterThan"
	case GreaterThanEquals:
		return "GreaterThanEquals"
	case LessThan:
		return "LessThan"
	case LessThanEquals:
		return "LessThanEquals"
	case EqualsToNull:
		return "EqualsToNull"
	case Like:
		return "Like"
	case Unknown:
		return "Unknown"
	default:
		return "Undefined"
	}
}

// isBound reports whether k can tighten a scan's lower or upper bound.
// NotEquals, Like and EqualsToNull never bound a scan directly — they
// always end up in the residual set (spec §4.3 step 2).
func (k MatchKind) isBound() bool {
	switch k {
	case Equals, GreaterThan, GreaterThanEquals, LessThan, LessThanEquals:
		return true
	default:
		return false
	}
}

// LimitCond is a compiled scan-boundary condition, ADAPTED from the
// teacher's Condition::LimitCond: a match kind, the marshalled key
// bytes, the key's null-bitmap byte, and a bound comparator.
type LimitCond struct {
	Kind       MatchKind
	Buffer     []byte
	NullBitmap byte
	Compare    Comparator
}

func (c *LimitCond) clear() {
	c.Kind = Undefined
	c.Buffer = nil
	c.NullBitmap = 0
}

// Cond is a compiled residual (non-bound) or fetch condition, ADAPTED
// from the teacher's Condition::Cond. OptionalChar is the LIKE escape
// character when Kind == Like, or the field's padding character
// otherwise — per spec §4.3 the two uses are mutually exclusive on any
// one Cond.
type Cond struct {
	Kind         MatchKind
	Buffer       []byte
	FieldID      int
	OptionalChar rune
}

// Comparator orders two marshalled key buffers under either PAD or
// NO-PAD collation semantics (spec §3's collation model).
type Comparator interface {
	// Compare returns <0, 0, >0 as a < b, a == b, a > b.
	Compare(a, b []byte) int
}

// Collation is a field's declared string-comparison mode.
type Collation int

const (
	Pad Collation = iota
	NoPad
)

// Key is the open-option dictionary key set COND writes into and
// reads back from, ADAPTED from the teacher's Condition::Key enum.
// These map directly onto kernel.OptionKey values of the same name.
var (
	KeyConditionCount    = kernel.ConditionCount
	KeyCondition         = kernel.Condition
	KeyEqualFieldNumber  = kernel.EqualFieldNumber
	KeyReverse           = kernel.Reverse
	KeyFetchFieldNumber  = kernel.FetchFieldNumber
)

// ParseValue is one node of the singly-linked chain built while
// parsing a predicate term's value list (spec: "a lazily-linked list
// node ... carries a match kind, a string value, an optional special
// character, a normalised flag, and a next-pointer"), ADAPTED from the
// teacher's Condition::ParseValue. The chain is owned exclusively by
// its head.
type ParseValue struct {
	Kind         MatchKind
	Value        string
	OptionalChar rune
	Normalized   bool
	Next         *ParseValue
}

// Append adds a new node to the end of the chain rooted at v and
// returns the head (v itself, or the new node if v was nil).
func (v *ParseValue) Append(next *ParseValue) *ParseValue {
	if v == nil {
		return next
	}
	tail := v
	for tail.Next != nil {
		tail = tail.Next
	}
	tail.Next = next
	return v
}

// Len counts the nodes in the chain rooted at v.
func (v *ParseValue) Len() int {
	n := 0
	for p := v; p != nil; p = p.Next {
		n++
	}
	return n
}
