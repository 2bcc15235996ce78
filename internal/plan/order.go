package plan

import "github.com/relstore/idxengine/internal/iter"

// Order describes how a statement's required output order was
// satisfied, per spec §4.4.4: "A predicate may carry an order: if a
// candidate index can stream in the required key sequence and the
// order key is retrievable from that index, the file is chosen for
// both predicate evaluation and ordering. If the order key admits an
// alternative value ..., sub-orderings from multiple operands can be
// merged by a merge-sort iterator that emits distinct row-ids.
// Otherwise ordering is an external sort."
type Order struct {
	// Carried is true when a single candidate's own scan already
	// produces rows in the required order.
	Carried bool
	// Merged is true when multiple order-carrying candidates were
	// combined via a merge-sort/union-distinct pair.
	Merged bool
	// ExternalSort is true when no candidate can produce the required
	// order and a sort step outside this layer is required.
	ExternalSort bool
}

// ChooseCarryingCandidate returns the highest-priority (already
// selectivity-sorted) candidate able to stream directly in the
// required order, or ok=false if none can.
func ChooseCarryingCandidate(cands []*Candidate, orderField int, reverse bool) (*Candidate, bool) {
	for _, c := range cands {
		if c.OrderField == orderField && c.Reverse == reverse {
			return c, true
		}
	}
	return nil, false
}

// MergeOrderedAlternatives builds the merge-sort/union-distinct
// iterator for candidates that each carry an "alternative value"
// sub-ordering on the same field (spec §4.4.4's second case). Every
// candidate passed in must already satisfy OrderField == orderField.
func MergeOrderedAlternatives(cands []*Candidate, orderField int, reverse bool) (iter.Iterator, error) {
	children := make([]iter.Iterator, 0, len(cands))
	for _, c := range cands {
		src, err := c.File.OpenScan(c.Compiled, reverse)
		if err != nil {
			return nil, err
		}
		children = append(children, iter.Wrap(iter.NewFileScan(c.File.Name(), src)))
	}
	merged := iter.NewMergeSort(!reverse, children...)
	return iter.Wrap(iter.NewUnionDistinct(merged)), nil
}

// ResolveOrder picks the ordering strategy for a statement requiring
// orderField in the given direction, per spec §4.4.4's three cases, in
// priority order: a single carrying candidate beats a merge of
// alternatives, which beats falling back to an external sort.
func ResolveOrder(cands []*Candidate, orderField int, reverse bool) (Order, *Candidate, []*Candidate) {
	if c, ok := ChooseCarryingCandidate(cands, orderField, reverse); ok {
		return Order{Carried: true}, c, nil
	}

	var alternatives []*Candidate
	for _, c := range cands {
		if c.OrderField == orderField {
			alternatives = append(alternatives, c)
		}
	}
	if len(alternatives) > 1 {
		return Order{Merged: true}, nil, alternatives
	}

	return Order{ExternalSort: true}, nil, nil
}
