package plan

// BuildAnd classifies and allocates the AND of leaf/child candidates,
// per spec §4.4.3: "If every operand is BitSet, emit a get-bitset
// iterator that ANDs one after another (first pays full cost;
// subsequent ones are given the running bitset as search-by-bitset).
// If there is exactly one SearchByBitSet operand and the rest are
// BitSet, use the bitset result as input to the single
// searchByBitSet scan. Otherwise, scan the leading index (first
// IndexScan/SearchByBitSet/BitSet) and check the remaining predicates
// per tuple."
func BuildAnd(a *Arena, leaves []NodeHandle, tableTupleCount float64) NodeHandle {
	if len(leaves) == 0 {
		return a.LeafUnknown()
	}
	if len(leaves) == 1 {
		return leaves[0]
	}

	costs := make([]Cost, len(leaves))
	buckets := make([]Bucket, len(leaves))
	for i, h := range leaves {
		n := a.Node(h)
		costs[i] = n.Cost
		buckets[i] = n.Bucket
	}
	cost := combineAND(costs, tableTupleCount)

	if allBuckets(buckets, BitSet) {
		return a.And(leaves, cost, BitSet)
	}
	if countBucket(buckets, SearchByBitSet) == 1 && allBucketsAnyOf(buckets, SearchByBitSet, BitSet) {
		return a.And(leaves, cost, SearchByBitSet)
	}

	lead := firstUsableIndex(buckets)
	if lead < 0 {
		return a.And(leaves, cost, NeedScan)
	}
	return a.Partial(append([]NodeHandle{leaves[lead]}, withoutIndex(leaves, lead)...), cost)
}

// BuildOr classifies and allocates the OR of leaf/child candidates,
// per spec §4.4.3: "If every operand is BitSet, union their bitsets
// (optionally in parallel when no locking is required) and iterate
// the resulting bitset. If every operand is SearchByBitSet, build a
// union-distinct iterator that merges their ordered streams on
// row-id. Otherwise fall back to NeedScan."
func BuildOr(a *Arena, leaves []NodeHandle, tableTupleCount float64) NodeHandle {
	if len(leaves) == 0 {
		return a.LeafUnknown()
	}
	if len(leaves) == 1 {
		return leaves[0]
	}

	costs := make([]Cost, len(leaves))
	buckets := make([]Bucket, len(leaves))
	for i, h := range leaves {
		n := a.Node(h)
		costs[i] = n.Cost
		buckets[i] = n.Bucket
	}
	cost := combineOR(costs, tableTupleCount)

	if allBuckets(buckets, BitSet) {
		return a.Or(leaves, cost, BitSet)
	}
	if allBuckets(buckets, SearchByBitSet) {
		return a.Or(leaves, cost, SearchByBitSet)
	}
	return a.Or(leaves, cost, NeedScan)
}

// BuildNot complements operand against the table's tuple count, per
// spec §4.4.3: "NOT X is processed by X's bitset complemented against
// the current narrowing set; cost selectivity is inverted as 1 − rate
// (tuple count max(1, total − operand_tuples))."
func BuildNot(a *Arena, operand NodeHandle, tableTupleCount float64) NodeHandle {
	operandNode := a.Node(operand)
	cost := operandNode.Cost.Invert(tableTupleCount)
	bucket := NeedScan
	if operandNode.Bucket == BitSet {
		bucket = BitSet
	}
	h := a.Not(operand, cost)
	a.Node(h).Bucket = bucket
	return h
}

// BuildFetch chooses the smallest-estimated-count operand as the
// fetching operand and the rest as check-per-tuple predicates, per
// spec §4.4.3: "Choose the operand with the smallest estimated count
// as the fetching operand; the rest become check-per-tuple
// predicates."
func BuildFetch(a *Arena, leaves []NodeHandle) NodeHandle {
	if len(leaves) == 0 {
		return a.LeafUnknown()
	}
	best := 0
	for i := 1; i < len(leaves); i++ {
		if a.Node(leaves[i]).Cost.TupleCount < a.Node(leaves[best]).Cost.TupleCount {
			best = i
		}
	}
	cost := a.Node(leaves[best]).Cost
	ordered := append([]NodeHandle{leaves[best]}, withoutIndex(leaves, best)...)
	return a.Partial(ordered, cost)
}

func allBuckets(buckets []Bucket, want Bucket) bool {
	for _, b := range buckets {
		if b != want {
			return false
		}
	}
	return true
}

func allBucketsAnyOf(buckets []Bucket, a, b Bucket) bool {
	for _, v := range buckets {
		if v != a && v != b {
			return false
		}
	}
	return true
}

func countBucket(buckets []Bucket, want Bucket) int {
	n := 0
	for _, b := range buckets {
		if b == want {
			n++
		}
	}
	return n
}

// firstUsableIndex returns the index of the first IndexScan,
// SearchByBitSet, or BitSet bucket, or -1 if none.
func firstUsableIndex(buckets []Bucket) int {
	for i, b := range buckets {
		if b == IndexScan || b == SearchByBitSet || b == BitSet {
			return i
		}
	}
	return -1
}

func withoutIndex(handles []NodeHandle, skip int) []NodeHandle {
	out := make([]NodeHandle, 0, len(handles)-1)
	for i, h := range handles {
		if i == skip {
			continue
		}
		out = append(out, h)
	}
	return out
}
