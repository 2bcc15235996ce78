package plan

import (
	"github.com/relstore/idxengine/internal/bt"
	"github.com/relstore/idxengine/internal/cond"
	"github.com/relstore/idxengine/internal/iter"
	"github.com/relstore/idxengine/internal/rowset"
)

// BTSource adapts a *bt.Tree into plan.Source, grounded on spec
// §4.4.1's "ask it for an AccessPlan::Cost" and §4.1's BT operation
// set. Tuple size and table tuple count are supplied by the caller
// (the logical table description PLN is given), since BT itself has
// no notion of "the whole table" beyond its own key range.
type BTSource struct {
	name            string
	tree            *bt.Tree
	orderField      int
	tupleSize       float64
	tableTupleCount float64
	locking         bool

	bitsetCache *rowset.Set
}

// NewBTSource wraps tree as a candidate file over orderField (the
// leading key field this index is built on).
func NewBTSource(name string, tree *bt.Tree, orderField int, tupleSize, tableTupleCount float64, locking bool) *BTSource {
	return &BTSource{
		name:            name,
		tree:            tree,
		orderField:      orderField,
		tupleSize:       tupleSize,
		tableTupleCount: tableTupleCount,
		locking:         locking,
	}
}

func (b *BTSource) Name() string { return b.name }

func (b *BTSource) EstimateCost(compiled cond.Compiled, pushedBitSet bool) (Cost, bool) {
	if compiled.Lower == nil && compiled.Upper == nil && len(compiled.Residual) == 0 {
		return Cost{}, false
	}
	lower, upper := limitBuffers(compiled)
	count, err := b.tree.EstimateCount(lower, upper)
	if err != nil {
		return Cost{}, false
	}
	tupleCount := float64(count)
	selectivity := 1.0
	if b.tableTupleCount > 0 {
		selectivity = tupleCount / b.tableTupleCount
	}
	overhead := 1.0
	total := overhead + tupleCount*(1+b.tupleSize/64)
	return Cost{
		Overhead:    overhead,
		Total:       total,
		TupleCount:  tupleCount,
		TupleSize:   b.tupleSize,
		Selectivity: selectivity,
		IsSetCount:  true,
		IsSetRate:   true,
	}, true
}

func (b *BTSource) CanGetByBitSet() bool     { return true }
func (b *BTSource) CanSearchByBitSet() bool  { return true }
func (b *BTSource) NeedsLocking() bool       { return b.locking }

func (b *BTSource) CanOrder(orderField int, reverse bool) bool {
	return orderField == b.orderField
}

func (b *BTSource) OpenScan(compiled cond.Compiled, reverse bool) (iter.Source, error) {
	lower, _ := limitBuffers(compiled)
	cursor, err := b.tree.Search(lower, reverse)
	if err != nil {
		return nil, err
	}
	return &btCursorSource{cursor: cursor, upper: upperBuffer(compiled), tree: b.tree}, nil
}

func (b *BTSource) OpenGetByBitSet(compiled cond.Compiled) (*rowset.Set, error) {
	lower, upper := limitBuffers(compiled)
	out := rowset.New(0)
	if err := b.tree.GetByBitSet(lower, upper, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BTSource) OpenSearchByBitSet(compiled cond.Compiled, pushedIn *rowset.Set) (iter.Source, error) {
	src, err := b.OpenScan(compiled, false)
	if err != nil {
		return nil, err
	}
	return &filteredSource{src: src, allow: pushedIn}, nil
}

// CheckRow re-evaluates compiled against rowID. BT indexes by key, not
// by row-id, so there is no direct point lookup by row-id; this
// materialises (and caches, since a plan reuses the same Candidate
// across many check-per-tuple calls) the full matching bitset once and
// tests membership.
func (b *BTSource) CheckRow(compiled cond.Compiled, rowID uint32) (bool, error) {
	if b.bitsetCache == nil {
		set, err := b.OpenGetByBitSet(compiled)
		if err != nil {
			return false, err
		}
		b.bitsetCache = set
	}
	return b.bitsetCache.Test(rowID), nil
}

func limitBuffers(compiled cond.Compiled) (lower, upper []byte) {
	if compiled.Lower != nil {
		lower = compiled.Lower.Buffer
	}
	if compiled.Upper != nil {
		upper = compiled.Upper.Buffer
	}
	return lower, upper
}

func upperBuffer(compiled cond.Compiled) []byte {
	if compiled.Upper != nil {
		return compiled.Upper.Buffer
	}
	return nil
}

// btCursorSource adapts *bt.Cursor to iter.Source, decoding each
// row's leading row-id field and stopping once the cursor's key
// exceeds upper (bt.Cursor itself has no upper-bound awareness).
type btCursorSource struct {
	cursor *bt.Cursor
	tree   *bt.Tree
	upper  []byte
	done   bool
}

func (s *btCursorSource) Next() (uint32, bool, error) {
	if s.done {
		return 0, false, nil
	}
	key, value, ok, err := s.cursor.Get()
	if err != nil || !ok {
		s.done = true
		return 0, false, err
	}
	if s.upper != nil && s.tree.Compare(key, s.upper) > 0 {
		s.done = true
		return 0, false, nil
	}
	return bt.DecodeRowID(value), true, nil
}

func (s *btCursorSource) Close() error  { return nil }
func (s *btCursorSource) Mark()         { s.cursor.Mark() }
func (s *btCursorSource) Rewind() error { s.cursor.Rewind(); return nil }
func (s *btCursorSource) Reset() error  { s.cursor.Reset(); s.done = false; return nil }

// filteredSource wraps an iter.Source, yielding only row-ids present
// in allow, used for a SearchByBitSet candidate's narrowed scan.
type filteredSource struct {
	src   iter.Source
	allow *rowset.Set
}

func (f *filteredSource) Next() (uint32, bool, error) {
	for {
		rowID, ok, err := f.src.Next()
		if err != nil || !ok {
			return 0, ok, err
		}
		if f.allow.Test(rowID) {
			return rowID, true, nil
		}
	}
}

func (f *filteredSource) Close() error  { return f.src.Close() }
func (f *filteredSource) Mark()         { f.src.Mark() }
func (f *filteredSource) Rewind() error { return f.src.Rewind() }
func (f *filteredSource) Reset() error  { return f.src.Reset() }
