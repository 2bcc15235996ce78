package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relstore/idxengine/internal/cond"
	"github.com/relstore/idxengine/internal/iter"
	"github.com/relstore/idxengine/internal/plan"
	"github.com/relstore/idxengine/internal/rowset"
)

// fakeSource is a plan.Source test double backed by an in-memory
// row-id set, standing in for a real bt.Tree/vec.File adapter so
// classification and combinator logic can be exercised without a page
// cache fixture.
type fakeSource struct {
	name           string
	members        []uint32
	cost           plan.Cost
	canBitSet      bool
	canSearchBit   bool
	orderField     int
	locking        bool
	checkSet       *rowset.Set
}

func newFakeSource(name string, members []uint32, opts ...func(*fakeSource)) *fakeSource {
	f := &fakeSource{name: name, members: members, orderField: -1}
	f.cost = plan.Cost{Total: float64(len(members)), TupleCount: float64(len(members)), Selectivity: 0.1, IsSetCount: true, IsSetRate: true}
	for _, o := range opts {
		o(f)
	}
	f.checkSet = rowset.FromSlice(members)
	return f
}

func withBitSet(f *fakeSource)       { f.canBitSet = true }
func withSearchByBitSet(f *fakeSource) { f.canSearchBit = true }
func withOrder(field int) func(*fakeSource) {
	return func(f *fakeSource) { f.orderField = field }
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) EstimateCost(compiled cond.Compiled, pushedBitSet bool) (plan.Cost, bool) {
	return f.cost, true
}

func (f *fakeSource) CanGetByBitSet() bool    { return f.canBitSet }
func (f *fakeSource) CanSearchByBitSet() bool { return f.canSearchBit }
func (f *fakeSource) NeedsLocking() bool      { return f.locking }
func (f *fakeSource) CanOrder(orderField int, reverse bool) bool {
	return f.orderField == orderField
}

func (f *fakeSource) OpenScan(compiled cond.Compiled, reverse bool) (iter.Source, error) {
	items := append([]uint32(nil), f.members...)
	if reverse {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return &sliceFakeSource{items: items}, nil
}

func (f *fakeSource) OpenGetByBitSet(compiled cond.Compiled) (*rowset.Set, error) {
	return rowset.FromSlice(f.members), nil
}

func (f *fakeSource) OpenSearchByBitSet(compiled cond.Compiled, pushedIn *rowset.Set) (iter.Source, error) {
	var out []uint32
	for _, m := range f.members {
		if pushedIn.Test(m) {
			out = append(out, m)
		}
	}
	return &sliceFakeSource{items: out}, nil
}

func (f *fakeSource) CheckRow(compiled cond.Compiled, rowID uint32) (bool, error) {
	return f.checkSet.Test(rowID), nil
}

type sliceFakeSource struct {
	items []uint32
	pos   int
}

func (s *sliceFakeSource) Next() (uint32, bool, error) {
	if s.pos >= len(s.items) {
		return 0, false, nil
	}
	v := s.items[s.pos]
	s.pos++
	return v, true, nil
}
func (s *sliceFakeSource) Close() error  { return nil }
func (s *sliceFakeSource) Mark()         {}
func (s *sliceFakeSource) Rewind() error { return nil }
func (s *sliceFakeSource) Reset() error  { s.pos = 0; return nil }

func drainCtx(t *testing.T, it iter.Iterator) []uint32 {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, it.Open(ctx))
	var out []uint32
	for {
		rowID, ok, err := it.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, rowID)
	}
	return out
}

func TestClassifyBucketsByCapability(t *testing.T) {
	arg := plan.NewCheckIndexArgument(1000, 500)

	bitSetFile := newFakeSource("bitset-idx", []uint32{1, 2, 3}, withBitSet)
	c, ok := arg.Consider(bitSetFile, cond.Compiled{}, -1)
	require.True(t, ok)
	assert.Equal(t, plan.BitSet, c.Bucket)

	scanFile := newFakeSource("order-idx", []uint32{4, 5}, withOrder(2))
	c2, ok := arg.Consider(scanFile, cond.Compiled{}, 2)
	require.True(t, ok)
	assert.Equal(t, plan.IndexScan, c2.Bucket)
}

func TestClassifyScanIsBetterFallsBackToNeedScan(t *testing.T) {
	arg := plan.NewCheckIndexArgument(1000, 1)
	expensive := newFakeSource("costly", []uint32{1, 2, 3}, withBitSet)
	expensive.cost.Total = 1000
	c, ok := arg.Consider(expensive, cond.Compiled{}, -1)
	require.True(t, ok)
	assert.Equal(t, plan.NeedScan, c.Bucket)
}

func TestClassifyStableSortBySelectivity(t *testing.T) {
	arg := plan.NewCheckIndexArgument(1000, 500)
	a := newFakeSource("a", []uint32{1}, withBitSet)
	a.cost.Selectivity = 0.5
	b := newFakeSource("b", []uint32{2}, withBitSet)
	b.cost.Selectivity = 0.1
	arg.Consider(a, cond.Compiled{}, -1)
	arg.Consider(b, cond.Compiled{}, -1)

	sorted := arg.Classify()
	require.Len(t, sorted, 2)
	assert.Equal(t, "b", sorted[0].File.Name())
	assert.Equal(t, "a", sorted[1].File.Name())
}

func TestAndAllBitSetIntersects(t *testing.T) {
	a := plan.NewArena()
	left := newFakeSource("left", []uint32{1, 2, 3, 4}, withBitSet)
	right := newFakeSource("right", []uint32{3, 4, 5}, withBitSet)

	leftCand := &plan.Candidate{File: left, Bucket: plan.BitSet, Cost: left.cost}
	rightCand := &plan.Candidate{File: right, Bucket: plan.BitSet, Cost: right.cost}

	leftH := a.Leaf(leftCand)
	rightH := a.Leaf(rightCand)

	and := plan.BuildAnd(a, []plan.NodeHandle{leftH, rightH}, 1000)
	assert.Equal(t, plan.BitSet, a.Node(and).Bucket)

	it, err := plan.Emit(a, and, false)
	require.NoError(t, err)
	rows := drainCtx(t, it)
	assert.ElementsMatch(t, []uint32{3, 4}, rows)
}

func TestOrAllBitSetUnions(t *testing.T) {
	a := plan.NewArena()
	left := newFakeSource("left", []uint32{1, 2}, withBitSet)
	right := newFakeSource("right", []uint32{2, 3}, withBitSet)

	leftH := a.Leaf(&plan.Candidate{File: left, Bucket: plan.BitSet, Cost: left.cost})
	rightH := a.Leaf(&plan.Candidate{File: right, Bucket: plan.BitSet, Cost: right.cost})

	or := plan.BuildOr(a, []plan.NodeHandle{leftH, rightH}, 1000)
	assert.Equal(t, plan.BitSet, a.Node(or).Bucket)

	it, err := plan.Emit(a, or, false)
	require.NoError(t, err)
	rows := drainCtx(t, it)
	assert.ElementsMatch(t, []uint32{1, 2, 3}, rows)
}

func TestOrSearchByBitSetMergesDistinct(t *testing.T) {
	a := plan.NewArena()
	left := newFakeSource("left", []uint32{1, 3, 5}, withSearchByBitSet)
	right := newFakeSource("right", []uint32{2, 3, 4}, withSearchByBitSet)

	leftH := a.Leaf(&plan.Candidate{File: left, Bucket: plan.SearchByBitSet, Cost: left.cost})
	rightH := a.Leaf(&plan.Candidate{File: right, Bucket: plan.SearchByBitSet, Cost: right.cost})

	or := plan.BuildOr(a, []plan.NodeHandle{leftH, rightH}, 1000)
	assert.Equal(t, plan.SearchByBitSet, a.Node(or).Bucket)

	it, err := plan.Emit(a, or, false)
	require.NoError(t, err)
	rows := drainCtx(t, it)
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, rows)
}

func TestNotComplementsAgainstUniverse(t *testing.T) {
	a := plan.NewArena()
	universe := newFakeSource("universe", []uint32{1, 2, 3, 4, 5}, withBitSet)
	operand := newFakeSource("operand", []uint32{2, 4}, withBitSet)

	uH := a.Leaf(&plan.Candidate{File: universe, Bucket: plan.BitSet, Cost: universe.cost})
	opH := a.Leaf(&plan.Candidate{File: operand, Bucket: plan.BitSet, Cost: operand.cost})
	notH := plan.BuildNot(a, opH, 1000)

	and := plan.BuildAnd(a, []plan.NodeHandle{uH, notH}, 1000)
	it, err := plan.Emit(a, and, false)
	require.NoError(t, err)
	rows := drainCtx(t, it)
	assert.ElementsMatch(t, []uint32{1, 3, 5}, rows)
}

func TestFetchChoosesSmallestCount(t *testing.T) {
	a := plan.NewArena()
	small := newFakeSource("small", []uint32{10}, withBitSet)
	small.cost.TupleCount = 1
	big := newFakeSource("big", []uint32{10, 20, 30}, withBitSet)
	big.cost.TupleCount = 100

	smallH := a.Leaf(&plan.Candidate{File: small, Bucket: plan.Fetch, Cost: small.cost})
	bigH := a.Leaf(&plan.Candidate{File: big, Bucket: plan.Fetch, Cost: big.cost})

	fetch := plan.BuildFetch(a, []plan.NodeHandle{smallH, bigH})
	node := a.Node(fetch)
	require.Equal(t, plan.NodePartial, node.Kind)
	require.Len(t, node.Children, 2)
	leadCand := a.Node(node.Children[0]).Candidate
	assert.Equal(t, "small", leadCand.File.Name())
}

func TestLockerAttachedWhenLockingRequired(t *testing.T) {
	a := plan.NewArena()
	locked := newFakeSource("locked", []uint32{1, 2}, withBitSet)
	locked.locking = true
	h := a.Leaf(&plan.Candidate{File: locked, Bucket: plan.BitSet, Cost: locked.cost})

	it, err := plan.Emit(a, h, false)
	require.NoError(t, err)

	var lockedRows []uint32
	locker := lockerFunc(func(rowID uint32) error {
		lockedRows = append(lockedRows, rowID)
		return nil
	})
	wrapped := plan.AttachLocker(a, h, it, locker)
	rows := drainCtx(t, wrapped)
	assert.ElementsMatch(t, []uint32{1, 2}, rows)
	assert.ElementsMatch(t, []uint32{1, 2}, lockedRows)
}

type lockerFunc func(rowID uint32) error

func (f lockerFunc) LockRow(rowID uint32) error { return f(rowID) }
