package rowset_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relstore/idxengine/internal/rowset"
)

func TestUnionIntersectDifference(t *testing.T) {
	a := rowset.FromSlice([]uint32{1, 2, 3})
	b := rowset.FromSlice([]uint32{2, 3, 4})

	require.Equal(t, []uint32{1, 2, 3, 4}, a.Union(b).Slice())
	require.Equal(t, []uint32{2, 3}, a.Intersect(b).Slice())
	require.Equal(t, []uint32{1}, a.Difference(b).Slice())
}

func TestUnionInPlaceMutatesReceiver(t *testing.T) {
	a := rowset.FromSlice([]uint32{1})
	b := rowset.FromSlice([]uint32{2})
	a.UnionInPlace(b)
	require.Equal(t, []uint32{1, 2}, a.Slice())
}

func TestTestAddRemove(t *testing.T) {
	s := rowset.New(8)
	require.True(t, s.IsEmpty())
	s.Add(5)
	require.True(t, s.Test(5))
	require.False(t, s.Test(6))
	require.False(t, s.IsEmpty())
	s.Remove(5)
	require.False(t, s.Test(5))
	require.True(t, s.IsEmpty())
}

func TestEachStopsEarly(t *testing.T) {
	s := rowset.FromSlice([]uint32{1, 2, 3, 4})
	var seen []uint32
	s.Each(func(rowID uint32) bool {
		seen = append(seen, rowID)
		return rowID < 2
	})
	require.Equal(t, []uint32{1, 2}, seen)
}

func TestCloneIsIndependent(t *testing.T) {
	a := rowset.FromSlice([]uint32{1, 2})
	b := a.Clone()
	b.Add(3)
	require.Equal(t, []uint32{1, 2}, a.Slice())
	require.Equal(t, []uint32{1, 2, 3}, b.Slice())
}

// NOT selectivity (spec §8 property 7 uses Difference to complement a
// set against the current narrowing set).
func TestDifferenceComplementsAgainstNarrowingSet(t *testing.T) {
	universe := rowset.FromSlice([]uint32{1, 2, 3, 4, 5})
	operand := rowset.FromSlice([]uint32{2, 4})
	complement := universe.Difference(operand)
	require.Equal(t, []uint32{1, 3, 5}, complement.Slice())
}
