package iter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relstore/idxengine/internal/iter"
	"github.com/relstore/idxengine/internal/rowset"
)

func drain(t *testing.T, it iter.Iterator) []uint32 {
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

func TestFilter(t *testing.T) {
	f := iter.NewFilter([]uint32{3, 1, 4})
	assert.Equal(t, []uint32{3, 1, 4}, drain(t, f))
}

func TestFilterMarkRewind(t *testing.T) {
	f := iter.NewFilter([]uint32{1, 2, 3, 4})
	ctx := context.Background()
	require.NoError(t, f.Open(ctx))

	v, ok, err := f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, v)

	f.Mark()

	v, ok, err = f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, v)

	require.NoError(t, f.Rewind())

	v, ok, err = f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, v)
}

func TestCheckRow(t *testing.T) {
	child := iter.NewFilter([]uint32{1, 2, 3, 4, 5})
	even := iter.NewCheckRow(child, func(rowID uint32) (bool, error) {
		return rowID%2 == 0, nil
	})
	assert.Equal(t, []uint32{2, 4}, drain(t, even))
}

func TestBitSetScan(t *testing.T) {
	set := rowset.FromSlice([]uint32{5, 1, 3})
	scan := iter.NewBitSetScan(set)
	assert.Equal(t, []uint32{1, 3, 5}, drain(t, scan))
}

func TestCheckCancelPropagatesCancellation(t *testing.T) {
	f := iter.NewFilter([]uint32{1, 2, 3})
	wrapped := iter.Wrap(f)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, wrapped.Open(ctx))
	cancel()

	_, ok, err := wrapped.Next(ctx)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCheckCancelDoesNotDoubleWrap(t *testing.T) {
	f := iter.NewFilter(nil)
	once := iter.Wrap(f)
	twice := iter.Wrap(once)
	assert.Same(t, once, twice)
}

type sliceSource struct {
	items   []uint32
	pos     int
	markPos int
}

func (s *sliceSource) Next() (uint32, bool, error) {
	if s.pos >= len(s.items) {
		return 0, false, nil
	}
	v := s.items[s.pos]
	s.pos++
	return v, true, nil
}
func (s *sliceSource) Close() error  { return nil }
func (s *sliceSource) Mark()         { s.markPos = s.pos }
func (s *sliceSource) Rewind() error { s.pos = s.markPos; return nil }
func (s *sliceSource) Reset() error  { s.pos = 0; s.markPos = 0; return nil }

func TestFileScan(t *testing.T) {
	src := &sliceSource{items: []uint32{10, 20, 30}}
	fs := iter.NewFileScan("widgets", src)
	assert.Equal(t, []uint32{10, 20, 30}, drain(t, fs))
}

func TestFileScanRewindWithoutMarkIsNoop(t *testing.T) {
	src := &sliceSource{items: []uint32{1, 2, 3}}
	fs := iter.NewFileScan("widgets", src)
	ctx := context.Background()
	require.NoError(t, fs.Open(ctx))

	v, _, _ := fs.Next(ctx)
	assert.EqualValues(t, 1, v)

	require.NoError(t, fs.Rewind())

	v, _, _ = fs.Next(ctx)
	assert.EqualValues(t, 2, v)
}

func TestLoopOnceBuildsSideEffectThenYieldsNothing(t *testing.T) {
	var built []uint32
	src := iter.NewFilter([]uint32{7, 8, 9})
	sideEffect := iter.NewCheckRow(src, func(rowID uint32) (bool, error) {
		built = append(built, rowID)
		return true, nil
	})
	loop := iter.NewLoopOnce(sideEffect)

	rows := drain(t, loop)
	assert.Empty(t, rows)
	assert.Equal(t, []uint32{7, 8, 9}, built)
}

func TestMergeSortAscending(t *testing.T) {
	a := iter.NewFilter([]uint32{1, 4, 7})
	b := iter.NewFilter([]uint32{2, 4, 5})
	m := iter.NewMergeSort(true, a, b)
	assert.Equal(t, []uint32{1, 2, 4, 4, 5, 7}, drain(t, m))
}

func TestMergeSortDescending(t *testing.T) {
	a := iter.NewFilter([]uint32{7, 4, 1})
	b := iter.NewFilter([]uint32{5, 4, 2})
	m := iter.NewMergeSort(false, a, b)
	assert.Equal(t, []uint32{7, 5, 4, 4, 2, 1}, drain(t, m))
}

type recordingLocker struct {
	locked []uint32
}

func (r *recordingLocker) LockRow(rowID uint32) error {
	r.locked = append(r.locked, rowID)
	return nil
}

func TestLocking(t *testing.T) {
	f := iter.NewFilter([]uint32{1, 2, 3})
	locker := &recordingLocker{}
	l := iter.NewLocking(f, locker)
	assert.Equal(t, []uint32{1, 2, 3}, drain(t, l))
	assert.Equal(t, []uint32{1, 2, 3}, locker.locked)
}

func TestUnionDistinct(t *testing.T) {
	a := iter.NewFilter([]uint32{1, 4, 7})
	b := iter.NewFilter([]uint32{2, 4, 5})
	m := iter.NewMergeSort(true, a, b)
	u := iter.NewUnionDistinct(m)
	assert.Equal(t, []uint32{1, 2, 4, 5, 7}, drain(t, u))
}
