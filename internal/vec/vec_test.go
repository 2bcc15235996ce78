package vec_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relstore/idxengine/internal/kernel"
	"github.com/relstore/idxengine/internal/pagestore"
	"github.com/relstore/idxengine/internal/vec"
)

func openFile(t *testing.T) (*vec.File, kernel.PageCache) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.vec")
	cache, err := pagestore.Open(path, pagestore.Options{PageBits: 9, PoolSize: 32})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	require.NoError(t, vec.Create(cache))
	return vec.Open(cache, 8, nil, nil), cache
}

// S2 from spec §8: insert (5, "a"), update "a"->"b", fetch returns
// "b", expunge, fetch returns not-found.
func TestInsertUpdateFetchExpunge(t *testing.T) {
	f, _ := openFile(t)

	tuple := make([]byte, 8)
	copy(tuple, "a")
	require.NoError(t, f.Insert(5, tuple))

	got, ok, err := f.Fetch(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, byte('a'), got[0])

	updated := make([]byte, 8)
	copy(updated, "b")
	require.NoError(t, f.Update(5, updated, nil))

	got, ok, err = f.Fetch(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, byte('b'), got[0])

	require.NoError(t, f.Expunge(5))

	_, ok, err = f.Fetch(5)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsertUniquenessViolation(t *testing.T) {
	f, _ := openFile(t)
	require.NoError(t, f.Insert(7, []byte("aaaaaaaa")))
	err := f.Insert(7, []byte("bbbbbbbb"))
	require.Error(t, err)
	require.Equal(t, kernel.KindUniquenessViolation, kernel.KindOf(err))
}

func TestExpungeMissingKey(t *testing.T) {
	f, _ := openFile(t)
	err := f.Expunge(42)
	require.Error(t, err)
	require.Equal(t, kernel.KindEntryNotFound, kernel.KindOf(err))
}

func TestNextPrevTraversal(t *testing.T) {
	f, _ := openFile(t)
	for _, k := range []uint32{2, 9, 100} {
		require.NoError(t, f.Insert(k, []byte("xxxxxxxx")))
	}

	k, err := f.Next(vec.IllegalKey)
	require.NoError(t, err)
	require.Equal(t, uint32(2), k)

	k, err = f.Next(k)
	require.NoError(t, err)
	require.Equal(t, uint32(9), k)

	k, err = f.Next(k)
	require.NoError(t, err)
	require.Equal(t, uint32(100), k)

	k, err = f.Next(k)
	require.NoError(t, err)
	require.Equal(t, vec.IllegalKey, k)

	k, err = f.Prev(100)
	require.NoError(t, err)
	require.Equal(t, uint32(9), k)
}

func TestRangeScan(t *testing.T) {
	f, _ := openFile(t)
	for _, k := range []uint32{1, 2, 3, 50, 51, 200} {
		require.NoError(t, f.Insert(k, []byte("xxxxxxxx")))
	}

	scan := vec.NewRangeScan(f, []vec.Interval{{Min: 0, Max: 3}, {Min: 50, Max: 51}})
	var got []uint32
	for {
		k, ok, err := scan.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, k)
	}
	require.Equal(t, []uint32{1, 2, 3, 50, 51}, got)
}

func TestVerify(t *testing.T) {
	f, _ := openFile(t)
	for _, k := range []uint32{1, 2, 500} {
		require.NoError(t, f.Insert(k, []byte("xxxxxxxx")))
	}
	count, err := f.Verify()
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestEstimateAndBitSet(t *testing.T) {
	f, _ := openFile(t)
	for _, k := range []uint32{1, 2, 3, 10} {
		require.NoError(t, f.Insert(k, []byte("xxxxxxxx")))
	}
	n, err := f.EstimateCount(0, 5)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
