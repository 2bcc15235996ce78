package bt_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relstore/idxengine/internal/bt"
	"github.com/relstore/idxengine/internal/kernel"
	"github.com/relstore/idxengine/internal/pagestore"
	"github.com/relstore/idxengine/internal/rowset"
)

func intSchema() bt.Schema {
	return bt.Schema{Fields: []bt.Field{{Type: bt.FieldInt32}}}
}

func openTree(t *testing.T, schema bt.Schema, unique bool) (*bt.Tree, kernel.PageCache) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.bt")
	cache, err := pagestore.Open(path, pagestore.Options{PageBits: 9, PoolSize: 32})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	require.NoError(t, bt.Create(cache))
	return bt.Open(cache, schema, unique, nil), cache
}

func intVal(n int64) []bt.Value { return []bt.Value{{Int: n}} }

// S1 from spec §8: create file with single INT key, insert 10, 20, 30;
// expunge 20; search(ge=10, reverse=false) then three gets return 10,
// 30, false.
func TestUniqueInsertExpungeSearch(t *testing.T) {
	tree, _ := openTree(t, intSchema(), true)

	for _, n := range []int64{10, 20, 30} {
		require.NoError(t, tree.Insert(intVal(n), []byte{byte(n)}))
	}
	require.NoError(t, tree.Expunge(intVal(20)))

	lower, _, err := bt.EncodeKey(intSchema(), intVal(10))
	require.NoError(t, err)
	cur, err := tree.Search(lower, false)
	require.NoError(t, err)

	k, _, ok, err := cur.Get()
	require.NoError(t, err)
	require.True(t, ok)
	vals, err := bt.DecodeKey(intSchema(), k)
	require.NoError(t, err)
	require.Equal(t, int64(10), vals[0].Int)

	k, _, ok, err = cur.Get()
	require.NoError(t, err)
	require.True(t, ok)
	vals, err = bt.DecodeKey(intSchema(), k)
	require.NoError(t, err)
	require.Equal(t, int64(30), vals[0].Int)

	_, _, ok, err = cur.Get()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsertUniquenessViolation(t *testing.T) {
	tree, _ := openTree(t, intSchema(), true)
	require.NoError(t, tree.Insert(intVal(1), []byte{1}))
	err := tree.Insert(intVal(1), []byte{2})
	require.Error(t, err)
	require.Equal(t, kernel.KindUniquenessViolation, kernel.KindOf(err))
}

func TestExpungeMissingKey(t *testing.T) {
	tree, _ := openTree(t, intSchema(), true)
	err := tree.Expunge(intVal(99))
	require.Error(t, err)
	require.Equal(t, kernel.KindEntryNotFound, kernel.KindOf(err))
}

func TestUpdateChangesValue(t *testing.T) {
	tree, _ := openTree(t, intSchema(), true)
	require.NoError(t, tree.Insert(intVal(5), []byte{0xAA}))
	require.NoError(t, tree.Update(intVal(5), intVal(5), []byte{0xBB}))

	lower, _, err := bt.EncodeKey(intSchema(), intVal(5))
	require.NoError(t, err)
	cur, err := tree.Search(lower, false)
	require.NoError(t, err)
	_, v, ok, err := cur.Get()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0xBB}, v)
}

// Ordering invariant (spec §8 property 4): reverse search descends.
func TestReverseSearchDescends(t *testing.T) {
	tree, _ := openTree(t, intSchema(), true)
	for _, n := range []int64{1, 2, 3, 4} {
		require.NoError(t, tree.Insert(intVal(n), []byte{byte(n)}))
	}
	upper, _, err := bt.EncodeKey(intSchema(), intVal(4))
	require.NoError(t, err)
	cur, err := tree.Search(upper, true)
	require.NoError(t, err)

	var got []int64
	for {
		k, _, ok, err := cur.Get()
		require.NoError(t, err)
		if !ok {
			break
		}
		vals, err := bt.DecodeKey(intSchema(), k)
		require.NoError(t, err)
		got = append(got, vals[0].Int)
	}
	require.Equal(t, []int64{4, 3, 2, 1}, got)
}

// S6 from spec §8: mark/rewind replays the marked position, so the
// entry read after a rewind is the one first read after the mark.
func TestMarkRewind(t *testing.T) {
	tree, _ := openTree(t, intSchema(), true)
	for _, n := range []int64{1, 2, 3} {
		require.NoError(t, tree.Insert(intVal(n), []byte{byte(n)}))
	}
	lower, _, err := bt.EncodeKey(intSchema(), intVal(1))
	require.NoError(t, err)
	cur, err := tree.Search(lower, false)
	require.NoError(t, err)

	_, _, ok, err := cur.Get() // x1 = 1
	require.NoError(t, err)
	require.True(t, ok)

	cur.Mark()
	k2, _, ok, err := cur.Get() // x2 = 2
	require.NoError(t, err)
	require.True(t, ok)

	cur.Rewind()
	kAgain, _, ok, err := cur.Get()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, k2, kAgain)
}

func TestGetByBitSet(t *testing.T) {
	tree, _ := openTree(t, intSchema(), true)
	valueOf := func(row uint32) []byte {
		return []byte{byte(row >> 24), byte(row >> 16), byte(row >> 8), byte(row)}
	}
	for i, n := range []int64{10, 20, 30} {
		require.NoError(t, tree.Insert(intVal(n), valueOf(uint32(i+1))))
	}

	lower, _, err := bt.EncodeKey(intSchema(), intVal(10))
	require.NoError(t, err)
	out := rowset.New(8)
	require.NoError(t, tree.GetByBitSet(lower, nil, out))
	require.Equal(t, uint(3), out.Len())
}

func TestVerifyCountsLiveEntries(t *testing.T) {
	tree, cache := openTree(t, intSchema(), true)
	for _, n := range []int64{1, 2, 3} {
		require.NoError(t, tree.Insert(intVal(n), []byte{byte(n)}))
	}
	require.NoError(t, tree.Expunge(intVal(2)))

	live, err := bt.Verify(cache, intSchema())
	require.NoError(t, err)
	require.Equal(t, 2, live)
}
