package pagestore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relstore/idxengine/internal/kernel"
	"github.com/relstore/idxengine/internal/pagestore"
)

func TestNewPagePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.pgs")

	cache, err := pagestore.Open(path, pagestore.Options{PageBits: 9, PoolSize: 32})
	require.NoError(t, err)

	contents := make([]byte, cache.PageSize())
	copy(contents, "hello page")
	h, err := cache.NewPage(contents)
	require.NoError(t, err)
	pageNo := h.PageNo
	cache.Unpin(h)
	require.NoError(t, cache.Flush())
	require.NoError(t, cache.Close())

	reopened, err := pagestore.Open(path, pagestore.Options{PageBits: 9, PoolSize: 32})
	require.NoError(t, err)
	defer reopened.Close()

	h2, err := reopened.Pin(pageNo, true)
	require.NoError(t, err)
	require.Equal(t, byte('h'), h2.Data[0])
	reopened.Unpin(h2)
}

func TestFreePageIsReusedByNewPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.pgs")
	cache, err := pagestore.Open(path, pagestore.Options{PageBits: 9, PoolSize: 32})
	require.NoError(t, err)
	defer cache.Close()

	h, err := cache.NewPage(make([]byte, cache.PageSize()))
	require.NoError(t, err)
	freed := h.PageNo
	require.NoError(t, cache.FreePage(h))

	h2, err := cache.NewPage(make([]byte, cache.PageSize()))
	require.NoError(t, err)
	require.Equal(t, freed, h2.PageNo)
	cache.Unpin(h2)
}

// Idempotent destroy (spec §8 property 6): destroying an already-
// destroyed or never-mounted file does not error.
func TestDestroyIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.pgs")
	cache, err := pagestore.Open(path, pagestore.Options{PageBits: 9, PoolSize: 32})
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	require.NoError(t, pagestore.Destroy(path))
	require.NoError(t, pagestore.Destroy(path))
}

func TestMoveRelocatesFileWithoutMountCheck(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.pgs")
	newPath := filepath.Join(dir, "sub", "new.pgs")

	cache, err := pagestore.Open(oldPath, pagestore.Options{PageBits: 9, PoolSize: 32})
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	require.NoError(t, pagestore.Move(oldPath, newPath))
	_, statErr := os.Stat(newPath)
	require.NoError(t, statErr)
	_, statErr = os.Stat(oldPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestLockUnlockPageDoesNotDeadlockSingleThread(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.pgs")
	cache, err := pagestore.Open(path, pagestore.Options{PageBits: 9, PoolSize: 32})
	require.NoError(t, err)
	defer cache.Close()

	h, err := cache.NewPage(make([]byte, cache.PageSize()))
	require.NoError(t, err)
	pageNo := h.PageNo
	cache.Unpin(h)

	cache.LockPage(pageNo, pagestore.LockRead)
	cache.UnlockPage(pageNo, pagestore.LockRead)
	cache.LockPage(pageNo, pagestore.LockWrite)
	cache.UnlockPage(pageNo, pagestore.LockWrite)
}

func TestPageSizeReflectsConfiguredBits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.pgs")
	cache, err := pagestore.Open(path, pagestore.Options{PageBits: 9, PoolSize: 32})
	require.NoError(t, err)
	defer cache.Close()
	require.Equal(t, uint32(1<<9), cache.PageSize())
}

var _ kernel.PageCache = (*pagestore.BufMgr)(nil)
