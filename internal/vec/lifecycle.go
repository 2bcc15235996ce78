package vec

import (
	"github.com/relstore/idxengine/internal/kernel"
	"github.com/relstore/idxengine/internal/pagestore"
)

// Destroy removes the backing file. Per spec §4.1/§4.2, destroy and
// move succeed without checking mount state, mirroring bt/lifecycle.go.
func Destroy(path string) error {
	return pagestore.Destroy(path)
}

// Move relocates the backing file unconditionally.
func Move(oldPath, newPath string) error {
	return pagestore.Move(oldPath, newPath)
}

// Mount opens (creating if necessary) the backing file.
func Mount(path string, pageBits uint8, poolSize uint, checkpoint *kernel.Checkpoint, log *kernel.Logger) (kernel.PageCache, error) {
	return pagestore.Open(path, pagestore.Options{PageBits: pageBits, PoolSize: poolSize, Checkpoint: checkpoint, Log: log})
}

// Unmount flushes and closes the page cache.
func Unmount(cache kernel.PageCache) error {
	return cache.Close()
}

// Flush/Sync/Recover/Restore/StartBackup/EndBackup mirror bt's
// lifecycle entry points (bt/lifecycle.go); VEC has no separate
// write-ahead log of its own either.
func Flush(cache kernel.PageCache) error { return cache.Flush() }
func Sync(cache kernel.PageCache) error  { return cache.Flush() }
func Recover(cache kernel.PageCache) error {
	return nil
}
func Restore(path string) error                { return nil }
func StartBackup(cache kernel.PageCache) error { return cache.Flush() }
func EndBackup(cache kernel.PageCache) error   { return nil }
