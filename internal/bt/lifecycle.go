package bt

import (
	"github.com/relstore/idxengine/internal/kernel"
	"github.com/relstore/idxengine/internal/pagestore"
)

// Create lays down a fresh tree's root and first leaf page, ADAPTED
// from the teacher's NewBufMgr initial-page setup (bufmgr.go: "the
// b-tree root is always located at page 1 ... first leaf page ...
// page 2").
func Create(cache kernel.PageCache) error {
	root := NewPage(cache.PageSize())
	root.Lvl = 1
	root.Act = 1
	root.Cnt = 1
	root.Right = 0

	var childID [pageIDSize]byte
	PutPageID(childID[:], LeafPage)
	writeEntry(root.Data, uint32(len(root.Data))-2-2-pageIDSize, nil, childID[:])
	root.Min = uint32(len(root.Data)) - 2 - 2 - pageIDSize
	root.SetKeyOffset(1, root.Min)
	root.SetTyp(1, Unique)

	rootHandle, err := cache.Pin(RootPage, false)
	if err != nil {
		return err
	}
	copy(rootHandle.Data, root.Data)
	rootHandle.Dirty = true
	cache.Unpin(rootHandle)

	leaf := NewPage(cache.PageSize())
	leaf.Lvl = 0
	leafHandle, err := cache.Pin(LeafPage, false)
	if err != nil {
		return err
	}
	copy(leafHandle.Data, leaf.Data)
	leafHandle.Dirty = true
	cache.Unpin(leafHandle)

	return cache.Flush()
}

// Destroy removes the backing file. Per spec §4.1, "destroy and move
// MUST succeed without checking mount state", so this delegates
// straight to pagestore.Destroy rather than going through a live
// cache handle.
func Destroy(path string) error {
	return pagestore.Destroy(path)
}

// Move relocates the backing file, per spec §4.1's unconditional-
// success requirement.
func Move(oldPath, newPath string) error {
	return pagestore.Move(oldPath, newPath)
}

// Mount opens (creating if necessary) the backing file and returns a
// ready page cache.
func Mount(path string, pageBits uint8, poolSize uint, checkpoint *kernel.Checkpoint, log *kernel.Logger) (kernel.PageCache, error) {
	return pagestore.Open(path, pagestore.Options{PageBits: pageBits, PoolSize: poolSize, Checkpoint: checkpoint, Log: log})
}

// Unmount flushes and closes the page cache.
func Unmount(cache kernel.PageCache) error {
	return cache.Close()
}

// Flush writes every dirty page back to disk without closing.
func Flush(cache kernel.PageCache) error {
	return cache.Flush()
}

// Sync is an alias for Flush; BT has no separate write-ahead log of
// its own to fsync independently, so sync and flush coincide here.
func Sync(cache kernel.PageCache) error {
	return cache.Flush()
}

// Recover is the explicit recover entry point for callers outside a
// kernel.Scope. It does nothing and returns nil: no page is rolled
// back, dirty pages stay in the pool, and pages that pagestore already
// wrote out on eviction keep their new contents.
func Recover(cache kernel.PageCache) error {
	return nil
}

// Restore is the restore entry point, an out-of-scope structural
// operation per spec §1. It does nothing and returns nil: it neither
// checks whether path is mounted nor copies any bytes; the actual
// restore is left to the external backup tool.
func Restore(path string) error {
	return nil
}

// StartBackup/EndBackup bracket an external hot-backup copy of the
// backing file. StartBackup flushes every dirty page and EndBackup does
// nothing; writes made during the backup (including pagestore writing
// dirty pages out on eviction) are not paused.
func StartBackup(cache kernel.PageCache) error { return cache.Flush() }
func EndBackup(cache kernel.PageCache) error    { return nil }

// Verify walks every data page reachable from the leftmost leaf,
// counting live slots and cross-checking against each page's own
// Act/Cnt bookkeeping, per spec §4.1's verify contract (mirrored from
// VEC's verify in spec §4.2, generalized to BT's linked-leaf layout).
func Verify(cache kernel.PageCache, schema Schema) (liveCount int, err error) {
	pageNo := LeafPage
	for pageNo != 0 {
		h, err := cache.Pin(pageNo, true)
		if err != nil {
			return liveCount, err
		}
		p := &Page{Data: h.Data}
		active := 0
		for slot := uint32(1); slot <= p.Cnt; slot++ {
			if !p.Dead(slot) {
				active++
			}
		}
		if uint32(active) != p.Act {
			cache.Unpin(h)
			return liveCount, kernel.ErrVerifyAborted("bt: verify: page %d active count mismatch: header=%d counted=%d", pageNo, p.Act, active)
		}
		liveCount += active
		next := p.Right
		cache.Unpin(h)
		pageNo = next
	}
	return liveCount, nil
}
