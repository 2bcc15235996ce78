package bt

import "github.com/relstore/idxengine/internal/kernel"

// BatchMaxPageCache is the batch-mode dirty-page ceiling before a
// forced flush, ADAPTED from spec §6's parameter
// "Btree2_BatchMaxPageCache (int, default 20)".
const BatchMaxPageCache = 20

// BatchInserter wraps Tree.Insert for batch-mode open sessions, per
// spec §4.1 "Batch insert": dirty pages are never reverted on error
// (the kernel.Scope guard's batch branch handles that by marking the
// database unavailable instead of recovering); this type additionally
// tracks the forced-flush threshold.
type BatchInserter struct {
	tree        *Tree
	cache       kernel.PageCache
	dirtyCount  int
}

// NewBatchInserter starts a batch-insert session bound to tree.
func NewBatchInserter(tree *Tree, cache kernel.PageCache) *BatchInserter {
	return &BatchInserter{tree: tree, cache: cache}
}

// Insert performs one batch-mode insert, flushing once dirtyCount
// reaches BatchMaxPageCache.
func (b *BatchInserter) Insert(values []Value, value []byte) error {
	if err := b.tree.Insert(values, value); err != nil {
		return err
	}
	b.dirtyCount++
	if b.dirtyCount >= BatchMaxPageCache {
		if err := b.cache.Flush(); err != nil {
			return err
		}
		b.dirtyCount = 0
	}
	return nil
}

// Close flushes any remaining dirty pages from this batch session.
func (b *BatchInserter) Close() error {
	if b.dirtyCount == 0 {
		return nil
	}
	err := b.cache.Flush()
	b.dirtyCount = 0
	return err
}
