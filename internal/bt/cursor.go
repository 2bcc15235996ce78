package bt

import (
	"github.com/relstore/idxengine/internal/kernel"
	"github.com/relstore/idxengine/internal/pagestore"
)

// Cursor is a positioned iterator over a Tree, ADAPTED from the
// teacher's BLTree.cursor/startKey/nextKey, extended with mark/rewind/
// reset (spec §5 "Cursor state") and reverse iteration neither of
// which the teacher implements.
type Cursor struct {
	tree    *Tree
	pageNo  kernel.PageID
	slot    uint32
	reverse bool
	valid   bool

	marked    bool
	markPage  kernel.PageID
	markSlot  uint32
	markValid bool
}

// Search positions the cursor at the first (resp. last, if reverse)
// entry satisfying lower's bound, per spec §4.1 "search(condition,
// reverse)".
func (t *Tree) Search(lower []byte, reverse bool) (*Cursor, error) {
	set, slot, err := t.descend(lower, 0, pagestore.LockRead)
	if err != nil {
		return nil, err
	}
	c := &Cursor{tree: t, pageNo: set.handle.PageNo, slot: slot, reverse: reverse, valid: slot > 0}
	t.unlock(set.handle.PageNo, pagestore.LockRead)
	t.unpin(set)
	return c, nil
}

// Get advances the cursor and returns the next row, or ok=false on
// exhaustion, per spec §4.1 "get(field_bitset, tuple_out,
// tuple_id_out)".
func (c *Cursor) Get() (key []byte, value []byte, ok bool, err error) {
	if !c.valid {
		return nil, nil, false, nil
	}

	set, err := c.pinCurrent()
	if err != nil {
		return nil, nil, false, err
	}
	if set == nil {
		return nil, nil, false, nil
	}

	for set.page.Dead(c.slot) {
		prevPage := c.pageNo
		crossed := !c.advanceSlot(set)
		c.tree.unlock(prevPage, pagestore.LockRead)
		c.tree.unpin(set)
		if crossed {
			c.valid = false
			return nil, nil, false, nil
		}
		set, err = c.pinCurrent()
		if err != nil {
			return nil, nil, false, err
		}
		if set == nil {
			return nil, nil, false, nil
		}
	}

	key = set.page.Key(c.slot)
	value = set.page.Value(c.slot)
	c.advanceSlot(set)

	c.tree.unlock(set.handle.PageNo, pagestore.LockRead)
	c.tree.unpin(set)
	return key, value, true, nil
}

// pinCurrent pins and read-locks the page at the cursor's current
// position, or returns (nil, nil) if the position is out of range.
func (c *Cursor) pinCurrent() (*pageSet, error) {
	set, err := c.tree.pin(c.pageNo, true)
	if err != nil {
		return nil, err
	}
	c.tree.lock(c.pageNo, pagestore.LockRead)
	if c.slot == 0 || c.slot > set.page.Cnt {
		c.tree.unlock(c.pageNo, pagestore.LockRead)
		c.tree.unpin(set)
		c.valid = false
		return nil, nil
	}
	return set, nil
}

// advanceSlot moves the cursor to the next (or previous, if reverse)
// slot, live or dead. A forward move crosses to the page's Right
// sibling when the page is exhausted; a reverse move stops at slot 1
// and does not cross to a previous page. ADAPTED from the teacher's
// findNext.
func (c *Cursor) advanceSlot(set *pageSet) bool {
	p := set.page
	if c.reverse {
		if c.slot > 1 {
			c.slot--
			return true
		}
		c.valid = false
		return false
	}

	if c.slot < p.Cnt {
		c.slot++
		return true
	}
	if p.Right == 0 {
		c.valid = false
		return false
	}
	c.pageNo = p.Right
	c.slot = 1
	return true
}

// Mark snapshots the cursor's current logical position, per spec §5.
func (c *Cursor) Mark() {
	c.markPage = c.pageNo
	c.markSlot = c.slot
	c.markValid = c.valid
	c.marked = true
}

// Rewind restores the last marked position. Per spec §5 and §9's open
// question 3, if no mark has been set since the most recent Search,
// Rewind does nothing (leaving the cursor where it is) and the caller
// is expected to re-issue Search on this branch; it must not call
// Reset between Mark and Rewind, since Rewind does not clear the
// duplicate-suppression bitmap PLN's OR-branch caller maintains
// externally.
func (c *Cursor) Rewind() {
	if !c.marked {
		return
	}
	c.pageNo = c.markPage
	c.slot = c.markSlot
	c.valid = c.markValid
}

// Reset invalidates the cursor and clears any mark, per spec §5.
func (c *Cursor) Reset() {
	c.valid = false
	c.marked = false
}
