package bt

import (
	"github.com/relstore/idxengine/internal/kernel"
	"github.com/relstore/idxengine/internal/pagestore"
)

// Expunge locates and removes the entry for the given key, per spec
// §4.1 "expunge": fail EntryNotFound if absent, otherwise mark the
// slot dead, collapse trailing dead slots, and decrement counts.
// ADAPTED from the teacher's deleteKey (bltree.go), simplified: no
// page merging is done (no deletePage/collapseRoot/fixFence). A page
// that underflows or empties stays in the leaf chain as it is, and an
// emptied root stays an empty leaf.
func (t *Tree) Expunge(values []Value) error {
	key, _, err := EncodeKey(t.schema, values)
	if err != nil {
		return err
	}

	set, slot, err := t.descend(key, 0, pagestore.LockWrite)
	if err != nil {
		return err
	}
	defer func() {
		t.unlock(set.handle.PageNo, pagestore.LockWrite)
		t.unpin(set)
	}()

	if slot == 0 || t.cmp(set.page.Key(slot), key) != 0 || set.page.Dead(slot) {
		return kernel.ErrEntryNotFound("bt: expunge: key not found")
	}

	k, v := set.page.Key(slot), set.page.Value(slot)
	set.page.SetDead(slot, true)
	set.page.Garbage += uint32(2+len(k)) + uint32(2+len(v))
	set.page.Act--
	set.handle.Dirty = true

	// Collapse trailing dead slots beneath the fence, ADAPTED verbatim
	// from the teacher's deleteKey collapse loop.
	idx := set.page.Cnt - 1
	for idx > 0 {
		if set.page.Dead(idx) {
			copy(set.page.slotBytes(idx), set.page.slotBytes(idx+1))
			set.page.ClearSlot(set.page.Cnt)
			set.page.Cnt--
		} else {
			break
		}
		idx = set.page.Cnt - 1
	}

	if set.handle.PageNo == RootPage && set.page.Act == 0 {
		// Root emptied entirely; leave it as an empty leaf rather than
		// collapsing below page 1, matching the teacher's
		// collapseRoot termination condition (root.page.Act == 1 stops
		// the loop one level above empty).
		return nil
	}

	return nil
}

// Update expunges the prior tuple's key image and reinserts the new
// one, per spec §4.1 "update": "expressed as expunge + insert on the
// key image of the prior tuple; if the key is unchanged, driver may do
// in-place." This layer always takes the expunge+insert path; an
// in-place fast path is a documented possible optimisation, not
// implemented here since it requires the same space-accounting logic
// Insert already performs.
func (t *Tree) Update(oldValues []Value, newValues []Value, newValue []byte) error {
	if err := t.Expunge(oldValues); err != nil {
		return err
	}
	return t.Insert(newValues, newValue)
}
