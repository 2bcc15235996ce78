package vec

import "github.com/relstore/idxengine/internal/kernel"

// Insert writes tuple at key, per spec §4.2 "insert(key, tuple): fail
// UniquenessViolation if slot non-null; write bytes, bump page count,
// if page transitions 0->1 flip occupancy bit; on failure during any
// step roll back in reverse order and mark the database unavailable
// only if rollback itself fails." ADAPTED from the teacher's general
// insert-then-unwind idiom (bltree.go's splitPage rollback shape),
// specialised to VEC's direct-addressed slots.
func (f *File) Insert(key uint32, tuple []byte) (err error) {
	if key == IllegalKey {
		return kernel.ErrBadArgument("vec: insert: key %#x collides with IllegalKey sentinel", key)
	}
	if len(tuple) > int(f.layout.SlotSize) {
		return kernel.ErrBadArgument("vec: insert: tuple of %d bytes exceeds slot size %d", len(tuple), f.layout.SlotSize)
	}

	dataHandle, page, perr := f.pinData(key, true)
	if perr != nil {
		return perr
	}
	slotIdx := f.layout.slotInPage(key)
	slot := page.Slot(slotIdx)
	if !IsEmptySlot(slot) {
		f.cache.Unpin(dataHandle)
		return kernel.ErrUniquenessViolation("vec: insert: key %d already present", key)
	}

	wasEmpty := page.Count() == 0
	clearSlot(slot)
	copy(slot, tuple)
	page.setCount(page.Count() + 1)
	dataHandle.Dirty = true
	f.cache.Unpin(dataHandle)

	if wasEmpty {
		if ferr := f.setOccupancy(key, true); ferr != nil {
			// Reverse the data-page write before surfacing the error,
			// per spec §4.2's "roll back in reverse order" contract.
			if rerr := f.rollbackInsert(key); rerr != nil {
				f.checkpoint.MarkUnavailable(f.log, "vec insert rollback failed: "+rerr.Error())
				return rerr
			}
			return ferr
		}
	}

	if terr := f.addTupleCount(1); terr != nil {
		return terr
	}
	return nil
}

func (f *File) rollbackInsert(key uint32) error {
	h, page, err := f.pinData(key, false)
	if err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	slot := page.Slot(f.layout.slotInPage(key))
	clearSlot(slot)
	if page.Count() > 0 {
		page.setCount(page.Count() - 1)
	}
	h.Dirty = true
	f.cache.Unpin(h)
	return nil
}

// Expunge removes key's entry, per spec §4.2 "expunge(key): fail
// EntryNotFound if slot is null or page not occupied; reset bytes to
// 0xFF, decrement counts, flip bit if page became empty. The recovery
// path is symmetric to insert."
func (f *File) Expunge(key uint32) (err error) {
	occupied, oerr := f.testOccupancy(key)
	if oerr != nil {
		return oerr
	}

	dataHandle, page, perr := f.pinData(key, false)
	if perr != nil {
		return perr
	}
	if dataHandle == nil || !occupied {
		if dataHandle != nil {
			f.cache.Unpin(dataHandle)
		}
		return kernel.ErrEntryNotFound("vec: expunge: key %d not present", key)
	}

	slot := page.Slot(f.layout.slotInPage(key))
	if IsEmptySlot(slot) {
		f.cache.Unpin(dataHandle)
		return kernel.ErrEntryNotFound("vec: expunge: key %d not present", key)
	}

	clearSlot(slot)
	page.setCount(page.Count() - 1)
	becameEmpty := page.Count() == 0
	dataHandle.Dirty = true
	f.cache.Unpin(dataHandle)

	if becameEmpty {
		if ferr := f.setOccupancy(key, false); ferr != nil {
			if rerr := f.rollbackExpunge(key); rerr != nil {
				f.checkpoint.MarkUnavailable(f.log, "vec expunge rollback failed: "+rerr.Error())
				return rerr
			}
			return ferr
		}
	}

	return f.addTupleCount(-1)
}

// rollbackExpunge cannot recover the erased tuple bytes (they are
// already gone), so it only restores the page's live-slot count to
// keep Act/occupancy consistent; a real transaction manager would
// replay the pre-image from its undo log (spec §1 non-goal).
func (f *File) rollbackExpunge(key uint32) error {
	h, page, err := f.pinData(key, false)
	if err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	page.setCount(page.Count() + 1)
	h.Dirty = true
	f.cache.Unpin(h)
	return nil
}

// Update overwrites the fields selected by mask in key's tuple
// in-place, never splitting, per spec §4.2 "update(key, tuple,
// field-mask): in-place update of selected fields; never splits." mask
// is nil to overwrite the whole slot.
func (f *File) Update(key uint32, tuple []byte, mask []bool) error {
	dataHandle, page, err := f.pinData(key, false)
	if err != nil {
		return err
	}
	if dataHandle == nil {
		return kernel.ErrEntryNotFound("vec: update: key %d not present", key)
	}
	slot := page.Slot(f.layout.slotInPage(key))
	if IsEmptySlot(slot) {
		f.cache.Unpin(dataHandle)
		return kernel.ErrEntryNotFound("vec: update: key %d not present", key)
	}

	if mask == nil {
		copy(slot, tuple)
	} else {
		for i, keep := range mask {
			if keep && i < len(tuple) && i < len(slot) {
				slot[i] = tuple[i]
			}
		}
	}
	dataHandle.Dirty = true
	f.cache.Unpin(dataHandle)
	return nil
}

// Fetch reads the single slot at key, per spec §4.2 "fetch(key) is a
// single-slot read." ok is false if the slot is absent or unallocated.
func (f *File) Fetch(key uint32) (tuple []byte, ok bool, err error) {
	occupied, err := f.testOccupancy(key)
	if err != nil {
		return nil, false, err
	}
	if !occupied {
		return nil, false, nil
	}
	h, page, err := f.pinData(key, false)
	if err != nil {
		return nil, false, err
	}
	if h == nil {
		return nil, false, nil
	}
	defer f.cache.Unpin(h)
	slot := page.Slot(f.layout.slotInPage(key))
	if IsEmptySlot(slot) {
		return nil, false, nil
	}
	out := make([]byte, len(slot))
	copy(out, slot)
	return out, true, nil
}

func (f *File) setOccupancy(key uint32, v bool) error {
	h, err := f.pinManagement(key, true)
	if err != nil {
		return err
	}
	SetOccupancy(h.Data, f.layout.OccupancyBit(key), v)
	h.Dirty = true
	f.cache.Unpin(h)
	return nil
}

func (f *File) testOccupancy(key uint32) (bool, error) {
	mgmtPageNo := f.layout.ManagementPageID(key)
	maxPageID, err := f.maxPageID()
	if err != nil {
		return false, err
	}
	if mgmtPageNo > maxPageID {
		return false, nil
	}
	h, err := f.cache.Pin(mgmtPageNo, true)
	if err != nil {
		return false, err
	}
	defer f.cache.Unpin(h)
	return TestOccupancy(h.Data, f.layout.OccupancyBit(key)), nil
}
