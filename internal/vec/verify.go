package vec

import "github.com/relstore/idxengine/internal/kernel"

// Verify walks every data page, counting live slots and cross-checking
// against the page-header count, the occupancy bit, and the header
// total, per spec §4.2: "verify walks every data page, counts live
// slots, and cross-checks against page-header count, occupancy bit,
// and header total; pages beyond max_page_id must have occupancy-bit =
// false."
func (f *File) Verify() (liveCount int, err error) {
	maxPageID, err := f.maxPageID()
	if err != nil {
		return 0, err
	}
	headerTotal, err := f.TupleCount()
	if err != nil {
		return 0, err
	}

	pagesPerBlock := kernel.PageID(f.layout.PagesPerTable)
	for pageNo := kernel.PageID(1); pageNo <= maxPageID; pageNo++ {
		if f.layout.IsManagementPage(pageNo) {
			continue
		}
		h, err := f.cache.Pin(pageNo, true)
		if err != nil {
			return liveCount, err
		}
		page := &Page{Data: h.Data, SlotSize: f.layout.SlotSize}

		active := 0
		for i := uint32(0); i < f.layout.SlotsPerPage; i++ {
			if !IsEmptySlot(page.Slot(i)) {
				active++
			}
		}
		headerCount := page.Count()
		f.cache.Unpin(h)

		if uint32(active) != headerCount {
			return liveCount, kernel.ErrVerifyAborted("vec: verify: page %d live-slot count mismatch: header=%d counted=%d", pageNo, headerCount, active)
		}

		block := (pageNo - 1) / (pagesPerBlock + 1)
		mgmtPageNo := block*(pagesPerBlock+1) + 1
		occupied, err := f.pageOccupancyBit(mgmtPageNo, pageNo, pagesPerBlock)
		if err != nil {
			return liveCount, err
		}
		if occupied != (active > 0) {
			return liveCount, kernel.ErrVerifyAborted("vec: verify: page %d occupancy bit=%v active=%d", pageNo, occupied, active)
		}

		liveCount += active
	}

	if liveCount != int(headerTotal) {
		return liveCount, kernel.ErrVerifyAborted("vec: verify: header total=%d counted=%d", headerTotal, liveCount)
	}
	return liveCount, nil
}

func (f *File) pageOccupancyBit(mgmtPageNo, dataPageNo kernel.PageID, pagesPerBlock kernel.PageID) (bool, error) {
	h, err := f.cache.Pin(mgmtPageNo, true)
	if err != nil {
		return false, err
	}
	defer f.cache.Unpin(h)
	bit := uint32((dataPageNo - mgmtPageNo - 1))
	return TestOccupancy(h.Data, bit), nil
}
