package vec

import "github.com/relstore/idxengine/internal/kernel"

// Next advances from key to the next live row-id, consulting the
// occupancy bitmap to skip empty data pages when crossing a page
// boundary, per spec §4.2: "next(key) advances by computing the next
// slot and, if crossing a page boundary, consulting the occupancy
// bitmap to skip empty pages; ... IllegalKey is returned on
// exhaustion." key == IllegalKey starts from the beginning.
func (f *File) Next(key uint32) (uint32, error) {
	maxPageID, err := f.maxPageID()
	if err != nil {
		return IllegalKey, err
	}

	start := uint32(0)
	if key != IllegalKey {
		start = key + 1
	}

	for cur := start; ; {
		pageNo := f.layout.CalcPageID(cur)
		if pageNo > maxPageID {
			return IllegalKey, nil
		}
		if !f.dataPageOccupied(cur, maxPageID) {
			cur = f.firstKeyOfNextBlock(cur)
			continue
		}
		h, err := f.cache.Pin(pageNo, true)
		if err != nil {
			return IllegalKey, err
		}
		page := &Page{Data: h.Data, SlotSize: f.layout.SlotSize}
		found, ok := scanForward(page, f.layout, cur)
		f.cache.Unpin(h)
		if ok {
			return found, nil
		}
		cur = f.firstKeyOfNextPage(cur)
	}
}

// Prev is the symmetric counterpart of Next, scanning backward.
func (f *File) Prev(key uint32) (uint32, error) {
	maxPageID, err := f.maxPageID()
	if err != nil {
		return IllegalKey, err
	}
	if key == IllegalKey || key == 0 {
		return IllegalKey, nil
	}

	for cur := key - 1; ; {
		pageNo := f.layout.CalcPageID(cur)
		if pageNo > maxPageID {
			return IllegalKey, nil
		}
		if f.dataPageOccupied(cur, maxPageID) {
			h, err := f.cache.Pin(pageNo, true)
			if err != nil {
				return IllegalKey, err
			}
			page := &Page{Data: h.Data, SlotSize: f.layout.SlotSize}
			found, ok := scanBackward(page, f.layout, cur)
			f.cache.Unpin(h)
			if ok {
				return found, nil
			}
		}
		if cur < f.layout.SlotsPerPage {
			return IllegalKey, nil
		}
		pageStart := (cur / f.layout.SlotsPerPage) * f.layout.SlotsPerPage
		if pageStart == 0 {
			return IllegalKey, nil
		}
		cur = pageStart - 1
	}
}

func (f *File) dataPageOccupied(key uint32, maxPageID kernel.PageID) bool {
	mgmtPageNo := f.layout.ManagementPageID(key)
	if mgmtPageNo > maxPageID {
		return false
	}
	h, err := f.cache.Pin(mgmtPageNo, true)
	if err != nil {
		return false
	}
	defer f.cache.Unpin(h)
	return TestOccupancy(h.Data, f.layout.OccupancyBit(key))
}

func (f *File) firstKeyOfNextPage(key uint32) uint32 {
	pageStart := (key / f.layout.SlotsPerPage) * f.layout.SlotsPerPage
	return pageStart + f.layout.SlotsPerPage
}

func (f *File) firstKeyOfNextBlock(key uint32) uint32 {
	idx := f.layout.dataPageIndex(key)
	block := f.layout.block(idx)
	nextBlockFirstIdx := (block + 1) * kernel.PageID(f.layout.PagesPerTable)
	return uint32(nextBlockFirstIdx) * f.layout.SlotsPerPage
}

// scanForward finds the first non-empty slot in page at or after key,
// returning its absolute key.
func scanForward(page *Page, l Layout, key uint32) (uint32, bool) {
	start := l.slotInPage(key)
	for i := start; i < l.SlotsPerPage; i++ {
		if !IsEmptySlot(page.Slot(i)) {
			pageStart := (key / l.SlotsPerPage) * l.SlotsPerPage
			return pageStart + i, true
		}
	}
	return 0, false
}

// scanBackward finds the last non-empty slot in page at or before key.
func scanBackward(page *Page, l Layout, key uint32) (uint32, bool) {
	start := l.slotInPage(key)
	for i := int64(start); i >= 0; i-- {
		if !IsEmptySlot(page.Slot(uint32(i))) {
			pageStart := (key / l.SlotsPerPage) * l.SlotsPerPage
			return pageStart + uint32(i), true
		}
	}
	return 0, false
}

// Interval is one [Min, Max] row-id range of a range scan, per spec
// §4.2: "Ascending scan uses a sequence of (min,max) intervals; when
// the current interval exhausts the iterator advances the interval
// pointer and resumes at min-1."
type Interval struct {
	Min, Max uint32
}

// RangeScan iterates every live key across a sequence of ascending
// intervals, calling fn once per key in order; fn returning false
// stops the scan early.
type RangeScan struct {
	f         *File
	intervals []Interval
	idx       int
	cur       uint32
	started   bool // whether cur holds a real position within the current interval
}

// NewRangeScan begins a scan over the given ascending, non-overlapping
// intervals.
func NewRangeScan(f *File, intervals []Interval) *RangeScan {
	return &RangeScan{f: f, intervals: intervals}
}

// Next returns the next live key in the scan, or ok=false once every
// interval is exhausted.
func (r *RangeScan) Next() (key uint32, ok bool, err error) {
	for r.idx < len(r.intervals) {
		iv := r.intervals[r.idx]
		seed := r.cur
		if !r.started {
			seed = seedFor(iv.Min)
			r.started = true
		}
		next, err := r.f.Next(seed)
		if err != nil {
			return 0, false, err
		}
		if next == IllegalKey || next > iv.Max {
			// Interval exhausted; per spec §4.2 "the iterator advances
			// the interval pointer and resumes at min-1" so the next
			// interval starts its own seek fresh.
			r.idx++
			r.started = false
			continue
		}
		r.cur = next
		return next, true, nil
	}
	return 0, false, nil
}

// seedFor returns the Next() argument that lands on min as the first
// result: IllegalKey (begin-of-file) if min is 0, else min-1.
func seedFor(min uint32) uint32 {
	if min == 0 {
		return IllegalKey
	}
	return min - 1
}

// ReverseRangeScan is RangeScan's descending counterpart, built on
// Prev instead of Next, for PLN's reverse-ordered index scans (spec
// §5's "descending if reverse flag set").
type ReverseRangeScan struct {
	f         *File
	intervals []Interval
	idx       int
	cur       uint32
	started   bool
}

// NewReverseRangeScan begins a scan over intervals in the order given,
// descending within each interval from Max down to Min.
func NewReverseRangeScan(f *File, intervals []Interval) *ReverseRangeScan {
	return &ReverseRangeScan{f: f, intervals: intervals}
}

func (r *ReverseRangeScan) Next() (key uint32, ok bool, err error) {
	for r.idx < len(r.intervals) {
		iv := r.intervals[r.idx]
		seed := r.cur
		if !r.started {
			seed = iv.Max + 1
			r.started = true
		}
		prev, err := r.f.Prev(seed)
		if err != nil {
			return 0, false, err
		}
		if prev == IllegalKey || prev < iv.Min {
			r.idx++
			r.started = false
			continue
		}
		r.cur = prev
		return prev, true, nil
	}
	return 0, false, nil
}
