// Package vec implements the direct-addressed vector file driver: a
// dense key→tuple map keyed by row-id, with a page-level occupancy
// bitmap, next/prev traversal, and range scans by row-id interval.
// ADAPTED in idiom from the teacher's page/buffer-manager split
// (page.go/bufmgr.go), grounded on
// original_source/Driver/Vector2/Vector2/SimpleFile.h's
// fetch/next/prev/insert/expunge/update/verify method shapes.
package vec

import (
	"encoding/binary"

	"github.com/relstore/idxengine/internal/kernel"
)

// IllegalKey is the reserved sentinel row-id, per spec §4.2: "Key-space
// is ModUInt32 with a sentinel IllegalKey = 0xFFFFFFFF." Callers must
// never use this value as a real row-id (spec §9 open question 2).
const IllegalKey uint32 = 0xFFFFFFFF

// dataPageHeaderSize is the fixed header at the front of every vector
// data page: a live-slot count, ADAPTED from the teacher's
// "Data pages: [count:4] [slot0 ... slot_{k-1}]" (spec §6).
const dataPageHeaderSize = 4

// Page wraps one vector data page's raw bytes with typed accessors.
type Page struct {
	Data     []byte
	SlotSize uint32
}

func (p *Page) Count() uint32 {
	return binary.LittleEndian.Uint32(p.Data[:4])
}

func (p *Page) setCount(n uint32) {
	binary.LittleEndian.PutUint32(p.Data[:4], n)
}

func (p *Page) slotOffset(slotInPage uint32) uint32 {
	return dataPageHeaderSize + slotInPage*p.SlotSize
}

// Slot returns the raw bytes of the slot at the given in-page index.
func (p *Page) Slot(slotInPage uint32) []byte {
	off := p.slotOffset(slotInPage)
	return p.Data[off : off+p.SlotSize]
}

// IsEmptySlot reports whether a slot is all-0xFF, the "absence of an
// entry" encoding of spec §3.
func IsEmptySlot(slot []byte) bool {
	for _, b := range slot {
		if b != 0xFF {
			return false
		}
	}
	return true
}

func clearSlot(slot []byte) {
	for i := range slot {
		slot[i] = 0xFF
	}
}

// Layout describes the fixed geometry derived from a page size and a
// tuple's fixed on-disk width, ADAPTED from the teacher's
// getPageDataSize/calcPageID arithmetic.
type Layout struct {
	PageSize      uint32
	SlotSize      uint32
	SlotsPerPage  uint32
	PagesPerTable uint32 // management (occupancy-bitmap) page stride
}

// NewLayout derives a Layout from a page size and slot size, reserving
// one management page per PagesPerTable data pages for the occupancy
// bitmap, per spec §4.2/§6: "Every pages_per_table-th page: occupancy
// bitmap for the following block."
func NewLayout(pageSize, slotSize uint32) Layout {
	slotsPerPage := (pageSize - dataPageHeaderSize) / slotSize
	bitsPerPage := (pageSize - dataPageHeaderSize) * 8
	return Layout{PageSize: pageSize, SlotSize: slotSize, SlotsPerPage: slotsPerPage, PagesPerTable: bitsPerPage}
}

// dataPageIndex is the 0-based index of key's data page among *all*
// data pages across every block, ignoring management pages entirely;
// every other Layout method derives from this one number.
func (l Layout) dataPageIndex(key uint32) kernel.PageID {
	return kernel.PageID(key) / kernel.PageID(l.SlotsPerPage)
}

// block is which pages_per_table-sized block a data page index falls
// in; block b's layout on disk is one management page followed by
// PagesPerTable data pages.
func (l Layout) block(dataPageIndex kernel.PageID) kernel.PageID {
	return dataPageIndex / kernel.PageID(l.PagesPerTable)
}

// ManagementPageID returns the occupancy-bitmap page guarding key's
// block, per spec §4.2/§6: "Every pages_per_table-th page: occupancy
// bitmap for the following block." Page 0 is the file header, so
// block 0's management page is page 1.
func (l Layout) ManagementPageID(key uint32) kernel.PageID {
	b := l.block(l.dataPageIndex(key))
	return b*(kernel.PageID(l.PagesPerTable)+1) + 1
}

// CalcPageID maps a key to its data page number, skipping management
// pages, ADAPTED from spec §4.2: "calcPageID(key) = key /
// slots_per_page (skipping management pages at multiples of
// pages_per_table)."
func (l Layout) CalcPageID(key uint32) kernel.PageID {
	idx := l.dataPageIndex(key)
	return l.ManagementPageID(key) + 1 + idx%kernel.PageID(l.PagesPerTable)
}

// IsManagementPage reports whether pageNo is a management (occupancy
// bitmap) page rather than a data page, given this layout's stride.
func (l Layout) IsManagementPage(pageNo kernel.PageID) bool {
	if pageNo == 0 {
		return false
	}
	return (pageNo-1)%(kernel.PageID(l.PagesPerTable)+1) == 0
}

func (l Layout) slotInPage(key uint32) uint32 {
	return key % l.SlotsPerPage
}

// OccupancyBit returns key's bit index within its block's management
// page: the position of key's data page inside the block.
func (l Layout) OccupancyBit(key uint32) uint32 {
	return uint32(l.dataPageIndex(key) % kernel.PageID(l.PagesPerTable))
}

// occupancyBitmapBytes is the usable bitmap region of a management
// page: the page minus the same dataPageHeaderSize reservation every
// other page in this file carries, kept uniform across page kinds.
func occupancyBitmapBytes(data []byte) []byte {
	return data[dataPageHeaderSize:]
}

// TestOccupancy reports whether bit is set in a management page's
// bitmap.
func TestOccupancy(mgmtPage []byte, bit uint32) bool {
	b := occupancyBitmapBytes(mgmtPage)
	return b[bit/8]&(1<<(bit%8)) != 0
}

// SetOccupancy sets or clears bit in a management page's bitmap, per
// spec §3's "page-occupancy bit ... is on iff the page has >= 1 live
// entry."
func SetOccupancy(mgmtPage []byte, bit uint32, v bool) {
	b := occupancyBitmapBytes(mgmtPage)
	if v {
		b[bit/8] |= 1 << (bit % 8)
	} else {
		b[bit/8] &^= 1 << (bit % 8)
	}
}
