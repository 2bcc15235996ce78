// Package bt implements the B⁺-tree file driver: a page-based ordered
// index with multi-column keys, null-bitmap encoding, PAD/NO-PAD
// collation, prefix-match and LIKE push-down, range/fetch/reverse
// iteration, batch-insert mode, and a mark/rewind cursor. It is
// ADAPTED from the teacher's BLTree (bltree.go/page.go/latchmgr.go),
// generalized from a single-length-prefixed-byte key to a
// schema-driven multi-field key.
package bt

import (
	"encoding/binary"

	"github.com/relstore/idxengine/internal/kernel"
)

// SlotType is one key-slot's role in the page's slot array, ADAPTED
// verbatim from the teacher's SlotType (page.go): Librarian slots are
// dead filler kept available for future unique/dup inserts; Duplicate
// slots carry an appended uniquifier so equal keys can coexist.
type SlotType uint8

const (
	Unique SlotType = iota
	Librarian
	Duplicate
	Delete
)

const (
	// PageHeaderSize is the fixed header every BT page carries ahead of
	// its slot array, ADAPTED from the teacher's PageHeaderSize.
	PageHeaderSize = 26
	// SlotSize is the fixed per-key slot-array entry size, ADAPTED from
	// the teacher's SlotSize.
	SlotSize = 6
	// pageIDSize is the width of an on-page page-number reference
	// (teacher's BtId).
	pageIDSize = 6
)

// PageHeader is the fixed-size leading region of every BT page,
// ADAPTED verbatim in shape from the teacher's PageHeader.
type PageHeader struct {
	Cnt     uint32 // count of slots in the page, live or dead
	Act     uint32 // count of active (non-dead) slots
	Min     uint32 // offset of the lowest-allocated key byte
	Garbage uint32 // bytes reclaimable by cleanPage
	Bits    uint8  // page size in bits
	Free    bool   // page sits on the pagestore free chain
	Lvl     uint8  // 0 = leaf, >0 = internal, height above leaves
	Kill    bool   // page is being deleted
	Right   kernel.PageID
}

// Page is one BT page: header plus the slot array and key/value data
// area, ADAPTED from the teacher's Page.
type Page struct {
	PageHeader
	Data []byte
}

// NewPage allocates a zeroed page of the given page size.
func NewPage(pageSize uint32) *Page {
	return &Page{Data: make([]byte, pageSize)}
}

func (p *Page) slotBytes(i uint32) []byte {
	off := SlotSize * (i - 1)
	return p.Data[off : off+SlotSize]
}

func (p *Page) ClearSlot(slot uint32) {
	copy(p.slotBytes(slot), make([]byte, SlotSize))
}

func (p *Page) SetKeyOffset(slot uint32, offset uint32) {
	binary.LittleEndian.PutUint32(p.slotBytes(slot), offset)
}

func (p *Page) KeyOffset(slot uint32) uint32 {
	return binary.LittleEndian.Uint32(p.slotBytes(slot))
}

func (p *Page) SetTyp(slot uint32, typ SlotType) { p.slotBytes(slot)[4] = byte(typ) }
func (p *Page) Typ(slot uint32) SlotType         { return SlotType(p.slotBytes(slot)[4]) }

func (p *Page) SetDead(slot uint32, b bool) {
	v := byte(0)
	if b {
		v = 1
	}
	p.slotBytes(slot)[5] = v
}

func (p *Page) Dead(slot uint32) bool { return p.slotBytes(slot)[5] == 1 }

// SetKey writes raw_key (already schema-encoded, null-bitmap included)
// at the slot's offset, length-prefixed with a two-byte length since
// multi-field encoded keys can exceed the teacher's single-byte
// 255-byte limit.
func (p *Page) SetKey(rawKey []byte, slot uint32) {
	off := p.KeyOffset(slot)
	binary.LittleEndian.PutUint16(p.Data[off:], uint16(len(rawKey)))
	copy(p.Data[off+2:], rawKey)
}

func (p *Page) Key(slot uint32) []byte {
	off := p.KeyOffset(slot)
	n := binary.LittleEndian.Uint16(p.Data[off:])
	out := make([]byte, n)
	copy(out, p.Data[off+2:off+2+uint32(n)])
	return out
}

func (p *Page) keyEncodedLen(slot uint32) uint32 {
	off := p.KeyOffset(slot)
	return 2 + uint32(binary.LittleEndian.Uint16(p.Data[off:]))
}

func (p *Page) ValueOffset(slot uint32) uint32 {
	return p.KeyOffset(slot) + p.keyEncodedLen(slot)
}

func (p *Page) SetValue(value []byte, slot uint32) {
	off := p.ValueOffset(slot)
	binary.LittleEndian.PutUint16(p.Data[off:], uint16(len(value)))
	copy(p.Data[off+2:], value)
}

func (p *Page) Value(slot uint32) []byte {
	off := p.ValueOffset(slot)
	n := binary.LittleEndian.Uint16(p.Data[off:])
	out := make([]byte, n)
	copy(out, p.Data[off+2:off+2+uint32(n)])
	return out
}

// FindSlot binary-searches the page's slot array for the first slot
// whose key is >= key, ADAPTED verbatim (algorithm-for-algorithm) from
// the teacher's Page.FindSlot.
func (p *Page) FindSlot(key []byte, cmp func(a, b []byte) int) uint32 {
	if p.Cnt == 0 {
		// A brand-new leaf carries no stopper entry in this condensed
		// port (unlike the teacher, which always seeds a maximal
		// sentinel key): with nothing to search, every key is "not
		// found", so the caller appends at slot 1.
		return 0
	}

	higher := p.Cnt
	low := uint32(1)
	var slot uint32
	good := uint32(0)

	if p.Right > 0 {
		higher++
	} else {
		good++
	}

	diff := higher - low
	for diff > 0 {
		slot = low + diff>>1
		if cmp(p.Key(slot), key) < 0 {
			low = slot + 1
		} else {
			higher = slot
			good++
		}
		diff = higher - low
	}

	if good > 0 {
		return higher
	}
	return 0
}

// PutPageID encodes id into a fixed pageIDSize-byte big-endian field,
// ADAPTED from the teacher's PutID.
func PutPageID(dest []byte, id kernel.PageID) {
	for i := 0; i < pageIDSize; i++ {
		dest[pageIDSize-i-1] = byte(id >> (8 * i))
	}
}

// GetPageID decodes a pageIDSize-byte field, ADAPTED from GetID.
func GetPageID(src []byte) kernel.PageID {
	var id kernel.PageID
	for i := 0; i < pageIDSize && i < len(src); i++ {
		id <<= 8
		id |= kernel.PageID(src[i])
	}
	return id
}

// MemCpyPage deep-copies src's header and data into dest, ADAPTED from
// the teacher's MemCpyPage.
func MemCpyPage(dest, src *Page) {
	dest.PageHeader = src.PageHeader
	copy(dest.Data, src.Data)
}
