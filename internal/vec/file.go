package vec

import (
	"encoding/binary"

	"github.com/relstore/idxengine/internal/kernel"
)

// headerMagic identifies a vector file's page 0, written after
// pagestore's own private zeroHeaderSize-byte region so the two
// headers never overlap, per spec §6: "Page 0: magic + tuple count +
// max-page-id."
const headerMagic = "VEC1"

// headerOffset is where this driver's own header begins within page
// 0, just past pagestore's private 32-byte region (internal/pagestore
// zeroHeaderSize).
const headerOffset = 32

const (
	hdrMagic      = headerOffset
	hdrTupleCount = headerOffset + 4
	hdrMaxPageID  = headerOffset + 8
)

// File is one open vector file: the dense key→tuple map of spec §4.2,
// built on internal/pagestore's page cache the same way internal/bt's
// Tree is, ADAPTED in idiom from the teacher's page/buffer-manager
// split and grounded on
// original_source/Driver/Vector2/Vector2/SimpleFile.h's method shapes.
type File struct {
	cache      kernel.PageCache
	layout     Layout
	checkpoint *kernel.Checkpoint
	log        *kernel.Logger
}

// Open binds a File to an already-mounted page cache. Create must have
// been called once beforehand to lay down the header page.
func Open(cache kernel.PageCache, slotSize uint32, checkpoint *kernel.Checkpoint, log *kernel.Logger) *File {
	if log == nil {
		log = kernel.NewNop()
	}
	if checkpoint == nil {
		checkpoint = kernel.NewCheckpoint()
	}
	return &File{cache: cache, layout: NewLayout(cache.PageSize(), slotSize), checkpoint: checkpoint, log: log}
}

// Create lays down a fresh vector file's header page, per spec §4.2's
// lifecycle list, ADAPTED from bt/lifecycle.go's Create in the same
// idiom: a zeroed page is staged in memory, written through Pin, and
// flushed.
func Create(cache kernel.PageCache) error {
	h, err := cache.Pin(0, false)
	if err != nil {
		return err
	}
	copy(h.Data[hdrMagic:], headerMagic)
	binary.LittleEndian.PutUint32(h.Data[hdrTupleCount:], 0)
	binary.LittleEndian.PutUint32(h.Data[hdrMaxPageID:], 0)
	h.Dirty = true
	cache.Unpin(h)
	return cache.Flush()
}

func (f *File) readHeader() (tupleCount uint32, maxPageID kernel.PageID, h *kernel.PageHandle, err error) {
	h, err = f.cache.Pin(0, true)
	if err != nil {
		return 0, 0, nil, err
	}
	tupleCount = binary.LittleEndian.Uint32(h.Data[hdrTupleCount:])
	maxPageID = kernel.PageID(binary.LittleEndian.Uint32(h.Data[hdrMaxPageID:]))
	return tupleCount, maxPageID, h, nil
}

func (f *File) TupleCount() (uint32, error) {
	count, _, h, err := f.readHeader()
	if err != nil {
		return 0, err
	}
	f.cache.Unpin(h)
	return count, nil
}

func (f *File) addTupleCount(delta int32) error {
	count, _, h, err := f.readHeader()
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(h.Data[hdrTupleCount:], uint32(int64(count)+int64(delta)))
	h.Dirty = true
	f.cache.Unpin(h)
	return nil
}

func (f *File) maxPageID() (kernel.PageID, error) {
	_, maxPageID, h, err := f.readHeader()
	if err != nil {
		return 0, err
	}
	f.cache.Unpin(h)
	return maxPageID, nil
}

// bumpMaxPageID extends the recorded max-page-id if pageNo exceeds it,
// per spec §3's invariant "no page beyond max_page_id is occupied."
func (f *File) bumpMaxPageID(pageNo kernel.PageID) error {
	_, maxPageID, h, err := f.readHeader()
	if err != nil {
		return err
	}
	if pageNo > maxPageID {
		binary.LittleEndian.PutUint32(h.Data[hdrMaxPageID:], uint32(pageNo))
		h.Dirty = true
	}
	f.cache.Unpin(h)
	return nil
}

// pinData returns the data page holding key, allocating and zeroing it
// (along with its guarding management page and every page skipped
// between the old max-page-id and it) the first time it is touched,
// tracked via the header's max-page-id.
func (f *File) pinData(key uint32, forWrite bool) (*kernel.PageHandle, *Page, error) {
	pageNo := f.layout.CalcPageID(key)
	maxPageID, err := f.maxPageID()
	if err != nil {
		return nil, nil, err
	}

	fresh := pageNo > maxPageID
	if fresh && !forWrite {
		return nil, nil, nil
	}

	h, err := f.cache.Pin(pageNo, !fresh)
	if err != nil {
		return nil, nil, err
	}
	if fresh {
		clearDataPage(h.Data)
		for p := maxPageID + 1; p < pageNo; p++ {
			gh, gerr := f.cache.Pin(p, false)
			if gerr != nil {
				f.cache.Unpin(h)
				return nil, nil, gerr
			}
			if f.layout.IsManagementPage(p) {
				for i := range gh.Data {
					gh.Data[i] = 0
				}
			} else {
				clearDataPage(gh.Data)
			}
			gh.Dirty = true
			f.cache.Unpin(gh)
		}
		if err := f.ensureManagementPage(key); err != nil {
			f.cache.Unpin(h)
			return nil, nil, err
		}
		if err := f.bumpMaxPageID(pageNo); err != nil {
			f.cache.Unpin(h)
			return nil, nil, err
		}
	}
	return h, &Page{Data: h.Data, SlotSize: f.layout.SlotSize}, nil
}

// clearDataPage zeroes a freshly allocated data page's header (a
// live-slot count of 0) and fills every slot with the 0xFF
// absent-entry marker, per spec §3's vector entry invariant.
func clearDataPage(data []byte) {
	for i := 0; i < dataPageHeaderSize; i++ {
		data[i] = 0
	}
	for i := dataPageHeaderSize; i < len(data); i++ {
		data[i] = 0xFF
	}
}

// ensureManagementPage pins (creating if needed) the management page
// guarding key's block and bumps max-page-id to cover it, so its
// occupancy bits read as all-clear until a page in the block goes
// live.
func (f *File) ensureManagementPage(key uint32) error {
	mgmtPageNo := f.layout.ManagementPageID(key)
	maxPageID, err := f.maxPageID()
	if err != nil {
		return err
	}
	if mgmtPageNo <= maxPageID {
		return nil
	}
	h, err := f.cache.Pin(mgmtPageNo, false)
	if err != nil {
		return err
	}
	for i := range h.Data {
		h.Data[i] = 0
	}
	h.Dirty = true
	f.cache.Unpin(h)
	return f.bumpMaxPageID(mgmtPageNo)
}

func (f *File) pinManagement(key uint32, load bool) (*kernel.PageHandle, error) {
	mgmtPageNo := f.layout.ManagementPageID(key)
	return f.cache.Pin(mgmtPageNo, load)
}
