// Package pagestore is the one concrete PageCache this module ships:
// a hash-indexed buffer pool with clock-sweep eviction and phase-fair
// latches, ADAPTED from the teacher's BufMgr (bufmgr.go) and
// generalized to serve both BT and VEC pages (spec §3 treats the page
// cache as one external collaborator shared by both drivers).
package pagestore

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/relstore/idxengine/internal/kernel"
)

// zeroHeaderSize is the size, in bytes, of pagestore's own private
// bookkeeping region at the front of page 0: magic, version, page
// size bits, the allocation-right cursor, the free-page chain head,
// and the duplicate-key uniquifier counter (ADAPTED from the
// teacher's PageZero: alloc/dups/chain, bufmgr.go). Whatever bytes of
// page 0 remain beyond this header belong to the owning driver (BT's
// tuple count / max-page-id / flags, spec §3).
const zeroHeaderSize = 32

const (
	zeroMagic        = "BLT1"
	offMagic         = 0
	offVersion       = 4
	offPageBits      = 5
	offAllocRight    = 8
	offFreeChainHead = 12
	offDupCounter    = 16
)

// BufMgr is a buffer pool over a single backing file, implementing
// kernel.PageCache. ADAPTED from the teacher's BufMgr struct
// (bufmgr.go): hashTable/latchSets/pagePool/latchDeployed/latchVictim
// all carry over; the teacher's single raw syscall.Mmap of page zero
// is replaced by github.com/edsrzf/mmap-go (domain-stack wiring, see
// SPEC_FULL.md §3), and mount/unmount now take a github.com/gofrs/flock
// advisory lock so two processes cannot open the same file for write.
type BufMgr struct {
	pageSize     uint32
	pageBits     uint8
	idx          *os.File
	zeroMap      mmap.MMap
	fileLock     *flock.Flock

	lock          SpinLatch
	latchDeployed uint32
	latchTotal    uint
	latchHash     uint
	latchVictim   uint32
	hashTable     []HashEntry
	latchSets     []LatchSet
	pagePool      [][]byte

	checkpoint *kernel.Checkpoint
	log        *kernel.Logger
	path       string
}

// Options configures a new buffer pool.
type Options struct {
	PageBits uint8 // page size in bits, clamped to [minPageBits, maxPageBits]
	PoolSize uint  // number of buffer-pool slots (latchTotal)
	Checkpoint *kernel.Checkpoint
	Log        *kernel.Logger
}

const (
	minPageBits = 9
	maxPageBits = 24
)

// Open creates or opens the backing file at path and returns a ready
// buffer pool, ADAPTED from the teacher's NewBufMgr (bufmgr.go).
func Open(path string, opt Options) (*BufMgr, error) {
	if opt.PageBits < minPageBits {
		opt.PageBits = minPageBits
	} else if opt.PageBits > maxPageBits {
		opt.PageBits = maxPageBits
	}
	if opt.PoolSize < 16 {
		return nil, errors.Errorf("pagestore: buffer pool too small: %d", opt.PoolSize)
	}
	if opt.Checkpoint == nil {
		opt.Checkpoint = kernel.NewCheckpoint()
	}
	if opt.Log == nil {
		opt.Log = kernel.NewNop()
	}

	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil || !locked {
		return nil, errors.Wrapf(err, "pagestore: unable to lock %s for mount", path)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		_ = fileLock.Unlock()
		return nil, errors.Wrapf(err, "pagestore: unable to open %s", path)
	}

	initialize := true
	if size, serr := f.Seek(0, io.SeekEnd); serr == nil && size >= zeroHeaderSize {
		zero := make([]byte, zeroHeaderSize)
		if n, rerr := f.ReadAt(zero, 0); rerr == nil && n == zeroHeaderSize && string(zero[:4]) == zeroMagic {
			opt.PageBits = zero[offPageBits]
			initialize = false
		}
	}

	mgr := &BufMgr{
		pageSize:   1 << opt.PageBits,
		pageBits:   opt.PageBits,
		idx:        f,
		fileLock:   fileLock,
		latchHash:  opt.PoolSize / 16,
		latchTotal: opt.PoolSize,
		checkpoint: opt.Checkpoint,
		log:        opt.Log,
		path:       path,
	}
	if mgr.latchHash == 0 {
		mgr.latchHash = 1
	}

	if initialize {
		zero := make([]byte, mgr.pageSize)
		copy(zero[offMagic:], zeroMagic)
		zero[offVersion] = 1
		zero[offPageBits] = mgr.pageBits
		binary.LittleEndian.PutUint32(zero[offAllocRight:], 1)
		binary.LittleEndian.PutUint32(zero[offFreeChainHead:], 0)
		binary.LittleEndian.PutUint64(zero[offDupCounter:], 0)
		if _, werr := f.WriteAt(zero, 0); werr != nil {
			_ = f.Close()
			_ = fileLock.Unlock()
			return nil, errors.Wrap(werr, "pagestore: unable to write page zero")
		}
	}

	m, err := mmap.MapRegion(f, int(zeroHeaderSize), mmap.RDWR, 0, 0)
	if err != nil {
		_ = f.Close()
		_ = fileLock.Unlock()
		return nil, errors.Wrap(err, "pagestore: unable to mmap page zero header")
	}
	mgr.zeroMap = m

	mgr.hashTable = make([]HashEntry, mgr.latchHash)
	mgr.latchSets = make([]LatchSet, mgr.latchTotal)
	mgr.pagePool = make([][]byte, mgr.latchTotal)

	return mgr, nil
}

func (mgr *BufMgr) PageSize() uint32 { return mgr.pageSize }

func (mgr *BufMgr) allocRight() kernel.PageID {
	return kernel.PageID(binary.LittleEndian.Uint32(mgr.zeroMap[offAllocRight:]))
}

func (mgr *BufMgr) setAllocRight(id kernel.PageID) {
	binary.LittleEndian.PutUint32(mgr.zeroMap[offAllocRight:], uint32(id))
}

func (mgr *BufMgr) freeChainHead() kernel.PageID {
	return kernel.PageID(binary.LittleEndian.Uint32(mgr.zeroMap[offFreeChainHead:]))
}

func (mgr *BufMgr) setFreeChainHead(id kernel.PageID) {
	binary.LittleEndian.PutUint32(mgr.zeroMap[offFreeChainHead:], uint32(id))
}

// NextDup returns the next global duplicate-key uniquifier, ADAPTED
// from the teacher's BLTree.newDup (bltree.go).
func (mgr *BufMgr) NextDup() uint64 {
	return mgr.incDup()
}

func (mgr *BufMgr) incDup() uint64 {
	mgr.lock.WriteLock()
	defer mgr.lock.ReleaseWrite()
	v := binary.LittleEndian.Uint64(mgr.zeroMap[offDupCounter:]) + 1
	binary.LittleEndian.PutUint64(mgr.zeroMap[offDupCounter:], v)
	return v
}

func (mgr *BufMgr) readPage(pageNo kernel.PageID) ([]byte, error) {
	off := int64(pageNo) * int64(mgr.pageSize)
	buf := make([]byte, mgr.pageSize)
	n, err := mgr.idx.ReadAt(buf, off)
	if err != nil && n < len(buf) {
		return nil, errors.Wrapf(err, "pagestore: read page %d", pageNo)
	}
	return buf, nil
}

func (mgr *BufMgr) writePage(pageNo kernel.PageID, data []byte) error {
	off := int64(pageNo) * int64(mgr.pageSize)
	if _, err := mgr.idx.WriteAt(data, off); err != nil {
		return errors.Wrapf(err, "pagestore: write page %d", pageNo)
	}
	return nil
}

func (mgr *BufMgr) latchLink(hashIdx, slot uint, pageNo kernel.PageID, load bool) error {
	latch := &mgr.latchSets[slot]
	latch.next = mgr.hashTable[hashIdx].slot
	if latch.next > 0 {
		mgr.latchSets[latch.next].prev = slot
	}
	mgr.hashTable[hashIdx].slot = slot
	latch.PageNo = pageNo
	latch.entry = slot
	latch.split = 0
	latch.prev = 0
	latch.pin = 1

	if load {
		data, err := mgr.readPage(pageNo)
		if err != nil {
			return err
		}
		mgr.pagePool[slot] = data
	} else if mgr.pagePool[slot] == nil {
		mgr.pagePool[slot] = make([]byte, mgr.pageSize)
	}
	return nil
}

// Pin implements kernel.PageCache, ADAPTED from the teacher's
// BufMgr.PinLatch (bufmgr.go): hash lookup, then clock-sweep eviction
// of an unpinned victim slot when the pool is full.
func (mgr *BufMgr) Pin(pageNo kernel.PageID, load bool) (*kernel.PageHandle, error) {
	hashIdx := uint(pageNo) % mgr.latchHash
	mgr.hashTable[hashIdx].latch.WriteLock()
	defer mgr.hashTable[hashIdx].latch.ReleaseWrite()

	slot := mgr.hashTable[hashIdx].slot
	for slot > 0 {
		latch := &mgr.latchSets[slot]
		if latch.PageNo == pageNo {
			atomic.AddUint32(&latch.pin, 1)
			return mgr.handle(slot), nil
		}
		slot = latch.next
	}

	newSlot := uint(atomic.AddUint32(&mgr.latchDeployed, 1))
	if newSlot < mgr.latchTotal {
		if err := mgr.latchLink(hashIdx, newSlot, pageNo, load); err != nil {
			return nil, err
		}
		return mgr.handle(newSlot), nil
	}
	atomic.AddUint32(&mgr.latchDeployed, ^uint32(0))

	for {
		victim := uint(atomic.AddUint32(&mgr.latchVictim, 1)-1) % mgr.latchTotal
		if victim == 0 {
			continue
		}
		latch := &mgr.latchSets[victim]
		idx := uint(latch.PageNo) % mgr.latchHash
		if idx == hashIdx {
			continue
		}
		if !mgr.hashTable[idx].latch.WriteTry() {
			continue
		}
		if latch.pin > 0 {
			if latch.pin&clockBit > 0 {
				fetchAndAnd(&latch.pin, ^clockBit)
			}
			mgr.hashTable[idx].latch.ReleaseWrite()
			continue
		}

		if latch.Dirty {
			if err := mgr.writePage(latch.PageNo, mgr.pagePool[victim]); err != nil {
				mgr.hashTable[idx].latch.ReleaseWrite()
				return nil, err
			}
			latch.Dirty = false
		}

		if latch.prev > 0 {
			mgr.latchSets[latch.prev].next = latch.next
		} else {
			mgr.hashTable[idx].slot = latch.next
		}
		if latch.next > 0 {
			mgr.latchSets[latch.next].prev = latch.prev
		}

		if err := mgr.latchLink(hashIdx, victim, pageNo, load); err != nil {
			mgr.hashTable[idx].latch.ReleaseWrite()
			return nil, err
		}
		mgr.hashTable[idx].latch.ReleaseWrite()
		return mgr.handle(victim), nil
	}
}

func (mgr *BufMgr) handle(slot uint) *kernel.PageHandle {
	latch := &mgr.latchSets[slot]
	return &kernel.PageHandle{PageNo: latch.PageNo, Data: mgr.pagePool[slot]}
}

// LockPage takes the named lock mode on the page currently pinned at
// pageNo, ADAPTED from the teacher's BufMgr.LockPage: it looks up the
// live LatchSet and dispatches to LatchSet.Lock. pageNo must already
// be pinned (via Pin) by the caller.
func (mgr *BufMgr) LockPage(pageNo kernel.PageID, mode LockMode) {
	if latch := mgr.slotLatch(pageNo); latch != nil {
		latch.Lock(mode)
	}
}

// UnlockPage releases a lock obtained via LockPage, ADAPTED from the
// teacher's BufMgr.UnlockPage.
func (mgr *BufMgr) UnlockPage(pageNo kernel.PageID, mode LockMode) {
	if latch := mgr.slotLatch(pageNo); latch != nil {
		latch.Unlock(mode)
	}
}

func (mgr *BufMgr) slotLatch(pageNo kernel.PageID) *LatchSet {
	hashIdx := uint(pageNo) % mgr.latchHash
	slot := mgr.hashTable[hashIdx].slot
	for slot > 0 {
		l := &mgr.latchSets[slot]
		if l.PageNo == pageNo {
			return l
		}
		slot = l.next
	}
	return nil
}

// Unpin implements kernel.PageCache, ADAPTED from the teacher's
// BufMgr.UnpinLatch. Any dirty flag set on the handle is propagated to
// the pool slot so later eviction/flush sees it.
func (mgr *BufMgr) Unpin(h *kernel.PageHandle) {
	latch := mgr.slotLatch(h.PageNo)
	if latch == nil {
		return
	}
	if h.Dirty {
		latch.Dirty = true
	}
	if ^latch.pin&clockBit > 0 {
		fetchAndOr(&latch.pin, clockBit)
	}
	atomic.AddUint32(&latch.pin, ^uint32(0))
}

// NewPage implements kernel.PageCache, ADAPTED from the teacher's
// BufMgr.NewPage: reuse the free chain head if any, else extend the
// file.
func (mgr *BufMgr) NewPage(contents []byte) (*kernel.PageHandle, error) {
	mgr.lock.WriteLock()
	pageNo := mgr.freeChainHead()
	if pageNo > 0 {
		h, err := mgr.Pin(pageNo, true)
		if err != nil {
			mgr.lock.ReleaseWrite()
			return nil, err
		}
		mgr.setFreeChainHead(kernel.PageID(binary.LittleEndian.Uint32(h.Data[:4])))
		mgr.lock.ReleaseWrite()
		copy(h.Data, contents)
		h.Dirty = true
		mgr.Unpin(h)
		return mgr.Pin(pageNo, true)
	}

	pageNo = mgr.allocRight()
	mgr.setAllocRight(pageNo + 1)
	mgr.lock.ReleaseWrite()

	h, err := mgr.Pin(pageNo, false)
	if err != nil {
		return nil, err
	}
	if h.Data == nil {
		h.Data = make([]byte, mgr.pageSize)
	}
	copy(h.Data, contents)
	h.Dirty = true
	return h, nil
}

// FreePage implements kernel.PageCache, ADAPTED from the teacher's
// BufMgr.FreePage: chain the freed page onto the free-page list.
func (mgr *BufMgr) FreePage(h *kernel.PageHandle) error {
	mgr.lock.WriteLock()
	defer mgr.lock.ReleaseWrite()
	binary.LittleEndian.PutUint32(h.Data[:4], uint32(mgr.freeChainHead()))
	mgr.setFreeChainHead(h.PageNo)
	h.Dirty = true
	mgr.Unpin(h)
	return nil
}

// Flush implements kernel.PageCache, ADAPTED from the teacher's
// BufMgr.Close's flush loop, split out so Close can also release the
// file lock.
func (mgr *BufMgr) Flush() error {
	var slot uint32
	for slot = 1; slot <= mgr.latchDeployed; slot++ {
		latch := &mgr.latchSets[slot]
		if latch.Dirty {
			if err := mgr.writePage(latch.PageNo, mgr.pagePool[slot]); err != nil {
				return err
			}
			latch.Dirty = false
		}
	}
	return nil
}

// Close implements kernel.PageCache: flush, unmap page zero, close the
// file, and release the mount lock.
func (mgr *BufMgr) Close() error {
	if err := mgr.Flush(); err != nil {
		mgr.log.Errorw("flush failed on close", "path", mgr.path, "err", err)
	}
	if err := mgr.zeroMap.Unmap(); err != nil {
		mgr.log.Errorw("unmap failed on close", "path", mgr.path, "err", err)
	}
	err := mgr.idx.Close()
	_ = mgr.fileLock.Unlock()
	return err
}

// Move relocates the backing file to newPath. Per spec §4.1, Move
// must succeed without checking mount state, so it works directly on
// the filesystem path rather than through the live handle.
func Move(oldPath, newPath string) error {
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return errors.Wrap(err, "pagestore: move: mkdir destination")
	}
	return os.Rename(oldPath, newPath)
}

// Destroy removes the backing file and its lock file. Per spec §4.1,
// Destroy must succeed without checking mount state.
func Destroy(path string) error {
	_ = os.Remove(path + ".lock")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "pagestore: destroy")
	}
	return nil
}
