package pagestore

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/relstore/idxengine/internal/kernel"
)

// LockMode is one of the six lock types of spec §9's design note,
// ADAPTED from the teacher's BLTLockMode (latchmgr.go). AtomicLock is
// omitted, as in the teacher: the Go port never needed it.
type LockMode int

const (
	LockNone   LockMode = 0
	LockAccess LockMode = 1
	LockDelete LockMode = 2
	LockRead   LockMode = 4
	LockWrite  LockMode = 8
	LockParent LockMode = 16
)

const (
	phID  = 0x1
	pres  = 0x2
	mask  = 0x3
	rInc  = 0x4
)

// RWLock is a phase-fair reader/writer lock, ADAPTED verbatim from the
// teacher's BLTRWLock (latchmgr.go) — ticketed writers, counted
// readers, no change in algorithm.
type RWLock struct {
	rin     uint32
	rout    uint32
	ticket  uint32
	serving uint32
}

func (l *RWLock) WriteLock() {
	tix := atomic.AddUint32(&l.ticket, 1) - 1
	for tix != l.serving {
		runtime.Gosched()
	}
	w := pres | (tix & phID)
	r := atomic.AddUint32(&l.rin, w) - w
	for r != l.rout {
		runtime.Gosched()
	}
}

func (l *RWLock) WriteRelease() {
	fetchAndAnd(&l.rin, ^uint32(mask))
	l.serving++
}

func (l *RWLock) ReadLock() {
	w := (atomic.AddUint32(&l.rin, rInc) - rInc) & mask
	if w > 0 {
		for w == l.rin&mask {
			runtime.Gosched()
		}
	}
}

func (l *RWLock) ReadRelease() {
	atomic.AddUint32(&l.rout, rInc)
}

func fetchAndAnd(addr *uint32, v uint32) uint32 {
	for {
		old := *addr
		if atomic.CompareAndSwapUint32(addr, old, old&v) {
			return old
		}
	}
}

func fetchAndOr(addr *uint32, v uint32) uint32 {
	for {
		old := *addr
		if atomic.CompareAndSwapUint32(addr, old, old|v) {
			return old
		}
	}
}

// SpinLatch is a mutex-backed spin latch with share-count tracking,
// ADAPTED verbatim from the teacher's SpinLatch (latchmgr.go).
type SpinLatch struct {
	mu        sync.Mutex
	exclusive bool
	pending   bool
	share     uint16
}

func (l *SpinLatch) ReadLock() {
	for {
		l.mu.Lock()
		ok := !(l.exclusive || l.pending)
		if ok {
			l.share++
		}
		l.mu.Unlock()
		if ok {
			return
		}
	}
}

func (l *SpinLatch) WriteLock() {
	for {
		l.mu.Lock()
		ok := !(l.share > 0 || l.exclusive)
		if ok {
			l.exclusive = true
			l.pending = false
		} else {
			l.pending = true
		}
		l.mu.Unlock()
		if ok {
			return
		}
	}
}

func (l *SpinLatch) WriteTry() bool {
	if !l.mu.TryLock() {
		return false
	}
	defer l.mu.Unlock()
	ok := !(l.share > 0 || l.exclusive)
	if ok {
		l.exclusive = true
	}
	return ok
}

func (l *SpinLatch) ReleaseWrite() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exclusive = false
}

func (l *SpinLatch) ReleaseRead() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.share--
}

// clockBit marks a latch set as recently used for the clock-sweep
// eviction algorithm, ADAPTED from the teacher's ClockBit.
const clockBit = uint32(0x8000)

// HashEntry is a hash-table bucket head, ADAPTED from the teacher's
// HashEntry (bufmgr.go).
type HashEntry struct {
	slot  uint
	latch SpinLatch
}

// LatchSet is the per-pool-slot latch bundle, ADAPTED from the
// teacher's LatchSet (latchmgr.go), generalized to kernel.PageID.
type LatchSet struct {
	PageNo kernel.PageID
	readWr RWLock
	access RWLock
	parent RWLock
	split  uint
	entry  uint
	next   uint
	prev   uint
	pin    uint32
	Dirty  bool
}

// Lock places a read/write/access/delete/parent lock on the page
// behind latch, ADAPTED from the teacher's BufMgr.LockPage.
func (l *LatchSet) Lock(mode LockMode) {
	switch mode {
	case LockRead:
		l.readWr.ReadLock()
	case LockWrite:
		l.readWr.WriteLock()
	case LockAccess:
		l.access.ReadLock()
	case LockDelete:
		l.access.WriteLock()
	case LockParent:
		l.parent.WriteLock()
	}
}

// Unlock releases the corresponding lock obtained via Lock.
func (l *LatchSet) Unlock(mode LockMode) {
	switch mode {
	case LockRead:
		l.readWr.ReadRelease()
	case LockWrite:
		l.readWr.WriteRelease()
	case LockAccess:
		l.access.ReadRelease()
	case LockDelete:
		l.access.WriteRelease()
	case LockParent:
		l.parent.WriteRelease()
	}
}
