package kernel

// PageID identifies a fixed-size page within a file, per spec §3.
type PageID uint32

// InvalidPageID is never a legal page number (page 0 is the header
// page, so valid data pages start at 1).
const InvalidPageID PageID = 0

// PageCache is the external collaborator of spec §1's non-goals: BT
// and VEC drivers read/write pages exclusively through this interface.
// internal/pagestore provides the one concrete implementation this
// module ships, so the drivers have something to run against; a real
// deployment would plug in the database kernel's own page cache.
type PageCache interface {
	// Pin returns the in-memory bytes for pageNo, reading it from disk
	// and registering it in the cache if not already resident. load
	// controls whether the page contents must be read before use (false
	// is used for brand-new pages about to be overwritten wholesale).
	Pin(pageNo PageID, load bool) (*PageHandle, error)
	// Unpin releases a pin obtained from Pin.
	Unpin(h *PageHandle)
	// NewPage allocates a fresh page (reusing a freed one if available)
	// and copies contents into it.
	NewPage(contents []byte) (*PageHandle, error)
	// FreePage returns a page to the free list for reuse.
	FreePage(h *PageHandle) error
	// Flush writes every dirty page back to disk.
	Flush() error
	// PageSize reports the fixed page size in bytes.
	PageSize() uint32
	// Close flushes and releases the underlying file.
	Close() error
}

// PageHandle is a pinned, optionally locked page. Its Data slice is
// exactly PageCache.PageSize() bytes, including whatever header the
// owning driver (BT or VEC) lays out at the front.
type PageHandle struct {
	PageNo PageID
	Data   []byte
	Dirty  bool
}

// Transaction is the external collaborator spec §1 calls out ("active
// transaction handle") that every BT/VEC public operation takes. This
// layer never implements commit/abort semantics itself — it only
// threads the handle through to PageCache/LockManager calls so a real
// transaction manager can hook in.
type Transaction interface {
	// ID is an opaque identifier used for lock ownership.
	ID() uint64
	// Batch reports whether this transaction is in batch-insert mode
	// (spec §4.1 "Batch insert"): dirty pages are not reverted on
	// error, and recover is unavailable.
	Batch() bool
}

// LockManager is the external collaborator behind spec §4.5's locking
// contract. The planner attaches Locker actions (internal/plan) that
// call into this interface at bitset-build or row-fetch time.
type LockManager interface {
	LockRow(txn Transaction, rowID uint32) error
	UnlockRow(txn Transaction, rowID uint32) error
	// RequiresLocking reports whether the named table needs row-level
	// locking at all; tables that don't need it skip the locking
	// penalty in PLN's cost model (spec §4.4.1) and the Locker
	// attachment in PLN's emission (spec §4.5).
	RequiresLocking(table string) bool
}
