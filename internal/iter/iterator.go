// Package iter implements the typed iterator graph PLN emits (spec
// §4.4.5): FileScan, BitSetScan, LoopOnce, Filter, MergeSort,
// UnionDistinct, and the CheckCancel action every non-parallel,
// non-recovery iterator carries. Grounded in idiom on
// other_examples/.../SimonWaldherr-tinySQL's small composable
// iterator types with open/next/close lifecycles, generalized to the
// row-id stream this layer's drivers (internal/bt, internal/vec)
// produce.
package iter

import "context"

// Iterator is the common shape every node in the emitted plan graph
// exposes, per spec §4.4.5: "Each iterator exposes
// open/next/close/reset/mark/rewind/finish and carries (a) an input
// list ... (b) an action list ... (c) an optional predicate ... (d) an
// optional locker."
type Iterator interface {
	// Open prepares the iterator to produce rows; for a BitSet-building
	// iterator this is where the bitset is actually materialised.
	Open(ctx context.Context) error
	// Next advances to the next row-id, or ok=false on exhaustion.
	Next(ctx context.Context) (rowID uint32, ok bool, err error)
	// Close releases any file handles this iterator (or its children)
	// opened; per spec §5 "Iterators own their file-open handles;
	// closing an iterator closes its files before returning."
	Close() error
	// Reset invalidates the iterator's position and any duplicate-
	// suppression state, per spec §5 "Cursor state".
	Reset() error
	// Mark snapshots the current logical position.
	Mark()
	// Rewind restores the last marked position; per spec §5 and §9 open
	// question 3, an iterator with no mark since the last Open may fall
	// back to re-opening rather than erroring.
	Rewind() error
}

// Locker is the row-level locking hook of spec §4.5, attached to
// whichever iterator owns the bitset or scan a plan's locking contract
// requires locks to be taken at.
type Locker interface {
	LockRow(rowID uint32) error
}
