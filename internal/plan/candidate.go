package plan

import (
	"github.com/relstore/idxengine/internal/cond"
	"github.com/relstore/idxengine/internal/iter"
	"github.com/relstore/idxengine/internal/rowset"
)

// Bucket is one of the five classification buckets of spec §4.4.2.
type Bucket int

const (
	// NeedScan: no usable index; must scan the base table.
	NeedScan Bucket = iota
	// Fetch: needs a runtime key, e.g. a join's inner side.
	Fetch
	// IndexScan: an ordered stream from one index.
	IndexScan
	// SearchByBitSet: an index that accepts a pre-computed bitset as a
	// search-narrowing input.
	SearchByBitSet
	// BitSet: an index that can emit a bitset directly (getByBitSet).
	BitSet
)

func (b Bucket) String() string {
	switch b {
	case Fetch:
		return "Fetch"
	case IndexScan:
		return "IndexScan"
	case SearchByBitSet:
		return "SearchByBitSet"
	case BitSet:
		return "BitSet"
	default:
		return "NeedScan"
	}
}

// FieldSet is an ordered, deduplicated set of field indices, used by
// Candidate for the four field-usage sets the original's
// Candidate::File tracks.
type FieldSet []int

// Has reports whether fieldIndex is a member.
func (s FieldSet) Has(fieldIndex int) bool {
	for _, f := range s {
		if f == fieldIndex {
			return true
		}
	}
	return false
}

// Add appends fieldIndex if not already present.
func (s FieldSet) Add(fieldIndex int) FieldSet {
	if s.Has(fieldIndex) {
		return s
	}
	return append(s, fieldIndex)
}

// Source is the driver-facing seam a Candidate's file implements:
// either a bt.Tree or a vec.File adapter, per spec §4.4.1 "ask it for
// an AccessPlan::Cost". Concrete adapters live alongside the driver
// packages' callers (internal/plan's adapter_bt.go and adapter_vec.go)
// since plan must not
// import bt/vec's concrete cursor types directly into this file.
type Source interface {
	// Name identifies the file for diagnostics and Locker attachment.
	Name() string
	// EstimateCost returns this file's cost for evaluating compiled
	// with pushedBitSet reporting whether a bitset narrowing is pushed
	// down (false when none is yet). ok=false means the file cannot evaluate
	// compiled at all (spec §4.4.1's "candidate file able to evaluate
	// the term").
	EstimateCost(compiled cond.Compiled, pushedBitSet bool) (Cost, bool)
	// CanGetByBitSet reports whether this file can emit a bitset
	// directly without a narrowing input (index).
	CanGetByBitSet() bool
	// CanSearchByBitSet reports whether this file accepts a
	// pre-computed bitset as a search-narrowing input.
	CanSearchByBitSet() bool
	// CanOrder reports whether this file can stream in the given
	// logical order (ascending unless reverse is set) using orderField
	// as the leading key, per spec §4.4.4.
	CanOrder(orderField int, reverse bool) bool
	// NeedsLocking reports whether rows from this file require
	// row-level locking, per spec §4.4.1's locking penalty and §4.5's
	// locking contract.
	NeedsLocking() bool

	// OpenScan opens an ordered row-id stream over the candidate's
	// compiled bounds, used for IndexScan and as the leading scan of an
	// AND fallback (spec §4.4.3's "scan the leading index").
	OpenScan(compiled cond.Compiled, reverse bool) (iter.Source, error)
	// OpenGetByBitSet evaluates compiled and returns the full matching
	// row-id set directly, used by BitSet candidates.
	OpenGetByBitSet(compiled cond.Compiled) (*rowset.Set, error)
	// OpenSearchByBitSet narrows in to only the rows in pushedIn,
	// used by SearchByBitSet candidates.
	OpenSearchByBitSet(compiled cond.Compiled, pushedIn *rowset.Set) (iter.Source, error)
	// CheckRow re-evaluates compiled (bounds plus residual) against an
	// already-positioned row, used by the AND fallback path and by
	// Fetch's check-per-tuple operands (spec §4.4.3: "scan the leading
	// index ... and check the remaining predicates per tuple").
	CheckRow(compiled cond.Compiled, rowID uint32) (bool, error)
}

// Candidate is one file's fitness to evaluate a predicate term,
// ADAPTED from the original's Candidate::File: a predicate residual,
// an ordering capability, a limit-pushed flag, bitset capability
// flags, and the four field sets the original tracks per candidate
// (retrieved: fields this candidate's scan returns without a further
// fetch; put-key: fields used to build this candidate's search key;
// inserted: fields this candidate contributes to a join's build side;
// undo: fields that must be restored if this candidate's plan is
// abandoned mid-choice).
type Candidate struct {
	File Source

	Bucket Bucket
	Cost   Cost

	// Compiled is the compiled scan bounds this candidate was evaluated
	// against; retained so Emit can reopen the same bounds against
	// File's OpenScan/OpenGetByBitSet/OpenSearchByBitSet.
	Compiled cond.Compiled

	// Residual is the set of conditions this candidate's scan does not
	// itself satisfy and that must be re-checked per row.
	Residual []cond.Cond

	// OrderField, when >= 0, is the field this candidate can stream in
	// order on; Reverse reports the direction.
	OrderField int
	Reverse    bool

	LimitPushed bool

	Retrieved FieldSet
	PutKey    FieldSet
	Inserted  FieldSet
	Undo      FieldSet
}

// classifyOne assigns a single Candidate to its bucket, per spec
// §4.4.1/§4.4.2: a candidate falls back to NeedScan when the base-table
// scan is cheaper (after any locking penalty), or when its file has no
// bitset capability and no usable order. A file that cannot evaluate
// the term at all never gets here (Consider drops it).
func classifyOne(c *Candidate, scanCost float64) {
	if c.File.NeedsLocking() {
		c.Cost.ApplyLockingPenalty(scanCost)
	}
	if c.Cost.ScanIsBetter(scanCost) {
		c.Bucket = NeedScan
		return
	}
	switch {
	case c.File.CanGetByBitSet():
		c.Bucket = BitSet
	case c.File.CanSearchByBitSet():
		c.Bucket = SearchByBitSet
	case c.OrderField >= 0:
		c.Bucket = IndexScan
	default:
		c.Bucket = NeedScan
	}
}
