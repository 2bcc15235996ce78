// Package plan implements the index-choice planner: for a predicate
// tree (including AND/OR/NOT combinators) it enumerates candidate
// files, estimates cost, classifies each candidate into one of five
// buckets, and emits an iterator graph built from internal/iter's
// typed iterators. Grounded on
// original_source/Kernel/Plan/Candidate/Argument.cpp,
// Kernel/Plan/Candidate/File.cpp and
// Kernel/Plan/Predicate/Impl/ChosenImpl.cpp, with the cost-estimate
// vocabulary (LogEst-style selectivity, bitmask classification)
// cross-checked against other_examples'
// JuniperBible__core-sqlite-internal-planner-types.go.
package plan

import "math"

// Cost is one candidate's estimated execution cost, ADAPTED from the
// original's Candidate::Argument::Cost / AccessPlan::Cost.
type Cost struct {
	Overhead     float64 // fixed per-open cost (e.g. a root-page fetch)
	Total        float64 // overhead + per-tuple cost for TupleCount rows
	TupleCount   float64 // estimated rows this candidate returns
	TupleSize    float64 // estimated bytes per returned row
	Selectivity  float64 // fraction of the table this candidate selects, 0..1

	IsFetch    bool // candidate needs a runtime key supplied by a join driver
	IsSetCount bool // TupleCount came from a real estimate, not a default guess
	IsSetRate  bool // Selectivity came from a real estimate
	IsLimited  bool // a LIMIT was pushed down into this cost
}

// ApplyLockingPenalty adds the row-level locking surcharge spec §4.4.1
// describes: "total += scan_cost × (count/10)³". scanCost is the cost
// of the fallback full-table scan this candidate is being compared
// against.
func (c *Cost) ApplyLockingPenalty(scanCost float64) {
	ratio := c.TupleCount / 10
	c.Total += scanCost * ratio * ratio * ratio
}

// ScanIsBetter reports whether a full scan (with scanCost, optionally
// narrowed by a pushed-down limit) beats this candidate's cost, per
// spec §4.4.1: "If the scan cost ... is less, the file is marked
// scan-is-better and the index is not used for that predicate."
func (c *Cost) ScanIsBetter(scanCost float64) bool {
	return scanCost < c.Total
}

// Invert produces the cost of NOT this candidate, per spec §4.4.3:
// "cost selectivity is inverted as 1 − rate (tuple count
// max(1, total − operand_tuples))". tableTupleCount is the logical
// table's total row estimate.
func (c Cost) Invert(tableTupleCount float64) Cost {
	out := c
	out.Selectivity = 1 - c.Selectivity
	out.TupleCount = math.Max(1, tableTupleCount-c.TupleCount)
	return out
}

// combineAND returns the cost of an AND of costs whose selectivities
// are assumed independent: selectivities multiply, tuple counts follow
// the product, and total cost is the sum of each operand's own cost
// (the combinator pays each operand's individual scan/bitset cost
// exactly once).
func combineAND(costs []Cost, tableTupleCount float64) Cost {
	out := Cost{Selectivity: 1, IsSetRate: true, IsSetCount: true}
	for _, c := range costs {
		out.Selectivity *= c.Selectivity
		out.Total += c.Total
		out.Overhead += c.Overhead
		if !c.IsSetRate {
			out.IsSetRate = false
		}
		if !c.IsSetCount {
			out.IsSetCount = false
		}
	}
	out.TupleCount = out.Selectivity * tableTupleCount
	return out
}

// combineOR returns the cost of an OR of costs, using the standard
// inclusion-style approximation (1 − ∏(1 − s_i)) for combined
// selectivity, and summing each operand's cost.
func combineOR(costs []Cost, tableTupleCount float64) Cost {
	out := Cost{IsSetRate: true, IsSetCount: true}
	complement := 1.0
	for _, c := range costs {
		complement *= 1 - c.Selectivity
		out.Total += c.Total
		out.Overhead += c.Overhead
		if !c.IsSetRate {
			out.IsSetRate = false
		}
		if !c.IsSetCount {
			out.IsSetCount = false
		}
	}
	out.Selectivity = 1 - complement
	out.TupleCount = out.Selectivity * tableTupleCount
	return out
}
