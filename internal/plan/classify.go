package plan

import (
	"sort"

	"github.com/relstore/idxengine/internal/cond"
)

// CheckIndexArgument is built per logical table by visiting a
// predicate tree, per spec §4.4.2: "A CheckIndexArgument is built per
// logical table by visiting the predicate tree." It accumulates every
// candidate a leaf predicate considered, already classified, in the
// order they were considered; Classify returns them stable-sorted by
// selectivity (most selective first).
type CheckIndexArgument struct {
	TableTupleCount float64
	ScanCost        float64

	Candidates []*Candidate
}

// NewCheckIndexArgument starts a fresh classification pass over a
// table whose unindexed full-scan cost is scanCost.
func NewCheckIndexArgument(tableTupleCount, scanCost float64) *CheckIndexArgument {
	return &CheckIndexArgument{TableTupleCount: tableTupleCount, ScanCost: scanCost}
}

// Consider asks file to evaluate compiled and, if it can, classifies
// and records the resulting Candidate. ok reports whether the file
// produced a usable candidate at all (it may still end up NeedScan).
func (a *CheckIndexArgument) Consider(file Source, compiled cond.Compiled, orderField int) (*Candidate, bool) {
	cost, ok := file.EstimateCost(compiled, false)
	if !ok {
		return nil, false
	}
	c := &Candidate{
		File:        file,
		Cost:        cost,
		Compiled:    compiled,
		Residual:    compiled.Residual,
		OrderField:  -1,
		LimitPushed: cost.IsLimited,
	}
	if orderField >= 0 && file.CanOrder(orderField, compiled.Reverse) {
		c.OrderField = orderField
		c.Reverse = compiled.Reverse
	}
	classifyOne(c, a.ScanCost)
	a.Candidates = append(a.Candidates, c)
	return c, true
}

// Classify stable-sorts the recorded candidates by ascending
// selectivity (most selective, i.e. smallest fraction of the table,
// first), per spec §4.4.2: "Buckets are stable-sorted by estimated
// selectivity before emission." NeedScan candidates, which carry no
// useful selectivity estimate, sort last.
func (a *CheckIndexArgument) Classify() []*Candidate {
	out := make([]*Candidate, len(a.Candidates))
	copy(out, a.Candidates)
	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := out[i].Bucket == NeedScan, out[j].Bucket == NeedScan
		if bi != bj {
			return bj // i (non-NeedScan) sorts before j (NeedScan)
		}
		return out[i].Cost.Selectivity < out[j].Cost.Selectivity
	})
	return out
}

// BestBitSetCandidates filters cands to those classified BitSet.
func BestBitSetCandidates(cands []*Candidate) []*Candidate {
	return filterBucket(cands, BitSet)
}

// BestSearchByBitSetCandidates filters cands to those classified
// SearchByBitSet.
func BestSearchByBitSetCandidates(cands []*Candidate) []*Candidate {
	return filterBucket(cands, SearchByBitSet)
}

func filterBucket(cands []*Candidate, bucket Bucket) []*Candidate {
	var out []*Candidate
	for _, c := range cands {
		if c.Bucket == bucket {
			out = append(out, c)
		}
	}
	return out
}
