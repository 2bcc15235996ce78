package bt

import "github.com/relstore/idxengine/internal/pagestore"

// EstimateCount returns a selectivity estimate for the [lower, upper]
// range, used by PLN's cost model (spec §4.1 "getEstimateCount" /
// §4.4.1). This layer estimates by sampling the leaf level: walk at
// most sampleLimit leaves, counting live entries. When the range spans
// more leaves than the sample, the count of the sampled leaves is
// returned as it is, with no extrapolation.
const sampleLimit = 64

func (t *Tree) EstimateCount(lower, upper []byte) (int, error) {
	set, slot, err := t.descend(lower, 0, pagestore.LockRead)
	if err != nil {
		return 0, err
	}
	defer func() {
		t.unlock(set.handle.PageNo, pagestore.LockRead)
		t.unpin(set)
	}()

	count := 0
	pagesWalked := 0
	for pagesWalked < sampleLimit {
		for ; slot <= set.page.Cnt && slot > 0; slot++ {
			k := set.page.Key(slot)
			if upper != nil && t.cmp(k, upper) > 0 {
				return count, nil
			}
			if !set.page.Dead(slot) {
				count++
			}
		}
		pagesWalked++
		if set.page.Right == 0 {
			return count, nil
		}
		t.unlock(set.handle.PageNo, pagestore.LockRead)
		t.unpin(set)
		set, err = t.pin(set.page.Right, true)
		if err != nil {
			return count, err
		}
		t.lock(set.handle.PageNo, pagestore.LockRead)
		slot = 1
	}
	// Sample exhausted before the upper bound; the caller (PLN) treats
	// this as "large enough that exact count isn't worth computing"
	// and uses count as a lower-bound estimate, per spec §4.4.1's cost
	// model tolerating approximate selectivity.
	return count, nil
}
