package vec

import "github.com/relstore/idxengine/internal/rowset"

// EstimateCount returns the number of live row-ids within [lower,
// upper], used by PLN's cost model the same way bt.EstimateCount is
// (spec §4.4.1): VEC's direct addressing makes an exact count cheap to
// derive from the occupancy scan rather than needing bt's sampling
// approximation.
func (f *File) EstimateCount(lower, upper uint32) (int, error) {
	scan := NewRangeScan(f, []Interval{{Min: lower, Max: upper}})
	count := 0
	for {
		_, ok, err := scan.Next()
		if err != nil {
			return count, err
		}
		if !ok {
			return count, nil
		}
		count++
	}
}

// GetByBitSet unions every live row-id in [lower, upper] into out, the
// VEC counterpart of bt.Tree.GetByBitSet (spec §4.1's getByBitSet,
// generalized to any index file PLN treats as a BitSet-bucket
// candidate).
func (f *File) GetByBitSet(lower, upper uint32, out *rowset.Set) error {
	scan := NewRangeScan(f, []Interval{{Min: lower, Max: upper}})
	for {
		key, ok, err := scan.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		out.Add(key)
	}
}
