package plan

import (
	"github.com/relstore/idxengine/internal/cond"
	"github.com/relstore/idxengine/internal/iter"
	"github.com/relstore/idxengine/internal/rowset"
	"github.com/relstore/idxengine/internal/vec"
)

// VecSource adapts a *vec.File into plan.Source. VEC's key space is
// the row-id itself (spec §4.2), so unlike BTSource there is no
// decode step: the key a scan yields is the row-id.
type VecSource struct {
	name            string
	file            *vec.File
	tupleSize       float64
	tableTupleCount float64
	locking         bool

	bitsetCache *rowset.Set
}

// NewVecSource wraps file as a candidate for direct-key (row-id)
// lookups and range scans.
func NewVecSource(name string, file *vec.File, tupleSize, tableTupleCount float64, locking bool) *VecSource {
	return &VecSource{name: name, file: file, tupleSize: tupleSize, tableTupleCount: tableTupleCount, locking: locking}
}

func (v *VecSource) Name() string { return v.name }

func (v *VecSource) EstimateCost(compiled cond.Compiled, pushedBitSet bool) (Cost, bool) {
	lower, upper, ok := vecBounds(compiled)
	if !ok {
		return Cost{}, false
	}
	count, err := v.file.EstimateCount(lower, upper)
	if err != nil {
		return Cost{}, false
	}
	tupleCount := float64(count)
	selectivity := 1.0
	if v.tableTupleCount > 0 {
		selectivity = tupleCount / v.tableTupleCount
	}
	overhead := 0.5 // direct addressing needs no root-page descent
	total := overhead + tupleCount*(1+v.tupleSize/64)
	return Cost{
		Overhead:    overhead,
		Total:       total,
		TupleCount:  tupleCount,
		TupleSize:   v.tupleSize,
		Selectivity: selectivity,
		IsSetCount:  true,
		IsSetRate:   true,
	}, true
}

func (v *VecSource) CanGetByBitSet() bool    { return true }
func (v *VecSource) CanSearchByBitSet() bool { return true }
func (v *VecSource) NeedsLocking() bool      { return v.locking }

// CanOrder reports true only for the row-id field itself (field index
// 0 by convention): VEC has exactly one key, the row-id.
func (v *VecSource) CanOrder(orderField int, reverse bool) bool {
	return orderField == 0
}

func (v *VecSource) OpenScan(compiled cond.Compiled, reverse bool) (iter.Source, error) {
	lower, upper, ok := vecBounds(compiled)
	if !ok {
		lower, upper = 0, vec.IllegalKey-1
	}
	intervals := []vec.Interval{{Min: lower, Max: upper}}
	if reverse {
		return &vecReverseScanSource{scan: vec.NewReverseRangeScan(v.file, intervals)}, nil
	}
	return &vecScanSource{scan: vec.NewRangeScan(v.file, intervals)}, nil
}

func (v *VecSource) OpenGetByBitSet(compiled cond.Compiled) (*rowset.Set, error) {
	lower, upper, ok := vecBounds(compiled)
	if !ok {
		lower, upper = 0, vec.IllegalKey-1
	}
	out := rowset.New(0)
	if err := v.file.GetByBitSet(lower, upper, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *VecSource) OpenSearchByBitSet(compiled cond.Compiled, pushedIn *rowset.Set) (iter.Source, error) {
	src, err := v.OpenScan(compiled, false)
	if err != nil {
		return nil, err
	}
	return &filteredSource{src: src, allow: pushedIn}, nil
}

// CheckRow tests rowID against compiled's bounds directly; VEC's key
// is the row-id, so this needs no bitset materialisation (unlike
// BTSource.CheckRow).
func (v *VecSource) CheckRow(compiled cond.Compiled, rowID uint32) (bool, error) {
	lower, upper, ok := vecBounds(compiled)
	if !ok {
		return true, nil
	}
	return rowID >= lower && rowID <= upper, nil
}

// vecBounds decodes a compiled condition's lower/upper LimitCond
// buffers as big-endian uint32 row-ids, VEC's key encoding. ok=false
// when neither bound narrows the scan.
func vecBounds(compiled cond.Compiled) (lower, upper uint32, ok bool) {
	lower, upper = 0, vec.IllegalKey-1
	if compiled.Lower == nil && compiled.Upper == nil {
		return lower, upper, false
	}
	if compiled.Lower != nil {
		lower = decodeUint32(compiled.Lower.Buffer)
	}
	if compiled.Upper != nil {
		upper = decodeUint32(compiled.Upper.Buffer)
	}
	return lower, upper, true
}

func decodeUint32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

type vecScanSource struct {
	scan *vec.RangeScan
}

func (s *vecScanSource) Next() (uint32, bool, error) { return s.scan.Next() }
func (s *vecScanSource) Close() error                { return nil }
func (s *vecScanSource) Mark()                       {}
func (s *vecScanSource) Rewind() error                { return nil }
func (s *vecScanSource) Reset() error                 { return nil }

type vecReverseScanSource struct {
	scan *vec.ReverseRangeScan
}

func (s *vecReverseScanSource) Next() (uint32, bool, error) { return s.scan.Next() }
func (s *vecReverseScanSource) Close() error                { return nil }
func (s *vecReverseScanSource) Mark()                       {}
func (s *vecReverseScanSource) Rewind() error                { return nil }
func (s *vecReverseScanSource) Reset() error                 { return nil }
