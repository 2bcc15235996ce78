package bt

import (
	"github.com/relstore/idxengine/internal/pagestore"
	"github.com/relstore/idxengine/internal/rowset"
)

// GetByBitSet scans the [lower, upper] key range and unions every
// matching row-id into out, per spec §4.1 "getByBitSet(conditions[],
// field, bitset_out)". The row-id is decoded from the value's leading
// field, per this layer's convention that the row-id is always stored
// first in the value tuple (VEC stores row-ids as its whole key
// space; BT stores them as a value field since its key space is the
// index columns).
func (t *Tree) GetByBitSet(lower, upper []byte, out *rowset.Set) error {
	set, slot, err := t.descend(lower, 0, pagestore.LockRead)
	if err != nil {
		return err
	}
	defer func() {
		t.unlock(set.handle.PageNo, pagestore.LockRead)
		t.unpin(set)
	}()

	for {
		if slot == 0 || slot > set.page.Cnt {
			if set.page.Right == 0 {
				return nil
			}
			t.unlock(set.handle.PageNo, pagestore.LockRead)
			t.unpin(set)
			set, err = t.pin(set.page.Right, true)
			if err != nil {
				return err
			}
			t.lock(set.handle.PageNo, pagestore.LockRead)
			slot = 1
			continue
		}

		k := set.page.Key(slot)
		if upper != nil && t.cmp(k, upper) > 0 {
			return nil
		}
		if !set.page.Dead(slot) {
			v := set.page.Value(slot)
			out.Add(decodeRowID(v))
		}
		slot++
	}
}

// decodeRowID reads the leading 4-byte big-endian row-id a BT value
// tuple always carries, per this layer's row-id-first value
// convention (see GetByBitSet).
func decodeRowID(value []byte) uint32 {
	if len(value) < 4 {
		return 0
	}
	return uint32(value[0])<<24 | uint32(value[1])<<16 | uint32(value[2])<<8 | uint32(value[3])
}

// DecodeRowID exposes decodeRowID to callers outside this package
// (internal/plan's cursor adapter) that must pull the row-id back out
// of a value tuple returned from Cursor.Get.
func DecodeRowID(value []byte) uint32 {
	return decodeRowID(value)
}
