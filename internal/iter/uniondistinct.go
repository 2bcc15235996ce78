package iter

import "context"

// UnionDistinct merges ordered children (see MergeSort) and suppresses
// consecutive duplicate row-ids, per spec §4.4.3's OR combinator:
// "distinct union of the branches' row-ids, in carried order where the
// branches share one, else falling back to a bitset." It is the
// iterator PLN emits for the ordered-union path; the bitset fallback
// is built instead via LoopOnce + BitSetScan.
type UnionDistinct struct {
	merged Iterator
	last   uint32
	hasLast bool
}

// NewUnionDistinct wraps a MergeSort (or any already-ordered Iterator)
// and removes duplicate row-ids from its output.
func NewUnionDistinct(merged Iterator) *UnionDistinct {
	return &UnionDistinct{merged: merged}
}

func (u *UnionDistinct) Open(ctx context.Context) error {
	u.hasLast = false
	return u.merged.Open(ctx)
}

func (u *UnionDistinct) Next(ctx context.Context) (uint32, bool, error) {
	for {
		rowID, ok, err := u.merged.Next(ctx)
		if err != nil || !ok {
			return 0, ok, err
		}
		if u.hasLast && rowID == u.last {
			continue
		}
		u.last = rowID
		u.hasLast = true
		return rowID, true, nil
	}
}

func (u *UnionDistinct) Close() error { return u.merged.Close() }

func (u *UnionDistinct) Reset() error {
	u.hasLast = false
	return u.merged.Reset()
}

func (u *UnionDistinct) Mark() { u.merged.Mark() }

func (u *UnionDistinct) Rewind() error {
	u.hasLast = false
	return u.merged.Rewind()
}
