package iter

import (
	"context"

	"github.com/relstore/idxengine/internal/rowset"
)

// BitSetScan enumerates the members of a materialised row-id bitset in
// ascending order, per spec §4.4.5: "BitSetScan(bitset-var) —
// enumerates set bits." It is the iterator a planner emits once an
// AND/OR combinator has finished building its bitset (spec §4.4.3).
type BitSetScan struct {
	set     *rowset.Set
	members []uint32
	pos     int
	markPos int
}

// NewBitSetScan wraps an already-built set for enumeration.
func NewBitSetScan(set *rowset.Set) *BitSetScan {
	return &BitSetScan{set: set}
}

func (b *BitSetScan) Open(ctx context.Context) error {
	b.members = b.set.Slice()
	b.pos = 0
	return nil
}

func (b *BitSetScan) Next(ctx context.Context) (uint32, bool, error) {
	if b.pos >= len(b.members) {
		return 0, false, nil
	}
	v := b.members[b.pos]
	b.pos++
	return v, true, nil
}

func (b *BitSetScan) Close() error { return nil }

func (b *BitSetScan) Reset() error {
	b.pos = 0
	b.markPos = 0
	return nil
}

func (b *BitSetScan) Mark() { b.markPos = b.pos }

func (b *BitSetScan) Rewind() error {
	b.pos = b.markPos
	return nil
}
