package iter

import "context"

// Filter adapts a plain, already-materialised collection of row-ids
// into the Iterator interface, per spec §4.4.5: "Filter(collection) —
// adapts a collection into an iterator." Used wherever a combinator
// has a []uint32 in hand (e.g. a NOT's complemented set, or a Fetch
// operand's pre-fetched keys) and needs to feed it into the rest of
// the iterator graph without going through BitSetScan's rowset.Set
// dependency.
type Filter struct {
	items   []uint32
	pos     int
	markPos int
}

// NewFilter wraps items (assumed already in the order the caller
// wants rows emitted, typically ascending row-id).
func NewFilter(items []uint32) *Filter {
	return &Filter{items: items}
}

func (f *Filter) Open(ctx context.Context) error { f.pos = 0; return nil }

func (f *Filter) Next(ctx context.Context) (uint32, bool, error) {
	if f.pos >= len(f.items) {
		return 0, false, nil
	}
	v := f.items[f.pos]
	f.pos++
	return v, true, nil
}

func (f *Filter) Close() error { return nil }

func (f *Filter) Reset() error {
	f.pos = 0
	f.markPos = 0
	return nil
}

func (f *Filter) Mark() { f.markPos = f.pos }

func (f *Filter) Rewind() error {
	f.pos = f.markPos
	return nil
}

// RowPredicate reports whether rowID satisfies a residual ("other")
// condition, per spec §4.1's "re-checked per candidate entry after
// positioning" and §4.4.5's per-row predicate carried by an iterator.
type RowPredicate func(rowID uint32) (bool, error)

// CheckRow wraps child, skipping any row that fails pred, the
// iterator-level realisation of spec §4.4.5's "(c) an optional
// predicate to check per-row" — used by PLN's AND fallback path
// ("scan the leading index ... and check the remaining predicates per
// tuple") and by COND's residual re-check after a range positioning.
type CheckRow struct {
	child Iterator
	pred  RowPredicate
}

// NewCheckRow wraps child with a per-row predicate.
func NewCheckRow(child Iterator, pred RowPredicate) *CheckRow {
	return &CheckRow{child: child, pred: pred}
}

func (c *CheckRow) Open(ctx context.Context) error { return c.child.Open(ctx) }

func (c *CheckRow) Next(ctx context.Context) (uint32, bool, error) {
	for {
		rowID, ok, err := c.child.Next(ctx)
		if err != nil || !ok {
			return 0, ok, err
		}
		pass, err := c.pred(rowID)
		if err != nil {
			return 0, false, err
		}
		if pass {
			return rowID, true, nil
		}
	}
}

func (c *CheckRow) Close() error  { return c.child.Close() }
func (c *CheckRow) Reset() error  { return c.child.Reset() }
func (c *CheckRow) Mark()         { c.child.Mark() }
func (c *CheckRow) Rewind() error { return c.child.Rewind() }
