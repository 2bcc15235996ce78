package iter

import "context"

// MergeSort performs an n-way merge of children that are each already
// sorted by row-id, per spec §4.4.4's order-carrying index choice and
// external-sort fallback, and §4.4.5's iterator list. Ascending=false
// merges in descending row-id order, matching whichever direction the
// chosen leading index was searched in.
type MergeSort struct {
	children  []Iterator
	ascending bool

	heads    []uint32
	valid    []bool
	opened   bool

	// markHeads/markValid snapshot heads/valid at Mark, since each
	// child's own mark sits just past the head buffered here.
	markHeads []uint32
	markValid []bool
}

// NewMergeSort wraps children, all assumed sorted in the same
// direction as ascending.
func NewMergeSort(ascending bool, children ...Iterator) *MergeSort {
	return &MergeSort{children: children, ascending: ascending}
}

func (m *MergeSort) Open(ctx context.Context) error {
	m.heads = make([]uint32, len(m.children))
	m.valid = make([]bool, len(m.children))
	for i, c := range m.children {
		if err := c.Open(ctx); err != nil {
			return err
		}
		if err := m.advance(ctx, i); err != nil {
			return err
		}
	}
	m.opened = true
	return nil
}

func (m *MergeSort) advance(ctx context.Context, i int) error {
	rowID, ok, err := m.children[i].Next(ctx)
	if err != nil {
		return err
	}
	m.valid[i] = ok
	if ok {
		m.heads[i] = rowID
	}
	return nil
}

func (m *MergeSort) Next(ctx context.Context) (uint32, bool, error) {
	best := -1
	for i, ok := range m.valid {
		if !ok {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		if m.ascending {
			if m.heads[i] < m.heads[best] {
				best = i
			}
		} else {
			if m.heads[i] > m.heads[best] {
				best = i
			}
		}
	}
	if best == -1 {
		return 0, false, nil
	}
	rowID := m.heads[best]
	if err := m.advance(ctx, best); err != nil {
		return 0, false, err
	}
	return rowID, true, nil
}

func (m *MergeSort) Close() error {
	var first error
	for _, c := range m.children {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MergeSort) Reset() error {
	for _, c := range m.children {
		if err := c.Reset(); err != nil {
			return err
		}
	}
	m.opened = false
	m.markHeads, m.markValid = nil, nil
	return nil
}

func (m *MergeSort) Mark() {
	for _, c := range m.children {
		c.Mark()
	}
	m.markHeads = append([]uint32(nil), m.heads...)
	m.markValid = append([]bool(nil), m.valid...)
}

func (m *MergeSort) Rewind() error {
	for i, c := range m.children {
		if err := c.Rewind(); err != nil {
			return err
		}
		if m.opened && m.markValid == nil {
			if err := m.advance(context.Background(), i); err != nil {
				return err
			}
		}
	}
	if m.opened && m.markValid != nil {
		copy(m.heads, m.markHeads)
		copy(m.valid, m.markValid)
	}
	return nil
}
