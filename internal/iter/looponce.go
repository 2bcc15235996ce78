package iter

import "context"

// LoopOnce drains each child iterator fully, once, in order, per spec
// §4.4.5: "LoopOnce — executes child iterators once in order (used to
// build bitsets at startup)." A child here is typically a BitSetScan-
// feeding producer whose real purpose is its side effect (populating a
// rowset.Set a sibling branch of the plan will later read via its own
// BitSetScan), not the rows it yields; LoopOnce itself never yields
// rows.
type LoopOnce struct {
	children []Iterator
	ran      bool
}

// NewLoopOnce wraps children to be run, in order, exactly once.
func NewLoopOnce(children ...Iterator) *LoopOnce {
	return &LoopOnce{children: children}
}

func (l *LoopOnce) Open(ctx context.Context) error {
	if l.ran {
		return nil
	}
	for _, c := range l.children {
		if err := c.Open(ctx); err != nil {
			return err
		}
		for {
			_, ok, err := c.Next(ctx)
			if err != nil {
				c.Close()
				return err
			}
			if !ok {
				break
			}
		}
		if err := c.Close(); err != nil {
			return err
		}
	}
	l.ran = true
	return nil
}

// Next never yields a row; LoopOnce's work is entirely done in Open.
func (l *LoopOnce) Next(ctx context.Context) (uint32, bool, error) {
	return 0, false, nil
}

func (l *LoopOnce) Close() error { return nil }

func (l *LoopOnce) Reset() error {
	l.ran = false
	for _, c := range l.children {
		if err := c.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// Mark and Rewind are no-ops: LoopOnce has no row position of its own.
func (l *LoopOnce) Mark()           {}
func (l *LoopOnce) Rewind() error   { return nil }
