package iter

import "context"

// CheckCancel wraps child, checking ctx for cancellation between rows,
// per spec §5: "CheckCancel actions are injected into every
// non-parallel, non-recovery iterator so that external cancellation
// can abort the operation between rows." It is injected around every
// leaf and combinator the planner emits. Bitsets the planner builds
// before emission (OR branches included, which run sequentially) are
// not checked, nor are recovery-path iterators (spec §7's
// batch/rollback machinery, outside PLN's remit).
type CheckCancel struct {
	child Iterator
}

// Wrap returns child wrapped in a CheckCancel, or child unchanged if
// it is already one (avoids double-wrapping when combinators compose).
func Wrap(child Iterator) Iterator {
	if _, already := child.(*CheckCancel); already {
		return child
	}
	return &CheckCancel{child: child}
}

func (c *CheckCancel) Open(ctx context.Context) error { return c.child.Open(ctx) }

func (c *CheckCancel) Next(ctx context.Context) (uint32, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	return c.child.Next(ctx)
}

func (c *CheckCancel) Close() error    { return c.child.Close() }
func (c *CheckCancel) Reset() error    { return c.child.Reset() }
func (c *CheckCancel) Mark()           { c.child.Mark() }
func (c *CheckCancel) Rewind() error   { return c.child.Rewind() }
