package iter

import "context"

// Locking wraps child, invoking locker.LockRow for each row before
// yielding it, the iterator-level mechanism behind spec §4.5's locking
// contract: "the planner attaches a Locker action to the iterator that
// owns the bitset" or, for an ordered scan, "to the scan so the lock
// is taken as each row is emitted."
type Locking struct {
	child  Iterator
	locker Locker
}

// NewLocking attaches locker to child.
func NewLocking(child Iterator, locker Locker) *Locking {
	return &Locking{child: child, locker: locker}
}

func (l *Locking) Open(ctx context.Context) error { return l.child.Open(ctx) }

func (l *Locking) Next(ctx context.Context) (uint32, bool, error) {
	rowID, ok, err := l.child.Next(ctx)
	if err != nil || !ok {
		return rowID, ok, err
	}
	if err := l.locker.LockRow(rowID); err != nil {
		return 0, false, err
	}
	return rowID, true, nil
}

func (l *Locking) Close() error  { return l.child.Close() }
func (l *Locking) Reset() error  { return l.child.Reset() }
func (l *Locking) Mark()         { l.child.Mark() }
func (l *Locking) Rewind() error { return l.child.Rewind() }
