package iter

import "context"

// Source is the minimal cursor shape FileScan adapts into the
// Iterator interface: bt.Cursor and a vec.RangeScan wrapper both
// satisfy it (see internal/plan's adapters), so FileScan never imports
// either driver package directly — the planner wires the concrete
// source in.
type Source interface {
	Next() (rowID uint32, ok bool, err error)
	Close() error
	Mark()
	Rewind() error
	Reset() error
}

// FileScan is the leaf iterator of spec §4.4.5: "FileScan(file,
// open-option) — leaf." The open-option string itself was already
// consumed by the time the planner builds the Source (it drove the
// driver's Search/open call); FileScan here only owns the resulting
// cursor's lifecycle.
type FileScan struct {
	label  string
	src    Source
	marked bool
}

// NewFileScan wraps an already-opened Source. label is diagnostic only
// (the file/table name this scan reads from).
func NewFileScan(label string, src Source) *FileScan {
	return &FileScan{label: label, src: src}
}

func (s *FileScan) Open(ctx context.Context) error { return nil }

func (s *FileScan) Next(ctx context.Context) (uint32, bool, error) {
	return s.src.Next()
}

func (s *FileScan) Close() error { return s.src.Close() }

func (s *FileScan) Reset() error {
	s.marked = false
	return s.src.Reset()
}

func (s *FileScan) Mark() {
	s.marked = true
	s.src.Mark()
}

// Rewind restores the source's last mark. Per spec §5/§9 open question
// 3, if Mark was never called since the last Search, Rewind is a
// no-op here too — the caller (a combinator building a duplicate-
// suppression bitset) is expected to re-open rather than treat this as
// an error.
func (s *FileScan) Rewind() error {
	if !s.marked {
		return nil
	}
	return s.src.Rewind()
}
