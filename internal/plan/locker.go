package plan

import "github.com/relstore/idxengine/internal/iter"

// RequiresLocking reports whether any candidate reachable from h reads
// from a file that needs row-level locking, per spec §4.5.
func RequiresLocking(a *Arena, h NodeHandle) bool {
	n := a.Node(h)
	if n.Kind == NodeLeaf && n.Candidate != nil {
		return n.Candidate.File.NeedsLocking()
	}
	for _, child := range n.Children {
		if RequiresLocking(a, child) {
			return true
		}
	}
	return false
}

// AttachLocker wraps it with locker when the plan rooted at h needs
// row-level locking, per spec §4.5's attachment rules: "If a plan
// consists solely of ANDed bitsets from multiple indexes, the locker
// is attached only to the final bitset; if the plan scans an index in
// order, the locker is attached to the scan." Emit already collapses
// both of those shapes down to a single top-level iterator (the
// BitSetScan over the fully-resolved bitset, or the FileScan for an
// ordered index), so attaching at the root of Emit's result satisfies
// both rules without needing to re-walk the arena for an attachment
// point.
func AttachLocker(a *Arena, h NodeHandle, it iter.Iterator, locker iter.Locker) iter.Iterator {
	if locker == nil || !RequiresLocking(a, h) {
		return it
	}
	return iter.NewLocking(it, locker)
}
