package kernel

import "sync/atomic"

// Checkpoint holds the single piece of global mutable state this layer
// needs: the database-available flag of spec §9 design note 4. It is
// passed into every driver at construction (BT's BufMgr, VEC's file)
// rather than being a package-level global, so tests can run multiple
// independent databases in one process.
type Checkpoint struct {
	unavailable atomic.Bool
}

// NewCheckpoint returns a checkpoint with the database marked available.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{}
}

// Available reports whether the database is still usable.
func (c *Checkpoint) Available() bool {
	return !c.unavailable.Load()
}

// MarkUnavailable flips the flag permanently. Per spec §7, this happens
// when a rollback/recover itself fails, or (in batch mode) when any
// error occurs since no page rollback is available there.
func (c *Checkpoint) MarkUnavailable(log *Logger, reason string) {
	if c.unavailable.CompareAndSwap(false, true) {
		if log != nil {
			log.Errorw("database marked unavailable", "reason", reason)
		}
	}
}
