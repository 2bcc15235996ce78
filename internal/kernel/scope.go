package kernel

// Scope is the RAII-style page-acquisition guard of spec §9's design
// note ("the _AutoDetachPage / _AutoAttachFile helpers map to a scope
// guard that on drop either flushes or recovers"). Callers defer
// scope.Close(&err) at the top of any operation that dirties pages;
// on a clean return it flushes, on an error it recovers (rolls back),
// and if recovery itself fails the database is marked unavailable.
type Scope struct {
	cache     PageCache
	txn       Transaction
	checkpoint *Checkpoint
	log       *Logger
	// recover, when non-nil, undoes whatever dirty state this scope
	// accumulated. In batch mode this is nil: no rollback is available,
	// so Close falls back to a best-effort flush per spec §7.
	recover func() error
}

// NewScope opens a scope guard bound to a transaction and checkpoint.
// recover may be nil for batch-mode scopes.
func NewScope(cache PageCache, txn Transaction, checkpoint *Checkpoint, log *Logger, recover func() error) *Scope {
	return &Scope{cache: cache, txn: txn, checkpoint: checkpoint, log: log, recover: recover}
}

// Close commits (flush) or rolls back (recover) depending on whether
// *errp is non-nil when called. It must be invoked via defer with the
// address of the named error return of the enclosing operation.
func (s *Scope) Close(errp *error) {
	if errp == nil || *errp == nil {
		if err := s.cache.Flush(); err != nil {
			*errp = Wrap(KindUnexpected, err, "flush on scope close")
		}
		return
	}

	if s.txn != nil && s.txn.Batch() {
		// Batch mode: no rollback available. Best-effort flush, then
		// mark the database unavailable regardless of the outcome,
		// per spec §7's batch-mode error policy.
		_ = s.cache.Flush()
		s.checkpoint.MarkUnavailable(s.log, "error during batch-mode operation")
		return
	}

	if s.recover == nil {
		return
	}
	if rerr := s.recover(); rerr != nil {
		s.checkpoint.MarkUnavailable(s.log, "recovery failed: "+rerr.Error())
		if s.log != nil {
			s.log.Errorw("recovery failed, database unavailable", "cause", rerr, "original", *errp)
		}
	}
}
