package kernel_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relstore/idxengine/internal/kernel"
)

func TestErrorKindRoundTrip(t *testing.T) {
	err := kernel.ErrEntryNotFound("missing key %d", 7)
	require.Equal(t, kernel.KindEntryNotFound, kernel.KindOf(err))
	require.True(t, kernel.IsKind(err, kernel.KindEntryNotFound))
	require.False(t, kernel.IsKind(err, kernel.KindBadArgument))
	require.Contains(t, err.Error(), "missing key 7")
}

func TestKindOfNonKernelError(t *testing.T) {
	require.Equal(t, kernel.KindOK, kernel.KindOf(errors.New("plain")))
	require.Equal(t, kernel.KindOK, kernel.KindOf(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := kernel.Wrap(kernel.KindUnexpected, cause, "flush failed")
	require.Equal(t, kernel.KindUnexpected, kernel.KindOf(err))
	require.ErrorIs(t, err, cause)
}

func TestWrapNilCauseIsNil(t *testing.T) {
	require.NoError(t, kernel.Wrap(kernel.KindUnexpected, nil, "no-op"))
}

func TestCheckpointMarkUnavailableIsOneShot(t *testing.T) {
	cp := kernel.NewCheckpoint()
	require.True(t, cp.Available())
	cp.MarkUnavailable(kernel.NewNop(), "recovery failed")
	require.False(t, cp.Available())
	// Idempotent: marking again must not panic or flip state further.
	cp.MarkUnavailable(kernel.NewNop(), "second reason")
	require.False(t, cp.Available())
}

type fakeCache struct {
	flushed int
	flushErr error
}

func (f *fakeCache) Pin(kernel.PageID, bool) (*kernel.PageHandle, error) { return nil, nil }
func (f *fakeCache) Unpin(*kernel.PageHandle)                           {}
func (f *fakeCache) NewPage([]byte) (*kernel.PageHandle, error)         { return nil, nil }
func (f *fakeCache) FreePage(*kernel.PageHandle) error                  { return nil }
func (f *fakeCache) Flush() error                                       { f.flushed++; return f.flushErr }
func (f *fakeCache) PageSize() uint32                                   { return 512 }
func (f *fakeCache) Close() error                                       { return nil }

type fakeTxn struct{ batch bool }

func (t fakeTxn) ID() uint64   { return 1 }
func (t fakeTxn) Batch() bool  { return t.batch }

func TestScopeFlushesOnCleanReturn(t *testing.T) {
	cache := &fakeCache{}
	var err error
	func() {
		scope := kernel.NewScope(cache, fakeTxn{}, kernel.NewCheckpoint(), kernel.NewNop(), nil)
		defer scope.Close(&err)
	}()
	require.NoError(t, err)
	require.Equal(t, 1, cache.flushed)
}

func TestScopeRecoversOnError(t *testing.T) {
	cache := &fakeCache{}
	recovered := false
	cp := kernel.NewCheckpoint()
	err := errors.New("insert failed")
	func() {
		scope := kernel.NewScope(cache, fakeTxn{}, cp, kernel.NewNop(), func() error {
			recovered = true
			return nil
		})
		defer scope.Close(&err)
	}()
	require.True(t, recovered)
	require.True(t, cp.Available())
}

func TestScopeMarksUnavailableWhenRecoveryFails(t *testing.T) {
	cache := &fakeCache{}
	cp := kernel.NewCheckpoint()
	err := errors.New("insert failed")
	func() {
		scope := kernel.NewScope(cache, fakeTxn{}, cp, kernel.NewNop(), func() error {
			return errors.New("rollback failed too")
		})
		defer scope.Close(&err)
	}()
	require.False(t, cp.Available())
}

func TestScopeBatchModeNeverRecovers(t *testing.T) {
	cache := &fakeCache{}
	cp := kernel.NewCheckpoint()
	err := errors.New("batch insert failed")
	func() {
		scope := kernel.NewScope(cache, fakeTxn{batch: true}, cp, kernel.NewNop(), nil)
		defer scope.Close(&err)
	}()
	require.Equal(t, 1, cache.flushed)
	require.False(t, cp.Available())
}

func TestOpenOptionScalarAndIndexed(t *testing.T) {
	opt := kernel.NewOpenOption()
	opt.Set(kernel.OpenMode, int(kernel.ModeSearch))
	opt.Set(kernel.Reverse, true)
	opt.SetIndexed(kernel.Condition, 0, "#eq(1)")
	opt.SetIndexed(kernel.Condition, 1, "#gt(2)")

	require.Equal(t, int(kernel.ModeSearch), opt.GetInt(kernel.OpenMode))
	require.True(t, opt.GetBool(kernel.Reverse))
	require.Equal(t, "#eq(1)", opt.GetStringIndexed(kernel.Condition, 0))
	require.Equal(t, "#gt(2)", opt.GetStringIndexed(kernel.Condition, 1))
	require.Equal(t, "", opt.GetStringIndexed(kernel.Condition, 2))
}
