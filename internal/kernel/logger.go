package kernel

import (
	"sync"

	"go.uber.org/zap"
)

// Logger is the structured logger every driver and the planner log
// through. It replaces the teacher's ad hoc log.Printf/errPrintf calls
// (common.go, bltree.go, bufmgr.go) with zap, matching how the rest of
// the retrieval pack (AKJUS-bsc-erigon) does structured logging.
type Logger struct {
	z *zap.SugaredLogger
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns a process-wide production logger, built once.
func Default() *Logger {
	defaultOnce.Do(func() {
		z, err := zap.NewProduction()
		if err != nil {
			z = zap.NewNop()
		}
		defaultLogger = &Logger{z: z.Sugar()}
	})
	return defaultLogger
}

// NewNop returns a logger that discards everything, useful in tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop().Sugar()}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{z: l.z.With(args...)}
}

func (l *Logger) Debugw(msg string, keysAndValues ...any) { l.z.Debugw(msg, keysAndValues...) }
func (l *Logger) Infow(msg string, keysAndValues ...any)  { l.z.Infow(msg, keysAndValues...) }
func (l *Logger) Warnw(msg string, keysAndValues ...any)  { l.z.Warnw(msg, keysAndValues...) }
func (l *Logger) Errorw(msg string, keysAndValues ...any) { l.z.Errorw(msg, keysAndValues...) }

// Sync flushes any buffered log entries; call on shutdown.
func (l *Logger) Sync() {
	_ = l.z.Sync()
}
