// Package kernel holds the ambient concerns shared by every driver and
// by the planner: error kinds, structured logging, the open-option
// dictionary, the database-available flag, and the interfaces that
// model the external collaborators (page cache, transaction manager,
// lock manager) this layer is built against but does not implement.
package kernel

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the closed set of error kinds the core surfaces, per
// spec §7. It replaces the teacher's BLTErr int enum (blterr.go) with
// a Go error type so callers can use errors.Is/errors.As against it.
type Kind int

const (
	// KindOK is not a failure; callers should use nil errors instead
	// of constructing a Kind of KindOK.
	KindOK Kind = iota
	KindBadArgument
	KindFileNotOpen
	KindEntryNotFound
	KindUniquenessViolation
	KindVerifyAborted
	KindUnexpected
	KindNotSupported
)

func (k Kind) String() string {
	switch k {
	case KindBadArgument:
		return "BadArgument"
	case KindFileNotOpen:
		return "FileNotOpen"
	case KindEntryNotFound:
		return "EntryNotFound"
	case KindUniquenessViolation:
		return "UniquenessViolation"
	case KindVerifyAborted:
		return "VerifyAborted"
	case KindUnexpected:
		return "Unexpected"
	case KindNotSupported:
		return "NotSupported"
	default:
		return "OK"
	}
}

// Error is the concrete error type carrying a Kind plus an optional
// wrapped cause. Use New/Wrap to build one and IsKind/KindOf to inspect it.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf reports the error kind carried by err, or KindOK if err is nil
// or not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindOK
}

// New builds a new Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind/context to an existing error, preserving it as the
// cause so errors.Is/errors.Unwrap still see through to it.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// Convenience constructors for the seven kinds of spec §7.

func ErrBadArgument(format string, args ...any) error {
	return New(KindBadArgument, format, args...)
}

func ErrFileNotOpen(format string, args ...any) error {
	return New(KindFileNotOpen, format, args...)
}

func ErrEntryNotFound(format string, args ...any) error {
	return New(KindEntryNotFound, format, args...)
}

func ErrUniquenessViolation(format string, args ...any) error {
	return New(KindUniquenessViolation, format, args...)
}

func ErrVerifyAborted(format string, args ...any) error {
	return New(KindVerifyAborted, format, args...)
}

func ErrUnexpected(format string, args ...any) error {
	return New(KindUnexpected, format, args...)
}

func ErrNotSupported(format string, args ...any) error {
	return New(KindNotSupported, format, args...)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
