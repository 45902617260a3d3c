package pidlock

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyLocked reports a pidfile held by a live process.
	ErrAlreadyLocked = errors.New("already locked")
	// ErrNotLocking reports a release or ownership check by a non-owner.
	ErrNotLocking = errors.New("not locked by this process")
	// ErrNotLocked reports a missing pidfile.
	ErrNotLocked = errors.New("not locked")
	// ErrStale reports a pidfile whose recorded process is gone.
	ErrStale = errors.New("stale lock")
	// ErrInvalidPID reports pidfile content that is not a positive integer.
	ErrInvalidPID = errors.New("invalid pid")
)

// LockError describes a failed lock operation. The message always names the
// pidfile path.
type LockError struct {
	Op   string
	Path string
	PID  int
	Err  error
}

func (e *LockError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("%s pidfile %s: %v (pid %d)", e.Op, e.Path, e.Err, e.PID)
	}
	return fmt.Sprintf("%s pidfile %s: %v", e.Op, e.Path, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }
