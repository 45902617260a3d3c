package daemon

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPidfile rejects a pidfile path that is not absolute.
	ErrInvalidPidfile = errors.New("pidfile path must be absolute")
	// ErrNoPidfile reports an operation that needs the pidfile on a Context
	// built without one.
	ErrNoPidfile = errors.New("no pidfile configured")
	// ErrInvalidTransition reports a lifecycle call made out of order.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	// ErrDetachIncomplete is returned when the detach sequence ended in an
	// image other than the daemon without the environment exiting it.
	ErrDetachIncomplete = errors.New("detach did not reach the daemon process")
)

func transitionError(op string, from State) error {
	return fmt.Errorf("%s from %s: %w", op, from, ErrInvalidTransition)
}
