// Package detach performs the classic double fork that turns the calling
// process into a daemon without a controlling terminal.
package detach

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

// Forker is the slice of the process environment the detacher drives.
type Forker interface {
	Fork() (int, error)
	Setsid() error
	Exit(code int)
	Stderr() io.Writer
}

// Detacher runs the fork/setsid/fork sequence against a Forker.
type Detacher struct {
	env Forker
}

// New returns a detacher bound to env.
func New(env Forker) *Detacher {
	return &Detacher{env: env}
}

// Detach returns only in the daemon image. Every other image produced along
// the way ends through Exit: status 0 for the intermediate parents, status 1
// after a diagnostic when a fork or setsid fails. The returned state is
// SecondChild in the daemon; the other values are only observable when Exit
// returns, which a real environment never does.
func (d *Detacher) Detach() State {
	state := PreFork
	for {
		pid, forkErr := d.env.Fork()
		next, action, err := Advance(state, pid, forkErr)
		if err != nil {
			d.fail("detach", err)
			return state
		}

		switch action {
		case ActionFail:
			d.fail(fmt.Sprintf("fork #%d", ForkNumber(state)), forkErr)
			return state
		case ActionExit:
			d.env.Exit(0)
			return next
		case ActionReturn:
			return next
		case ActionBecomeLeader:
			if err := d.env.Setsid(); err != nil {
				d.fail("setsid", err)
				return next
			}
			state = next
		}
	}
}

func (d *Detacher) fail(op string, err error) {
	code, msg := describe(err)
	fmt.Fprintf(d.env.Stderr(), "%s failed: %d, %s\n", op, code, msg)
	d.env.Exit(1)
}

// describe splits err into the errno number and its text, as printed by the
// fork diagnostics. Errors without an errno report 0.
func describe(err error) (int, string) {
	if err == nil {
		return 0, "unknown error"
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno), errno.Error()
	}
	return 0, err.Error()
}
