package detach

import (
	"errors"
	"fmt"
)

// State is a point in the double-fork sequence. Each image produced by the
// sequence passes through the states once, in order.
type State int

const (
	// PreFork is the original process before any fork.
	PreFork State = iota
	// FirstParent is the original process after fork #1 succeeded.
	FirstParent
	// FirstChild is the child of fork #1; it becomes a session leader.
	FirstChild
	// SecondParent is the session leader after fork #2 succeeded.
	SecondParent
	// SecondChild is the daemon: no controlling terminal, not a session leader.
	SecondChild
)

func (s State) String() string {
	switch s {
	case PreFork:
		return "pre-fork"
	case FirstParent:
		return "post-fork-1-parent"
	case FirstChild:
		return "post-fork-1-child"
	case SecondParent:
		return "post-fork-2-parent"
	case SecondChild:
		return "post-fork-2-child"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Action is the effect that follows a transition.
type Action int

const (
	// ActionBecomeLeader starts a new session, then forks again.
	ActionBecomeLeader Action = iota
	// ActionExit terminates the image with status 0.
	ActionExit
	// ActionFail reports the fork error and terminates with status 1.
	ActionFail
	// ActionReturn hands control back to the caller: this image is the daemon.
	ActionReturn
)

func (a Action) String() string {
	switch a {
	case ActionBecomeLeader:
		return "become-leader"
	case ActionExit:
		return "exit"
	case ActionFail:
		return "fail"
	case ActionReturn:
		return "return"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ErrNoFork is returned by Advance for states that never fork.
var ErrNoFork = errors.New("state does not fork")

// ForkNumber reports which fork of the sequence is performed from s, or 0.
func ForkNumber(s State) int {
	switch s {
	case PreFork:
		return 1
	case FirstChild:
		return 2
	default:
		return 0
	}
}

// Advance computes the state and action that follow the fork performed in s,
// given the fork's result. It has no side effects.
func Advance(s State, pid int, forkErr error) (State, Action, error) {
	switch s {
	case PreFork:
		switch {
		case forkErr != nil:
			return PreFork, ActionFail, nil
		case pid > 0:
			return FirstParent, ActionExit, nil
		default:
			return FirstChild, ActionBecomeLeader, nil
		}
	case FirstChild:
		switch {
		case forkErr != nil:
			return FirstChild, ActionFail, nil
		case pid > 0:
			return SecondParent, ActionExit, nil
		default:
			return SecondChild, ActionReturn, nil
		}
	default:
		return s, ActionFail, fmt.Errorf("%w: %s", ErrNoFork, s)
	}
}
