package daemon

import "fmt"

// State is the lifecycle position of a Context.
type State int

const (
	StateConfigured State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
