package journal

import "time"

// Kind classifies a lifecycle event.
type Kind string

const (
	KindStarted       Kind = "started"
	KindExited        Kind = "exited"
	KindStopRequested Kind = "stop_requested"
	KindStopped       Kind = "stopped"
	KindStaleCleared  Kind = "stale_cleared"
)

// Event is one journal row.
type Event struct {
	ID      int64     `json:"id"`
	RunID   string    `json:"run_id,omitempty"`
	Kind    Kind      `json:"kind"`
	PID     int       `json:"pid,omitempty"`
	Pidfile string    `json:"pidfile,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}
