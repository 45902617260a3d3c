package daemonctl

import (
	"context"
	"errors"
	"time"

	"daemonkit/internal/pidlock"
	"daemonkit/internal/procinfo"
)

// Status summarises the pidfile and the process it names.
type Status struct {
	Pidfile   string    `json:"pidfile"`
	Locked    bool      `json:"locked"`
	PID       int       `json:"pid,omitempty"`
	Alive     bool      `json:"alive"`
	Stale     bool      `json:"stale"`
	Name      string    `json:"name,omitempty"`
	Cmdline   string    `json:"cmdline,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Problem   string    `json:"problem,omitempty"`
}

// Running reports a pidfile naming a live process.
func (s Status) Running() bool {
	return s.Locked && s.Alive
}

// Uptime returns how long the recorded process has been running at now.
func (s Status) Uptime(now time.Time) time.Duration {
	return procinfo.Info{PID: s.PID, StartedAt: s.StartedAt}.Uptime(now)
}

// Snapshot inspects lock and the process it records.
func Snapshot(ctx context.Context, lock *pidlock.Lock) Status {
	st := Status{Pidfile: lock.Path(), Locked: lock.IsLocked()}
	if !st.Locked {
		return st
	}

	pid, err := lock.ReadPID()
	if err != nil {
		st.Stale = errors.Is(err, pidlock.ErrInvalidPID)
		st.Problem = err.Error()
		return st
	}
	st.PID = pid
	st.Alive = lock.Alive(pid)
	st.Stale = !st.Alive
	if !st.Alive {
		return st
	}

	info, err := procinfo.Lookup(ctx, pid)
	if err != nil {
		st.Problem = err.Error()
		return st
	}
	st.Name = info.Name
	st.Cmdline = info.Cmdline
	st.StartedAt = info.StartedAt
	return st
}
