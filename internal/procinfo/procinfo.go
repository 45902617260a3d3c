// Package procinfo describes a running process for status output.
package procinfo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrNotRunning reports a PID with no live process behind it.
var ErrNotRunning = errors.New("process not running")

// Info is what status output shows about the recorded daemon.
type Info struct {
	PID       int
	Name      string
	Cmdline   string
	StartedAt time.Time
}

// Uptime returns how long the process has been running relative to now.
func (i Info) Uptime(now time.Time) time.Duration {
	if i.StartedAt.IsZero() || now.Before(i.StartedAt) {
		return 0
	}
	return now.Sub(i.StartedAt)
}

// Lookup inspects pid. Fields the platform cannot report are left empty.
func Lookup(ctx context.Context, pid int) (Info, error) {
	if pid <= 0 || pid > math.MaxInt32 {
		return Info{}, fmt.Errorf("pid %d: %w", pid, ErrNotRunning)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return Info{}, fmt.Errorf("pid %d: %w", pid, ErrNotRunning)
		}
		return Info{}, fmt.Errorf("inspect pid %d: %w", pid, err)
	}

	info := Info{PID: pid}
	if name, err := proc.NameWithContext(ctx); err == nil {
		info.Name = name
	}
	if cmdline, err := proc.CmdlineWithContext(ctx); err == nil {
		info.Cmdline = cmdline
	}
	if created, err := proc.CreateTimeWithContext(ctx); err == nil && created > 0 {
		info.StartedAt = time.UnixMilli(created)
	}
	return info, nil
}
