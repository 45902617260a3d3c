package daemon

import (
	"fmt"
	"log/slog"
	"strings"

	"daemonkit/internal/streams"
)

// DetachMode selects whether Start performs the double fork.
type DetachMode int

const (
	// DetachAuto detaches unless the process was started by init or by a
	// super-server that passed a socket as stdin.
	DetachAuto DetachMode = iota
	DetachAlways
	DetachNever
)

func (m DetachMode) String() string {
	switch m {
	case DetachAuto:
		return "auto"
	case DetachAlways:
		return "always"
	case DetachNever:
		return "never"
	default:
		return fmt.Sprintf("DetachMode(%d)", int(m))
	}
}

// ParseDetachMode maps a configuration value onto a DetachMode.
func ParseDetachMode(value string) (DetachMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return DetachAuto, nil
	case "always", "true", "yes":
		return DetachAlways, nil
	case "never", "false", "no":
		return DetachNever, nil
	default:
		return DetachAuto, fmt.Errorf("detach mode: unsupported value %q", value)
	}
}

// DefaultWorkingDirectory is where the daemon runs when no directory is set,
// so it never pins a mounted filesystem.
const DefaultWorkingDirectory = "/"

// LeaveUmask keeps the inherited file creation mask.
const LeaveUmask = -1

// Options configures a Context. The zero value is a usable configuration
// without a pidfile.
type Options struct {
	// PidfilePath must be absolute. Empty disables the lock.
	PidfilePath string

	// Stdin, Stdout and Stderr are the redirection targets for the standard
	// streams. Nil binds the stream to the null device.
	Stdin  streams.Stream
	Stdout streams.Stream
	Stderr streams.Stream

	WorkingDirectory string
	// Umask applied after detaching. LeaveUmask keeps the inherited mask.
	Umask int
	// PreventCore defaults to true.
	PreventCore *bool
	Detach      DetachMode
	Logger      *slog.Logger
}

func (o Options) preventCore() bool {
	return o.PreventCore == nil || *o.PreventCore
}

func (o Options) workingDirectory() string {
	if strings.TrimSpace(o.WorkingDirectory) == "" {
		return DefaultWorkingDirectory
	}
	return o.WorkingDirectory
}

// Bool returns a pointer to v, for optional fields such as PreventCore.
func Bool(v bool) *bool {
	return &v
}
