// Package coredump disables core dump generation for the current process.
package coredump

import (
	"errors"
	"fmt"
	"syscall"

	"daemonkit/internal/procenv"
)

// ErrUnsupported reports a platform without a core dump size limit.
var ErrUnsupported = errors.New("platform has no core dump limit")

// Limiter reads and writes the core dump size limit.
type Limiter interface {
	GetCoreLimit() (procenv.Limit, error)
	SetCoreLimit(procenv.Limit) error
}

// Disable sets the soft and hard core dump limits to zero. When the platform
// exposes no such limit the returned error wraps ErrUnsupported and no limit
// is touched; callers should abort startup rather than continue.
func Disable(l Limiter) error {
	if _, err := l.GetCoreLimit(); err != nil {
		if errors.Is(err, syscall.EINVAL) || errors.Is(err, errors.ErrUnsupported) {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return fmt.Errorf("read core limit: %w", err)
	}
	if err := l.SetCoreLimit(procenv.Limit{}); err != nil {
		return fmt.Errorf("set core limit: %w", err)
	}
	return nil
}
