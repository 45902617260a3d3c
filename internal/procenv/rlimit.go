//go:build unix

package procenv

import "golang.org/x/sys/unix"

// GetCoreLimit reads RLIMIT_CORE for the current process.
func (s *System) GetCoreLimit() (Limit, error) {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_CORE, &rlim); err != nil {
		return Limit{}, err
	}
	return fromRlimit(rlim), nil
}

// SetCoreLimit replaces RLIMIT_CORE for the current process.
func (s *System) SetCoreLimit(limit Limit) error {
	rlim := toRlimit(limit)
	return unix.Setrlimit(unix.RLIMIT_CORE, &rlim)
}
