package pidlock

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"syscall"

	"github.com/gofrs/flock"

	"daemonkit/internal/logging"
	"daemonkit/internal/procenv"
)

// Prober identifies the calling process and probes other processes.
type Prober interface {
	Getpid() int
	Kill(pid int, sig syscall.Signal) error
}

// Lock is a pidfile lock bound to one path.
type Lock struct {
	path   string
	prober Prober
	logger *slog.Logger

	// owner is the PID this lock compares the pidfile against. Zero means the
	// calling process, resolved on every use so a lock built before a fork
	// follows the caller into the child.
	owner int
}

// Option customizes a Lock.
type Option func(*Lock)

// WithProber overrides the process prober.
func WithProber(p Prober) Option {
	return func(l *Lock) {
		if p != nil {
			l.prober = p
		}
	}
}

// WithLogger attaches a logger for stale-lock recovery messages.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lock) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a lock for path. The path is not touched until the lock is used.
func New(path string, opts ...Option) *Lock {
	l := &Lock{
		path:   path,
		prober: procenv.New(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the pidfile path.
func (l *Lock) Path() string {
	return l.path
}

// IsLocked reports whether the pidfile exists, whoever created it. A file
// that cannot be inspected counts as present.
func (l *Lock) IsLocked() bool {
	_, err := os.Lstat(l.path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// ReadPID returns the PID recorded in the pidfile.
func (l *Lock) ReadPID() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &LockError{Op: "read", Path: l.path, Err: ErrNotLocked}
		}
		return 0, &LockError{Op: "read", Path: l.path, Err: err}
	}
	pid, err := ParsePID(data)
	if err != nil {
		return 0, &LockError{Op: "read", Path: l.path, Err: err}
	}
	return pid, nil
}

// IAmLocking reports whether the pidfile exists and records this lock's owner.
func (l *Lock) IAmLocking() bool {
	pid, err := l.ReadPID()
	return err == nil && pid == l.identity()
}

// Alive probes pid with the null signal. EPERM means the process exists but
// belongs to someone else.
func (l *Lock) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := l.prober.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Stale reports whether the pidfile exists but names no live process. A
// dangling symlink in place of the pidfile is stale too.
func (l *Lock) Stale() bool {
	pid, err := l.ReadPID()
	if err != nil {
		return errors.Is(err, ErrInvalidPID) || (errors.Is(err, ErrNotLocked) && l.IsLocked())
	}
	return !l.Alive(pid)
}

// Acquire creates the pidfile with this lock's owner PID. An existing file
// whose process is alive fails with ErrAlreadyLocked; one whose process is
// gone, or whose content is unreadable as a PID, is reclaimed.
func (l *Lock) Acquire() error {
	return l.guarded("acquire", func() error {
		err := l.create()
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return &LockError{Op: "acquire", Path: l.path, Err: err}
		}

		pid, readErr := l.ReadPID()
		switch {
		case readErr == nil && l.Alive(pid):
			return &LockError{Op: "acquire", Path: l.path, PID: pid, Err: ErrAlreadyLocked}
		case readErr != nil && !errors.Is(readErr, ErrInvalidPID) && !errors.Is(readErr, ErrNotLocked):
			return readErr
		}

		if readErr == nil || errors.Is(readErr, ErrInvalidPID) {
			l.logger.Warn("reclaiming stale pidfile",
				logging.String(logging.FieldEventType, "pidfile_stale"),
				logging.String(logging.FieldPidfile, l.path),
				logging.Int("stale_pid", pid),
				logging.String(logging.FieldImpact, "previous instance exited without removing its pidfile"),
			)
		}
		if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &LockError{Op: "acquire", Path: l.path, PID: pid, Err: err}
		}
		if err := l.create(); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return &LockError{Op: "acquire", Path: l.path, Err: ErrAlreadyLocked}
			}
			return &LockError{Op: "acquire", Path: l.path, Err: err}
		}
		return nil
	})
}

// Release removes the pidfile when it records this lock's owner.
func (l *Lock) Release() error {
	return l.guarded("release", func() error {
		pid, err := l.ReadPID()
		if err != nil || pid != l.identity() {
			return &LockError{Op: "release", Path: l.path, PID: pid, Err: ErrNotLocking}
		}
		if err := os.Remove(l.path); err != nil {
			return &LockError{Op: "release", Path: l.path, PID: pid, Err: err}
		}
		return nil
	})
}

// Adopt makes the recorded PID this lock's owner, provided that process is
// alive. A controlling process uses it to act on a daemon it did not start.
func (l *Lock) Adopt() (int, error) {
	pid, err := l.ReadPID()
	if err != nil {
		return 0, err
	}
	if !l.Alive(pid) {
		return 0, &LockError{Op: "adopt", Path: l.path, PID: pid, Err: ErrStale}
	}
	l.owner = pid
	return pid, nil
}

func (l *Lock) identity() int {
	if l.owner > 0 {
		return l.owner
	}
	return l.prober.Getpid()
}

func (l *Lock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(FormatPID(l.identity())); err != nil {
		_ = f.Close()
		_ = os.Remove(l.path)
		return fmt.Errorf("write pid: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(l.path)
		return fmt.Errorf("close pidfile: %w", err)
	}
	return nil
}

// guarded runs fn while holding the side lock. A fresh flock handle per call
// keeps concurrent callers in one process mutually exclusive too.
func (l *Lock) guarded(op string, fn func() error) error {
	guard := flock.New(l.path + ".lock")
	if err := guard.Lock(); err != nil {
		return &LockError{Op: op, Path: l.path, Err: fmt.Errorf("guard lock: %w", err)}
	}
	defer func() {
		_ = guard.Unlock()
	}()
	return fn()
}
