package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"daemonkit/internal/coredump"
	"daemonkit/internal/detach"
	"daemonkit/internal/logging"
	"daemonkit/internal/pidlock"
	"daemonkit/internal/procenv"
	"daemonkit/internal/streams"
)

// Env is the process environment a Context drives. procenv.System is the
// real implementation.
type Env interface {
	detach.Forker
	coredump.Limiter
	streams.Duplicator
	pidlock.Prober

	Stage() int
	Getppid() int
	Chdir(dir string) error
	Umask(mask int) int
	StdinIsSocket() bool
}

// Option customizes a Context beyond its Options.
type Option func(*Context)

// WithEnv replaces the process environment.
func WithEnv(env Env) Option {
	return func(c *Context) {
		if env != nil {
			c.env = env
		}
	}
}

// WithSystemStreams replaces the streams Start redirects, which default to
// os.Stdin, os.Stdout and os.Stderr.
func WithSystemStreams(stdin, stdout, stderr streams.Stream) Option {
	return func(c *Context) {
		c.system = [3]streams.Stream{stdin, stdout, stderr}
	}
}

// Context is one daemon lifecycle: configured, running, terminated.
type Context struct {
	mu     sync.Mutex
	opts   Options
	env    Env
	lock   *pidlock.Lock
	logger *slog.Logger
	system [3]streams.Stream
	state  State
}

// New validates opts and returns a configured Context.
func New(opts Options, options ...Option) (*Context, error) {
	if opts.PidfilePath != "" && !filepath.IsAbs(opts.PidfilePath) {
		return nil, fmt.Errorf("pidfile %q: %w", opts.PidfilePath, ErrInvalidPidfile)
	}

	c := &Context{
		opts:   opts,
		logger: opts.Logger,
		system: [3]streams.Stream{os.Stdin, os.Stdout, os.Stderr},
		state:  StateConfigured,
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	c.logger = logging.NewComponentLogger(c.logger, "daemon")
	for _, option := range options {
		option(c)
	}
	if c.env == nil {
		c.env = procenv.New()
	}
	if opts.PidfilePath != "" {
		c.lock = pidlock.New(filepath.Clean(opts.PidfilePath),
			pidlock.WithProber(c.env),
			pidlock.WithLogger(c.logger),
		)
	}
	return c, nil
}

// State reports the lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PidfilePath returns the configured pidfile path, or "".
func (c *Context) PidfilePath() string {
	if c.lock == nil {
		return ""
	}
	return c.lock.Path()
}

// Lock exposes the pidfile lock, or nil when no pidfile is configured.
func (c *Context) Lock() *pidlock.Lock {
	return c.lock
}

// PID returns the PID recorded in the pidfile.
func (c *Context) PID() (int, error) {
	if c.lock == nil {
		return 0, ErrNoPidfile
	}
	return c.lock.ReadPID()
}

// Start daemonizes the calling process. It returns only in the daemon, with
// the pidfile holding its PID and the standard streams redirected. A live
// instance holding the pidfile aborts the process before anything else
// happens.
func (c *Context) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConfigured {
		return transitionError("start", c.state)
	}

	if c.lock != nil && c.lock.IsLocked() {
		if !c.lock.Stale() {
			pid, _ := c.lock.ReadPID()
			return c.abort(&pidlock.LockError{Op: "start", Path: c.lock.Path(), PID: pid, Err: pidlock.ErrAlreadyLocked})
		}
	}

	if c.shouldDetach() {
		if state := detach.New(c.env).Detach(); state != detach.SecondChild {
			return fmt.Errorf("detach ended in %s: %w", state, ErrDetachIncomplete)
		}
	}

	if c.opts.preventCore() {
		if err := coredump.Disable(c.env); err != nil {
			return fmt.Errorf("prevent core dumps: %w", err)
		}
	}

	dir := c.opts.workingDirectory()
	if err := c.env.Chdir(dir); err != nil {
		return fmt.Errorf("change working directory to %s: %w", dir, err)
	}
	if c.opts.Umask >= 0 {
		c.env.Umask(c.opts.Umask)
	}

	if c.lock != nil {
		if err := c.lock.Acquire(); err != nil {
			if errors.Is(err, pidlock.ErrAlreadyLocked) {
				return c.abort(err)
			}
			return err
		}
	}

	targets := [3]streams.Stream{c.opts.Stdin, c.opts.Stdout, c.opts.Stderr}
	redirector := streams.New(c.env)
	for i, system := range c.system {
		if err := redirector.Redirect(system, targets[i]); err != nil {
			c.releaseAfterFailure()
			return fmt.Errorf("redirect %s: %w", streamNames[i], err)
		}
	}

	c.state = StateRunning
	c.logger.Info("daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.Int(logging.FieldPid, c.env.Getpid()),
		logging.String(logging.FieldPidfile, c.PidfilePath()),
	)
	return nil
}

// Attach binds a freshly configured Context to the daemon recorded in the
// pidfile, so that a separate process can Stop it. It returns the daemon PID.
func (c *Context) Attach() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConfigured {
		return 0, transitionError("attach", c.state)
	}
	if c.lock == nil {
		return 0, ErrNoPidfile
	}
	pid, err := c.lock.Adopt()
	if err != nil {
		return 0, err
	}
	c.state = StateRunning
	return pid, nil
}

// Stop sends SIGTERM to the daemon recorded in the pidfile and removes the
// pidfile. A Context that does not own the pidfile aborts the process without
// signalling anything.
func (c *Context) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return transitionError("stop", c.state)
	}
	if c.lock == nil {
		return ErrNoPidfile
	}

	pid, err := c.lock.ReadPID()
	if err != nil || !c.lock.IAmLocking() {
		return c.abort(&pidlock.LockError{Op: "stop", Path: c.lock.Path(), PID: pid, Err: pidlock.ErrNotLocking})
	}

	if err := c.env.Kill(pid, syscall.SIGTERM); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("signal pid %d: %w", pid, err)
		}
		logging.WarnWithContext(c.logger, "daemon already exited", "daemon_gone",
			logging.Int(logging.FieldPid, pid),
			logging.String(logging.FieldPidfile, c.lock.Path()),
			logging.String(logging.FieldImpact, "removing pidfile left by an exited process"),
		)
	}

	if err := c.lock.Release(); err != nil {
		return err
	}

	c.state = StateTerminated
	c.logger.Info("daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"),
		logging.Int(logging.FieldPid, pid),
		logging.String(logging.FieldPidfile, c.lock.Path()),
	)
	return nil
}

var streamNames = [3]string{"stdin", "stdout", "stderr"}

// shouldDetach also returns true in every image after the first of a detach
// sequence; those images must replay it to learn their role.
func (c *Context) shouldDetach() bool {
	switch c.opts.Detach {
	case DetachNever:
		return false
	case DetachAlways:
		return true
	}
	if c.env.Stage() > 0 {
		return true
	}
	return c.env.Getppid() != 1 && !c.env.StdinIsSocket()
}

// abort reports err on the error stream and exits with status 1. The error
// is returned for environments whose Exit returns.
func (c *Context) abort(err error) error {
	fmt.Fprintf(c.env.Stderr(), "daemonkit: %v\n", err)
	c.env.Exit(1)
	return err
}

func (c *Context) releaseAfterFailure() {
	if c.lock == nil {
		return
	}
	if err := c.lock.Release(); err != nil {
		logging.WarnWithContext(c.logger, "pidfile release after failed start", "pidfile_release_failed",
			logging.String(logging.FieldPidfile, c.lock.Path()),
			logging.Error(err),
		)
	}
}
