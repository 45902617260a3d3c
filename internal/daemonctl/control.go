package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"daemonkit/internal/daemon"
	"daemonkit/internal/journal"
	"daemonkit/internal/logging"
	"daemonkit/internal/pidlock"
)

var (
	// ErrDaemonNotRunning indicates there is no pidfile to act on.
	ErrDaemonNotRunning = errors.New("daemon not running")
	// ErrStalePidfile indicates the pidfile names a process that has exited.
	ErrStalePidfile = errors.New("pidfile is stale")
	// ErrStopTimeout indicates the daemon outlived the wait after SIGTERM.
	ErrStopTimeout = errors.New("daemon did not exit before the timeout")
)

const pollInterval = 100 * time.Millisecond

// Recorder appends lifecycle events. *journal.Store implements it.
type Recorder interface {
	Record(ctx context.Context, ev journal.Event) error
}

// StopOptions controls Stop.
type StopOptions struct {
	Wait    bool
	Timeout time.Duration
	Journal Recorder
	Logger  *slog.Logger
}

// StopResult captures the outcome of a stop request.
type StopResult struct {
	PID    int
	Exited bool
}

// Stop attaches dctx to the running daemon, signals it once, and removes the
// pidfile. With Wait set it then polls until the process is gone.
func Stop(ctx context.Context, dctx *daemon.Context, opts StopOptions) (StopResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	pid, err := dctx.Attach()
	switch {
	case errors.Is(err, pidlock.ErrNotLocked):
		return StopResult{}, fmt.Errorf("%w (no pidfile at %s)", ErrDaemonNotRunning, dctx.PidfilePath())
	case errors.Is(err, pidlock.ErrStale):
		return StopResult{PID: pid}, fmt.Errorf("%w: %v", ErrStalePidfile, err)
	case err != nil:
		return StopResult{}, err
	}

	record(ctx, opts.Journal, logger, journal.Event{Kind: journal.KindStopRequested, PID: pid, Pidfile: dctx.PidfilePath()})
	if err := dctx.Stop(); err != nil {
		return StopResult{PID: pid}, err
	}
	record(ctx, opts.Journal, logger, journal.Event{Kind: journal.KindStopped, PID: pid, Pidfile: dctx.PidfilePath()})

	result := StopResult{PID: pid}
	if !opts.Wait {
		return result, nil
	}
	lock := dctx.Lock()
	if err := WaitForExit(ctx, pid, opts.Timeout, lock.Alive); err != nil {
		return result, err
	}
	result.Exited = true
	return result, nil
}

// WaitForExit polls alive until it reports pid gone or timeout elapses.
func WaitForExit(ctx context.Context, pid int, timeout time.Duration, alive func(int) bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(timeout)
	for {
		if !alive(pid) {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("pid %d: %w", pid, ErrStopTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// NoteStaleLock journals a stale pidfile that the coming start will reclaim.
// It reports whether the pidfile was stale.
func NoteStaleLock(ctx context.Context, lock *pidlock.Lock, rec Recorder, logger *slog.Logger) bool {
	if lock == nil || !lock.IsLocked() || !lock.Stale() {
		return false
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	pid, _ := lock.ReadPID()
	record(ctx, rec, logger, journal.Event{
		Kind:    journal.KindStaleCleared,
		PID:     pid,
		Pidfile: lock.Path(),
		Detail:  "recorded process is gone",
	})
	return true
}

func record(ctx context.Context, rec Recorder, logger *slog.Logger, ev journal.Event) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, ev); err != nil {
		logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
			logging.String("kind", string(ev.Kind)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "lifecycle history will be incomplete"),
		)
	}
}
