package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"daemonkit/internal/config"
	"daemonkit/internal/journal"
	"daemonkit/internal/logging"
)

// ErrPidfileTakenOver is returned when another process rewrote the pidfile
// while this daemon was running.
var ErrPidfileTakenOver = errors.New("pidfile taken over by another process")

// Recorder appends lifecycle events. *journal.Store implements it.
type Recorder interface {
	Record(ctx context.Context, ev journal.Event) error
}

// Options configures daemon process runtime behavior.
type Options struct {
	Logger  *slog.Logger
	Journal Recorder
	// PID defaults to os.Getpid.
	PID   int
	RunID string
}

// Run blocks until the daemon is told to stop. It returns
// ErrPidfileTakenOver when it lost its pidfile to another process.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pid := opts.PID
	if pid <= 0 {
		pid = os.Getpid()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx := logging.WithRunID(signalCtx, runID)

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "service"))

	started := time.Now()
	record(ctx, opts.Journal, logger, journal.Event{
		RunID:   runID,
		Kind:    journal.KindStarted,
		PID:     pid,
		Pidfile: cfg.Daemon.Pidfile,
		At:      started,
	})
	logger.Info("daemon running",
		logging.String(logging.FieldEventType, "service_started"),
		logging.Int(logging.FieldPid, pid),
		logging.String(logging.FieldPidfile, cfg.Daemon.Pidfile),
		logging.Duration("heartbeat_interval", cfg.HeartbeatInterval()),
	)

	var lost <-chan Loss
	var watchErrs <-chan error
	if cfg.Service.WatchPidfile && cfg.Daemon.Pidfile != "" {
		watcher, err := WatchPidfile(cfg.Daemon.Pidfile, pid)
		if err != nil {
			logging.WarnWithContext(logger, "pidfile watch unavailable", "pidfile_watch_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "daemon will not notice a removed or replaced pidfile"),
			)
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
			lost = watcher.Lost()
			watchErrs = watcher.Errors()
		}
	}

	ticker := time.NewTicker(cfg.HeartbeatInterval())
	defer ticker.Stop()

	var (
		reason string
		runErr error
	)
loop:
	for {
		select {
		case <-ctx.Done():
			reason = "signal"
			if cmdCtx.Err() != nil {
				reason = "cancelled"
			}
			break loop
		case loss := <-lost:
			reason = loss.String()
			if !loss.Removed {
				runErr = fmt.Errorf("%w (pid %d)", ErrPidfileTakenOver, loss.OwnerPID)
				logging.ErrorWithContext(logger, "pidfile ownership lost", "pidfile_taken_over",
					logging.Int("owner_pid", loss.OwnerPID),
					logging.String(logging.FieldPidfile, cfg.Daemon.Pidfile),
					logging.String(logging.FieldErrorHint, "another instance started with the same pidfile"),
				)
			}
			break loop
		case err := <-watchErrs:
			logging.WarnWithContext(logger, "pidfile watch error", "pidfile_watch_error",
				logging.Error(err),
			)
		case <-ticker.C:
			logger.Debug("heartbeat",
				logging.String(logging.FieldEventType, "heartbeat"),
				logging.Duration("uptime", time.Since(started).Round(time.Second)),
			)
		}
	}

	record(context.WithoutCancel(ctx), opts.Journal, logger, journal.Event{
		RunID:   runID,
		Kind:    journal.KindExited,
		PID:     pid,
		Pidfile: cfg.Daemon.Pidfile,
		Detail:  reason,
	})
	logger.Info("daemon shutting down",
		logging.String(logging.FieldEventType, "service_stopped"),
		logging.String("reason", reason),
		logging.Duration("uptime", time.Since(started).Round(time.Second)),
	)
	return runErr
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
