package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"daemonkit/internal/daemonctl"
	"daemonkit/internal/daemonrun"
	"daemonkit/internal/pidlock"
	"daemonkit/internal/procenv"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
		newRestartCommand(ctx),
		newStatusCommand(ctx),
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var foreground bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, ctx, foreground)
		},
	}
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in the foreground without detaching")
	return cmd
}

// runStart returns only in the daemon image, after the service loop ends.
func runStart(cmd *cobra.Command, ctx *commandContext, foreground bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	var extra []string
	if foreground {
		extra = append(extra, "stderr")
	}
	logger, err := ctx.logger(extra...)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	var streams *daemonctl.Streams
	if !foreground {
		if streams, err = daemonctl.OpenStreams(cfg); err != nil {
			return err
		}
		defer streams.Close()
	}

	dctx, err := daemonctl.NewContext(cfg, streams, logger, foreground)
	if err != nil {
		return err
	}

	if procenv.New().Stage() == 0 {
		daemonctl.NoteStaleLock(cmd.Context(), dctx.Lock(), ctx.recorder(logger), logger)
		if foreground {
			fmt.Fprintf(cmd.OutOrStdout(), "Running in the foreground (pidfile %s)\n", cfg.Daemon.Pidfile)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Starting daemon (pidfile %s)\n", cfg.Daemon.Pidfile)
		}
	}

	if err := dctx.Start(); err != nil {
		return err
	}
	_ = streams.Close()

	return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
		Logger:  logger,
		Journal: ctx.recorder(logger),
	})
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Send SIGTERM to the running daemon and remove its pidfile",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runStop(cmd, ctx, wait, timeout)
			return err
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the daemon process to exit")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long --wait waits (default daemon.stop_timeout)")
	return cmd
}

// runStop reports whether a daemon was running.
func runStop(cmd *cobra.Command, ctx *commandContext, wait bool, timeout time.Duration) (bool, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return false, err
	}
	logger, err := ctx.logger()
	if err != nil {
		return false, fmt.Errorf("init logger: %w", err)
	}
	if timeout <= 0 {
		timeout = cfg.StopTimeout()
	}

	dctx, err := daemonctl.NewContext(cfg, nil, logger, true)
	if err != nil {
		return false, err
	}

	out := cmd.OutOrStdout()
	result, err := daemonctl.Stop(cmd.Context(), dctx, daemonctl.StopOptions{
		Wait:    wait,
		Timeout: timeout,
		Journal: ctx.recorder(logger),
		Logger:  logger,
	})
	switch {
	case errors.Is(err, daemonctl.ErrDaemonNotRunning):
		fmt.Fprintln(out, "Daemon is not running")
		return false, nil
	case errors.Is(err, daemonctl.ErrStalePidfile):
		fmt.Fprintf(out, "Daemon is not running; stale pidfile %s will be reclaimed by the next start\n", cfg.Daemon.Pidfile)
		return false, nil
	case errors.Is(err, daemonctl.ErrStopTimeout):
		fmt.Fprintf(out, "Sent SIGTERM to pid %d\n", result.PID)
		return true, fmt.Errorf("%w after %s", err, timeout)
	case err != nil:
		return false, err
	}

	fmt.Fprintf(out, "Sent SIGTERM to pid %d\n", result.PID)
	if result.Exited {
		fmt.Fprintln(out, "Daemon exited")
	}
	return true, nil
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon if it is running, then start it again",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Stopping again in a re-executed detach stage would signal the
			// daemon this very command is starting.
			if procenv.New().Stage() == 0 {
				if _, err := runStop(cmd, ctx, true, timeout); err != nil {
					return err
				}
			}
			return runStart(cmd, ctx, false)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for the old process to exit (default daemon.stop_timeout)")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pidfile and daemon process state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status := daemonctl.Snapshot(cmd.Context(), pidlock.New(cfg.Daemon.Pidfile))
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, status)
			}
			for _, line := range statusLines(status, time.Now(), shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
