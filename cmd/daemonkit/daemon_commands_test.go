package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"

	"daemonkit/internal/daemonctl"
	"daemonkit/internal/journal"
)

func TestStatusNotRunning(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, env.pidfile)
	requireContains(t, out, "[INFO] Not running")
}

func TestStatusReportsLiveProcess(t *testing.T) {
	env := setupCLITestEnv(t)
	writePidfile(t, env.pidfile, os.Getpid())

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[OK] Running (pid "+strconv.Itoa(os.Getpid())+")")
	requireContains(t, out, "Started:")
}

func TestStatusJSONReportsStalePidfile(t *testing.T) {
	env := setupCLITestEnv(t)
	writePidfile(t, env.pidfile, exitedPID(t))

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var st daemonctl.Status
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !st.Locked || !st.Stale || st.Alive {
		t.Fatalf("expected locked stale pidfile, got %+v", st)
	}
}

func TestStopWithoutPidfile(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestStopLeavesStalePidfileForNextStart(t *testing.T) {
	env := setupCLITestEnv(t)
	writePidfile(t, env.pidfile, exitedPID(t))

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "stale pidfile")
	if _, err := os.Stat(env.pidfile); err != nil {
		t.Fatalf("expected stale pidfile to remain: %v", err)
	}
}

func TestStopSignalsDaemonAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	child := exec.Command("sleep", "30")
	if err := child.Start(); err != nil {
		t.Skipf("sleep unavailable: %v", err)
	}
	reaped := make(chan struct{})
	go func() {
		_ = child.Wait()
		close(reaped)
	}()
	t.Cleanup(func() {
		_ = child.Process.Kill()
		<-reaped
	})
	writePidfile(t, env.pidfile, child.Process.Pid)

	out, _, err := runCLI(t, []string{"stop", "--wait"}, env.configPath)
	if err != nil {
		t.Fatalf("stop --wait: %v", err)
	}
	requireContains(t, out, "Sent SIGTERM to pid "+strconv.Itoa(child.Process.Pid))
	requireContains(t, out, "Daemon exited")
	if _, err := os.Stat(env.pidfile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pidfile removed, stat err=%v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, string(journal.KindStopRequested))
	requireContains(t, out, string(journal.KindStopped))
}

func TestHistoryListsRecordedEvents(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err != nil {
		t.Fatalf("config validate: %v", err)
	}

	store, err := journal.Open(env.journalPath)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	ctx := context.Background()
	for _, ev := range []journal.Event{
		{Kind: journal.KindStarted, RunID: "0123456789abcdef", PID: 4242, Pidfile: env.pidfile},
		{Kind: journal.KindExited, RunID: "0123456789abcdef", PID: 4242, Pidfile: env.pidfile, Detail: "signal"},
	} {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "--limit", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, strings.ToLower(out), "event")
	requireContains(t, out, "01234567")
	requireContains(t, out, "4242")
	requireContains(t, out, "signal")

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var events []journal.Event
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(events) != 2 || events[0].Kind != journal.KindExited {
		t.Fatalf("expected newest-first events, got %+v", events)
	}
}

// exitedPID returns the PID of a process that has already been reaped.
func exitedPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("true unavailable: %v", err)
	}
	return cmd.Process.Pid
}
