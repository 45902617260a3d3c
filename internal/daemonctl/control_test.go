package daemonctl_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"daemonkit/internal/config"
	"daemonkit/internal/daemon"
	"daemonkit/internal/daemonctl"
	"daemonkit/internal/journal"
	"daemonkit/internal/pidlock"
	"daemonkit/internal/procenv"
)

// fakeEnv plays a controlling process: its own pid is fixed and SIGTERM
// makes the target disappear.
type fakeEnv struct {
	pid     int
	alive   map[int]bool
	signals []int
	exits   []int
	stderr  bytes.Buffer
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{pid: 1000, alive: map[int]bool{1000: true}}
}

func (f *fakeEnv) Fork() (int, error)                   { return 0, nil }
func (f *fakeEnv) Setsid() error                        { return nil }
func (f *fakeEnv) Exit(code int)                        { f.exits = append(f.exits, code) }
func (f *fakeEnv) Stderr() io.Writer                    { return &f.stderr }
func (f *fakeEnv) Getpid() int                          { return f.pid }
func (f *fakeEnv) Getppid() int                         { return 1 }
func (f *fakeEnv) Stage() int                           { return 0 }
func (f *fakeEnv) StdinIsSocket() bool                  { return false }
func (f *fakeEnv) Chdir(string) error                   { return nil }
func (f *fakeEnv) Umask(int) int                        { return 0 }
func (f *fakeEnv) Dup2(int, int) error                  { return nil }
func (f *fakeEnv) GetCoreLimit() (procenv.Limit, error) { return procenv.Limit{}, nil }
func (f *fakeEnv) SetCoreLimit(procenv.Limit) error     { return nil }

func (f *fakeEnv) Kill(pid int, sig syscall.Signal) error {
	if sig == syscall.SIGTERM {
		f.signals = append(f.signals, pid)
		f.alive[pid] = false
		return nil
	}
	if f.alive[pid] {
		return nil
	}
	return syscall.ESRCH
}

type memoryJournal struct {
	events []journal.Event
	err    error
}

func (m *memoryJournal) Record(_ context.Context, ev journal.Event) error {
	m.events = append(m.events, ev)
	return m.err
}

func newStopContext(t *testing.T, env *fakeEnv, content string) (*daemon.Context, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.pid")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write pidfile: %v", err)
		}
	}
	ctx, err := daemon.New(daemon.Options{PidfilePath: path}, daemon.WithEnv(env))
	if err != nil {
		t.Fatalf("daemon.New returned error: %v", err)
	}
	return ctx, path
}

func TestStopSignalsWaitsAndJournals(t *testing.T) {
	env := newFakeEnv()
	env.alive[4242] = true
	dctx, path := newStopContext(t, env, "4242\n")
	rec := &memoryJournal{}

	result, err := daemonctl.Stop(context.Background(), dctx, daemonctl.StopOptions{
		Wait:    true,
		Timeout: time.Second,
		Journal: rec,
	})
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if result.PID != 4242 || !result.Exited {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(env.signals) != 1 || env.signals[0] != 4242 {
		t.Fatalf("signals = %v, want one to 4242", env.signals)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pidfile still present: %v", err)
	}
	if len(rec.events) != 2 || rec.events[0].Kind != journal.KindStopRequested || rec.events[1].Kind != journal.KindStopped {
		t.Fatalf("unexpected journal events: %+v", rec.events)
	}
	if rec.events[1].Pidfile != path {
		t.Fatalf("journal pidfile = %q, want %q", rec.events[1].Pidfile, path)
	}
}

func TestStopJournalFailureIsNotFatal(t *testing.T) {
	env := newFakeEnv()
	env.alive[4242] = true
	dctx, _ := newStopContext(t, env, "4242\n")

	_, err := daemonctl.Stop(context.Background(), dctx, daemonctl.StopOptions{
		Journal: &memoryJournal{err: errors.New("disk full")},
	})
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}

func TestStopWithoutPidfile(t *testing.T) {
	dctx, _ := newStopContext(t, newFakeEnv(), "")
	_, err := daemonctl.Stop(context.Background(), dctx, daemonctl.StopOptions{})
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("Stop error = %v, want ErrDaemonNotRunning", err)
	}
}

func TestStopWithStalePidfile(t *testing.T) {
	env := newFakeEnv()
	dctx, path := newStopContext(t, env, "4242\n")
	_, err := daemonctl.Stop(context.Background(), dctx, daemonctl.StopOptions{})
	if !errors.Is(err, daemonctl.ErrStalePidfile) {
		t.Fatalf("Stop error = %v, want ErrStalePidfile", err)
	}
	if len(env.signals) != 0 {
		t.Fatalf("signals sent to stale pid: %v", env.signals)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stale pidfile should be left for the next start: %v", err)
	}
}

func TestWaitForExitTimesOut(t *testing.T) {
	err := daemonctl.WaitForExit(context.Background(), 42, 0, func(int) bool { return true })
	if !errors.Is(err, daemonctl.ErrStopTimeout) {
		t.Fatalf("WaitForExit error = %v, want ErrStopTimeout", err)
	}
}

func TestWaitForExitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := daemonctl.WaitForExit(ctx, 42, time.Minute, func(int) bool { return true })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitForExit error = %v, want context.Canceled", err)
	}
}

func TestWaitForExitReturnsOnceGone(t *testing.T) {
	calls := 0
	alive := func(int) bool {
		calls++
		return calls < 3
	}
	if err := daemonctl.WaitForExit(context.Background(), 42, time.Second, alive); err != nil {
		t.Fatalf("WaitForExit returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 probes, got %d", calls)
	}
}

func TestNoteStaleLock(t *testing.T) {
	env := newFakeEnv()
	path := filepath.Join(t.TempDir(), "demo.pid")
	lock := pidlock.New(path, pidlock.WithProber(env))
	rec := &memoryJournal{}

	if daemonctl.NoteStaleLock(context.Background(), lock, rec, nil) {
		t.Fatal("missing pidfile reported as stale")
	}
	if err := os.WriteFile(path, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}
	if !daemonctl.NoteStaleLock(context.Background(), lock, rec, nil) {
		t.Fatal("expected stale pidfile")
	}
	if len(rec.events) != 1 || rec.events[0].Kind != journal.KindStaleCleared || rec.events[0].PID != 4242 {
		t.Fatalf("unexpected journal events: %+v", rec.events)
	}

	env.alive[4242] = true
	if daemonctl.NoteStaleLock(context.Background(), lock, rec, nil) {
		t.Fatal("live pidfile reported as stale")
	}
}

func TestOpenStreamsAndBuildOptions(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Daemon.Pidfile = filepath.Join(dir, "demo.pid")
	cfg.Daemon.Stdin = ""
	cfg.Daemon.Stdout = filepath.Join(dir, "demo.out")
	cfg.Daemon.Stderr = ""
	cfg.Daemon.Detach = "always"

	streams, err := daemonctl.OpenStreams(&cfg)
	if err != nil {
		t.Fatalf("OpenStreams returned error: %v", err)
	}
	defer streams.Close()
	if streams.Stdin != nil || streams.Stderr != nil {
		t.Fatal("expected empty targets to stay nil")
	}
	if streams.Stdout == nil {
		t.Fatal("expected stdout target to be opened")
	}
	if _, err := os.Stat(cfg.Daemon.Stdout); err != nil {
		t.Fatalf("stdout target not created: %v", err)
	}

	opts, err := daemonctl.BuildOptions(&cfg, streams, nil, false)
	if err != nil {
		t.Fatalf("BuildOptions returned error: %v", err)
	}
	if opts.Detach != daemon.DetachAlways {
		t.Fatalf("detach = %s, want always", opts.Detach)
	}
	if opts.Stdin != nil || opts.Stderr != nil || opts.Stdout == nil {
		t.Fatalf("unexpected stream targets: %+v", opts)
	}
	if opts.PreventCore == nil || !*opts.PreventCore {
		t.Fatal("expected prevent core")
	}

	fg, err := daemonctl.BuildOptions(&cfg, nil, nil, true)
	if err != nil {
		t.Fatalf("BuildOptions returned error: %v", err)
	}
	if fg.Detach != daemon.DetachNever {
		t.Fatalf("foreground detach = %s, want never", fg.Detach)
	}
	if fg.Stdout != os.Stdout || fg.Stderr != os.Stderr || fg.Stdin != os.Stdin {
		t.Fatal("expected foreground to keep the current streams")
	}
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.pid")
	lock := pidlock.New(path)

	st := daemonctl.Snapshot(context.Background(), lock)
	if st.Locked || st.Running() {
		t.Fatalf("unexpected status without pidfile: %+v", st)
	}

	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}
	st = daemonctl.Snapshot(context.Background(), lock)
	if !st.Locked || !st.Stale || st.Problem == "" {
		t.Fatalf("unexpected status for garbage pidfile: %+v", st)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}
	st = daemonctl.Snapshot(context.Background(), lock)
	if !st.Running() || st.Stale || st.PID != os.Getpid() {
		t.Fatalf("unexpected status for live pidfile: %+v", st)
	}
	if st.Name == "" {
		t.Fatalf("expected process name in %+v", st)
	}
}

func TestStatusUptime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := daemonctl.Status{PID: 42, StartedAt: now.Add(-2 * time.Minute)}
	if got := st.Uptime(now); got != 2*time.Minute {
		t.Fatalf("Uptime = %s, want 2m", got)
	}
	if got := (daemonctl.Status{StartedAt: now.Add(time.Minute)}).Uptime(now); got != 0 {
		t.Fatalf("Uptime for future start = %s, want 0", got)
	}
	if got := (daemonctl.Status{}).Uptime(now); got != 0 {
		t.Fatalf("Uptime without start time = %s, want 0", got)
	}
}
