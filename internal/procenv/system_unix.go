//go:build unix

package procenv

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// StageEnv carries the detachment stage across re-executions.
const StageEnv = "DAEMONKIT_DETACH_STAGE"

// Limit is a soft/hard resource limit pair.
type Limit struct {
	Cur uint64
	Max uint64
}

var (
	stageOnce sync.Once
	inherited int
)

// inheritedStage reads and clears StageEnv exactly once per process so that
// programs started by the daemon never inherit it.
func inheritedStage() int {
	stageOnce.Do(func() {
		raw := strings.TrimSpace(os.Getenv(StageEnv))
		_ = os.Unsetenv(StageEnv)
		if raw == "" {
			return
		}
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			inherited = n
		}
	})
	return inherited
}

// System performs real operating system calls against the current process.
type System struct {
	mu    sync.Mutex
	stage int
	forks int
}

// New returns the environment for the running process.
func New() *System {
	return &System{stage: inheritedStage()}
}

// Stage reports how many forks of the detachment sequence ancestors of this
// image have already performed.
func (s *System) Stage() int {
	return s.stage
}

// Fork starts a copy of the running executable and returns its PID, or
// returns 0 when this image is the child of the fork being requested.
func (s *System) Fork() (int, error) {
	s.mu.Lock()
	s.forks++
	n := s.forks
	s.mu.Unlock()

	if n <= s.stage {
		return 0, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return 0, err
	}
	env := append(withoutStage(os.Environ()), fmt.Sprintf("%s=%d", StageEnv, n))
	proc, err := os.StartProcess(exe, os.Args, &os.ProcAttr{
		Dir:   wd,
		Env:   env,
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	})
	if err != nil {
		return 0, err
	}
	pid := proc.Pid
	_ = proc.Release()
	return pid, nil
}

// Setsid makes the calling image a session leader. Images replaying a
// sequence whose setsid already ran in an ancestor skip the call, which keeps
// the final daemon from ever leading a session.
func (s *System) Setsid() error {
	s.mu.Lock()
	replay := s.forks < s.stage
	s.mu.Unlock()
	if replay {
		return nil
	}
	_, err := unix.Setsid()
	return err
}

func (s *System) Exit(code int) {
	os.Exit(code)
}

func (s *System) Stderr() io.Writer {
	return os.Stderr
}

func (s *System) Getpid() int {
	return os.Getpid()
}

func (s *System) Getppid() int {
	return os.Getppid()
}

// Kill sends sig to pid. A zero signal only probes for existence.
func (s *System) Kill(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}

func (s *System) Chdir(dir string) error {
	return os.Chdir(dir)
}

// Umask sets the file mode creation mask and returns the previous one.
func (s *System) Umask(mask int) int {
	return unix.Umask(mask)
}

// Dup2 duplicates oldfd onto newfd, closing newfd first if it is open.
func (s *System) Dup2(oldfd, newfd int) error {
	if oldfd == newfd {
		return nil
	}
	return dup2(oldfd, newfd)
}

// StdinIsSocket reports whether descriptor 0 is a socket, which is how a
// super-server such as inetd hands a connection to the program it starts.
func (s *System) StdinIsSocket() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSocket != 0
}

func withoutStage(environ []string) []string {
	prefix := StageEnv + "="
	out := make([]string, 0, len(environ)+1)
	for _, kv := range environ {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}
