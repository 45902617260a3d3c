//go:build unix

package procenv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestForkReplaysAncestorForks(t *testing.T) {
	sys := &System{stage: 2}

	for i := 1; i <= 2; i++ {
		pid, err := sys.Fork()
		if err != nil {
			t.Fatalf("fork #%d: %v", i, err)
		}
		if pid != 0 {
			t.Fatalf("fork #%d: expected replayed fork to return 0, got %d", i, pid)
		}
	}
}

func TestSetsidSkippedWhenReplaying(t *testing.T) {
	sys := &System{stage: 2}
	if _, err := sys.Fork(); err != nil {
		t.Fatalf("fork: %v", err)
	}
	// forks (1) < stage (2): the first child already became session leader.
	if err := sys.Setsid(); err != nil {
		t.Fatalf("expected replayed setsid to be a no-op, got %v", err)
	}
}

func TestWithoutStageDropsMarker(t *testing.T) {
	env := []string{"HOME=/root", StageEnv + "=1", "PATH=/bin"}
	got := withoutStage(env)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
	for _, kv := range got {
		if strings.HasPrefix(kv, StageEnv+"=") {
			t.Fatalf("stage marker survived: %v", got)
		}
	}
}

func TestDup2RoutesDescriptor(t *testing.T) {
	dir := t.TempDir()
	system, err := os.Create(filepath.Join(dir, "system"))
	if err != nil {
		t.Fatalf("create system file: %v", err)
	}
	defer system.Close()
	target, err := os.Create(filepath.Join(dir, "target"))
	if err != nil {
		t.Fatalf("create target file: %v", err)
	}
	defer target.Close()

	sys := New()
	if err := sys.Dup2(int(target.Fd()), int(system.Fd())); err != nil {
		t.Fatalf("Dup2: %v", err)
	}
	if _, err := system.WriteString("routed"); err != nil {
		t.Fatalf("write via system descriptor: %v", err)
	}

	data, err := os.ReadFile(target.Name())
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(data) != "routed" {
		t.Fatalf("expected write to land in target, got %q", data)
	}
	if data, _ := os.ReadFile(system.Name()); len(data) != 0 {
		t.Fatalf("expected original system file untouched, got %q", data)
	}
}

func TestDup2SameDescriptorIsNoop(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fd")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if err := New().Dup2(int(f.Fd()), int(f.Fd())); err != nil {
		t.Fatalf("expected nil for identical descriptors, got %v", err)
	}
}
