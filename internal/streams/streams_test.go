package streams_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"daemonkit/internal/procenv"
	"daemonkit/internal/streams"
)

type fd uintptr

func (f fd) Fd() uintptr { return uintptr(f) }

type dupCall struct{ oldfd, newfd int }

type recordingDup struct {
	calls []dupCall
	err   error
}

func (r *recordingDup) Dup2(oldfd, newfd int) error {
	r.calls = append(r.calls, dupCall{oldfd, newfd})
	return r.err
}

func TestRedirectDuplicatesTargetOntoSystem(t *testing.T) {
	dup := &recordingDup{}
	if err := streams.New(dup).Redirect(fd(1), fd(9)); err != nil {
		t.Fatalf("Redirect: %v", err)
	}
	if len(dup.calls) != 1 || dup.calls[0] != (dupCall{oldfd: 9, newfd: 1}) {
		t.Fatalf("unexpected dup calls: %+v", dup.calls)
	}
}

func TestRedirectNilTargetUsesNullDevice(t *testing.T) {
	dup := &recordingDup{}
	var target *os.File
	if err := streams.New(dup).Redirect(fd(2), target); err != nil {
		t.Fatalf("Redirect: %v", err)
	}
	if len(dup.calls) != 1 {
		t.Fatalf("expected one dup call, got %+v", dup.calls)
	}
	if dup.calls[0].newfd != 2 || dup.calls[0].oldfd == 2 {
		t.Fatalf("expected a null device descriptor duplicated onto 2, got %+v", dup.calls[0])
	}
}

func TestRedirectPropagatesDupError(t *testing.T) {
	boom := errors.New("boom")
	err := streams.New(&recordingDup{err: boom}).Redirect(fd(0), fd(5))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped dup error, got %v", err)
	}
}

func TestRedirectRoutesRealDescriptor(t *testing.T) {
	dir := t.TempDir()
	system, err := os.Create(filepath.Join(dir, "system.out"))
	if err != nil {
		t.Fatalf("create system: %v", err)
	}
	defer system.Close()
	target, err := os.Create(filepath.Join(dir, "target.out"))
	if err != nil {
		t.Fatalf("create target: %v", err)
	}
	defer target.Close()

	if err := streams.New(procenv.New()).Redirect(system, target); err != nil {
		t.Fatalf("Redirect: %v", err)
	}

	// fstat on both descriptors must now name the same file.
	sysInfo, err := system.Stat()
	if err != nil {
		t.Fatalf("stat system: %v", err)
	}
	targetInfo, err := target.Stat()
	if err != nil {
		t.Fatalf("stat target: %v", err)
	}
	if !os.SameFile(sysInfo, targetInfo) {
		t.Fatal("expected system descriptor to refer to the target file")
	}
}
