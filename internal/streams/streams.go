// Package streams rebinds the process standard streams onto other
// descriptors.
package streams

import (
	"fmt"
	"os"
)

// Stream is anything backed by a file descriptor, such as *os.File.
type Stream interface {
	Fd() uintptr
}

// Duplicator copies one descriptor onto another descriptor number.
type Duplicator interface {
	Dup2(oldfd, newfd int) error
}

// Redirector applies descriptor-level redirections through a Duplicator.
type Redirector struct {
	dup     Duplicator
	devNull string
}

// New returns a redirector that opens os.DevNull for absent targets.
func New(dup Duplicator) *Redirector {
	return &Redirector{dup: dup, devNull: os.DevNull}
}

// Redirect makes every read or write against system's descriptor act on
// target's descriptor. A nil target binds system to the null device. Buffered
// data held above the descriptor is not flushed and is lost.
func (r *Redirector) Redirect(system, target Stream) error {
	if system == nil {
		return fmt.Errorf("redirect: system stream is nil")
	}
	if isNil(target) {
		null, err := os.OpenFile(r.devNull, os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("open %s: %w", r.devNull, err)
		}
		defer null.Close()
		target = null
	}
	if err := r.dup.Dup2(int(target.Fd()), int(system.Fd())); err != nil {
		return fmt.Errorf("dup2 %d onto %d: %w", target.Fd(), system.Fd(), err)
	}
	return nil
}

// isNil catches typed nils such as a (*os.File)(nil) stored in the interface.
func isNil(s Stream) bool {
	if s == nil {
		return true
	}
	if f, ok := s.(*os.File); ok && f == nil {
		return true
	}
	return false
}
