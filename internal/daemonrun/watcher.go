package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"daemonkit/internal/pidlock"
)

// Loss describes why a pidfile no longer names this process.
type Loss struct {
	Removed bool
	// OwnerPID is the PID now recorded, when the file was taken over.
	OwnerPID int
}

func (l Loss) String() string {
	if l.Removed {
		return "pidfile removed"
	}
	return fmt.Sprintf("pidfile taken over by pid %d", l.OwnerPID)
}

// PidfileWatcher reports when a pidfile stops naming a given PID.
type PidfileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	pid     int
	lost    chan Loss
	errs    chan error
	once    sync.Once
}

// WatchPidfile watches the directory holding path, since the file itself is
// replaced rather than modified when ownership changes.
func WatchPidfile(path string, pid int) (*PidfileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &PidfileWatcher{
		watcher: watcher,
		path:    path,
		pid:     pid,
		lost:    make(chan Loss, 1),
		errs:    make(chan error, 1),
	}, nil
}

// Lost delivers at most one Loss.
func (w *PidfileWatcher) Lost() <-chan Loss {
	return w.lost
}

// Errors delivers watcher failures. The watch keeps running after one.
func (w *PidfileWatcher) Errors() <-chan error {
	return w.errs
}

// Run processes events until ctx is done or a loss is reported. The current
// content is checked first, so a file lost before the watch began is caught.
func (w *PidfileWatcher) Run(ctx context.Context) {
	if loss, ok := w.check(); ok {
		w.lost <- loss
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) &&
				!event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if loss, ok := w.check(); ok {
				w.lost <- loss
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

// check reads the pidfile. Content that does not parse yet is a write in
// progress and counts as no change.
func (w *PidfileWatcher) check() (Loss, bool) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Loss{Removed: true}, true
		}
		return Loss{}, false
	}
	pid, err := pidlock.ParsePID(data)
	if err != nil || pid == w.pid {
		return Loss{}, false
	}
	return Loss{OwnerPID: pid}, true
}

// Close stops the watcher. It is safe to call more than once.
func (w *PidfileWatcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
	})
	return err
}
