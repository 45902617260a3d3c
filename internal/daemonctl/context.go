package daemonctl

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"daemonkit/internal/config"
	"daemonkit/internal/daemon"
)

// Streams are the opened redirection targets for a daemon start.
type Streams struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// OpenStreams opens the configured stream targets. Empty paths stay nil and
// end up on the null device. Output files are appended to.
func OpenStreams(cfg *config.Config) (*Streams, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	s := &Streams{}
	var err error
	if path := strings.TrimSpace(cfg.Daemon.Stdin); path != "" {
		if s.Stdin, err = os.Open(path); err != nil {
			return nil, fmt.Errorf("open stdin target: %w", err)
		}
	}
	if s.Stdout, err = openOutput(cfg.Daemon.Stdout); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open stdout target: %w", err)
	}
	if s.Stderr, err = openOutput(cfg.Daemon.Stderr); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open stderr target: %w", err)
	}
	return s, nil
}

func openOutput(path string) (*os.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Close closes every opened target and may be called more than once. After
// a successful daemon start the descriptors have been duplicated onto 0, 1
// and 2, so closing the originals is safe.
func (s *Streams) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, f := range []**os.File{&s.Stdin, &s.Stdout, &s.Stderr} {
		if *f != nil {
			errs = append(errs, (*f).Close())
			*f = nil
		}
	}
	return errors.Join(errs...)
}

// BuildOptions maps cfg onto daemon options. Foreground forces DetachNever
// and keeps the current standard streams instead of the configured targets.
func BuildOptions(cfg *config.Config, streams *Streams, logger *slog.Logger, foreground bool) (daemon.Options, error) {
	if cfg == nil {
		return daemon.Options{}, errors.New("config is nil")
	}
	mode, err := daemon.ParseDetachMode(cfg.Daemon.Detach)
	if err != nil {
		return daemon.Options{}, err
	}
	if foreground {
		mode = daemon.DetachNever
	}
	opts := daemon.Options{
		PidfilePath:      cfg.Daemon.Pidfile,
		WorkingDirectory: cfg.Daemon.WorkingDir,
		Umask:            cfg.UmaskValue(),
		PreventCore:      daemon.Bool(cfg.Daemon.PreventCore),
		Detach:           mode,
		Logger:           logger,
	}
	if foreground {
		opts.Stdin, opts.Stdout, opts.Stderr = os.Stdin, os.Stdout, os.Stderr
		return opts, nil
	}
	if streams != nil {
		// Absent targets stay nil interfaces, not typed nils.
		if streams.Stdin != nil {
			opts.Stdin = streams.Stdin
		}
		if streams.Stdout != nil {
			opts.Stdout = streams.Stdout
		}
		if streams.Stderr != nil {
			opts.Stderr = streams.Stderr
		}
	}
	return opts, nil
}

// NewContext builds a daemon.Context for cfg.
func NewContext(cfg *config.Config, streams *Streams, logger *slog.Logger, foreground bool, options ...daemon.Option) (*daemon.Context, error) {
	opts, err := BuildOptions(cfg, streams, logger, foreground)
	if err != nil {
		return nil, err
	}
	return daemon.New(opts, options...)
}
