package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return c.normalizeJournal()
}

func (c *Config) normalizeDaemon() error {
	if value, ok := os.LookupEnv(PidfileEnv); ok && strings.TrimSpace(value) != "" {
		c.Daemon.Pidfile = value
	}

	var err error
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"daemon.pidfile", &c.Daemon.Pidfile},
		{"daemon.working_dir", &c.Daemon.WorkingDir},
		{"daemon.stdin", &c.Daemon.Stdin},
		{"daemon.stdout", &c.Daemon.Stdout},
		{"daemon.stderr", &c.Daemon.Stderr},
	} {
		trimmed := strings.TrimSpace(*field.value)
		if *field.value, err = expandPath(trimmed); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	if c.Daemon.WorkingDir == "" {
		c.Daemon.WorkingDir = defaultWorkingDir
	}

	c.Daemon.Detach = strings.ToLower(strings.TrimSpace(c.Daemon.Detach))
	if c.Daemon.Detach == "" {
		c.Daemon.Detach = defaultDetach
	}

	c.Daemon.Umask = strings.TrimSpace(c.Daemon.Umask)
	c.umask = -1
	if c.Daemon.Umask != "" {
		value, err := strconv.ParseUint(c.Daemon.Umask, 8, 32)
		if err != nil {
			return fmt.Errorf("daemon.umask: %q is not an octal mode", c.Daemon.Umask)
		}
		c.umask = int(value)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeJournal() error {
	c.Journal.Path = strings.TrimSpace(c.Journal.Path)
	if c.Journal.Enabled && c.Journal.Path == "" {
		c.Journal.Path = defaultJournalPath
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}
