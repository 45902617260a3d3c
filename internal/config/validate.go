package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"daemonkit/internal/daemon"
	"daemonkit/internal/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateService(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDaemon() error {
	if c.Daemon.Pidfile == "" {
		return fmt.Errorf("daemon.pidfile is required. Set %s or edit the config (create with 'daemonkit config init')", PidfileEnv)
	}
	if !filepath.IsAbs(c.Daemon.Pidfile) {
		return fmt.Errorf("daemon.pidfile %q: %w", c.Daemon.Pidfile, daemon.ErrInvalidPidfile)
	}
	if c.umask > 0o777 {
		return fmt.Errorf("daemon.umask %s exceeds 0777", c.Daemon.Umask)
	}
	if _, err := daemon.ParseDetachMode(c.Daemon.Detach); err != nil {
		return fmt.Errorf("daemon.detach: %w", err)
	}
	if c.Daemon.StopTimeout <= 0 {
		return errors.New("daemon.stop_timeout must be positive")
	}
	return nil
}

func (c *Config) validateService() error {
	if c.Service.HeartbeatInterval <= 0 {
		return errors.New("service.heartbeat_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
