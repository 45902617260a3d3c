package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Daemon configures detachment, the pidfile, and stream redirection.
type Daemon struct {
	Pidfile     string `toml:"pidfile"`
	WorkingDir  string `toml:"working_dir"`
	Umask       string `toml:"umask"`
	Detach      string `toml:"detach"`
	PreventCore bool   `toml:"prevent_core"`
	Stdin       string `toml:"stdin"`
	Stdout      string `toml:"stdout"`
	Stderr      string `toml:"stderr"`
	StopTimeout int    `toml:"stop_timeout"`
}

// Service configures the process that runs once detached.
type Service struct {
	HeartbeatInterval int  `toml:"heartbeat_interval"`
	WatchPidfile      bool `toml:"watch_pidfile"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Journal configures the lifecycle event store.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for daemonkit.
type Config struct {
	Daemon  Daemon  `toml:"daemon"`
	Service Service `toml:"service"`
	Logging Logging `toml:"logging"`
	Journal Journal `toml:"journal"`

	umask int
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. It returns the
// resolved path and whether the file existed; a missing file yields defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// UmaskValue returns the parsed daemon.umask, or -1 when it is empty.
func (c *Config) UmaskValue() int {
	return c.umask
}

// StopTimeout returns daemon.stop_timeout as a duration.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Daemon.StopTimeout) * time.Second
}

// HeartbeatInterval returns service.heartbeat_interval as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Service.HeartbeatInterval) * time.Second
}

// EnsureDirectories creates the parent directories of every file the daemon
// writes.
func (c *Config) EnsureDirectories() error {
	files := []string{c.Daemon.Pidfile, c.Daemon.Stdout, c.Daemon.Stderr, c.Logging.File}
	if c.Journal.Enabled {
		files = append(files, c.Journal.Path)
	}
	for _, file := range files {
		if strings.TrimSpace(file) == "" {
			continue
		}
		dir := filepath.Dir(file)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the commented sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
