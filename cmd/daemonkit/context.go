package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"daemonkit/internal/config"
	"daemonkit/internal/journal"
	"daemonkit/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	journalOnce  sync.Once
	journalStore *journal.Store
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// logger writes to the configured log file, falling back to stderr when none
// is set. Extra outputs such as "stderr" for foreground runs are appended.
func (c *commandContext) logger(extra ...string) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		level = *c.logLevelFlag
	}
	var outputs []string
	if cfg.Logging.File != "" {
		outputs = append(outputs, cfg.Logging.File)
	}
	outputs = append(outputs, extra...)
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

// journal opens the lifecycle journal once. A disabled or unusable journal
// yields nil; failures are logged to logger.
func (c *commandContext) journal(logger *slog.Logger) *journal.Store {
	c.journalOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil || !cfg.Journal.Enabled {
			return
		}
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			logging.WarnWithContext(logger, "journal unavailable", "journal_open_failed",
				logging.String("path", cfg.Journal.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "lifecycle events will not be recorded"),
			)
			return
		}
		c.journalStore = store
	})
	return c.journalStore
}

func (c *commandContext) close() {
	if c.journalStore != nil {
		_ = c.journalStore.Close()
		c.journalStore = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// recorder returns the journal as a daemonctl/daemonrun recorder, or a nil
// interface when there is none.
func (c *commandContext) recorder(logger *slog.Logger) interface {
	Record(ctx context.Context, ev journal.Event) error
} {
	if store := c.journal(logger); store != nil {
		return store
	}
	return nil
}
