package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"citetally/internal/config"
	"citetally/internal/library"
	"citetally/internal/logging"
	"citetally/internal/progress"
	"citetally/internal/tally"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cliLogger surfaces warnings on stderr; progress output carries the rest.
func (c *commandContext) cliLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Logging.Level
	if level == "" || strings.EqualFold(level, "info") {
		level = "warn"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) withLibrary(fn func(cfg *config.Config, store *library.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := library.Open(cfg)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func (c *commandContext) withUpdater(cmd *cobra.Command, fn func(updater *tally.Updater, store *library.Store) error) error {
	return c.withLibrary(func(cfg *config.Config, store *library.Store) error {
		updater := tally.New(cfg, store, store.Prefs(), c.cliLogger(cfg),
			tally.WithProgress(progress.ConsoleFactory(cmd.ErrOrStderr())),
		)
		return fn(updater, store)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parseRecordIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid record id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one record id is required")
	}
	return ids, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
