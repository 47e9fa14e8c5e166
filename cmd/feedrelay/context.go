package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"feedrelay/internal/config"
	"feedrelay/internal/delivery"
	"feedrelay/internal/discord"
	"feedrelay/internal/history"
	"feedrelay/internal/logging"
	"feedrelay/internal/reddit"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// Overridden in tests to avoid live Discord and Reddit endpoints.
	newChannel    func(cfg config.Discord) (delivery.Channel, error)
	newFeedClient func(opts reddit.Options) (*reddit.Client, error)
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		newChannel: func(cfg config.Discord) (delivery.Channel, error) {
			return discord.New(cfg)
		},
		newFeedClient: reddit.New,
	}
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

// logger writes to w so stdout stays reserved for tables and status lines.
func (c *commandContext) logger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, w)
}

func (c *commandContext) feedClient() (*reddit.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateFeedAccess(); err != nil {
		return nil, err
	}
	return c.newFeedClient(reddit.OptionsFromConfig(cfg))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// withHistory opens the ledger for the duration of fn.
func (c *commandContext) withHistory(fn func(store *history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("history is disabled (set history.enabled = true)")
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}
