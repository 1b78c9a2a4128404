package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mdqsync/internal/config"
	"mdqsync/internal/logging"
	"mdqsync/internal/queue"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
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
		if c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				cfg.Logging.Level = strings.ToLower(level)
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// withQueues opens the queue pair for the duration of fn.
func (c *commandContext) withQueues(fn func(*queue.Pair) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	queues, err := queue.OpenPair(cfg.QueueDir())
	if err != nil {
		return err
	}
	defer queues.Close()
	return fn(queues)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// selectedQueues resolves a --queue flag value; empty selects both.
func selectedQueues(queues *queue.Pair, name string) ([]*queue.Store, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return queues.Stores(), nil
	}
	store := queues.ByName(name)
	if store == nil {
		return nil, fmt.Errorf("unknown queue %q (expected %s or %s)", name, queue.NameIncremental, queue.NameBootstrap)
	}
	return []*queue.Store{store}, nil
}
