package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"modelsort/internal/config"
	"modelsort/internal/history"
	"modelsort/internal/logging"
	"modelsort/internal/services"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string
	jsonFlag      *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
	logErr     error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
		jsonFlag:      jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "", "load config", "", err)
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "", "apply flags", "", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = fmt.Errorf("ensure directories: %w", err)
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logErr = err
			return
		}
		c.log, c.logErr = logging.NewFromConfig(cfg)
	})
	return c.log, c.logErr
}

// openHistory returns nil without error when history is disabled.
func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	return history.Open(cfg)
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func flagValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
