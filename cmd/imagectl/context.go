package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jo-hoe/imagecompressor/internal/core"
)

const defaultConfigPath = "config.yaml"

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *core.ServiceConfig
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the configuration once. An explicit path must exist;
// without one CONFIG_PATH or ./config.yaml is used and a missing default
// file means built-in defaults.
func (c *commandContext) ensureConfig() (*core.ServiceConfig, error) {
	c.configOnce.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		explicit := path != ""
		if !explicit {
			path = os.Getenv("CONFIG_PATH")
			explicit = path != ""
		}
		if !explicit {
			path = defaultConfigPath
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				cfg := &core.ServiceConfig{}
				cfg.ApplyDefaults()
				c.config, c.configErr = cfg, cfg.Validate()
				return
			}
		}
		c.config, c.configErr = core.LoadConfig(path)
	})
	return c.config, c.configErr
}

// withCore runs fn against a core service built from the configuration.
// Logs go to stderr so command output stays clean on stdout.
func (c *commandContext) withCore(ctx context.Context, stderr io.Writer, fn func(*core.CoreService) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := cfg.Logging.NewLogger(stderr)
	slog.SetDefault(logger)

	coreService, err := core.NewCoreService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize core service: %w", err)
	}
	defer func() {
		if closeErr := coreService.Close(); closeErr != nil {
			logger.Warn("CLI: failed to close core service", "error", closeErr)
		}
	}()
	return fn(coreService)
}
