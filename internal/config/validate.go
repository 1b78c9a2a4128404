package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMDQ(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if c.Watch.DebounceSeconds <= 0 {
		return errors.New("watch.debounce_seconds must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		return fmt.Errorf("paths.base_dir is required. Set %s or edit %s (create with 'mdqsync config init')", EnvBaseDir, configHint())
	}
	return nil
}

func (c *Config) validateMDQ() error {
	if c.MDQ.ServiceURL == "" {
		return fmt.Errorf("mdq.service_url is required. Set %s or edit %s", EnvMDQService, configHint())
	}
	parsed, err := url.Parse(c.MDQ.ServiceURL)
	if err != nil {
		return fmt.Errorf("mdq.service_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("mdq.service_url must use http or https, got %q", c.MDQ.ServiceURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("mdq.service_url has no host: %q", c.MDQ.ServiceURL)
	}
	if c.MDQ.RequestTimeout <= 0 {
		return errors.New("mdq.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.RunsPerHour <= 0 {
		return fmt.Errorf("schedule.runs_per_hour is required and must be positive. Set %s or edit %s", EnvRunsPerHour, configHint())
	}
	if c.Schedule.MinPerRun < 0 {
		return errors.New("schedule.min_per_run must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

func configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return "~/.config/mdqsync/config.toml"
	}
	return path
}
