package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables understood in addition to the config file. Values
// from the environment fill settings the file leaves unset.
const (
	EnvBaseDir     = "BASEDIR"
	EnvMDQService  = "MDQ_SERVICE"
	EnvRunsPerHour = "RPH"
	EnvMinPerRun   = "MIN_ENTITIES_PER_RUN"
	EnvLogLevel    = "MDQSYNC_LOG_LEVEL"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMDQ()
	if err := c.normalizeSchedule(); err != nil {
		return err
	}
	if c.Watch.DebounceSeconds <= 0 {
		c.Watch.DebounceSeconds = defaultDebounceSeconds
	}
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	c.Paths.BaseDir = strings.TrimSpace(c.Paths.BaseDir)
	if c.Paths.BaseDir == "" {
		if value, ok := os.LookupEnv(EnvBaseDir); ok {
			c.Paths.BaseDir = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMDQ() {
	c.MDQ.ServiceURL = strings.TrimSpace(c.MDQ.ServiceURL)
	if c.MDQ.ServiceURL == "" {
		if value, ok := os.LookupEnv(EnvMDQService); ok {
			c.MDQ.ServiceURL = strings.TrimSpace(value)
		}
	}
	c.MDQ.ServiceURL = strings.TrimRight(c.MDQ.ServiceURL, "/")
	if c.MDQ.RequestTimeout <= 0 {
		c.MDQ.RequestTimeout = defaultRequestTimeout
	}
	c.MDQ.UserAgent = strings.TrimSpace(c.MDQ.UserAgent)
	if c.MDQ.UserAgent == "" {
		c.MDQ.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeSchedule() error {
	if c.Schedule.RunsPerHour == 0 {
		value, ok, err := lookupEnvInt(EnvRunsPerHour)
		if err != nil {
			return err
		}
		if ok {
			c.Schedule.RunsPerHour = value
		}
	}
	if c.Schedule.MinPerRun == 0 {
		value, ok, err := lookupEnvInt(EnvMinPerRun)
		if err != nil {
			return err
		}
		if ok {
			c.Schedule.MinPerRun = value
		}
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if value, ok := os.LookupEnv(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
	return nil
}

func lookupEnvInt(name string) (int, bool, error) {
	value, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(value) == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false, fmt.Errorf("%s: invalid integer %q", name, value)
	}
	return parsed, true, nil
}
