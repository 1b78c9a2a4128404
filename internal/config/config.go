package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Directory and file names below the base directory.
const (
	IncomingDirName    = "incoming_metadata"
	SeenDirName        = "seen_metadata"
	SignedDirName      = "signed_metadata"
	SignedEntitiesName = "entities"
	QueueDirName       = "queue"
	FullSyncMarkerName = "full_sync"
	LockFileName       = "mdqsync.lock"
)

// Paths contains the mirror's root directory.
type Paths struct {
	BaseDir string `toml:"base_dir"`
}

// MDQ contains the metadata query service connection settings.
type MDQ struct {
	ServiceURL     string `toml:"service_url"`
	RequestTimeout int    `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// Schedule controls how the pending backlog is spread across runs.
type Schedule struct {
	RunsPerHour int `toml:"runs_per_hour"`
	MinPerRun   int `toml:"min_per_run"`
}

// Watch contains settings for the long-running watch command.
type Watch struct {
	DebounceSeconds int `toml:"debounce_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for mdqsync.
//
// Configuration sections by subsystem:
//   - Paths: base directory holding incoming, seen, signed and queue state
//   - MDQ: remote metadata query service
//   - Schedule: runs per hour and per-run minimum used by the budget
//   - Watch: debounce for the watch command
//   - Logging: log format, level, and optional rotated log file
type Config struct {
	Paths    Paths    `toml:"paths"`
	MDQ      MDQ      `toml:"mdq"`
	Schedule Schedule `toml:"schedule"`
	Watch    Watch    `toml:"watch"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mdqsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is not an error; the
// environment may supply every required value.
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

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
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
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mdqsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// IncomingDir is where the upstream aggregate drops entity documents.
func (c *Config) IncomingDir() string {
	return filepath.Join(c.Paths.BaseDir, IncomingDirName)
}

// SeenDir holds the last synchronized copy of every incoming document.
func (c *Config) SeenDir() string {
	return filepath.Join(c.Paths.BaseDir, SeenDirName)
}

// SignedDir holds fetched signed metadata keyed by identifier digest.
func (c *Config) SignedDir() string {
	return filepath.Join(c.Paths.BaseDir, SignedDirName, SignedEntitiesName)
}

// QueueDir holds the bootstrap and incremental queue databases.
func (c *Config) QueueDir() string {
	return filepath.Join(c.Paths.BaseDir, QueueDirName)
}

// FullSyncMarker is the sentinel recording that the bootstrap run happened.
func (c *Config) FullSyncMarker() string {
	return filepath.Join(c.Paths.BaseDir, FullSyncMarkerName)
}

// LockPath is the file used to keep runs from overlapping.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.BaseDir, LockFileName)
}

// EnsureDirectories creates the directories a run reads from and writes to.
// The queue directory is left to the queue package so a bootstrap reset can
// remove it first.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BaseDir, c.IncomingDir(), c.SignedDir(), c.SeenDir()} {
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
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
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
