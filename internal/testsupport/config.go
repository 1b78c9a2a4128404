package testsupport

import (
	"path/filepath"
	"testing"

	"mdqsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique temp directory per test.
// It defaults the required fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BaseDir = filepath.Join(base, "mirror")
	cfgVal.MDQ.ServiceURL = "http://127.0.0.1:0"
	cfgVal.MDQ.RequestTimeout = 5
	cfgVal.Schedule.RunsPerHour = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServiceURL points the config at a test metadata query server.
func WithServiceURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.MDQ.ServiceURL = url
	}
}

// WithSchedule overrides runs per hour and the per-run minimum.
func WithSchedule(runsPerHour, minPerRun int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Schedule.RunsPerHour = runsPerHour
		b.cfg.Schedule.MinPerRun = minPerRun
	}
}

// WithDirectories creates the mirror directories up front.
func WithDirectories() ConfigOption {
	return func(b *configBuilder) {
		if err := b.cfg.EnsureDirectories(); err != nil {
			b.t.Fatalf("ensure directories: %v", err)
		}
	}
}
