package config

const (
	defaultRequestTimeout  = 60
	defaultUserAgent       = "mdqsync/dev"
	defaultMinPerRun       = 0
	defaultDebounceSeconds = 5
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 50
	defaultLogMaxBackups   = 5
	defaultLogMaxAgeDays   = 30
)

// Default returns a Config populated with repository defaults. Base directory,
// service URL and runs per hour have no defaults and must be provided.
func Default() Config {
	return Config{
		MDQ: MDQ{
			RequestTimeout: defaultRequestTimeout,
			UserAgent:      defaultUserAgent,
		},
		Schedule: Schedule{
			MinPerRun: defaultMinPerRun,
		},
		Watch: Watch{
			DebounceSeconds: defaultDebounceSeconds,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
