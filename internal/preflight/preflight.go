package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mdqsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// ErrFailed is wrapped by the error returned from Failed.
var ErrFailed = errors.New("preflight failed")

// CheckDirectories verifies the mirror directories a run reads and writes.
func CheckDirectories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Base directory", cfg.Paths.BaseDir),
		CheckDirectoryAccess("Incoming metadata", cfg.IncomingDir()),
		CheckDirectoryAccess("Seen metadata", cfg.SeenDir()),
		CheckDirectoryAccess("Signed metadata", cfg.SignedDir()),
	}
}

// RunAll executes the directory checks followed by the service check.
func RunAll(ctx context.Context, cfg *config.Config, client *http.Client) []Result {
	if cfg == nil {
		return nil
	}
	results := CheckDirectories(cfg)
	return append(results, CheckService(ctx, client, cfg.MDQ.ServiceURL, cfg.MDQ.UserAgent))
}

// Failed returns an error naming every failed check, or nil when all passed.
func Failed(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrFailed, strings.Join(failed, "; "))
}
