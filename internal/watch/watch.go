// Package watch reruns synchronization when the incoming metadata directory
// changes, for deployments without an external scheduler.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mdqsync/internal/logging"
)

// RunFunc performs one synchronization pass.
type RunFunc func(ctx context.Context) error

// Options configures Loop.
type Options struct {
	// Dir is the directory whose changes trigger a run.
	Dir string
	// Debounce is how long the directory must stay quiet before a run starts.
	Debounce time.Duration
	// Interval triggers a run even without changes so the budget keeps
	// draining the queues.
	Interval time.Duration
	// Fatal reports run errors that end the loop. Other errors are logged
	// and retried on the next trigger. Nil treats every error as retryable.
	Fatal  func(error) bool
	Logger *slog.Logger
}

// IntervalFor spaces runs evenly across an hour.
func IntervalFor(runsPerHour int) time.Duration {
	if runsPerHour <= 0 {
		return time.Hour
	}
	return time.Hour / time.Duration(runsPerHour)
}

// Loop runs once immediately, then again after every debounced burst of
// changes in opts.Dir and on every interval tick. Runs never overlap. A
// failed run is logged and the loop continues unless opts.Fatal matches the
// error, in which case Loop returns it. Loop returns nil when ctx is
// cancelled.
func Loop(ctx context.Context, opts Options, run RunFunc) error {
	if opts.Debounce <= 0 {
		return errors.New("watch: debounce must be positive")
	}
	if opts.Interval <= 0 {
		return errors.New("watch: interval must be positive")
	}
	logger := logging.NewComponentLogger(opts.Logger, "watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", opts.Dir, err)
	}
	logger.Info("watching incoming metadata",
		logging.String("dir", opts.Dir),
		logging.Duration("debounce", opts.Debounce),
		logging.Duration("interval", opts.Interval),
	)

	execute := func(trigger string) error {
		logger.Debug("starting run", logging.String("trigger", trigger))
		err := run(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		if opts.Fatal != nil && opts.Fatal(err) {
			return fmt.Errorf("%s run: %w", trigger, err)
		}
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.String("trigger", trigger),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next change or interval retries the run"),
		)
		return nil
	}

	if err := execute("startup"); err != nil {
		return err
	}

	debounce := time.NewTimer(opts.Debounce)
	debounce.Stop()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("incoming change", logging.String(logging.FieldFile, filepath.Base(event.Name)), logging.String("op", event.Op.String()))
			debounce.Reset(opts.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			logging.WarnWithContext(logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "changes may be picked up at the next interval instead"),
			)
		case <-debounce.C:
			if err := execute("change"); err != nil {
				return err
			}
		case <-ticker.C:
			if err := execute("interval"); err != nil {
				return err
			}
		}
	}
}

// relevant filters out permission changes and hidden files such as partial
// downloads.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}
