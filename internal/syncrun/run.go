package syncrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"mdqsync/internal/budget"
	"mdqsync/internal/config"
	"mdqsync/internal/logging"
	"mdqsync/internal/mdq"
	"mdqsync/internal/preflight"
	"mdqsync/internal/queue"
	"mdqsync/internal/scheduler"
	"mdqsync/internal/snapshot"
)

// Options customizes a run. Zero values select the production behaviour.
type Options struct {
	// Now supplies the wall clock used for the budget hour.
	Now func() time.Time
	// Fetcher replaces the metadata query client.
	Fetcher scheduler.Fetcher
}

// Summary describes what one run did. It is filled as far as the run got,
// also when Run returns an error.
type Summary struct {
	RunID    string
	FullSync bool
	Requeued int64
	Report   snapshot.Report
	Plan     budget.Plan
	Result   scheduler.Result
}

// Run executes one synchronization pass.
//
// Without the full_sync marker the queues are reset and every incoming
// document is queued for bootstrap. The marker is written only after that
// diff completes, so an interrupted bootstrap starts over as a bootstrap on
// the next run instead of continuing incrementally over a partial snapshot.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (Summary, error) {
	var summary Summary
	if cfg == nil {
		return summary, errors.New("config is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	lock, err := AcquireLock(cfg)
	if err != nil {
		return summary, err
	}
	defer lock.Unlock() //nolint:errcheck

	summary.RunID = uuid.NewString()
	ctx = logging.WithRunID(ctx, summary.RunID)
	runLogger := logging.WithContext(ctx, logger)
	log := logging.NewComponentLogger(runLogger, "syncrun")

	summary.FullSync, err = needsFullSync(cfg)
	if err != nil {
		return summary, err
	}
	if summary.FullSync {
		log.Info("no full sync marker; bootstrapping every entity",
			logging.String("marker", cfg.FullSyncMarker()),
		)
		if err := queue.Reset(cfg.QueueDir()); err != nil {
			return summary, err
		}
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return summary, err
	}
	if err := preflight.Failed(preflight.CheckDirectories(cfg)); err != nil {
		return summary, err
	}

	queues, err := queue.OpenPair(cfg.QueueDir())
	if err != nil {
		return summary, err
	}
	defer queues.Close()

	if summary.Requeued, err = queues.Requeue(ctx); err != nil {
		return summary, fmt.Errorf("requeue interrupted messages: %w", err)
	}
	if summary.Requeued > 0 {
		logging.WarnWithContext(log, "redelivering messages left checked out by an interrupted run", "messages_requeued",
			logging.Int64("requeued", summary.Requeued),
			logging.String(logging.FieldErrorHint, "check the previous run's log for the failure"),
			logging.String(logging.FieldImpact, "these entities are fetched again"),
		)
	}

	differ := snapshot.NewDiffer(cfg, queues, runLogger)
	if summary.Report, err = differ.Diff(ctx, summary.FullSync); err != nil {
		return summary, fmt.Errorf("diff incoming metadata: %w", err)
	}
	if summary.FullSync {
		if err := writeMarker(cfg.FullSyncMarker(), now()); err != nil {
			return summary, err
		}
	}

	depth, err := queues.TotalSize(ctx)
	if err != nil {
		return summary, err
	}
	summary.Plan = budget.ComputeAt(depth, now(), cfg.Schedule.RunsPerHour, cfg.Schedule.MinPerRun)
	log.Info("budget planned",
		logging.Int("runs_left_today", summary.Plan.RunsLeft),
		logging.Int("total_queue", summary.Plan.Pending),
		logging.Int("operations", summary.Plan.Operations),
	)
	if summary.Plan.Idle() {
		log.Info("no updates to fetch")
		return summary, nil
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		client, err := mdq.NewClient(cfg, runLogger)
		if err != nil {
			return summary, err
		}
		fetcher = client
	}

	sched := scheduler.New(queues, cfg.IncomingDir(), cfg.SignedDir(), fetcher, runLogger)
	summary.Result, err = sched.Drain(ctx, summary.Plan.Operations)
	if err != nil {
		return summary, err
	}

	log.Info("run complete",
		logging.Int("fetched", summary.Result.Fetched),
		logging.Int("skipped", summary.Result.Skipped),
		logging.Int("queued", summary.Report.Queued()),
		logging.Int("removed", len(summary.Report.Removed)),
	)
	return summary, nil
}

// PlanNext reports the budget the next run would use without taking the lock
// or touching the incoming directory.
func PlanNext(ctx context.Context, cfg *config.Config, now time.Time) (budget.Plan, error) {
	queues, err := queue.OpenPair(cfg.QueueDir())
	if err != nil {
		return budget.Plan{}, err
	}
	defer queues.Close()

	depth, err := queues.TotalSize(ctx)
	if err != nil {
		return budget.Plan{}, err
	}
	return budget.ComputeAt(depth, now, cfg.Schedule.RunsPerHour, cfg.Schedule.MinPerRun), nil
}

func needsFullSync(cfg *config.Config) (bool, error) {
	_, err := os.Stat(cfg.FullSyncMarker())
	switch {
	case err == nil:
		return false, nil
	case os.IsNotExist(err):
		return true, nil
	default:
		return false, fmt.Errorf("stat full sync marker: %w", err)
	}
}

func writeMarker(path string, at time.Time) error {
	if err := os.WriteFile(path, []byte(at.UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write full sync marker: %w", err)
	}
	return nil
}
