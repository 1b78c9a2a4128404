// Package scheduler drains the incremental and bootstrap queues within a
// fetch budget.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mdqsync/internal/logging"
	"mdqsync/internal/queue"
)

// Fetcher retrieves and stores the signed document for an identifier digest.
type Fetcher interface {
	Fetch(ctx context.Context, destDir, digest string) error
}

// Scheduler pulls messages and hands them to a Fetcher.
type Scheduler struct {
	queues      *queue.Pair
	incomingDir string
	signedDir   string
	fetcher     Fetcher
	logger      *slog.Logger
}

// Result summarizes one Drain.
type Result struct {
	// Processed counts acked messages, fetched or skipped.
	Processed int
	Fetched   int
	// Skipped counts messages whose incoming document vanished before the fetch.
	Skipped int
	// Exhausted is true when both queues ran dry before the budget.
	Exhausted bool
}

// New constructs a scheduler.
func New(queues *queue.Pair, incomingDir, signedDir string, fetcher Fetcher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		queues:      queues,
		incomingDir: incomingDir,
		signedDir:   signedDir,
		fetcher:     fetcher,
		logger:      logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Drain processes at most budget messages, incremental queue first. A message
// whose incoming document no longer exists is acked without a fetch. A fetch
// error stops the drain and is returned with the message left checked out,
// so it is delivered again on the next run.
func (s *Scheduler) Drain(ctx context.Context, budget int) (Result, error) {
	var result Result
	for result.Processed < budget {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		store, msg, err := s.next(ctx)
		if err != nil {
			return result, err
		}
		if msg == nil {
			s.logger.Info("queues are empty")
			result.Exhausted = true
			break
		}

		logger := s.logger.With(
			logging.String(logging.FieldQueue, store.Name()),
			logging.String(logging.FieldFile, msg.File),
		)
		logger.Info("working on message",
			logging.String(logging.FieldEntityID, msg.EntityID),
			logging.String("shasum", msg.Shasum),
		)

		fetched, err := s.process(ctx, logger, msg)
		if err != nil {
			logging.ErrorWithContext(logger, "fetch failed; stopping run", "fetch_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the metadata query service; the message is retried next run"),
			)
			return result, fmt.Errorf("fetch %s from %s queue: %w", msg.File, store.Name(), err)
		}
		if err := store.Ack(ctx, msg); err != nil {
			return result, fmt.Errorf("ack %s: %w", msg.File, err)
		}

		result.Processed++
		if fetched {
			result.Fetched++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

func (s *Scheduler) process(ctx context.Context, logger *slog.Logger, msg *queue.Message) (bool, error) {
	_, err := os.Stat(filepath.Join(s.incomingDir, msg.File))
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("not available in incoming metadata; probably removed by upstream",
			logging.String("incoming_dir", s.incomingDir),
		)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat incoming document: %w", err)
	}
	if err := s.fetcher.Fetch(ctx, s.signedDir, msg.Shasum); err != nil {
		return false, err
	}
	return true, nil
}

// next dequeues from the first queue in priority order that has a pending
// message. It returns a nil message when every queue is empty.
func (s *Scheduler) next(ctx context.Context) (*queue.Store, *queue.Message, error) {
	for _, store := range s.queues.Stores() {
		msg, err := store.Dequeue(ctx)
		if errors.Is(err, queue.ErrEmptyQueue) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("dequeue %s: %w", store.Name(), err)
		}
		return store, msg, nil
	}
	return nil, nil, nil
}
