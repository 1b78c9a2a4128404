package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mdqsync/internal/config"
	"mdqsync/internal/entity"
	"mdqsync/internal/fileutil"
	"mdqsync/internal/fingerprint"
	"mdqsync/internal/logging"
	"mdqsync/internal/mdq"
	"mdqsync/internal/queue"
)

// Differ classifies incoming documents against the seen snapshot.
type Differ struct {
	incomingDir string
	seenDir     string
	signedDir   string
	queues      *queue.Pair
	logger      *slog.Logger
}

// NewDiffer wires a differ to the mirror layout of cfg.
func NewDiffer(cfg *config.Config, queues *queue.Pair, logger *slog.Logger) *Differ {
	return &Differ{
		incomingDir: cfg.IncomingDir(),
		seenDir:     cfg.SeenDir(),
		signedDir:   cfg.SignedDir(),
		queues:      queues,
		logger:      logging.NewComponentLogger(logger, "snapshot"),
	}
}

// Diff runs the incoming pass followed by the removed pass. With fullSync
// every parseable incoming document goes to the bootstrap queue; otherwise
// only new and modified documents are queued, on the incremental queue.
// Unparseable documents are skipped with a warning. Any I/O or queue error
// aborts the diff.
func (d *Differ) Diff(ctx context.Context, fullSync bool) (Report, error) {
	var report Report

	incoming, err := listDocuments(d.incomingDir)
	if err != nil {
		return report, fmt.Errorf("list incoming metadata: %w", err)
	}
	for _, name := range incoming {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := d.diffIncoming(ctx, name, fullSync, &report); err != nil {
			return report, err
		}
	}

	seen, err := listDocuments(d.seenDir)
	if err != nil {
		return report, fmt.Errorf("list seen metadata: %w", err)
	}
	for _, name := range seen {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, statErr := os.Stat(filepath.Join(d.incomingDir, name)); statErr == nil {
			continue
		} else if !os.IsNotExist(statErr) {
			return report, fmt.Errorf("stat incoming %s: %w", name, statErr)
		}
		if err := d.remove(name); err != nil {
			return report, err
		}
		report.Removed = append(report.Removed, name)
	}

	d.logger.Info("snapshot diff complete",
		logging.Bool("full_sync", fullSync),
		logging.Int("bootstrap", len(report.Bootstrap)),
		logging.Int("new", len(report.New)),
		logging.Int("modified", len(report.Modified)),
		logging.Int("unchanged", len(report.Unchanged)),
		logging.Int("removed", len(report.Removed)),
		logging.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

func (d *Differ) diffIncoming(ctx context.Context, name string, fullSync bool, report *Report) error {
	incomingPath := filepath.Join(d.incomingDir, name)
	seenPath := filepath.Join(d.seenDir, name)

	result := entity.Read(incomingPath)
	if !result.OK() {
		logging.WarnWithContext(d.logger, "skipping unparseable metadata", "metadata_parse_failed",
			logging.String(logging.FieldFile, name),
			logging.String("reason", string(result.Failure.Reason)),
			logging.Error(result.Failure.Err),
			logging.String(logging.FieldErrorHint, "fix the document in the incoming directory"),
			logging.String(logging.FieldImpact, "document is neither queued nor snapshotted"),
		)
		report.Skipped = append(report.Skipped, name)
		return nil
	}
	record := result.Record

	var (
		target *queue.Store
		class  string
	)
	switch {
	case fullSync:
		target, class = d.queues.Bootstrap, "bootstrap"
	default:
		changed, isNew, err := compare(incomingPath, seenPath)
		if err != nil {
			return err
		}
		if !changed {
			report.Unchanged = append(report.Unchanged, name)
			return nil
		}
		target, class = d.queues.Incremental, "modified"
		if isNew {
			class = "new"
		}
	}

	if _, err := target.Enqueue(ctx, name, record.EntityID, record.Digest); err != nil {
		return fmt.Errorf("queue %s: %w", name, err)
	}
	if err := fileutil.CopyFileAtomic(incomingPath, seenPath); err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}

	d.logger.Info("metadata queued",
		logging.String(logging.FieldFile, name),
		logging.String(logging.FieldEntityID, record.EntityID),
		logging.String(logging.FieldQueue, target.Name()),
		logging.String("change", class),
	)
	switch class {
	case "bootstrap":
		report.Bootstrap = append(report.Bootstrap, name)
	case "new":
		report.New = append(report.New, name)
	default:
		report.Modified = append(report.Modified, name)
	}
	return nil
}

// compare reports whether the incoming document differs from its seen copy,
// and whether the seen copy is missing altogether.
func compare(incomingPath, seenPath string) (changed, isNew bool, err error) {
	info, err := os.Stat(seenPath)
	if os.IsNotExist(err) {
		return true, true, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("stat seen copy: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, false, fmt.Errorf("seen copy %s is not a regular file", seenPath)
	}

	incomingDigest, err := fingerprint.DigestFile(incomingPath)
	if err != nil {
		return false, false, err
	}
	seenDigest, err := fingerprint.DigestFile(seenPath)
	if err != nil {
		return false, false, err
	}
	return incomingDigest != seenDigest, false, nil
}

func (d *Differ) remove(name string) error {
	seenPath := filepath.Join(d.seenDir, name)

	result := entity.Read(seenPath)
	if _, err := fileutil.RemoveIfExists(seenPath); err != nil {
		return fmt.Errorf("remove seen copy %s: %w", name, err)
	}

	if !result.OK() {
		logging.WarnWithContext(d.logger, "removed metadata had no readable entityID", "removed_parse_failed",
			logging.String(logging.FieldFile, name),
			logging.String("reason", string(result.Failure.Reason)),
			logging.String(logging.FieldErrorHint, "delete the stale signed document by hand if one exists"),
			logging.String(logging.FieldImpact, "signed metadata for this entity was not removed"),
		)
		return nil
	}

	removed, err := mdq.RemoveSigned(d.signedDir, result.Record.Digest)
	if err != nil {
		return err
	}
	d.logger.Info("metadata removed",
		logging.String(logging.FieldFile, name),
		logging.String(logging.FieldEntityID, result.Record.EntityID),
		logging.String("shasum", result.Record.Digest),
		logging.Bool("signed_removed", removed),
	)
	return nil
}

// listDocuments returns the non-hidden regular files of dir, including
// symlinks to regular files, in lexical order. A missing directory lists as
// empty.
func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, entry.Name()))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		} else if !entry.Type().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
