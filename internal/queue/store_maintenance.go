package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Stats returns message counts grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM queue_messages GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch status {
		case StatusPending:
			stats.Pending += count
		case StatusCheckedOut:
			stats.CheckedOut += count
		}
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		Name:   s.name,
		DBPath: s.path,
	}
	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true
	health.SizeBytes = info.Size()

	var result string
	if err := s.db.QueryRowContext(ensureContext(ctx), "PRAGMA integrity_check").Scan(&result); err != nil {
		health.Error = err.Error()
		return health, nil
	}
	health.IntegrityCheck = result == "ok"
	if !health.IntegrityCheck {
		health.Error = result
	}
	return health, nil
}
