package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Enqueue appends a message to the tail of the queue. The row is committed
// before Enqueue returns.
func (s *Store) Enqueue(ctx context.Context, file, entityID, shasum string) (*Message, error) {
	if strings.TrimSpace(file) == "" || strings.TrimSpace(shasum) == "" {
		return nil, errors.New("enqueue: file and shasum are required")
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_messages (file, entity_id, shasum, status, enqueued_at) VALUES (?, ?, ?, ?, ?)`,
		file,
		entityID,
		shasum,
		StatusPending,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", file, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Message{
		ID:         id,
		File:       file,
		EntityID:   entityID,
		Shasum:     shasum,
		Status:     StatusPending,
		EnqueuedAt: now,
	}, nil
}

// Size returns the number of messages not yet acked, including checked out ones.
func (s *Store) Size(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM queue_messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("queue size: %w", err)
	}
	return count, nil
}

// Dequeue checks out the oldest pending message. It returns ErrEmptyQueue when
// nothing is pending.
func (s *Store) Dequeue(ctx context.Context) (*Message, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	var msg *Message
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE queue_messages
             SET status = ?, checked_out_at = ?
             WHERE id = (SELECT id FROM queue_messages WHERE status = ? ORDER BY id LIMIT 1)
             RETURNING `+messageColumns,
			StatusCheckedOut,
			nullableTime(&now),
			StatusPending,
		)
		var scanErr error
		msg, scanErr = scanMessage(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmptyQueue
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	return msg, nil
}

// Ack permanently removes a checked out message.
func (s *Store) Ack(ctx context.Context, msg *Message) error {
	if msg == nil {
		return errors.New("ack: message is nil")
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM queue_messages WHERE id = ? AND status = ?`,
		msg.ID,
		StatusCheckedOut,
	)
	if err != nil {
		return fmt.Errorf("ack message %d: %w", msg.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotCheckedOut, msg.ID)
	}
	return nil
}

// Requeue returns every checked out message to pending so it is delivered again.
func (s *Store) Requeue(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_messages SET status = ?, checked_out_at = NULL WHERE status = ?`,
		StatusPending,
		StatusCheckedOut,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue checked out messages: %w", err)
	}
	return res.RowsAffected()
}

// List returns up to limit messages in delivery order. A limit <= 0 lists all.
func (s *Store) List(ctx context.Context, limit int) ([]*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM queue_messages ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Clear removes all messages from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_messages`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
