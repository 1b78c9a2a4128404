package queue

import (
	"database/sql"
	"errors"
	"time"
)

const messageColumns = "id, file, entity_id, shasum, status, enqueued_at, checked_out_at"

func scanMessage(scanner interface{ Scan(dest ...any) error }) (*Message, error) {
	var (
		msg           Message
		statusStr     string
		enqueuedRaw   string
		checkedOutRaw sql.NullString
	)
	if err := scanner.Scan(
		&msg.ID,
		&msg.File,
		&msg.EntityID,
		&msg.Shasum,
		&statusStr,
		&enqueuedRaw,
		&checkedOutRaw,
	); err != nil {
		return nil, err
	}
	msg.Status = Status(statusStr)
	if ts, err := parseTimeString(enqueuedRaw); err == nil {
		msg.EnqueuedAt = ts
	}
	if checkedOutRaw.Valid {
		if ts, err := parseTimeString(checkedOutRaw.String); err == nil {
			msg.CheckedOutAt = &ts
		}
	}
	return &msg, nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
