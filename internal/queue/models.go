package queue

import "time"

// Status represents where a message is in its delivery lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCheckedOut Status = "checked_out"
)

// Message is one detected change awaiting a signed metadata fetch.
type Message struct {
	ID           int64
	File         string
	EntityID     string
	Shasum       string
	Status       Status
	EnqueuedAt   time.Time
	CheckedOutAt *time.Time
}

// Stats counts messages per status.
type Stats struct {
	Pending    int
	CheckedOut int
}

// Total returns the number of un-acked messages.
func (s Stats) Total() int { return s.Pending + s.CheckedOut }

// DatabaseHealth captures diagnostic information about a queue database.
type DatabaseHealth struct {
	Name           string
	DBPath         string
	DatabaseExists bool
	SizeBytes      int64
	IntegrityCheck bool
	Error          string
}
