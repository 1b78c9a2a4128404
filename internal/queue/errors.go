package queue

import "errors"

var (
	// ErrEmptyQueue is returned by Dequeue when no message is pending.
	ErrEmptyQueue = errors.New("queue is empty")
	// ErrNotCheckedOut is returned by Ack for messages that are not checked out.
	ErrNotCheckedOut = errors.New("message is not checked out")
)
