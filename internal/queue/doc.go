// Package queue persists pending signed-metadata fetches in SQLite and exposes
// a small durable FIFO over them.
//
// Each Store is one queue in its own database file. Messages move from pending
// to checked_out on Dequeue and disappear on Ack. A message that was checked
// out but never acked (the process died, or a fatal fetch aborted the run) is
// returned to pending by Requeue, so a crash causes redelivery rather than
// loss.
//
// The coordinator keeps two independent queues in a Pair: bootstrap holds the
// one-time full sync backlog, incremental holds changes detected afterwards.
// They are never merged; consumers decide which one to drain first.
//
// The database is transient storage for in-flight work. Schema changes bump
// the version in schema.go; operators delete the queue directory to adopt the
// new schema.
package queue
