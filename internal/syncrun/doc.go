// Package syncrun coordinates one mirror synchronization pass.
//
// A run holds an exclusive file lock for its whole duration, decides whether
// this is the bootstrap (full sync) run, diffs the incoming directory into the
// queues, sizes the fetch budget for the hour, and drains the queues through
// the metadata query client. Runs are linear; the queues carry all state
// between them.
package syncrun
