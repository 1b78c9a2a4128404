// Package snapshot compares the incoming metadata directory with the seen
// snapshot, queues every new or modified entity, and cleans up entities that
// disappeared upstream.
//
// The seen directory always holds the last incoming copy that was queued, so
// a second Diff over unchanged input queues nothing and writes nothing.
package snapshot
