// Package preflight provides readiness checks for the mirror directories,
// the queue databases and the metadata query service.
//
// These checks run in two contexts:
//   - Every run calls CheckDirectories before touching queues so a missing or
//     read-only mirror fails fast.
//   - The CLI "mdqsync check" command calls RunAll and CheckQueue to display
//     overall health.
package preflight
