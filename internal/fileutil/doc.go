// Package fileutil holds the crash-safe file writes shared by the snapshot
// differ and the signed metadata fetcher.
package fileutil
