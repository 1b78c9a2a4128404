package snapshot

// Report lists the file names of each classification from one Diff.
type Report struct {
	Bootstrap []string
	New       []string
	Modified  []string
	Unchanged []string
	Removed   []string
	Skipped   []string
}

// Queued is the number of messages Diff enqueued.
func (r Report) Queued() int {
	return len(r.Bootstrap) + len(r.New) + len(r.Modified)
}

// Changed reports whether Diff touched the seen snapshot.
func (r Report) Changed() bool {
	return r.Queued() > 0 || len(r.Removed) > 0
}
