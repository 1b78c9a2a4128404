package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"mdqsync/internal/config"
	"mdqsync/internal/queue"
)

// MustOpenStore opens a single queue.Store below t.TempDir and registers cleanup.
func MustOpenStore(t testing.TB, name string) *queue.Store {
	t.Helper()

	store, err := queue.Open(filepath.Join(t.TempDir(), name+".db"))
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenPair opens the queue pair for cfg and registers cleanup.
func MustOpenPair(t testing.TB, cfg *config.Config) *queue.Pair {
	t.Helper()

	pair, err := queue.OpenPair(cfg.QueueDir())
	if err != nil {
		t.Fatalf("queue.OpenPair: %v", err)
	}
	t.Cleanup(func() {
		pair.Close()
	})
	return pair
}

// MustSize returns the un-acked depth of store.
func MustSize(t testing.TB, store *queue.Store) int {
	t.Helper()

	n, err := store.Size(context.Background())
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	return n
}
