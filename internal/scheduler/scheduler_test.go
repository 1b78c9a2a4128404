package scheduler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"mdqsync/internal/config"
	"mdqsync/internal/queue"
	"mdqsync/internal/scheduler"
	"mdqsync/internal/testsupport"
)

type recordingFetcher struct {
	digests []string
	failOn  string
	err     error
}

func (f *recordingFetcher) Fetch(_ context.Context, _ string, digest string) error {
	f.digests = append(f.digests, digest)
	if digest == f.failOn {
		return f.err
	}
	return nil
}

func setup(t *testing.T) (*config.Config, *queue.Pair, *recordingFetcher, *scheduler.Scheduler) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithDirectories())
	queues := testsupport.MustOpenPair(t, cfg)
	fetcher := &recordingFetcher{}
	return cfg, queues, fetcher, scheduler.New(queues, cfg.IncomingDir(), cfg.SignedDir(), fetcher, nil)
}

func enqueue(t *testing.T, cfg *config.Config, store *queue.Store, name string) {
	t.Helper()
	testsupport.WriteEntity(t, cfg.IncomingDir(), name, "https://"+name, "")
	if _, err := store.Enqueue(context.Background(), name, "https://"+name, "sha-"+name); err != nil {
		t.Fatal(err)
	}
}

func TestDrainPrefersIncremental(t *testing.T) {
	cfg, queues, fetcher, sched := setup(t)
	enqueue(t, cfg, queues.Bootstrap, "boot1")
	enqueue(t, cfg, queues.Incremental, "inc1")
	enqueue(t, cfg, queues.Bootstrap, "boot2")
	enqueue(t, cfg, queues.Incremental, "inc2")

	result, err := sched.Drain(context.Background(), 10)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}

	want := []string{"sha-inc1", "sha-inc2", "sha-boot1", "sha-boot2"}
	if !reflect.DeepEqual(fetcher.digests, want) {
		t.Fatalf("fetch order = %v, want %v", fetcher.digests, want)
	}
	if result.Processed != 4 || result.Fetched != 4 || !result.Exhausted {
		t.Fatalf("unexpected result %+v", result)
	}
	total, err := queues.TotalSize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("expected all messages acked, %d remain", total)
	}
}

func TestDrainStopsAtBudget(t *testing.T) {
	cfg, queues, fetcher, sched := setup(t)
	for _, name := range []string{"a", "b", "c"} {
		enqueue(t, cfg, queues.Incremental, name)
	}

	result, err := sched.Drain(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 2 || result.Exhausted {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(fetcher.digests) != 2 {
		t.Fatalf("expected two fetches, got %v", fetcher.digests)
	}
	if got := testsupport.MustSize(t, queues.Incremental); got != 1 {
		t.Fatalf("expected one message left, got %d", got)
	}
}

func TestDrainZeroBudgetFetchesNothing(t *testing.T) {
	cfg, queues, fetcher, sched := setup(t)
	enqueue(t, cfg, queues.Incremental, "a")

	result, err := sched.Drain(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 0 || len(fetcher.digests) != 0 {
		t.Fatalf("expected no work, got %+v fetches=%v", result, fetcher.digests)
	}
}

func TestDrainSkipsVanishedIncomingButAcks(t *testing.T) {
	cfg, queues, fetcher, sched := setup(t)
	enqueue(t, cfg, queues.Incremental, "gone")
	enqueue(t, cfg, queues.Incremental, "kept")
	if err := os.Remove(filepath.Join(cfg.IncomingDir(), "gone")); err != nil {
		t.Fatal(err)
	}

	result, err := sched.Drain(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fetcher.digests, []string{"sha-kept"}) {
		t.Fatalf("unexpected fetches %v", fetcher.digests)
	}
	if result.Processed != 2 || result.Skipped != 1 || result.Fetched != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := testsupport.MustSize(t, queues.Incremental); got != 0 {
		t.Fatalf("skipped message should be acked, %d remain", got)
	}
}

func TestDrainFetchErrorLeavesMessageForRedelivery(t *testing.T) {
	cfg, queues, fetcher, sched := setup(t)
	enqueue(t, cfg, queues.Incremental, "a")
	enqueue(t, cfg, queues.Incremental, "b")
	enqueue(t, cfg, queues.Incremental, "c")
	fetcher.failOn = "sha-b"
	fetcher.err = errors.New("mdq returned 500")

	result, err := sched.Drain(context.Background(), 10)
	if !errors.Is(err, fetcher.err) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("expected one processed message, got %+v", result)
	}
	if !reflect.DeepEqual(fetcher.digests, []string{"sha-a", "sha-b"}) {
		t.Fatalf("no fetch may follow the failure, got %v", fetcher.digests)
	}

	ctx := context.Background()
	if _, err := queues.Incremental.Requeue(ctx); err != nil {
		t.Fatal(err)
	}
	msg, err := queues.Incremental.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.File != "b" {
		t.Fatalf("failed message should be redelivered first, got %s", msg.File)
	}
}

func TestDrainEmptyQueues(t *testing.T) {
	_, _, fetcher, sched := setup(t)
	result, err := sched.Drain(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Exhausted || result.Processed != 0 || len(fetcher.digests) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestDrainCancelled(t *testing.T) {
	cfg, queues, fetcher, sched := setup(t)
	enqueue(t, cfg, queues.Incremental, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sched.Drain(ctx, 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fetcher.digests) != 0 {
		t.Fatal("cancelled drain must not fetch")
	}
}
