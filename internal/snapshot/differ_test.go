package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"mdqsync/internal/config"
	"mdqsync/internal/fingerprint"
	"mdqsync/internal/mdq"
	"mdqsync/internal/queue"
	"mdqsync/internal/snapshot"
	"mdqsync/internal/testsupport"
)

type fixture struct {
	cfg    *config.Config
	queues *queue.Pair
	differ *snapshot.Differ
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithDirectories())
	queues := testsupport.MustOpenPair(t, cfg)
	return fixture{cfg: cfg, queues: queues, differ: snapshot.NewDiffer(cfg, queues, nil)}
}

func (f fixture) diff(t *testing.T, fullSync bool) snapshot.Report {
	t.Helper()
	report, err := f.differ.Diff(context.Background(), fullSync)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	return report
}

func (f fixture) writeIncoming(t *testing.T, name, entityID, extra string) string {
	t.Helper()
	return testsupport.WriteEntity(t, f.cfg.IncomingDir(), name, entityID, extra)
}

func TestFullSyncQueuesEverythingOnBootstrap(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"c.xml", "a.xml", "b.xml"} {
		f.writeIncoming(t, name, "https://"+name, "")
	}

	report := f.diff(t, true)

	if want := []string{"a.xml", "b.xml", "c.xml"}; !reflect.DeepEqual(report.Bootstrap, want) {
		t.Fatalf("bootstrap = %v, want %v", report.Bootstrap, want)
	}
	if got := testsupport.MustSize(t, f.queues.Bootstrap); got != 3 {
		t.Fatalf("bootstrap queue size = %d, want 3", got)
	}
	if got := testsupport.MustSize(t, f.queues.Incremental); got != 0 {
		t.Fatalf("incremental queue size = %d, want 0", got)
	}
	for _, name := range report.Bootstrap {
		if !testsupport.Exists(t, filepath.Join(f.cfg.SeenDir(), name)) {
			t.Fatalf("expected seen copy of %s", name)
		}
	}

	msg, err := f.queues.Bootstrap.Dequeue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if msg.File != "a.xml" || msg.EntityID != "https://a.xml" || msg.Shasum != fingerprint.DigestIdentifier("https://a.xml") {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestNewFileGoesToIncrementalOnly(t *testing.T) {
	f := newFixture(t)
	f.writeIncoming(t, "new.xml", "https://new.example.org", "")

	report := f.diff(t, false)

	if !reflect.DeepEqual(report.New, []string{"new.xml"}) {
		t.Fatalf("new = %v", report.New)
	}
	if got := testsupport.MustSize(t, f.queues.Incremental); got != 1 {
		t.Fatalf("incremental queue size = %d, want 1", got)
	}
	if got := testsupport.MustSize(t, f.queues.Bootstrap); got != 0 {
		t.Fatalf("bootstrap queue must stay empty, got %d", got)
	}
}

func TestDiffIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.writeIncoming(t, "a.xml", "https://a.example.org", "")
	f.writeIncoming(t, "b.xml", "https://b.example.org", "")
	f.diff(t, false)

	seenPath := filepath.Join(f.cfg.SeenDir(), "a.xml")
	before, err := os.Stat(seenPath)
	if err != nil {
		t.Fatal(err)
	}

	report := f.diff(t, false)
	if report.Changed() {
		t.Fatalf("second diff changed state: %+v", report)
	}
	if !reflect.DeepEqual(report.Unchanged, []string{"a.xml", "b.xml"}) {
		t.Fatalf("unchanged = %v", report.Unchanged)
	}
	if got := testsupport.MustSize(t, f.queues.Incremental); got != 2 {
		t.Fatalf("expected no new messages, size = %d", got)
	}
	after, err := os.Stat(seenPath)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Fatal("unchanged seen copy was rewritten")
	}
}

func TestModifiedFileQueuedOnceAndSnapshotOverwritten(t *testing.T) {
	f := newFixture(t)
	path := f.writeIncoming(t, "a.xml", "https://a.example.org", "")
	f.diff(t, false)
	drain(t, f.queues.Incremental)

	f.writeIncoming(t, "a.xml", "https://a.example.org", "<!-- rotated key -->")
	report := f.diff(t, false)

	if !reflect.DeepEqual(report.Modified, []string{"a.xml"}) {
		t.Fatalf("modified = %v", report.Modified)
	}
	if got := testsupport.MustSize(t, f.queues.Incremental); got != 1 {
		t.Fatalf("expected exactly one message, got %d", got)
	}
	seen := testsupport.ReadFile(t, filepath.Join(f.cfg.SeenDir(), "a.xml"))
	if seen != testsupport.ReadFile(t, path) {
		t.Fatal("seen copy was not overwritten with the modified document")
	}
}

func TestRemovedFileDeletesSeenAndSigned(t *testing.T) {
	f := newFixture(t)
	const entityID = "https://gone.example.org"
	path := f.writeIncoming(t, "gone.xml", entityID, "")
	f.diff(t, false)
	drain(t, f.queues.Incremental)

	digest := fingerprint.DigestIdentifier(entityID)
	testsupport.WriteRaw(t, f.cfg.SignedDir(), mdq.SignedFileName(digest), "<signed/>")
	testsupport.WriteRaw(t, f.cfg.SignedDir(), mdq.SignedFileName("other"), "<signed/>")
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	report := f.diff(t, false)

	if !reflect.DeepEqual(report.Removed, []string{"gone.xml"}) {
		t.Fatalf("removed = %v", report.Removed)
	}
	if testsupport.Exists(t, filepath.Join(f.cfg.SeenDir(), "gone.xml")) {
		t.Fatal("seen copy should be deleted")
	}
	if testsupport.Exists(t, filepath.Join(f.cfg.SignedDir(), mdq.SignedFileName(digest))) {
		t.Fatal("signed document should be deleted")
	}
	if !testsupport.Exists(t, filepath.Join(f.cfg.SignedDir(), mdq.SignedFileName("other"))) {
		t.Fatal("unrelated signed document must survive")
	}
	total, err := f.queues.TotalSize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("removal must not queue anything, total = %d", total)
	}
}

func TestRemovedUnparseableSeenCopyStillDeleted(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteRaw(t, f.cfg.SeenDir(), "broken.xml", "<EntityDescriptor")

	report := f.diff(t, false)

	if !reflect.DeepEqual(report.Removed, []string{"broken.xml"}) {
		t.Fatalf("removed = %v", report.Removed)
	}
	if testsupport.Exists(t, filepath.Join(f.cfg.SeenDir(), "broken.xml")) {
		t.Fatal("seen copy should be deleted even when unparseable")
	}
}

func TestUnparseableIncomingIsSkipped(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteRaw(t, f.cfg.IncomingDir(), "bad.xml", "<EntityDescriptor><unclosed></EntityDescriptor>")
	testsupport.WriteRaw(t, f.cfg.IncomingDir(), "noid.xml", `<EntityDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata"/>`)

	report := f.diff(t, true)

	if !reflect.DeepEqual(report.Skipped, []string{"bad.xml", "noid.xml"}) {
		t.Fatalf("skipped = %v", report.Skipped)
	}
	if report.Queued() != 0 {
		t.Fatalf("nothing should be queued, got %d", report.Queued())
	}
	if testsupport.Exists(t, filepath.Join(f.cfg.SeenDir(), "bad.xml")) {
		t.Fatal("skipped document must not be snapshotted")
	}
}

func TestHiddenFilesAndDirectoriesIgnored(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteEntity(t, f.cfg.IncomingDir(), ".partial.xml", "https://hidden.example.org", "")
	testsupport.WriteEntity(t, filepath.Join(f.cfg.IncomingDir(), "nested"), "x.xml", "https://nested.example.org", "")

	report := f.diff(t, false)
	if report.Changed() || len(report.Skipped) != 0 {
		t.Fatalf("expected nothing to happen, got %+v", report)
	}
}

func TestDiffHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	f.writeIncoming(t, "a.xml", "https://a.example.org", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.differ.Diff(ctx, false); err == nil {
		t.Fatal("expected cancellation error")
	}
	if got := testsupport.MustSize(t, f.queues.Incremental); got != 0 {
		t.Fatalf("cancelled diff queued %d messages", got)
	}
}

func drain(t *testing.T, store *queue.Store) {
	t.Helper()
	ctx := context.Background()
	for {
		msg, err := store.Dequeue(ctx)
		if err != nil {
			return
		}
		if err := store.Ack(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}
}
