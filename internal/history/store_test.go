package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"feedrelay/internal/history"
	"feedrelay/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndReadBack(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.BeginBatch(ctx, history.Batch{ID: "b1", Source: "pics", Filter: "top", TimeRange: "week", Requested: 3, StartedAt: start}); err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	records := []history.Record{
		{BatchID: "b1", PostIndex: 1, Title: "cat", MediaKind: "image", Status: "delivered", Bytes: 1024},
		{BatchID: "b1", PostIndex: 2, Title: "clip", MediaKind: "adaptive_video", Status: "link_only", Reason: "TooLarge"},
		{BatchID: "b1", PostIndex: 3, Title: "text", MediaKind: "none", Status: "no_media", Reason: "NoMedia"},
	}
	for _, r := range records {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.FinishBatch(ctx, "b1", start.Add(time.Minute)); err != nil {
		t.Fatalf("FinishBatch: %v", err)
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].PostIndex != 3 || recent[1].Reason != "TooLarge" {
		t.Fatalf("unexpected recent rows %#v", recent)
	}
	if recent[0].RecordedAt.IsZero() {
		t.Fatal("expected recorded_at to default to now")
	}

	batches, err := store.Batches(ctx, 5)
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(batches))
	}
	b := batches[0]
	if b.TimeRange != "week" || b.FinishedAt == nil || !b.StartedAt.Equal(start) {
		t.Fatalf("unexpected batch %#v", b)
	}
	if b.Counts["delivered"] != 1 || b.Counts["link_only"] != 1 || b.Counts["no_media"] != 1 {
		t.Fatalf("unexpected counts %v", b.Counts)
	}
}

func TestFinishUnknownBatch(t *testing.T) {
	store := openStore(t)
	if err := store.FinishBatch(context.Background(), "missing", time.Now()); err == nil {
		t.Fatal("expected unknown batch to fail")
	}
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := store.BeginBatch(ctx, history.Batch{ID: "b1", Source: "memes", Filter: "hot", Requested: 1}); err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	batches, err := reopened.Batches(ctx, 0)
	if err != nil || len(batches) != 1 {
		t.Fatalf("expected batch to persist, got %v %v", batches, err)
	}
}

func TestPruneCascadesOutcomes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	old := time.Now().AddDate(0, 0, -90)
	if err := store.BeginBatch(ctx, history.Batch{ID: "old", Source: "pics", Filter: "hot", Requested: 1, StartedAt: old}); err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	if err := store.Record(ctx, history.Record{BatchID: "old", PostIndex: 1, Title: "x", MediaKind: "image", Status: "delivered"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	removed, err := store.Prune(ctx, time.Now().AddDate(0, 0, -30))
	if err != nil || removed != 1 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	recent, err := store.Recent(ctx, 10)
	if err != nil || len(recent) != 0 {
		t.Fatalf("expected outcomes removed with batch, got %v %v", recent, err)
	}
}

func TestOpenAtConfiguredStatePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if store.Path() != cfg.HistoryPath() {
		t.Fatalf("expected store at %s, got %s", cfg.HistoryPath(), store.Path())
	}
	batches, err := store.Batches(context.Background(), 0)
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}
	if len(batches) != 0 {
		t.Fatalf("expected empty ledger, got %d batches", len(batches))
	}
}
