package history

import (
	"context"
	"path/filepath"
	"testing"

	"scrobble/internal/identify"
	"scrobble/internal/pagemeta"
	"scrobble/internal/services/trakt"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	conf := 92
	season, episode := 5, 14
	entry := Entry{
		Action:     ActionScrobbleStarted,
		Title:      "Breaking Bad",
		MediaType:  "show",
		Confidence: conf,
		Page:       pagemeta.Context{URL: "https://example.com/watch", Title: "Watch Breaking Bad"},
		Identification: &identify.Identification{
			Title: "Breaking Bad", Type: identify.TypeShow,
			Season: &season, Episode: &episode, Confidence: conf,
		},
		MediaItem: &trakt.MediaItem{
			Show:    &trakt.Media{Title: "Breaking Bad", IDs: trakt.IDs{Trakt: 1388}},
			Episode: &trakt.Episode{Season: 5, Number: 14},
		},
	}
	if err := store.Append(ctx, entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, Entry{Action: ActionSkippedLowScore, Title: "Something", Confidence: 40}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Action != ActionSkippedLowScore {
		t.Errorf("unexpected order: %+v", entries)
	}

	got := entries[1]
	if got.Title != "Breaking Bad" || got.MediaType != "show" || got.Confidence != 92 {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not backfilled")
	}
	if got.Page.URL != "https://example.com/watch" {
		t.Errorf("page context lost: %+v", got.Page)
	}
	if got.Identification == nil || got.Identification.Season == nil || *got.Identification.Season != 5 {
		t.Errorf("identification lost: %+v", got.Identification)
	}
	if got.MediaItem == nil || got.MediaItem.Show.IDs.Trakt != 1388 {
		t.Errorf("media item lost: %+v", got.MediaItem)
	}
}

func TestListWithoutOptionalBlobs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, Entry{Action: ActionNotFoundOnCatalog, Title: "Obscure"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries[0].Identification != nil || entries[0].MediaItem != nil {
		t.Errorf("absent blobs should decode to nil: %+v", entries[0])
	}
}

func TestListLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, Entry{Action: ActionScrobbleStarted}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	entries, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := store.Append(ctx, Entry{Action: ActionScrobbleStarted}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := store.Prune(ctx, 4); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	entries, err := store.List(ctx, 100)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("expected 4 entries after prune, got %d", len(entries))
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Append(context.Background(), Entry{Action: ActionScrobbleStarted, Title: "Dune"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.List(context.Background(), 10)
	if err != nil || len(entries) != 1 || entries[0].Title != "Dune" {
		t.Fatalf("data lost across reopen: %+v, %v", entries, err)
	}
}
