package cursor

import (
	"testing"
	"time"
)

func TestFileStore_LoadDefault(t *testing.T) {
	store := NewFileStore(t.TempDir())

	c, err := store.Load(FeedPrices)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !c.SinceTimestamp.Equal(DefaultSince) {
		t.Errorf("expected default since %v, got %v", DefaultSince, c.SinceTimestamp)
	}
	if c.LatestFetchTimestamp != nil {
		t.Errorf("expected nil latestFetchTimestamp, got %v", c.LatestFetchTimestamp)
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	store := NewFileStore(t.TempDir())

	latest := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	saved := Cursor{
		SinceTimestamp:       latest,
		LatestFetchTimestamp: &latest,
	}
	if err := store.Save(FeedMemecoins, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(FeedMemecoins)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !loaded.SinceTimestamp.Equal(latest) {
		t.Errorf("since mismatch: got %v, want %v", loaded.SinceTimestamp, latest)
	}
	if loaded.LatestFetchTimestamp == nil || !loaded.LatestFetchTimestamp.Equal(latest) {
		t.Errorf("latest mismatch: got %v, want %v", loaded.LatestFetchTimestamp, latest)
	}
}

func TestFileStore_FeedsAreIndependent(t *testing.T) {
	store := NewFileStore(t.TempDir())

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Save(FeedMemecoins, Cursor{SinceTimestamp: ts}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other, err := store.Load(FeedPrices)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !other.SinceTimestamp.Equal(DefaultSince) {
		t.Errorf("prices cursor should be untouched, got %v", other.SinceTimestamp)
	}
}

func TestCursor_AdvanceWithObservations(t *testing.T) {
	c := Cursor{SinceTimestamp: DefaultSince}

	maxObserved := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

	next := c.Advance(maxObserved, now)

	if !next.SinceTimestamp.Equal(maxObserved) {
		t.Errorf("since should equal max observed block time, got %v", next.SinceTimestamp)
	}
	if next.LatestFetchTimestamp == nil || !next.LatestFetchTimestamp.Equal(maxObserved) {
		t.Errorf("latest should equal max observed block time, got %v", next.LatestFetchTimestamp)
	}
}

func TestCursor_AdvanceEmptyWindow(t *testing.T) {
	// Zero results must advance to "now" so the empty window is never
	// rescanned forever.
	c := Cursor{SinceTimestamp: DefaultSince}
	now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

	next := c.Advance(time.Time{}, now)

	if !next.SinceTimestamp.Equal(now) {
		t.Errorf("since should advance to now on empty window, got %v", next.SinceTimestamp)
	}
	if next.LatestFetchTimestamp == nil || !next.LatestFetchTimestamp.Equal(now) {
		t.Errorf("latest should advance to now on empty window, got %v", next.LatestFetchTimestamp)
	}
}
