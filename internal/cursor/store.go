// Package cursor persists per-feed incremental-fetch progress.
//
// Each feed keeps a high-water-mark pair on disk. The value is loaded
// and saved explicitly by the orchestrator around each fetch; nothing
// in this package mutates state as a side effect of fetching.
package cursor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Feed names used by the ingestion workflow.
const (
	FeedMemecoins = "memecoins"
	FeedPrices    = "prices"
)

// DefaultSince is the lower bound used on a feed's first ever run.
var DefaultSince = time.Unix(0, 0).UTC()

// Cursor is the per-feed high-water mark.
type Cursor struct {
	SinceTimestamp       time.Time  `json:"sinceTimestamp"`
	LatestFetchTimestamp *time.Time `json:"latestFetchTimestamp"`
}

// Advance returns the cursor for the next run. With observations, the
// mark moves to the max observed block time; with none it moves to now,
// so an empty window is never rescanned forever.
func (c Cursor) Advance(maxObserved time.Time, now time.Time) Cursor {
	latest := maxObserved
	if latest.IsZero() {
		latest = now
	}
	return Cursor{
		SinceTimestamp:       latest,
		LatestFetchTimestamp: &latest,
	}
}

// Store persists feed cursors.
type Store interface {
	// Load returns the feed's cursor, or the default on first run.
	Load(feed string) (Cursor, error)

	// Save persists the feed's cursor.
	Save(feed string, c Cursor) error
}

// FileStore keeps one JSON file per feed under a results directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

var _ Store = (*FileStore)(nil)

// Load returns the feed's cursor. A missing file yields the default
// cursor rather than an error.
func (s *FileStore) Load(feed string) (Cursor, error) {
	data, err := os.ReadFile(s.path(feed))
	if err != nil {
		if os.IsNotExist(err) {
			return Cursor{SinceTimestamp: DefaultSince}, nil
		}
		return Cursor{}, fmt.Errorf("read cursor %s: %w", feed, err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("parse cursor %s: %w", feed, err)
	}
	if c.SinceTimestamp.IsZero() {
		c.SinceTimestamp = DefaultSince
	}
	return c, nil
}

// Save persists the feed's cursor, creating the directory if absent.
func (s *FileStore) Save(feed string, c Cursor) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cursor dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cursor %s: %w", feed, err)
	}

	if err := os.WriteFile(s.path(feed), data, 0o644); err != nil {
		return fmt.Errorf("write cursor %s: %w", feed, err)
	}
	return nil
}

func (s *FileStore) path(feed string) string {
	return filepath.Join(s.dir, feed+"-cursor.json")
}
