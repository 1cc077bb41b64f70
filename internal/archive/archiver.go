// Package archive writes raw feed responses to disk for audit and
// debugging. The archive is a side-channel: it is not a correctness
// dependency of the cursor or the store.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Archiver dumps raw API responses under a per-feed directory as
// <feed>-<epoch-ms>.json.
type Archiver struct {
	dir        string
	bestEffort bool
	logger     *log.Logger
	now        func() time.Time
}

// Option configures Archiver.
type Option func(*Archiver)

// WithBestEffort makes write failures log-only instead of returned.
func WithBestEffort() Option {
	return func(a *Archiver) {
		a.bestEffort = true
	}
}

// WithLogger sets the archiver logger.
func WithLogger(logger *log.Logger) Option {
	return func(a *Archiver) {
		a.logger = logger
	}
}

// WithClock overrides the timestamp source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		a.now = now
	}
}

// New creates an Archiver rooted at dir.
func New(dir string, opts ...Option) *Archiver {
	a := &Archiver{
		dir:    dir,
		logger: log.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Write stores the raw body pretty-printed. Returns the file path.
// In best-effort mode a failed write is logged and reported as success
// with an empty path.
func (a *Archiver) Write(feed string, raw []byte) (string, error) {
	path, err := a.write(feed, raw)
	if err != nil {
		if a.bestEffort {
			a.logger.Printf("archive write failed for feed %s: %v", feed, err)
			return "", nil
		}
		return "", err
	}
	return path, nil
}

func (a *Archiver) write(feed string, raw []byte) (string, error) {
	feedDir := filepath.Join(a.dir, feed)
	if err := os.MkdirAll(feedDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		// Not JSON; archive verbatim rather than lose it.
		pretty.Reset()
		pretty.Write(raw)
	}

	name := fmt.Sprintf("%s-%d.json", feed, a.now().UnixMilli())
	path := filepath.Join(feedDir, name)
	if err := os.WriteFile(path, pretty.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return path, nil
}
