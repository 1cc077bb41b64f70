package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestArchiver_WritesTimestampedFile(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a := New(dir, WithClock(func() time.Time { return ts }))

	path, err := a.Write("prices", []byte(`{"data":{"Solana":{"DEXTrades":[]}}}`))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := filepath.Join(dir, "prices", fmt.Sprintf("prices-%d.json", ts.UnixMilli()))
	if path != want {
		t.Errorf("path mismatch: got %s, want %s", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	// Pretty-printed and semantically identical to the input.
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("archived file is not valid JSON: %v", err)
	}
	if len(data) <= len(`{"data":{"Solana":{"DEXTrades":[]}}}`) {
		t.Errorf("expected pretty-printed output to be longer than input")
	}
}

func TestArchiver_NonJSONWrittenVerbatim(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)

	path, err := a.Write("memecoins", []byte("not json"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "not json" {
		t.Errorf("expected verbatim body, got %q", data)
	}
}

func TestArchiver_BestEffortSwallowsFailure(t *testing.T) {
	// Point the archiver at a path that cannot be a directory.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	logger := log.New(io.Discard, "", 0)
	a := New(blocker, WithBestEffort(), WithLogger(logger))

	path, err := a.Write("prices", []byte(`{}`))
	if err != nil {
		t.Fatalf("best-effort write should not fail the run: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path on swallowed failure, got %s", path)
	}
}

func TestArchiver_StrictModePropagatesFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	a := New(blocker)
	if _, err := a.Write("prices", []byte(`{}`)); err == nil {
		t.Fatal("expected error in strict mode")
	}
}
