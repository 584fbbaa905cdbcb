package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherEnumeratesExistingSetsOnStart(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Movie.rar"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	events := make(chan Event, 4)
	w := New(SourceConfig{Path: dir, StabilizationWindow: time.Second, MaxFileAge: time.Hour}, events)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	select {
	case ev := <-events:
		if ev.Reason != ReasonExisting {
			t.Fatalf("Reason = %v, want ReasonExisting", ev.Reason)
		}
		if ev.Handle.Stem != "Movie" {
			t.Fatalf("Stem = %q, want Movie", ev.Handle.Stem)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for startup enumeration event")
	}
}

func TestWatcherAddsNewSubdirectoryToTree(t *testing.T) {
	dir := t.TempDir()
	events := make(chan Event, 4)
	w := New(SourceConfig{Path: dir, Recursive: true, StabilizationWindow: time.Second, MaxFileAge: time.Hour}, events)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "new-show")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Give fsnotify a moment to process the Create event and add the
	// subdirectory to the watch tree before the test ends.
	time.Sleep(200 * time.Millisecond)
}
