package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rarshelf/rarshelf/internal/dispose"
	"github.com/rarshelf/rarshelf/internal/queue"
	"github.com/rarshelf/rarshelf/internal/watch"
)

func writeVolume(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write volume: %v", err)
	}
	return p
}

func TestDisposeRelocatesVolumesOnSuccess(t *testing.T) {
	watchRoot := t.TempDir()
	archiveRoot := t.TempDir()
	vol := writeVolume(t, watchRoot, "set.part01.rar")

	p := New(Config{Disposer: dispose.New(archiveRoot)})
	item := &queue.Item{
		Handle: watch.ArchiveSetHandle{Dir: watchRoot, Stem: "set", Volumes: []string{vol}},
		Source: watch.SourceConfig{Path: watchRoot},
	}

	if err := p.dispose(item); err != nil {
		t.Fatalf("dispose: %v", err)
	}

	want := filepath.Join(archiveRoot, "set.part01.rar")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected relocated volume at %s: %v", want, err)
	}
}

func TestDisposeWithNilDisposerIsNoop(t *testing.T) {
	p := New(Config{})
	item := &queue.Item{Handle: watch.ArchiveSetHandle{Volumes: []string{"/does/not/matter"}}}
	if err := p.dispose(item); err != nil {
		t.Fatalf("dispose with nil Disposer should be a no-op, got %v", err)
	}
}

func TestQuarantineRelocatesVolumesToFailedRoot(t *testing.T) {
	watchRoot := t.TempDir()
	failedRoot := t.TempDir()
	vol := writeVolume(t, watchRoot, "broken.part01.rar")

	p := New(Config{Quarantine: dispose.New(failedRoot)})
	item := &queue.Item{
		Handle:   watch.ArchiveSetHandle{Dir: watchRoot, Stem: "broken", Volumes: []string{vol}},
		Source:   watch.SourceConfig{Path: watchRoot},
		Attempts: 3,
	}

	p.Quarantine(item)

	want := filepath.Join(failedRoot, "broken.part01.rar")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected quarantined volume at %s: %v", want, err)
	}
}

func TestQuarantineWithNilDisposerIsNoop(t *testing.T) {
	p := New(Config{})
	item := &queue.Item{Handle: watch.ArchiveSetHandle{Volumes: []string{"/does/not/matter"}}}
	p.Quarantine(item) // must not panic
}

func TestProcessReturnsErrorForEmptyVolumeSet(t *testing.T) {
	p := New(Config{})
	item := &queue.Item{Handle: watch.ArchiveSetHandle{Dir: "x", Stem: "y"}}
	if err := p.Process(context.Background(), item); err == nil {
		t.Fatalf("expected error for empty volume set")
	}
}
