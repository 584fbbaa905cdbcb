package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeVolume(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestTrackedSetStabilizesAfterTwoIdenticalPolls(t *testing.T) {
	dir := t.TempDir()
	vol := filepath.Join(dir, "Movie.rar")
	writeVolume(t, vol, "payload")

	ts := newTrackedSet(ArchiveSetHandle{Dir: dir, Stem: "Movie", Volumes: []string{vol}})

	if got := ts.poll(0, time.Hour); got != pollStillPending {
		t.Fatalf("first poll = %v, want pollStillPending (needs 2 consecutive)", got)
	}
	if got := ts.poll(0, time.Hour); got != pollStable {
		t.Fatalf("second identical poll = %v, want pollStable", got)
	}
}

func TestTrackedSetResetsOnChange(t *testing.T) {
	dir := t.TempDir()
	vol := filepath.Join(dir, "Movie.rar")
	writeVolume(t, vol, "payload")

	ts := newTrackedSet(ArchiveSetHandle{Dir: dir, Stem: "Movie", Volumes: []string{vol}})
	ts.poll(0, time.Hour)

	writeVolume(t, vol, "payload-grown")
	if got := ts.poll(0, time.Hour); got != pollStillPending {
		t.Fatalf("poll after change = %v, want pollStillPending", got)
	}
	if ts.consecutiveStable != 1 {
		t.Fatalf("consecutiveStable = %d, want reset to 1", ts.consecutiveStable)
	}
}

func TestTrackedSetStabilizationWindowDelaysDeclaration(t *testing.T) {
	dir := t.TempDir()
	vol := filepath.Join(dir, "Movie.rar")
	writeVolume(t, vol, "payload")

	ts := newTrackedSet(ArchiveSetHandle{Dir: dir, Stem: "Movie", Volumes: []string{vol}})
	ts.poll(time.Hour, time.Hour) // window not yet elapsed since mtime
	if got := ts.poll(time.Hour, time.Hour); got != pollStillPending {
		t.Fatalf("poll with long stabilization window = %v, want pollStillPending", got)
	}
}

func TestTrackedSetEmitsUnstableAfterMaxFileAge(t *testing.T) {
	dir := t.TempDir()
	vol := filepath.Join(dir, "Movie.rar")
	writeVolume(t, vol, "payload")

	ts := newTrackedSet(ArchiveSetHandle{Dir: dir, Stem: "Movie", Volumes: []string{vol}})
	ts.firstDirty = time.Now().Add(-2 * time.Hour)

	if got := ts.poll(time.Hour, time.Hour); got != pollUnstableTimedOut {
		t.Fatalf("poll past max_file_age = %v, want pollUnstableTimedOut", got)
	}
}

func TestTrackedSetSurvivesVanishedVolume(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "gone.rar")

	ts := newTrackedSet(ArchiveSetHandle{Dir: dir, Stem: "gone", Volumes: []string{missing}})
	if got := ts.poll(0, time.Hour); got != pollStillPending {
		t.Fatalf("poll of vanished volume = %v, want pollStillPending (survive transient error)", got)
	}
}
