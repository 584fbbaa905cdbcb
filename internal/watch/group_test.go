package watch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGroupVolumesGroupsByStem(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"Show.S01E01.part01.rar", "Show.S01E01.part02.rar",
		"Show.S01E02.rar",
		"readme.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	handles, err := groupVolumes(dir)
	if err != nil {
		t.Fatalf("groupVolumes: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("handles = %+v, want 2 sets", handles)
	}

	byStem := map[string]ArchiveSetHandle{}
	for _, h := range handles {
		byStem[h.Stem] = h
	}
	if len(byStem["Show.S01E01"].Volumes) != 2 {
		t.Errorf("Show.S01E01 volumes = %v, want 2", byStem["Show.S01E01"].Volumes)
	}
	if len(byStem["Show.S01E02"].Volumes) != 1 {
		t.Errorf("Show.S01E02 volumes = %v, want 1", byStem["Show.S01E02"].Volumes)
	}
}

func TestSubdirsListsOnlyDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "child"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := subdirs(dir)
	if err != nil {
		t.Fatalf("subdirs: %v", err)
	}
	if len(dirs) != 1 || filepath.Base(dirs[0]) != "child" {
		t.Fatalf("subdirs = %v, want just [child]", dirs)
	}
}
