package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenameOrCopySameDevice(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "sub", "dst.txt")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := RenameOrCopy(src, dst); err != nil {
		t.Fatalf("RenameOrCopy: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists after rename: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("dst content = %q, want payload", data)
	}
}

func TestCopyThenDeleteLeavesNoTempFileOnSuccess(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := copyThenDelete(src, dst); err != nil {
		t.Fatalf("copyThenDelete: %v", err)
	}
	if _, err := os.Stat(dst + ".rarshelf-tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists: %v", err)
	}
}
