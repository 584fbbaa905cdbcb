package startup

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetBuildInfo(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	defer func() { Version, Commit, BuildTime = origVersion, origCommit, origBuildTime }()

	Version = "1.2.3"
	Commit = "abc123"
	BuildTime = "2026-01-01T00:00:00Z"

	info := GetBuildInfo()
	if info.Version != "1.2.3" || info.Commit != "abc123" || info.BuildTime != "2026-01-01T00:00:00Z" {
		t.Fatalf("unexpected build info: %+v", info)
	}
	if info.GoVersion == "" {
		t.Fatal("expected non-empty GoVersion")
	}
	if info.OS == "" || info.Arch == "" {
		t.Fatalf("expected OS/Arch to be populated, got %+v", info)
	}
}

func TestEnsureDirectoryCreatesMissingDir(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "nested", "dir")

	if err := EnsureDirectory(target, "test"); err != nil {
		t.Fatalf("EnsureDirectory: %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat created dir: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected created path to be a directory")
	}
}

func TestEnsureDirectoryAcceptsExistingDir(t *testing.T) {
	root := t.TempDir()
	if err := EnsureDirectory(root, "test"); err != nil {
		t.Fatalf("EnsureDirectory on existing dir: %v", err)
	}
}

func TestEnsureDirectoryRejectsFilePath(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "not-a-dir")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := EnsureDirectory(filePath, "test"); err == nil {
		t.Fatal("expected error when path is a file, got nil")
	}
}

func TestWriteAccessSucceedsOnWritableDir(t *testing.T) {
	root := t.TempDir()
	if err := TestWriteAccess(root); err != nil {
		t.Fatalf("TestWriteAccess: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".write-test")); !os.IsNotExist(err) {
		t.Fatal("expected probe file to be cleaned up")
	}
}

func TestWriteAccessFailsOnMissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	if err := TestWriteAccess(missing); err == nil {
		t.Fatal("expected error writing into a nonexistent directory")
	}
}
