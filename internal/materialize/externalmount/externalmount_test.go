package externalmount

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFakeHelper writes an executable shell script that behaves like a
// mount helper: it's invoked as `helper <archive_path> <mount_point>
// [options...]` and populates mount_point with one entry before idling,
// mimicking a real FUSE-style helper that keeps running until signaled.
func writeFakeHelper(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-mount-helper")
	script := "#!/bin/sh\n" +
		"mkdir -p \"$2\"\n" +
		"touch \"$2/entry.mkv\"\n" +
		"trap 'exit 0' INT TERM\n" +
		"while true; do sleep 1; done\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake helper: %v", err)
	}
	return path
}

func TestEnsureMountedWaitsForReadinessAndReusesMount(t *testing.T) {
	helper := writeFakeHelper(t)
	mountBase := t.TempDir()
	archivePath := filepath.Join(t.TempDir(), "set.part01.rar")
	if err := os.WriteFile(archivePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	strat := New(Config{
		Executable:      helper,
		MountBase:       mountBase,
		ReadinessPoll:   20 * time.Millisecond,
		ReadinessWindow: 5 * time.Second,
		UnmountTimeout:  2 * time.Second,
	})
	defer strat.ReleaseAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m1, err := strat.ensureMounted(ctx, archivePath)
	if err != nil {
		t.Fatalf("ensureMounted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(m1.point, "entry.mkv")); err != nil {
		t.Fatalf("mount point missing expected entry: %v", err)
	}

	m2, err := strat.ensureMounted(ctx, archivePath)
	if err != nil {
		t.Fatalf("ensureMounted (reuse): %v", err)
	}
	if m1 != m2 {
		t.Fatalf("second ensureMounted call should reuse the existing mount")
	}
}

func TestEnsureMountedTimesOutWhenHelperNeverPopulatesMount(t *testing.T) {
	dir := t.TempDir()
	helperPath := filepath.Join(dir, "stalls")
	script := "#!/bin/sh\ntrap 'exit 0' INT TERM\nwhile true; do sleep 1; done\n"
	if err := os.WriteFile(helperPath, []byte(script), 0o755); err != nil {
		t.Fatalf("write helper: %v", err)
	}

	archivePath := filepath.Join(t.TempDir(), "stall.part01.rar")
	strat := New(Config{
		Executable:      helperPath,
		MountBase:       t.TempDir(),
		ReadinessPoll:   10 * time.Millisecond,
		ReadinessWindow: 100 * time.Millisecond,
		UnmountTimeout:  2 * time.Second,
	})
	defer strat.ReleaseAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := strat.ensureMounted(ctx, archivePath)
	if err != ErrMountTimeout {
		t.Fatalf("err = %v, want ErrMountTimeout", err)
	}
}

func TestMountDirNameIsStableAndDistinct(t *testing.T) {
	a := mountDirName("/watch/Show.S01.part01.rar")
	b := mountDirName("/watch/Show.S01.part01.rar")
	c := mountDirName("/watch/Movie.part01.rar")
	if a != b {
		t.Fatalf("mountDirName not stable: %q != %q", a, b)
	}
	if a == c {
		t.Fatalf("mountDirName collided for distinct archive paths")
	}
}
