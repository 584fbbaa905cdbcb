package virtualhttp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/httprange"
)

func TestPointerNameForcesStrmExtension(t *testing.T) {
	dir := t.TempDir()
	got := PointerName(dir, "Movie.Title.2024.1080p.x264-GROUP.mkv")
	want := "Movie Title (2024).strm"
	if got != want {
		t.Fatalf("PointerName = %q, want %q", got, want)
	}
}

func TestPointerNameAvoidsCollision(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Show.strm"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := PointerName(dir, "Show.mkv")
	if got != "Show (2).strm" {
		t.Fatalf("PointerName = %q, want %q", got, "Show (2).strm")
	}
}

func TestMaterializeWritesSingleLinePointerFile(t *testing.T) {
	dir := t.TempDir()
	server := httprange.NewServer(httprange.Config{PortRangeLo: 19300, PortRangeHi: 19399})
	if err := server.Start(); err != nil {
		t.Fatalf("server.Start: %v", err)
	}
	defer server.Stop(context.Background())

	strat := New(server)
	entry := archive.Entry{Name: "Movie.Title.2024.1080p.x264-GROUP.mkv", Size: 524288000}

	if err := strat.Materialize(context.Background(), nil, entry, dir, "lib-1"); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Movie Title (2024).strm"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if strings.Count(content, "\n") != 1 || !strings.HasSuffix(content, "\n") {
		t.Fatalf("pointer file should be a single line with trailing newline, got %q", content)
	}
	if !strings.HasPrefix(strings.TrimSpace(content), "http://") {
		t.Fatalf("pointer file content = %q, want an http:// URL", content)
	}
}
