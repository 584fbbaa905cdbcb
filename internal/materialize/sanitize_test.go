package materialize

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeStripsReleaseGroupAndRepositionsYear(t *testing.T) {
	got := Sanitize("The.Great.Movie.2019.1080p.BluRay.x264-GROUP.mkv")
	want := "The Great Movie (2019).mkv"
	if got != want {
		t.Fatalf("Sanitize = %q, want %q", got, want)
	}
}

func TestSanitizeWithoutYear(t *testing.T) {
	got := Sanitize("Some.Show.S01E02.720p.WEB-DL.x265-TEAM.mkv")
	want := "Some Show S01E02.mkv"
	if got != want {
		t.Fatalf("Sanitize = %q, want %q", got, want)
	}
}

func TestSanitizeStripsReservedCharacters(t *testing.T) {
	got := Sanitize(`Weird:Name?.mkv`)
	if got == `Weird:Name?.mkv` {
		t.Fatalf("Sanitize did not strip reserved characters: %q", got)
	}
	for _, c := range []rune{':', '?'} {
		for _, r := range got {
			if r == c {
				t.Fatalf("Sanitize left reserved char %q in %q", c, got)
			}
		}
	}
}

func TestUniqueNameAppendsLowestFreeSuffix(t *testing.T) {
	taken := map[string]bool{
		"Movie.mkv":     true,
		"Movie (2).mkv": true,
	}
	exists := func(candidate string) bool { return taken[candidate] }

	got := UniqueName(exists, "Movie.mkv")
	if got != "Movie (3).mkv" {
		t.Fatalf("UniqueName = %q, want Movie (3).mkv", got)
	}
}

func TestUniqueNameReturnsOriginalWhenFree(t *testing.T) {
	exists := func(candidate string) bool { return false }
	if got := UniqueName(exists, "Movie.mkv"); got != "Movie.mkv" {
		t.Fatalf("UniqueName = %q, want Movie.mkv unchanged", got)
	}
}

func TestFinalizeRenameMovesIntoTargetWithSanitizedName(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, "work", "tmpfile")
	if err := os.MkdirAll(filepath.Dir(tmp), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(tmp, []byte("data"), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}

	target := filepath.Join(dir, "library")
	final, err := FinalizeRename(tmp, target, "Movie.2020.1080p.BluRay.x264-GROUP.mkv")
	if err != nil {
		t.Fatalf("FinalizeRename: %v", err)
	}
	if filepath.Base(final) != "Movie (2020).mkv" {
		t.Fatalf("final name = %q, want Movie (2020).mkv", filepath.Base(final))
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatalf("tmp file should be gone after rename, stat err = %v", err)
	}
}
