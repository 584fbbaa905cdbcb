package archive

import "testing"

func TestFilterCandidates(t *testing.T) {
	entries := []Entry{
		{Name: "Movie.mkv", Size: 500 << 20},
		{Name: "Movie.nfo", Size: 2 << 10},
		{Name: "sample-Movie.mkv", Size: 10 << 20},
		{Name: "tiny.mkv", Size: 512 << 10},
		{Name: "huge.mkv", Size: 200 << 30},
	}
	cfg := DefaultFilterConfig()

	candidates, skipped := FilterCandidates(entries, cfg)
	if len(candidates) != 1 || candidates[0].Name != "Movie.mkv" {
		t.Fatalf("candidates = %+v, want just Movie.mkv", candidates)
	}
	if len(skipped) != 4 {
		t.Fatalf("skipped = %+v, want 4 entries", skipped)
	}

	reasons := map[string]SkipReason{}
	for _, s := range skipped {
		reasons[s.Entry.Name] = s.Reason
	}
	if reasons["Movie.nfo"] != SkipNotMedia {
		t.Errorf("Movie.nfo reason = %q, want not_media", reasons["Movie.nfo"])
	}
	if reasons["sample-Movie.mkv"] != SkipIsSample {
		t.Errorf("sample-Movie.mkv reason = %q, want sample", reasons["sample-Movie.mkv"])
	}
	if reasons["tiny.mkv"] != SkipTooSmall {
		t.Errorf("tiny.mkv reason = %q, want too_small", reasons["tiny.mkv"])
	}
	if reasons["huge.mkv"] != SkipTooLarge {
		t.Errorf("huge.mkv reason = %q, want too_large", reasons["huge.mkv"])
	}
}

func TestFilterCandidatesSkipsDirectories(t *testing.T) {
	entries := []Entry{{Name: "subdir", IsDir: true}}
	candidates, skipped := FilterCandidates(entries, DefaultFilterConfig())
	if len(candidates) != 0 || len(skipped) != 0 {
		t.Fatalf("directories should be silently excluded, got candidates=%v skipped=%v", candidates, skipped)
	}
}
