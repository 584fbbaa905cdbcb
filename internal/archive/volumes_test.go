package archive

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		wantKind   volumeKind
		wantBase   string
		wantOrdinal int
	}{
		{"Movie.rar", kindSingle, "Movie", 0},
		{"Movie.part01.rar", kindModern, "Movie", 0},
		{"Movie.part02.rar", kindModern, "Movie", 1},
		{"Movie.part10.rar", kindModern, "Movie", 9},
		{"Movie.r00", kindLegacy, "Movie", 1},
		{"Movie.r05", kindLegacy, "Movie", 6},
		{"readme.txt", kindUnknown, "", 0},
	}
	for _, c := range cases {
		kind, base, ordinal := classify(c.name)
		if kind != c.wantKind || base != c.wantBase || ordinal != c.wantOrdinal {
			t.Errorf("classify(%q) = (%v, %q, %d), want (%v, %q, %d)",
				c.name, kind, base, ordinal, c.wantKind, c.wantBase, c.wantOrdinal)
		}
	}
}

func TestFirstVolumePrefersPlainRarOverParts(t *testing.T) {
	got, err := FirstVolume([]string{"Movie.part02.rar", "Movie.rar", "Movie.part01.rar"})
	if err != nil {
		t.Fatalf("FirstVolume: %v", err)
	}
	if got != "Movie.rar" {
		t.Errorf("FirstVolume = %q, want Movie.rar", got)
	}
}

func TestFirstVolumePicksLowestPart(t *testing.T) {
	got, err := FirstVolume([]string{"X.part03.rar", "X.part01.rar", "X.part02.rar"})
	if err != nil {
		t.Fatalf("FirstVolume: %v", err)
	}
	if got != "X.part01.rar" {
		t.Errorf("FirstVolume = %q, want X.part01.rar", got)
	}
}

func TestFirstVolumeLegacy(t *testing.T) {
	got, err := FirstVolume([]string{"X.r01", "X.rar", "X.r00"})
	if err != nil {
		t.Fatalf("FirstVolume: %v", err)
	}
	if got != "X.rar" {
		t.Errorf("FirstVolume = %q, want X.rar", got)
	}
}

func TestSortVolumes(t *testing.T) {
	got := SortVolumes([]string{"X.part03.rar", "X.part01.rar", "X.part02.rar"})
	want := []string{"X.part01.rar", "X.part02.rar", "X.part03.rar"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortVolumes = %v, want %v", got, want)
		}
	}
}
