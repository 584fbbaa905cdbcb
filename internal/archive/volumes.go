package archive

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Legacy volumes: base.rar, base.r00, base.r01, ... base.r99 (then .s00 etc,
// not modeled — archives that large are vanishingly rare in practice).
// Modern volumes: base.partNN.rar with a fixed zero-padded width shared by
// every volume in the set.
var (
	modernPartPattern = regexp.MustCompile(`(?i)^(.*)\.part(\d+)\.rar$`)
	legacyRPattern    = regexp.MustCompile(`(?i)^(.*)\.r(\d+)$`)
)

// volumeKind identifies which naming convention an archive set uses.
type volumeKind int

const (
	kindUnknown volumeKind = iota
	kindSingle             // base.rar with no sibling volumes
	kindLegacy             // base.rar + base.r00, base.r01, ...
	kindModern             // base.partNN.rar
)

// classify returns the naming convention and ordinal (0-based part number)
// for path, or (kindUnknown, 0) if it doesn't look like a RAR volume at all.
func classify(path string) (volumeKind, string, int) {
	name := filepath.Base(path)

	if m := modernPartPattern.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[2])
		return kindModern, m[1], n - 1 // part01 is ordinal 0
	}
	if m := legacyRPattern.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[2])
		return kindLegacy, m[1], n + 1 // base.rar is ordinal 0, .r00 is ordinal 1
	}
	if strings.HasSuffix(strings.ToLower(name), ".rar") {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		return kindSingle, base, 0
	}
	return kindUnknown, "", 0
}

// FirstVolume picks the first volume of an archive set out of a list of
// sibling file paths sharing the set's stem, preferring a plain "<base>.rar"
// (which is also the first volume of a legacy .rNN set) over the part that
// numbers as 1 ("<base>.part01.rar"). Legacy ".rNN" files are never returned;
// a list with more than one path and neither of those yields ErrMissingVolume.
func FirstVolume(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", ErrMissingVolume
	}
	if len(paths) == 1 {
		return paths[0], nil
	}

	type candidate struct {
		path     string
		priority int
		ordinal  int
	}
	var best *candidate
	for _, p := range paths {
		kind, _, ordinal := classify(p)
		if ordinal != 0 {
			continue // only first-part candidates
		}
		var priority int
		switch kind {
		case kindSingle:
			priority = 0
		case kindModern:
			priority = 1
		case kindLegacy:
			priority = 2
		default:
			continue
		}
		c := candidate{path: p, priority: priority, ordinal: ordinal}
		if best == nil || c.priority < best.priority || (c.priority == best.priority && c.path < best.path) {
			best = &c
		}
	}
	if best == nil {
		return "", ErrMissingVolume
	}
	return best.path, nil
}

// SortVolumes returns a new slice holding the sibling paths of one archive
// set ordered by ordinal; paths itself is left unchanged.
func SortVolumes(paths []string) []string {
	type entry struct {
		path    string
		ordinal int
	}
	entries := make([]entry, len(paths))
	for i, p := range paths {
		_, _, ordinal := classify(p)
		entries[i] = entry{path: p, ordinal: ordinal}
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].ordinal < entries[j-1].ordinal; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.path
	}
	return out
}

// Stem returns the archive set's base name shared by every sibling volume,
// used to group files discovered by the directory watcher.
func Stem(path string) string {
	_, base, _ := classify(path)
	return base
}

// IsVolume reports whether name looks like any recognized RAR volume file.
func IsVolume(name string) bool {
	kind, _, _ := classify(name)
	return kind != kindUnknown
}
