// Package materialize holds the contract shared by every Materialization
// Strategy (§4.5): name sanitization, collision handling and the atomic
// same-volume rename that makes the final file appear all at once.
package materialize

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	releaseTokenPattern = regexp.MustCompile(`(?i)\b(720p|1080p|2160p|4k|bluray|web-dl|webrip|x264|x265|h\.264|h\.265|hevc|xvid|remux|proper|repack|rerip)\b`)
	yearPattern         = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	reservedCharPattern = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// Sanitize turns an archive entry's base name into the visible, playable
// name it should carry inside a target directory, per §4.5's rules applied
// in order: strip release-group suffix, collapse dot separators, extract and
// reposition the year, remove scene-release tokens, strip reserved
// characters, normalize whitespace.
func Sanitize(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	if idx := strings.LastIndex(base, "-"); idx >= 0 {
		base = base[:idx]
	}

	base = strings.ReplaceAll(base, ".", " ")

	year := ""
	if m := yearPattern.FindString(base); m != "" {
		year = m
		base = yearPattern.ReplaceAllString(base, " ")
	}

	base = releaseTokenPattern.ReplaceAllString(base, " ")
	base = reservedCharPattern.ReplaceAllString(base, "")
	base = whitespacePattern.ReplaceAllString(base, " ")
	base = strings.Trim(base, " -._")

	if year != "" {
		return base + " (" + year + ")" + ext
	}
	return base + ext
}

// UniqueName returns name if it doesn't already exist in dir, otherwise the
// lowest-numbered " (n).ext" variant (n >= 2) that is free, per §4.5's
// collision policy ("never overwrite").
func UniqueName(exists func(candidate string) bool, name string) string {
	if !exists(name) {
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for n := 2; ; n++ {
		candidate := base + " (" + strconv.Itoa(n) + ")" + ext
		if !exists(candidate) {
			return candidate
		}
	}
}
