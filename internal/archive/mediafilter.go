package archive

import (
	"path/filepath"
	"strings"

	"github.com/rarshelf/rarshelf/internal/mediatypes"
)

// FilterConfig bounds which entries are candidates for materialization
// (§4.1 policy: recognized media suffix, size between MinSize and MaxSize).
type FilterConfig struct {
	MinSize int64
	MaxSize int64
}

// DefaultFilterConfig matches the documented defaults (1 MiB - 100 GiB).
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinSize: 1 << 20,
		MaxSize: 100 << 30,
	}
}

// SkipReason explains why an entry was excluded from materialization.
type SkipReason string

const (
	SkipNotMedia  SkipReason = "not_media"
	SkipTooSmall  SkipReason = "too_small"
	SkipTooLarge  SkipReason = "too_large"
	SkipIsSample  SkipReason = "sample"
)

// Skipped pairs an excluded entry with why it was excluded.
type Skipped struct {
	Entry  Entry
	Reason SkipReason
}

// FilterCandidates splits entries into those eligible for materialization and
// those skipped, in archive order.
func FilterCandidates(entries []Entry, cfg FilterConfig) (candidates []Entry, skipped []Skipped) {
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		lower := strings.ToLower(e.Name)
		if strings.Contains(lower, "sample") {
			skipped = append(skipped, Skipped{Entry: e, Reason: SkipIsSample})
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name))
		if !mediatypes.IsMediaFile(ext) {
			skipped = append(skipped, Skipped{Entry: e, Reason: SkipNotMedia})
			continue
		}
		if e.Size < cfg.MinSize {
			skipped = append(skipped, Skipped{Entry: e, Reason: SkipTooSmall})
			continue
		}
		if cfg.MaxSize > 0 && e.Size > cfg.MaxSize {
			skipped = append(skipped, Skipped{Entry: e, Reason: SkipTooLarge})
			continue
		}
		candidates = append(candidates, e)
	}
	return candidates, skipped
}
