package queue

import (
	"errors"

	"github.com/rarshelf/rarshelf/internal/archive"
)

// IsRetryable reports whether err corresponds to a §4.4 failure mode that
// gets retried (missing volume, corrupt, timeout, I/O error) rather than
// quarantined on first occurrence. ArchiveEncrypted and any other error
// (including materialization failures) are not retryable — the item is
// quarantined immediately.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, archive.ErrMissingVolume),
		errors.Is(err, archive.ErrCorrupt),
		errors.Is(err, archive.ErrTimeout),
		errors.Is(err, archive.ErrIO):
		return true
	default:
		return false
	}
}
