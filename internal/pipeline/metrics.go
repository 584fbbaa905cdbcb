package pipeline

import (
	"errors"
	"time"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/metrics"
)

func archiveOpenOutcome(err error) {
	outcome := "io_error"
	switch {
	case errors.Is(err, archive.ErrMissingVolume):
		outcome = "missing_volume"
	case errors.Is(err, archive.ErrEncrypted):
		outcome = "encrypted"
	case errors.Is(err, archive.ErrCorrupt):
		outcome = "corrupt"
	case errors.Is(err, archive.ErrTimeout):
		outcome = "timeout"
	}
	metrics.ArchiveOpenTotal.WithLabelValues(outcome).Inc()
}

func archiveTestOutcome(status archive.Status, err error, elapsed time.Duration) {
	metrics.ArchiveTestDuration.Observe(elapsed.Seconds())
	outcome := "ok"
	switch {
	case status == archive.StatusEncrypted:
		outcome = "encrypted"
	case errors.Is(err, archive.ErrTimeout):
		outcome = "timeout"
	case status == archive.StatusCorrupt:
		outcome = "corrupt"
	}
	metrics.ArchiveOpenTotal.WithLabelValues(outcome).Inc()
}

func archiveSkippedOutcome(reason archive.SkipReason) {
	metrics.ArchiveEntriesSkippedTotal.WithLabelValues(string(reason)).Inc()
}
