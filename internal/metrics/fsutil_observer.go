package metrics

import "github.com/rarshelf/rarshelf/internal/fsutil"

// fsutilObserver adapts the package-level filesystem metrics to the
// fsutil.Observer interface so fsutil never imports metrics directly.
type fsutilObserver struct{}

// NewFilesystemObserver returns an fsutil.Observer backed by the
// Filesystem* collectors declared in this package. Call fsutil.SetObserver
// with the result once at startup.
func NewFilesystemObserver() fsutil.Observer {
	return fsutilObserver{}
}

func (fsutilObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (fsutilObserver) ObserveRetryAttempt(retryOp, volume string) {
	FilesystemRetryAttempts.WithLabelValues(retryOp, volume).Inc()
}

func (fsutilObserver) ObserveRetrySuccess(retryOp, volume string) {
	FilesystemRetrySuccess.WithLabelValues(retryOp, volume).Inc()
}

func (fsutilObserver) ObserveRetryFailure(retryOp, volume string) {
	FilesystemRetryFailures.WithLabelValues(retryOp, volume).Inc()
}

func (fsutilObserver) ObserveRetryDuration(retryOp, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(retryOp, volume).Observe(durationSeconds)
}

func (fsutilObserver) ObserveStaleError(retryOp, volume string) {
	FilesystemStaleErrors.WithLabelValues(retryOp, volume).Inc()
}
