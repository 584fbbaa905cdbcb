// Package fsutil provides NFS-resilient filesystem primitives shared by the
// directory watcher, archive reader and disposer: retrying stat/open against
// stale file handles, volume-label resolution for metrics, and an atomic
// same-volume-or-fallback rename helper.
package fsutil

// Observer records filesystem operation metrics. Implementations are provided
// by the metrics package to break the import cycle between fsutil and metrics.
type Observer interface {
	ObserveOperation(volume, operation string, durationSeconds float64, err error)
	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)
}

var defaultObserver Observer

// SetObserver sets the package-level metrics observer. Call once at startup.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
