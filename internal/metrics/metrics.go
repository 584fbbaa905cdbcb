package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_watcher_events_total",
			Help: "Total number of filesystem events observed by the directory watcher",
		},
		[]string{"source", "op"},
	)

	WatcherStabilizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_watcher_stabilized_total",
			Help: "Total number of archive sets declared stable and submitted to the queue",
		},
		[]string{"source"},
	)

	WatcherUnstableSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_watcher_unstable_submitted_total",
			Help: "Archive sets submitted after exceeding max_file_age while still unstable",
		},
		[]string{"source"},
	)

	WatcherPendingSets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rarshelf_watcher_pending_sets",
			Help: "Archive sets currently being polled for stabilization",
		},
		[]string{"source"},
	)
)

// Queue metrics
var (
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rarshelf_queue_depth",
			Help: "Number of items currently pending in the processing queue",
		},
	)

	QueueItemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rarshelf_queue_item_duration_seconds",
			Help:    "Wall-clock time to process one queue item",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"outcome"}, // "done", "retry", "failed"
	)

	QueueItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_queue_items_total",
			Help: "Total number of queue items by terminal outcome",
		},
		[]string{"outcome"},
	)

	QueueRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rarshelf_queue_retries_total",
			Help: "Total number of queue item retry reschedules",
		},
	)

	QueueDuplicateSubmitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rarshelf_queue_duplicate_submits_total",
			Help: "Submissions dropped because the archive-set handle already had a non-terminal item",
		},
	)
)

// Archive reader metrics
var (
	ArchiveOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_archive_open_total",
			Help: "Archive open attempts by outcome",
		},
		[]string{"outcome"}, // "ok", "missing_volume", "corrupt", "encrypted", "timeout", "io_error"
	)

	ArchiveTestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rarshelf_archive_test_duration_seconds",
			Help:    "Duration of archive integrity tests",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
	)

	ArchiveEntriesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_archive_entries_skipped_total",
			Help: "Archive entries skipped by the media filter",
		},
		[]string{"reason"}, // "not_media", "too_small", "too_large", "sample"
	)
)

// Duplicate index metrics
var (
	DedupLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_dedup_lookups_total",
			Help: "Duplicate index lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	DedupInsertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rarshelf_dedup_inserts_total",
			Help: "Total number of new fingerprint rows inserted",
		},
	)
)

// HTTP range server metrics
var (
	HTTPRangeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_http_range_requests_total",
			Help: "Range server requests by method and response status",
		},
		[]string{"method", "status"},
	)

	HTTPRangeBytesServedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rarshelf_http_range_bytes_served_total",
			Help: "Total bytes streamed by the range server",
		},
	)

	HTTPRangeActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rarshelf_http_range_active_streams",
			Help: "Number of range-server streams currently being served",
		},
	)

	HTTPRangeTokensActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rarshelf_http_range_tokens_active",
			Help: "Number of tokens currently registered in the token registry",
		},
	)
)

// Notifier and disposer metrics
var (
	NotifierCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_notifier_calls_total",
			Help: "Library notifier calls by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "timeout"
	)

	DisposerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_disposer_operations_total",
			Help: "Disposer operations by mode and outcome",
		},
		[]string{"mode", "outcome"}, // mode: "delete", "relocate"; outcome: "ok", "error"
	)
)

// Memory backpressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rarshelf_memory_usage_ratio",
			Help: "Current heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rarshelf_memory_paused",
			Help: "1 when the queue worker is paused for memory backpressure, 0 otherwise",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rarshelf_memory_forced_gc_total",
			Help: "Total number of garbage collections forced by the memory monitor",
		},
	)
)

// Filesystem retry metrics (ported from the upstream NFS-resilience pattern).
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rarshelf_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_filesystem_retry_attempts_total",
			Help: "Filesystem retry attempts by operation and volume",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_filesystem_retry_failures_total",
			Help: "Filesystem operations that exhausted their retry budget",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rarshelf_filesystem_retry_duration_seconds",
			Help:    "Total duration of a (possibly retried) filesystem operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_filesystem_stale_errors_total",
			Help: "ESTALE errors observed during filesystem operations",
		},
		[]string{"operation", "volume"},
	)
)

// Admin HTTP surface metrics (/healthz, /readyz, /admin/submit; /metrics is excluded to
// avoid the endpoint scraping itself).
var (
	AdminRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rarshelf_admin_requests_total",
			Help: "Admin server requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	AdminRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rarshelf_admin_request_duration_seconds",
			Help:    "Admin server request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// AppInfo reports build metadata.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "rarshelf_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)

// SetAppInfo sets the application info metric.
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
