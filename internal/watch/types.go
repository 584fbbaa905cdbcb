package watch

import "time"

// SourceConfig is one (source, target, library-id, strategy) tuple the
// watcher observes, flattened from the configuration document's paths and
// directory_pairs sections.
type SourceConfig struct {
	Path                 string
	Target               string
	LibraryID            string
	Strategy             string
	Recursive            bool
	StabilizationWindow  time.Duration
	MaxFileAge           time.Duration
}

// ArchiveSetHandle identifies one archive set: a directory plus the stem
// shared by its sibling volume files.
type ArchiveSetHandle struct {
	Dir     string
	Stem    string
	Volumes []string // absolute paths, ordinal order
}

// Key uniquely identifies the set within its source, used to dedupe queue
// submissions and to key the watcher's own pending-stabilization table.
func (h ArchiveSetHandle) Key() string {
	return h.Dir + "/" + h.Stem
}

// SubmitReason records why an archive set event was emitted.
type SubmitReason string

const (
	ReasonExisting SubmitReason = "existing" // found during startup enumeration
	ReasonStable   SubmitReason = "stable"   // stabilization protocol declared it stable
	ReasonUnstable SubmitReason = "unstable" // max_file_age exceeded while still changing
)

// Event is emitted to the processing queue once an archive set is ready to
// be considered for processing (§4.3: "emits (archive_set_handle,
// source_tuple) events").
type Event struct {
	Handle ArchiveSetHandle
	Source SourceConfig
	Reason SubmitReason
}
