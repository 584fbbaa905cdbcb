package archive

import "errors"

// Sentinel errors matching the Archive Reader's failure modes one-to-one, so
// callers drive retry-vs-quarantine decisions with errors.Is instead of
// string matching.
var (
	ErrMissingVolume = errors.New("archive: referenced volume is missing")
	ErrCorrupt       = errors.New("archive: integrity check failed")
	ErrEncrypted     = errors.New("archive: password required")
	ErrTimeout       = errors.New("archive: operation exceeded its timeout")
	ErrIO            = errors.New("archive: underlying I/O error")
)
