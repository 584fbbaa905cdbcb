package watch

import (
	"time"

	"github.com/rarshelf/rarshelf/internal/fsutil"
	"github.com/rarshelf/rarshelf/internal/logging"
)

// pollInterval is the fixed cadence at which pending archive sets are
// re-stat'd (§4.3 step 2: "fixed interval (default 10 s)"). It is not
// operator-configurable; only the stabilization window and max_file_age are.
const pollInterval = 10 * time.Second

type volState struct {
	size  int64
	mtime time.Time
}

// trackedSet is one archive set currently being polled for stabilization.
type trackedSet struct {
	handle            ArchiveSetHandle
	lastPoll          map[string]volState
	consecutiveStable int
	firstDirty        time.Time
}

func newTrackedSet(handle ArchiveSetHandle) *trackedSet {
	return &trackedSet{handle: handle, firstDirty: time.Now()}
}

// pollResult is what a single stabilization poll decided for a tracked set.
type pollResult int

const (
	pollStillPending pollResult = iota
	pollStable
	pollUnstableTimedOut
)

// poll re-stats every known volume of the set and advances its stabilization
// state per §4.3 steps 2-4. A vanished volume mid-probe is treated as a
// transient error: the poll round is discarded without losing previously
// accumulated stability, per "watchers must survive transient errors".
func (t *trackedSet) poll(window, maxAge time.Duration) pollResult {
	current := make(map[string]volState, len(t.handle.Volumes))
	var newest time.Time

	for _, path := range t.handle.Volumes {
		info, err := fsutil.StatWithRetry(path, fsutil.DefaultRetryConfig())
		if err != nil {
			logging.Warnf("watch: volume vanished mid-probe, skipping this poll round: %s: %v", path, err)
			return pollStillPending
		}
		current[path] = volState{size: info.Size(), mtime: info.ModTime()}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}

	if identicalPoll(t.lastPoll, current) {
		t.consecutiveStable++
	} else {
		t.consecutiveStable = 1
	}
	t.lastPoll = current

	if t.consecutiveStable >= 2 && time.Since(newest) >= window {
		return pollStable
	}
	if time.Since(t.firstDirty) > maxAge {
		return pollUnstableTimedOut
	}
	return pollStillPending
}

func identicalPoll(a, b map[string]volState) bool {
	if a == nil || len(a) != len(b) {
		return false
	}
	for path, av := range a {
		bv, ok := b[path]
		if !ok || av != bv {
			return false
		}
	}
	return true
}
