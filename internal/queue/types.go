package queue

import (
	"context"
	"time"

	"github.com/rarshelf/rarshelf/internal/watch"
)

// State is a queue item's position in the state machine of §4.4:
//
//	Submitted -> Pending -> Running -> Done
//	                ^          |
//	                |          +-> Retry-Scheduled -> (after delay) Pending
//	                |          +-> Failed (quarantined)
//	         (delayed re-insert)
type State string

const (
	StateSubmitted      State = "submitted"
	StatePending        State = "pending"
	StateRunning        State = "running"
	StateDone           State = "done"
	StateRetryScheduled State = "retry_scheduled"
	StateFailed         State = "failed"
)

// Item is one archive set tracked by the queue.
type Item struct {
	Handle    watch.ArchiveSetHandle
	Source    watch.SourceConfig
	State     State
	Attempts  int
	Submitted time.Time
	NextRetry time.Time
	LastError error

	index int // heap position, maintained by container/heap; -1 when not on the heap
}

// ProcessFunc runs the worker algorithm of §4.4 steps 1-6 for one item. Its
// error is classified by the queue via IsRetryable to decide between
// Retry-Scheduled and Failed; a nil error means Done.
type ProcessFunc func(ctx context.Context, item *Item) error
