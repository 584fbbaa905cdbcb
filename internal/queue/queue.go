// Package queue implements the Processing Queue (§4.4): a single-worker
// state machine that is the system's central synchronization point. Exactly
// one archive set is ever being processed at a time; everything else waits
// in Pending or Retry-Scheduled.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/metrics"
	"github.com/rarshelf/rarshelf/internal/watch"
)

// Config holds the retry policy and shutdown budget from §6.5's options
// section.
type Config struct {
	RetryInterval    time.Duration
	MaxRetryAttempts int
	MaxRetryAgeHours int
	ShutdownTimeout  time.Duration

	// OnQuarantine, if set, is called exactly once per item the instant it
	// reaches Failed — whether from an immediately non-retryable error or
	// from exhausting retries — so the caller can move the archive set into
	// failed/ without duplicating that decision (§7 "quarantine moves the
	// entire archive set into failed/").
	OnQuarantine func(item *Item)
}

// Queue is the single-worker processing queue.
type Queue struct {
	cfg     Config
	process ProcessFunc

	mu       sync.Mutex
	cond     *sync.Cond
	byHandle map[string]*Item // every non-terminal item, keyed by handle.Key()
	pending  []*Item          // FIFO of items ready to run
	retries  retryHeap        // items in Retry-Scheduled, ordered by NextRetry

	running   bool
	runningOf string // key of the item currently in Running, "" if idle

	stop     chan struct{}
	stopOnce sync.Once
	workerWG sync.WaitGroup
	timerWG  sync.WaitGroup
}

// New creates a Queue. process implements the worker algorithm of §4.4 steps
// 1-6; the queue itself only handles state transitions, dedup and retries.
func New(cfg Config, process ProcessFunc) *Queue {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 60 * time.Second
	}
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = 5
	}
	if cfg.MaxRetryAgeHours <= 0 {
		cfg.MaxRetryAgeHours = 24
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	q := &Queue{
		cfg:      cfg,
		process:  process,
		byHandle: make(map[string]*Item),
		stop:     make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Submit adds an archive set to the queue. Per §4.4's invariant, a handle
// already present in any non-terminal state causes the submission to be
// dropped and logged.
func (q *Queue) Submit(ev watch.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := ev.Handle.Key()
	if _, exists := q.byHandle[key]; exists {
		metrics.QueueDuplicateSubmitsTotal.Inc()
		logging.Warnf("queue: dropping duplicate submission for %s, already in flight", key)
		return
	}

	item := &Item{
		Handle:    ev.Handle,
		Source:    ev.Source,
		State:     StatePending,
		Submitted: time.Now(),
		index:     -1,
	}
	q.byHandle[key] = item
	q.pending = append(q.pending, item)
	metrics.QueueDepth.Set(float64(len(q.pending)))
	q.cond.Signal()
}

// Start runs the worker loop and the retry timekeeper in the background.
func (q *Queue) Start(ctx context.Context) {
	q.workerWG.Add(1)
	go q.runWorker(ctx)

	q.timerWG.Add(1)
	go q.runTimekeeper()
}

// Stop requests shutdown, draining the worker's current item (best effort,
// bounded by the configured shutdown timeout) before returning. Items still
// in Pending or Retry-Scheduled are simply dropped from memory; they are
// recovered by the watcher's startup enumeration on the next run.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stop)
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		q.workerWG.Wait()
		q.timerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(q.cfg.ShutdownTimeout):
		logging.Warnf("queue: shutdown timeout exceeded, current item may be abandoned mid-processing")
	}
}

func (q *Queue) runWorker(ctx context.Context) {
	defer q.workerWG.Done()

	for {
		item := q.nextPending()
		if item == nil {
			return // stop requested; pending items are left for the next start
		}
		q.runItem(ctx, item)
	}
}

// nextPending blocks until an item is available or stop is requested, in
// which case it returns nil.
func (q *Queue) nextPending() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case <-q.stop:
			return nil
		default:
		}
		if len(q.pending) > 0 {
			break
		}
		q.cond.Wait()
	}

	item := q.pending[0]
	q.pending = q.pending[1:]
	metrics.QueueDepth.Set(float64(len(q.pending)))
	item.State = StateRunning
	q.runningOf = item.Handle.Key()
	return item
}

func (q *Queue) runItem(ctx context.Context, item *Item) {
	start := time.Now()
	err := q.process(ctx, item)
	duration := time.Since(start).Seconds()

	q.mu.Lock()
	q.runningOf = ""
	q.mu.Unlock()

	switch {
	case err == nil:
		q.finish(item, StateDone, "done", duration)

	case !IsRetryable(err):
		item.LastError = err
		q.finish(item, StateFailed, "failed", duration)

	default:
		item.Attempts++
		item.LastError = err
		if q.retryExhausted(item) {
			q.finish(item, StateFailed, "failed", duration)
			return
		}
		q.scheduleRetry(item, duration)
	}
}

func (q *Queue) retryExhausted(item *Item) bool {
	if item.Attempts > q.cfg.MaxRetryAttempts {
		return true
	}
	return time.Since(item.Submitted) > time.Duration(q.cfg.MaxRetryAgeHours)*time.Hour
}

func (q *Queue) finish(item *Item, state State, outcome string, durationSeconds float64) {
	item.State = state
	metrics.QueueItemsTotal.WithLabelValues(outcome).Inc()
	metrics.QueueItemDuration.WithLabelValues(outcome).Observe(durationSeconds)

	q.mu.Lock()
	delete(q.byHandle, item.Handle.Key())
	q.mu.Unlock()

	if state == StateFailed && q.cfg.OnQuarantine != nil {
		q.cfg.OnQuarantine(item)
	}
}

func (q *Queue) scheduleRetry(item *Item, durationSeconds float64) {
	item.State = StateRetryScheduled
	item.NextRetry = time.Now().Add(q.cfg.RetryInterval)
	metrics.QueueItemDuration.WithLabelValues("retry").Observe(durationSeconds)
	metrics.QueueRetriesTotal.Inc()

	q.mu.Lock()
	heap.Push(&q.retries, item)
	q.mu.Unlock()
}

// runTimekeeper moves Retry-Scheduled items back to Pending once their delay
// elapses, sleeping exactly until the next one is due rather than polling.
// With no retry scheduled it sleeps one RetryInterval: a retry scheduled
// during that sleep is due no earlier than the sleep ends, since every retry
// uses the same fixed interval.
func (q *Queue) runTimekeeper() {
	defer q.timerWG.Done()

	for {
		q.mu.Lock()
		var wait time.Duration
		if len(q.retries) == 0 {
			wait = q.cfg.RetryInterval
		} else {
			wait = time.Until(q.retries[0].NextRetry)
			if wait < 0 {
				wait = 0
			}
		}
		q.mu.Unlock()

		select {
		case <-time.After(wait):
			q.promoteDueRetries()
		case <-q.stop:
			return
		}
	}
}

func (q *Queue) promoteDueRetries() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for len(q.retries) > 0 && !q.retries[0].NextRetry.After(now) {
		item := heap.Pop(&q.retries).(*Item)
		item.State = StatePending
		q.pending = append(q.pending, item)
	}
	metrics.QueueDepth.Set(float64(len(q.pending)))
	q.cond.Broadcast()
}

// Snapshot returns the state of every non-terminal item, for diagnostics.
func (q *Queue) Snapshot() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, 0, len(q.byHandle))
	for _, item := range q.byHandle {
		out = append(out, *item)
	}
	return out
}
