package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/watch"
)

func testEvent(stem string) watch.Event {
	return watch.Event{
		Handle: watch.ArchiveSetHandle{Dir: "/src", Stem: stem, Volumes: []string{"/src/" + stem + ".rar"}},
		Source: watch.SourceConfig{Path: "/src"},
		Reason: watch.ReasonStable,
	}
}

func TestQueueProcessesSubmittedItemToDone(t *testing.T) {
	processed := make(chan string, 1)
	q := New(Config{ShutdownTimeout: time.Second}, func(ctx context.Context, item *Item) error {
		processed <- item.Handle.Stem
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	q.Submit(testEvent("Movie"))

	select {
	case stem := <-processed:
		if stem != "Movie" {
			t.Fatalf("processed stem = %q, want Movie", stem)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for item to process")
	}
}

func TestQueueDropsDuplicateSubmission(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := New(Config{ShutdownTimeout: time.Second}, func(ctx context.Context, item *Item) error {
		started <- struct{}{}
		<-release
		return nil
	})
	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	q.Submit(testEvent("Movie"))
	<-started // first item now Running

	q.Submit(testEvent("Movie")) // should be dropped: same handle still non-terminal

	q.mu.Lock()
	n := len(q.byHandle)
	q.mu.Unlock()
	if n != 1 {
		t.Fatalf("byHandle size = %d, want 1 (duplicate dropped)", n)
	}
}

func TestQueueRetriesOnRetryableErrorThenSucceeds(t *testing.T) {
	attempts := 0
	done := make(chan struct{})
	q := New(Config{RetryInterval: 50 * time.Millisecond, ShutdownTimeout: time.Second}, func(ctx context.Context, item *Item) error {
		attempts++
		if attempts < 2 {
			return archive.ErrMissingVolume
		}
		close(done)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	q.Submit(testEvent("Movie"))

	select {
	case <-done:
		if attempts != 2 {
			t.Fatalf("attempts = %d, want 2", attempts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retried item to succeed")
	}
}

func TestQueueQuarantinesNonRetryableErrorImmediately(t *testing.T) {
	attempts := 0
	finished := make(chan error, 1)
	q := New(Config{RetryInterval: time.Hour, ShutdownTimeout: time.Second}, func(ctx context.Context, item *Item) error {
		attempts++
		return archive.ErrEncrypted
	})
	q.Start(context.Background())

	q.Submit(testEvent("Movie"))

	// Poll for the item leaving byHandle (terminal), bounded by a timeout.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		q.mu.Lock()
		n := len(q.byHandle)
		q.mu.Unlock()
		if n == 0 {
			finished <- nil
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	q.Stop()

	select {
	case <-finished:
	default:
		t.Fatal("item never reached a terminal state")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry for encrypted archives)", attempts)
	}
}

func TestOnQuarantineFiresOnceForImmediateFailure(t *testing.T) {
	var quarantined []string
	var mu sync.Mutex
	q := New(Config{
		ShutdownTimeout: time.Second,
		OnQuarantine: func(item *Item) {
			mu.Lock()
			quarantined = append(quarantined, item.Handle.Stem)
			mu.Unlock()
		},
	}, func(ctx context.Context, item *Item) error {
		return archive.ErrEncrypted
	})
	q.Start(context.Background())

	q.Submit(testEvent("Movie"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(quarantined)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(quarantined) != 1 || quarantined[0] != "Movie" {
		t.Fatalf("quarantined = %v, want exactly one entry for Movie", quarantined)
	}
}

func TestOnQuarantineFiresOnceAfterRetryExhaustion(t *testing.T) {
	var quarantined []string
	var mu sync.Mutex
	q := New(Config{
		RetryInterval:    10 * time.Millisecond,
		MaxRetryAttempts: 1,
		ShutdownTimeout:  time.Second,
		OnQuarantine: func(item *Item) {
			mu.Lock()
			quarantined = append(quarantined, item.Handle.Stem)
			mu.Unlock()
		},
	}, func(ctx context.Context, item *Item) error {
		return archive.ErrCorrupt
	})
	q.Start(context.Background())

	q.Submit(testEvent("Movie"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(quarantined)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(quarantined) != 1 || quarantined[0] != "Movie" {
		t.Fatalf("quarantined = %v, want exactly one entry for Movie", quarantined)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{archive.ErrMissingVolume, true},
		{archive.ErrCorrupt, true},
		{archive.ErrTimeout, true},
		{archive.ErrIO, true},
		{archive.ErrEncrypted, false},
		{errors.New("materialization failed"), false},
	}
	for _, c := range cases {
		if got := IsRetryable(c.err); got != c.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
