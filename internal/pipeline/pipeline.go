// Package pipeline implements the Processing Queue's worker algorithm
// (§4.4 steps 1-6): open the archive set, test its integrity, filter
// candidate entries, materialize each through the configured strategy, then
// notify the library and dispose of the source volumes.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/config"
	"github.com/rarshelf/rarshelf/internal/dispose"
	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/materialize"
	"github.com/rarshelf/rarshelf/internal/notify"
	"github.com/rarshelf/rarshelf/internal/queue"
)

// defaultTestTimeout bounds a single archive's integrity check when the
// configuration document leaves it unset.
const defaultTestTimeout = 10 * time.Minute

// Config configures a Pipeline.
type Config struct {
	Strategies      map[config.ProcessingMode]materialize.Strategy
	Notifier        *notify.Notifier
	Disposer        *dispose.Disposer // relocates/deletes volumes on success, rooted at paths.archive
	Quarantine      *dispose.Disposer // always relocates volumes, rooted at paths.failed
	FilterConfig    archive.FilterConfig
	TestTimeout     time.Duration
	DeleteOnSuccess bool
}

// Pipeline wires the Archive Reader, Materialization Strategies, Library
// Notifier and Archive Disposer into a single queue.ProcessFunc.
type Pipeline struct {
	cfg Config
}

// New builds a Pipeline. Its Process method and Quarantine method are meant
// to be handed to queue.New and queue.Config.OnQuarantine respectively.
func New(cfg Config) *Pipeline {
	if cfg.TestTimeout <= 0 {
		cfg.TestTimeout = defaultTestTimeout
	}
	return &Pipeline{cfg: cfg}
}

// Process implements queue.ProcessFunc.
func (p *Pipeline) Process(ctx context.Context, item *queue.Item) error {
	if len(item.Handle.Volumes) == 0 {
		return fmt.Errorf("pipeline: archive set %s has no volumes", item.Handle.Key())
	}

	session, err := archive.Open(item.Handle.Volumes[0], "")
	if err != nil {
		archiveOpenOutcome(err)
		return fmt.Errorf("pipeline: open %s: %w", item.Handle.Key(), err)
	}

	start := time.Now()
	status, err := session.Test(p.cfg.TestTimeout)
	archiveTestOutcome(status, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("pipeline: integrity test %s: %w", item.Handle.Key(), err)
	}

	candidates, skipped := archive.FilterCandidates(session.Entries(), p.cfg.FilterConfig)
	for _, s := range skipped {
		archiveSkippedOutcome(s.Reason)
	}

	if len(candidates) == 0 {
		logging.Infof("pipeline: %s has no media candidates, disposing without notifying", item.Handle.Key())
		return p.dispose(item)
	}

	strategy, ok := p.cfg.Strategies[config.ProcessingMode(item.Source.Strategy)]
	if !ok {
		return fmt.Errorf("pipeline: no materialization strategy registered for %q", item.Source.Strategy)
	}

	for _, entry := range candidates {
		if err := strategy.Materialize(ctx, session, entry, item.Source.Target, item.Source.LibraryID); err != nil {
			return fmt.Errorf("pipeline: materialize %s from %s: %w", entry.Name, item.Handle.Key(), err)
		}
	}

	p.cfg.Notifier.Notify(ctx, item.Source.LibraryID)

	if err := p.dispose(item); err != nil {
		return err
	}

	logging.Infof("pipeline: processed %s (%d entries, %d skipped)", item.Handle.Key(), len(candidates), len(skipped))
	return nil
}

func (p *Pipeline) dispose(item *queue.Item) error {
	if p.cfg.Disposer == nil {
		return nil
	}
	if err := p.cfg.Disposer.Dispose(item.Source.Path, item.Handle.Volumes, p.cfg.DeleteOnSuccess); err != nil {
		return fmt.Errorf("pipeline: dispose %s: %w", item.Handle.Key(), err)
	}
	return nil
}

// Quarantine relocates a failed archive set's volumes under paths.failed. It
// is registered as queue.Config.OnQuarantine, so it runs exactly once per
// item the instant it reaches Failed, regardless of which of runItem's two
// StateFailed branches got there.
func (p *Pipeline) Quarantine(item *queue.Item) {
	if p.cfg.Quarantine == nil {
		return
	}
	if err := p.cfg.Quarantine.Dispose(item.Source.Path, item.Handle.Volumes, false); err != nil {
		logging.Errorf("pipeline: failed to quarantine %s: %v", item.Handle.Key(), err)
		return
	}
	logging.Warnf("pipeline: quarantined %s after %d attempt(s): %v", item.Handle.Key(), item.Attempts, item.LastError)
}
