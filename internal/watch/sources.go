package watch

// Set manages one Watcher per configured source and fans their events into a
// single channel for the processing queue.
type Set struct {
	watchers []*Watcher
	events   chan Event
}

// NewSet builds a Watcher for every source in cfgs.
func NewSet(cfgs []SourceConfig) *Set {
	events := make(chan Event, 64)
	s := &Set{events: events}
	for _, cfg := range cfgs {
		s.watchers = append(s.watchers, New(cfg, events))
	}
	return s
}

// Events returns the channel every source's events are published to.
func (s *Set) Events() <-chan Event {
	return s.events
}

// Start starts every source's watcher, stopping any already-started watcher
// and returning the first error if one fails.
func (s *Set) Start() error {
	for i, w := range s.watchers {
		if err := w.Start(); err != nil {
			for _, started := range s.watchers[:i] {
				started.Stop()
			}
			return err
		}
	}
	return nil
}

// Stop stops every source's watcher and closes the shared events channel.
func (s *Set) Stop() {
	for _, w := range s.watchers {
		w.Stop()
	}
	close(s.events)
}
