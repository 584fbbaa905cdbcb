// Package notify implements the Library Notifier (§4.9): a best-effort call
// asking the media server to rescan a library section after materialization.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rarshelf/rarshelf/internal/config"
	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/metrics"
)

// Notifier issues rescan requests. It never fails the caller: every error is
// logged and counted, never returned as a reason to quarantine a queue item.
type Notifier struct {
	cfg    config.Plex
	client *retryablehttp.Client
}

// New creates a Notifier bound to the plex section of configuration. A zero
// Host disables notification entirely (Notify becomes a no-op).
func New(cfg config.Plex) *Notifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 1 * time.Second
	client.Logger = nil
	client.HTTPClient.Timeout = 10 * time.Second
	return &Notifier{cfg: cfg, client: client}
}

// Notify asks the configured media server to rescan libraryID. Errors and
// non-2xx responses are logged and metered, never returned fatally.
func (n *Notifier) Notify(ctx context.Context, libraryID string) {
	if n.cfg.Host == "" {
		return
	}

	url := fmt.Sprintf("%s/library/sections/%s/refresh?X-Plex-Token=%s", n.cfg.Host, libraryID, n.cfg.Token)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logging.Warnf("notify: build request for library %s: %v", libraryID, err)
		metrics.NotifierCallsTotal.WithLabelValues("error").Inc()
		return
	}

	resp, err := n.client.Do(req)
	if err != nil {
		outcome := "error"
		if ctx.Err() != nil {
			outcome = "timeout"
		}
		logging.Warnf("notify: rescan request for library %s failed: %v", libraryID, err)
		metrics.NotifierCallsTotal.WithLabelValues(outcome).Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warnf("notify: rescan request for library %s returned %s", libraryID, resp.Status)
		metrics.NotifierCallsTotal.WithLabelValues("error").Inc()
		return
	}

	metrics.NotifierCallsTotal.WithLabelValues("ok").Inc()
}
