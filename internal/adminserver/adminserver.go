// Package adminserver exposes the process's operational surface: liveness,
// readiness and Prometheus metrics, on a separate port from the virtual-HTTP
// range server so operators can probe the daemon without touching the media
// path.
package adminserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/metrics"
)

// Status summarizes the daemon's current operational state for /readyz.
type Status struct {
	Ready          bool
	QueueDepth     int
	WatchedSources int
}

// StatusProvider is implemented by whatever owns the daemon's lifecycle
// (typically cmd/rarshelfd's main wiring).
type StatusProvider interface {
	Status() Status
}

// Submitter lets an operator tool (rarshelfctl submit) enqueue an archive set
// outside the watcher's own stabilization protocol. Optional: a daemon that
// doesn't wire one answers /admin/submit with 501 Not Implemented.
type Submitter interface {
	Submit(path string) (int, error) // returns the number of archive sets enqueued
}

// Server is the admin HTTP server.
type Server struct {
	httpSrv   *http.Server
	provider  StatusProvider
	submitter Submitter
}

// New builds an admin server listening on addr (e.g. ":9090"). submitter may
// be nil if manual submission isn't supported.
func New(addr string, provider StatusProvider, submitter Submitter) *Server {
	s := &Server{provider: provider, submitter: submitter}

	r := mux.NewRouter()
	r.Handle("/healthz", instrument("healthz", http.HandlerFunc(s.liveness))).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/readyz", instrument("readyz", http.HandlerFunc(s.readiness))).Methods(http.MethodGet)
	r.Handle("/admin/submit", instrument("admin_submit", http.HandlerFunc(s.submit))).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet) // excluded from instrument: would scrape itself

	s.httpSrv = &http.Server{Addr: addr, Handler: r}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("adminserver: exited: %v", err)
		}
	}()
	logging.Infof("adminserver: listening on %s", s.httpSrv.Addr)
}

// Stop gracefully shuts the admin server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

func (s *Server) readiness(w http.ResponseWriter, _ *http.Request) {
	status := s.provider.Status()
	w.Header().Set("Content-Type", "application/json")
	if !status.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":          readyLabel(status.Ready),
		"queue_depth":     status.QueueDepth,
		"watched_sources": status.WatchedSources,
	})
}

type submitRequest struct {
	Path string `json:"path"`
}

type submitResponse struct {
	ArchiveSetsEnqueued int    `json:"archive_sets_enqueued"`
	Error               string `json:"error,omitempty"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.submitter == nil {
		w.WriteHeader(http.StatusNotImplemented)
		_ = json.NewEncoder(w).Encode(submitResponse{Error: "manual submission is not configured on this daemon"})
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(submitResponse{Error: "request body must be {\"path\": \"<dir>\"}"})
		return
	}

	n, err := s.submitter.Submit(req.Path)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(submitResponse{Error: err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(submitResponse{ArchiveSetsEnqueued: n})
}

// instrument wraps a route's handler with the request-count and latency
// metrics every other admin route shares; /metrics itself is deliberately
// left unwrapped.
func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &statusCapturingWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(wrapped, r)
		metrics.AdminRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		metrics.AdminRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

type statusCapturingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusCapturingWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func readyLabel(ready bool) string {
	if ready {
		return "ready"
	}
	return "not_ready"
}
