// Package httprange implements the Virtual HTTP strategy's core (§4.7): an
// in-process HTTP server that serves archive entries directly to a media
// server over Range requests, with per-request reader instances and a
// bounded pointer-URL token registry.
package httprange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/mediatypes"
	"github.com/rarshelf/rarshelf/internal/metrics"
)

// Config configures the range server, mirroring §6.5's virtual_http section.
type Config struct {
	PortRangeLo          int
	PortRangeHi          int
	Bind                 string // "loopback" | "any"
	MaxConcurrentStreams int
	StreamChunkSize      int
}

// ErrNoPortAvailable is returned by Start when no port in the configured
// range could be bound, per §4.7's PortUnavailable failure mode.
var ErrNoPortAvailable = errors.New("httprange: no free port available in configured range")

// Server is the in-process HTTP server backing Strategy B.
type Server struct {
	cfg  Config
	reg  *registry
	sem  *semaphore.Weighted
	srv  *http.Server
	lis  net.Listener
	port int
}

// NewServer creates a Server. It does not listen until Start is called.
func NewServer(cfg Config) *Server {
	if cfg.MaxConcurrentStreams <= 0 {
		cfg.MaxConcurrentStreams = 10
	}
	if cfg.StreamChunkSize <= 0 {
		cfg.StreamChunkSize = 8192
	}
	s := &Server{
		cfg: cfg,
		reg: newRegistry(),
		sem: semaphore.NewWeighted(int64(cfg.MaxConcurrentStreams)),
	}
	s.srv = &http.Server{Handler: http.HandlerFunc(s.serveHTTP)}
	return s
}

// Start binds the first free port in the configured range and begins
// serving in the background. The chosen port is available via Port() once
// Start returns without error.
func (s *Server) Start() error {
	host := "127.0.0.1"
	if s.cfg.Bind == "any" {
		host = "0.0.0.0"
	}

	for port := s.cfg.PortRangeLo; port <= s.cfg.PortRangeHi; port++ {
		lis, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		s.lis = lis
		s.port = port
		break
	}
	if s.lis == nil {
		return ErrNoPortAvailable
	}

	logging.Infof("httprange: listening on %s", s.lis.Addr())
	go func() {
		if err := s.srv.Serve(s.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf("httprange: server exited: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Port returns the port chosen by Start.
func (s *Server) Port() int { return s.port }

// Register mints a token for reg and returns the pointer URL the media
// server should be pointed at (§4.7 "Pointer URL shape").
func (s *Server) Register(reg Registration) string {
	token := s.reg.register(reg)
	return fmt.Sprintf("http://%s/%s/%s", s.lis.Addr().String(), token, url.PathEscape(reg.Name))
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	token, _ := splitTokenPath(r.URL.Path)
	reg, ok := s.reg.lookup(token)
	if !ok {
		metrics.HTTPRangeRequestsTotal.WithLabelValues(r.Method, "404").Inc()
		http.Error(w, "", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodHead:
		s.serveHead(w, reg)
	case http.MethodGet:
		s.serveGet(w, r, reg)
	default:
		metrics.HTTPRangeRequestsTotal.WithLabelValues(r.Method, "405").Inc()
		w.Header().Set("Allow", "HEAD, GET")
		http.Error(w, "", http.StatusMethodNotAllowed)
	}
}

func splitTokenPath(path string) (token, name string) {
	trimmed := strings.TrimPrefix(path, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	token = parts[0]
	if len(parts) > 1 {
		name = parts[1]
	}
	return token, name
}

func (s *Server) serveHead(w http.ResponseWriter, reg Registration) {
	h := w.Header()
	h.Set("Content-Length", strconv.FormatInt(reg.Entry.Size, 10))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", mediatypes.GetMimeType(filepath.Ext(reg.Name)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	metrics.HTTPRangeRequestsTotal.WithLabelValues(http.MethodHead, "200").Inc()
}

func (s *Server) serveGet(w http.ResponseWriter, r *http.Request, reg Registration) {
	size := reg.Entry.Size

	rng, err := parseRange(r.Header.Get("Range"), size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		metrics.HTTPRangeRequestsTotal.WithLabelValues(http.MethodGet, "416").Inc()
		http.Error(w, "", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		http.Error(w, "", http.StatusServiceUnavailable)
		return
	}
	defer s.sem.Release(1)

	// Each request opens its own reader so no decode cursor is shared
	// across concurrent handlers (§4.7 concurrency requirement).
	entryReader, err := reg.Session.OpenEntry(reg.Entry)
	if err != nil {
		logging.Errorf("httprange: open entry %s: %v", reg.Name, err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	defer entryReader.Close()

	start, end := int64(0), size-1
	status := http.StatusOK
	if rng != nil {
		start, end = rng.start, rng.end
		status = http.StatusPartialContent
	}
	length := end - start + 1

	h := w.Header()
	h.Set("Content-Type", mediatypes.GetMimeType(filepath.Ext(reg.Name)))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", "no-store")
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	if rng != nil {
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	}
	w.WriteHeader(status)

	metrics.HTTPRangeActiveStreams.Inc()
	defer metrics.HTTPRangeActiveStreams.Dec()

	section := io.NewSectionReader(entryReader, start, length)
	buf := make([]byte, s.cfg.StreamChunkSize)
	n, copyErr := io.CopyBuffer(w, section, buf)
	metrics.HTTPRangeBytesServedTotal.Add(float64(n))

	statusLabel := strconv.Itoa(status)
	if copyErr != nil && !errors.Is(copyErr, io.EOF) {
		// Streaming failed mid-transfer: the connection is simply dropped,
		// never a trailing error body (§4.7 "Errors during streaming close
		// the connection").
		logging.Warnf("httprange: stream error for %s: %v", reg.Name, copyErr)
		statusLabel = "stream_error"
	}
	metrics.HTTPRangeRequestsTotal.WithLabelValues(http.MethodGet, statusLabel).Inc()
}
