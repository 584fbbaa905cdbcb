package adminserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeProvider struct {
	status Status
}

func (f fakeProvider) Status() Status { return f.status }

type fakeSubmitter struct {
	n   int
	err error
}

func (f fakeSubmitter) Submit(path string) (int, error) { return f.n, f.err }

func newTestHandler(status Status) http.Handler {
	s := New(":0", fakeProvider{status: status}, nil)
	return s.httpSrv.Handler
}

func newTestHandlerWithSubmitter(status Status, sub Submitter) http.Handler {
	s := New(":0", fakeProvider{status: status}, sub)
	return s.httpSrv.Handler
}

func TestLivenessAlwaysReturns200(t *testing.T) {
	h := newTestHandler(Status{Ready: false})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadinessReflectsProviderStatus(t *testing.T) {
	h := newTestHandler(Status{Ready: false})
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestReadinessReturns200WhenReady(t *testing.T) {
	h := newTestHandler(Status{Ready: true, QueueDepth: 3, WatchedSources: 2})
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	h := newTestHandler(Status{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSubmitWithoutSubmitterReturns501(t *testing.T) {
	h := newTestHandler(Status{})
	req := httptest.NewRequest(http.MethodPost, "/admin/submit", bytes.NewBufferString(`{"path":"/watch/x"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestSubmitWithBadBodyReturns400(t *testing.T) {
	h := newTestHandlerWithSubmitter(Status{}, fakeSubmitter{n: 1})
	req := httptest.NewRequest(http.MethodPost, "/admin/submit", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitDelegatesToSubmitter(t *testing.T) {
	h := newTestHandlerWithSubmitter(Status{}, fakeSubmitter{n: 2})
	req := httptest.NewRequest(http.MethodPost, "/admin/submit", bytes.NewBufferString(`{"path":"/watch/x"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
