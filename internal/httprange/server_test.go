package httprange

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rarshelf/rarshelf/internal/archive"
)

type fakeEntryReader struct {
	data []byte
}

func (f *fakeEntryReader) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(f.data).ReadAt(p, off)
}
func (f *fakeEntryReader) Size() int64  { return int64(len(f.data)) }
func (f *fakeEntryReader) Close() error { return nil }

type fakeSession struct {
	data []byte
}

func (f *fakeSession) OpenEntry(entry archive.Entry) (archive.EntryReader, error) {
	return &fakeEntryReader{data: f.data}, nil
}

func registerFake(s *Server, data []byte) string {
	reg := Registration{
		Session: &fakeSession{data: data},
		Entry:   archive.Entry{Name: "movie.mkv", Size: int64(len(data))},
		Name:    "movie.mkv",
	}
	return s.reg.register(reg)
}

func TestServeHeadReturns200WithContentLength(t *testing.T) {
	data := []byte("hello world")
	s := NewServer(Config{})
	token := registerFake(s, data)

	req := httptest.NewRequest(http.MethodHead, "/"+token+"/movie.mkv", nil)
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Length"); got != "11" {
		t.Fatalf("Content-Length = %q, want 11", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("Accept-Ranges = %q, want bytes", got)
	}
}

func TestServeGetWithoutRangeReturnsFullBody(t *testing.T) {
	data := []byte("hello world")
	s := NewServer(Config{})
	token := registerFake(s, data)

	req := httptest.NewRequest(http.MethodGet, "/"+token+"/movie.mkv", nil)
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hello world" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "hello world")
	}
}

func TestServeGetWithSatisfiableRangeReturns206(t *testing.T) {
	data := []byte("hello world")
	s := NewServer(Config{})
	token := registerFake(s, data)

	req := httptest.NewRequest(http.MethodGet, "/"+token+"/movie.mkv", nil)
	req.Header.Set("Range", "bytes=6-10")
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 6-10/11" {
		t.Fatalf("Content-Range = %q, want bytes 6-10/11", got)
	}
	if rec.Body.String() != "world" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "world")
	}
}

func TestServeGetWithUnsatisfiableRangeReturns416(t *testing.T) {
	data := []byte("hello world")
	s := NewServer(Config{})
	token := registerFake(s, data)

	req := httptest.NewRequest(http.MethodGet, "/"+token+"/movie.mkv", nil)
	req.Header.Set("Range", "bytes=9000-9999")
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */11" {
		t.Fatalf("Content-Range = %q, want bytes */11", got)
	}
}

func TestServeWrongMethodReturns405(t *testing.T) {
	data := []byte("hello world")
	s := NewServer(Config{})
	token := registerFake(s, data)

	req := httptest.NewRequest(http.MethodPost, "/"+token+"/movie.mkv", nil)
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != "HEAD, GET" {
		t.Fatalf("Allow = %q, want %q", got, "HEAD, GET")
	}
}

func TestServeUnknownTokenReturns404(t *testing.T) {
	s := NewServer(Config{})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist/movie.mkv", nil)
	rec := httptest.NewRecorder()
	s.serveHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

