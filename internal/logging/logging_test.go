package logging

import (
	"os"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"DEBUG", "debug"},
		{"warn", "warning"},
		{"warning", "warning"},
		{"error", "error"},
		{"", "info"},
		{"bogus", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseLevel(tt.in).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigureIsIdempotent(t *testing.T) {
	if err := Configure(Config{Level: "debug"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := Configure(Config{Level: "error"}); err != nil {
		t.Fatalf("second Configure: %v", err)
	}
	// The second call is a no-op; debug messages must not panic either way.
	Debugf("hello %s", "world")
	Infof("hello")
	Warnf("hello")
	Errorf("hello")
}

func TestRotateWriterRotatesOnSize(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/log.txt"

	w, err := newRotateWriter(path, 0, 2)
	if err != nil {
		t.Fatalf("newRotateWriter: %v", err)
	}
	w.maxBytes = 10

	for i := 0; i < 5; i++ {
		if _, err := w.Write([]byte("0123456789")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected backup file to exist: %v", err)
	}
}
