package logging

import (
	"fmt"
	"os"
	"sync"
)

// rotateWriter is a minimal size-based rotating io.Writer. No library in the
// dependency surface this module draws on covers log rotation, so this piece
// stays on the standard library (see DESIGN.md).
type rotateWriter struct {
	mu          sync.Mutex
	path        string
	maxBytes    int64
	backupCount int
	file        *os.File
	size        int64
}

func newRotateWriter(path string, maxSizeMB, backupCount int) (*rotateWriter, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	if backupCount <= 0 {
		backupCount = 5
	}
	w := &rotateWriter{
		path:        path,
		maxBytes:    int64(maxSizeMB) * 1024 * 1024,
		backupCount: backupCount,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotateWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *rotateWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *rotateWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}

	for i := w.backupCount - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", w.path, i)
		dst := fmt.Sprintf("%s.%d", w.path, i+1)
		if _, err := os.Stat(src); err == nil {
			_ = os.Rename(src, dst)
		}
	}
	if w.backupCount > 0 {
		_ = os.Rename(w.path, fmt.Sprintf("%s.1", w.path))
	}

	return w.open()
}
