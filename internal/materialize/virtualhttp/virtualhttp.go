// Package virtualhttp implements Strategy B (§4.7, §6.2): register the entry
// with the in-process range server and drop a Plex-style .strm pointer file
// pointing at the minted URL. No bytes are copied; the archive stays where
// it is until disposal.
package virtualhttp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/fsutil"
	"github.com/rarshelf/rarshelf/internal/httprange"
	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/materialize"
)

// Strategy implements materialize.Strategy for virtual-HTTP pointer files.
type Strategy struct {
	Server *httprange.Server
}

// New creates a virtualhttp Strategy backed by an already-started server.
func New(server *httprange.Server) *Strategy {
	return &Strategy{Server: server}
}

// Materialize implements §4.7's pointer-file path: mint a token for the
// entry, then write a one-line .strm file naming the URL.
func (s *Strategy) Materialize(ctx context.Context, session *archive.Session, entry archive.Entry, targetDir, libraryID string) error {
	url := s.Server.Register(httprange.Registration{
		Session: session,
		Entry:   entry,
		Name:    entry.Name,
	})

	pointerName := PointerName(targetDir, entry.Name)
	final := filepath.Join(targetDir, pointerName)

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("virtualhttp: create target directory: %w", err)
	}

	tmp := filepath.Join(targetDir, "."+uuid.NewString()+".strm.tmp")
	content := url + "\n"
	if err := fsutil.WriteFileWithRetry(tmp, []byte(content), 0o644, fsutil.DefaultRetryConfig()); err != nil {
		return fmt.Errorf("virtualhttp: write pointer file for %s: %w", entry.Name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("virtualhttp: place pointer file for %s: %w", entry.Name, err)
	}

	logging.Infof("virtualhttp: registered %s -> %s", entry.Name, final)
	return nil
}

// PointerName resolves the sanitized, collision-free pointer-file name for
// entryName inside targetDir, forcing the .strm extension regardless of the
// underlying entry's extension (§6.2).
func PointerName(targetDir, entryName string) string {
	sanitized := materialize.Sanitize(entryName)
	base := strings.TrimSuffix(sanitized, filepath.Ext(sanitized))
	candidate := base + ".strm"
	return materialize.UniqueName(func(name string) bool {
		_, err := os.Stat(filepath.Join(targetDir, name))
		return err == nil
	}, candidate)
}
