// Package dispose implements the Archive Disposer (§4.10): once an archive
// set has been materialized, either delete its volumes or relocate them into
// the configured archive tree, preserving any subtree prefix under the
// watched source.
package dispose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rarshelf/rarshelf/internal/fsutil"
	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/metrics"
)

// Disposer disposes of processed archive sets per a source's delete_archives
// option.
type Disposer struct {
	ArchiveRoot string
}

// New creates a Disposer that relocates into archiveRoot when not deleting.
func New(archiveRoot string) *Disposer {
	return &Disposer{ArchiveRoot: archiveRoot}
}

// Dispose unlinks or relocates every volume in volumes (the sibling volume
// files of one archive set). watchRoot is the source directory volumes were
// found under; relocation preserves the path below watchRoot inside
// ArchiveRoot.
func (d *Disposer) Dispose(watchRoot string, volumes []string, deleteOnSuccess bool) error {
	if deleteOnSuccess {
		return d.delete(volumes)
	}
	return d.relocate(watchRoot, volumes)
}

func (d *Disposer) delete(volumes []string) error {
	for _, v := range volumes {
		if err := os.Remove(v); err != nil && !os.IsNotExist(err) {
			metrics.DisposerOperationsTotal.WithLabelValues("delete", "error").Inc()
			return fmt.Errorf("dispose: remove %s: %w", v, err)
		}
	}
	metrics.DisposerOperationsTotal.WithLabelValues("delete", "ok").Inc()
	logging.Infof("dispose: deleted %d volume(s)", len(volumes))
	return nil
}

func (d *Disposer) relocate(watchRoot string, volumes []string) error {
	for _, v := range volumes {
		rel, err := subtreeRel(watchRoot, v)
		if err != nil {
			metrics.DisposerOperationsTotal.WithLabelValues("relocate", "error").Inc()
			return fmt.Errorf("dispose: resolve relative path for %s: %w", v, err)
		}
		dst := filepath.Join(d.ArchiveRoot, rel)
		if err := fsutil.RenameOrCopy(v, dst); err != nil {
			metrics.DisposerOperationsTotal.WithLabelValues("relocate", "error").Inc()
			return fmt.Errorf("dispose: relocate %s: %w", v, err)
		}
	}
	metrics.DisposerOperationsTotal.WithLabelValues("relocate", "ok").Inc()
	logging.Infof("dispose: relocated %d volume(s) under %s", len(volumes), d.ArchiveRoot)
	return nil
}

// subtreeRel returns path's location relative to watchRoot, preserving any
// subdirectory prefix below the watched source (§4.10, §6.1's archive/
// layout note "preserving any sub-path below the source"). If path isn't
// under watchRoot, only its base name is preserved.
func subtreeRel(watchRoot, path string) (string, error) {
	rel, err := filepath.Rel(watchRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path), nil
	}
	return rel, nil
}
