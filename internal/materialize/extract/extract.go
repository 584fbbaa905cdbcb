// Package extract implements Strategy A (§4.6): stream-decode an entry to a
// temporary path, fingerprint it while writing, consult the Duplicate Index,
// then rename into place under its sanitized name.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/dedup"
	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/materialize"
)

// Strategy implements materialize.Strategy for extract-to-disk.
type Strategy struct {
	WorkDir string
	Dedup   *dedup.Index // nil when options.duplicate_check is false
}

// New creates an extract Strategy. dedupIndex may be nil to disable §4.2.
func New(workDir string, dedupIndex *dedup.Index) *Strategy {
	return &Strategy{WorkDir: workDir, Dedup: dedupIndex}
}

// Materialize implements the four steps of §4.6.
func (s *Strategy) Materialize(ctx context.Context, session *archive.Session, entry archive.Entry, targetDir, libraryID string) error {
	reader, err := session.OpenEntry(entry)
	if err != nil {
		return fmt.Errorf("extract: open entry %s: %w", entry.Name, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(s.WorkDir, 0o755); err != nil {
		return fmt.Errorf("extract: create work directory: %w", err)
	}
	tmpPath := filepath.Join(s.WorkDir, uuid.NewString())

	fingerprint, err := s.writeTemp(tmpPath, reader)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("extract: write temp file for %s: %w", entry.Name, err)
	}

	if s.Dedup != nil {
		if existing, found, err := s.Dedup.Lookup(ctx, fingerprint); err == nil && found {
			if _, statErr := os.Stat(existing); statErr == nil {
				os.Remove(tmpPath)
				logging.Infof("extract: %s is a duplicate of %s, skipping", entry.Name, existing)
				return nil
			}
		}
	}

	final, err := materialize.FinalizeRename(tmpPath, targetDir, entry.Name)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("extract: finalize %s: %w", entry.Name, err)
	}

	if s.Dedup != nil {
		if err := s.Dedup.Insert(ctx, fingerprint, final); err != nil {
			logging.Warnf("extract: failed to record duplicate-index entry for %s: %v", final, err)
		}
	}

	logging.Infof("extract: materialized %s -> %s", entry.Name, final)
	return nil
}

// writeTemp streams reader's full content into tmpPath, hashing it along the
// way, so the fingerprint is available without a second read pass.
func (s *Strategy) writeTemp(tmpPath string, reader archive.EntryReader) (string, error) {
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	defer out.Close()

	hasher := sha256.New()
	src := io.NewSectionReader(reader, 0, reader.Size())
	if _, err := io.Copy(out, io.TeeReader(src, hasher)); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CleanWorkDir removes everything under dir without removing dir itself. The
// daemon does not call it: the work directory is not cleaned at startup or
// after each archive set.
func CleanWorkDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
