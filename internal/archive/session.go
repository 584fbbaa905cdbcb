package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/javi11/rardecode/v2"

	"github.com/rarshelf/rarshelf/internal/fsutil"
	"github.com/rarshelf/rarshelf/internal/logging"
)

// Entry describes one logical file inside an archive set, independent of how
// many volumes its packed bytes span.
type Entry struct {
	Name       string
	Size       int64
	PackedSize int64
	Stored     bool // true when every volume part is STORE (uncompressed)
	Encrypted  bool
	IsDir      bool
}

// Status is the outcome of a full integrity check.
type Status string

const (
	StatusOK        Status = "ok"
	StatusCorrupt   Status = "corrupt"
	StatusEncrypted Status = "encrypted"
)

// Session is a resolved, opened archive set ready for entry enumeration and
// random-access reads. It holds no open file handles of its own; individual
// readers returned by OpenEntry own their handles.
type Session struct {
	path     string
	password string
	infos    []rardecode.ArchiveFileInfo
	entries  []Entry
}

// Open resolves the full volume set referenced by firstVolumePath and lists
// its contents. It fails with ErrMissingVolume if any referenced volume is
// absent, ErrEncrypted if headers can't be read without a password, and
// ErrCorrupt/ErrIO for other structural problems.
func Open(firstVolumePath, password string) (*Session, error) {
	if _, err := fsutil.StatWithRetry(firstVolumePath, fsutil.DefaultRetryConfig()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingVolume, firstVolumePath, err)
	}

	opts := []rardecode.Option{rardecode.SkipCheck}
	if password != "" {
		opts = append(opts, rardecode.Password(password))
	}
	if infos0, err := rardecode.ListArchiveInfo(firstVolumePath, opts...); err == nil {
		return newSession(firstVolumePath, password, infos0), nil
	} else {
		return nil, classifyOpenError(firstVolumePath, err)
	}
}

func newSession(path, password string, infos []rardecode.ArchiveFileInfo) *Session {
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:       info.Name,
			Size:       info.TotalUnpackedSize,
			PackedSize: info.TotalPackedSize,
			Stored:     info.AllStored,
			Encrypted:  encryptionUnresolved(info),
		})
	}
	return &Session{path: path, password: password, infos: infos, entries: entries}
}

// encryptionUnresolved applies the §4.1 policy: if the reader cannot
// determine encryption without password input, treat the entry as encrypted.
func encryptionUnresolved(info rardecode.ArchiveFileInfo) bool {
	if !info.AnyEncrypted {
		return false
	}
	for _, p := range info.Parts {
		if p.Encrypted && len(p.AesKey) == 0 {
			return true
		}
	}
	return false
}

func classifyOpenError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %v", ErrMissingVolume, path, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such file"), strings.Contains(msg, "volume"):
		return fmt.Errorf("%w: %s: %v", ErrMissingVolume, path, err)
	case strings.Contains(msg, "password"), strings.Contains(msg, "encrypt"):
		return fmt.Errorf("%w: %s: %v", ErrEncrypted, path, err)
	case strings.Contains(msg, "checksum"), strings.Contains(msg, "corrupt"),
		strings.Contains(msg, "invalid"), strings.Contains(msg, "unexpected"):
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrIO, path, err)
	}
}

// Path returns the first-volume path the session was opened from.
func (s *Session) Path() string { return s.path }

// IsEncrypted reports whether any data entry requires a password.
func (s *Session) IsEncrypted() bool {
	for _, e := range s.entries {
		if e.Encrypted {
			return true
		}
	}
	return false
}

// Entries returns every entry in archive order, unfiltered. Callers apply
// FilterCandidates to select materialization candidates.
func (s *Session) Entries() []Entry {
	return s.entries
}

// Test runs a full integrity check bounded by timeout. A timeout is reported
// as StatusCorrupt for quarantine purposes, matching §4.1.
func (s *Session) Test(timeout time.Duration) (Status, error) {
	done := make(chan error, 1)
	go func() {
		done <- s.runIntegrityCheck()
	}()

	select {
	case err := <-done:
		if err == nil {
			return StatusOK, nil
		}
		if errors.Is(err, ErrEncrypted) {
			return StatusEncrypted, err
		}
		return StatusCorrupt, err
	case <-time.After(timeout):
		return StatusCorrupt, fmt.Errorf("%w: integrity check exceeded %s", ErrTimeout, timeout)
	}
}

func (s *Session) runIntegrityCheck() error {
	var opts []rardecode.Option
	if s.password != "" {
		opts = append(opts, rardecode.Password(s.password))
	}
	rc, err := rardecode.OpenReader(s.path, opts...)
	if err != nil {
		return classifyOpenError(s.path, err)
	}
	defer rc.Close()

	for {
		_, err := rc.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return classifyOpenError(s.path, err)
		}
		if _, err := io.Copy(io.Discard, rc); err != nil {
			return classifyOpenError(s.path, err)
		}
	}
}

// OpenEntry returns a random-access reader over entry's unpacked bytes.
// STORE entries get a direct volume-file reader with no decode step; a
// compressed entry falls back to a sequential decode cursor that restarts
// from the beginning when a read requests an offset behind the cursor.
func (s *Session) OpenEntry(entry Entry) (EntryReader, error) {
	info, ok := s.findInfo(entry.Name)
	if !ok {
		return nil, fmt.Errorf("%w: entry %q not found in %s", ErrIO, entry.Name, s.path)
	}

	if info.AllStored {
		r, err := newStoreReader(info)
		if err != nil {
			return nil, err
		}
		return r, nil
	}

	logging.Debugf("archive: %s entry %s is compressed, falling back to sequential decode", s.path, entry.Name)
	return newDecodeReader(s.path, s.password, entry.Name, entry.Size), nil
}

func (s *Session) findInfo(name string) (rardecode.ArchiveFileInfo, bool) {
	for _, info := range s.infos {
		if info.Name == name {
			return info, true
		}
	}
	return rardecode.ArchiveFileInfo{}, false
}
