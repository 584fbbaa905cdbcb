// Package externalmount implements Strategy C (§4.8): shell out to an
// external helper that mounts an archive set as a virtual directory, then
// symlink each entry into the target library directory. The strategy is an
// adapter to an out-of-process capability and tracks nothing beyond what is
// needed to unmount on shutdown.
package externalmount

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/materialize"
)

// Config mirrors §6.5's external_mount section.
type Config struct {
	Executable      string
	MountBase       string
	MountOptions    []string
	UnmountTimeout  time.Duration
	ReadinessPoll   time.Duration // default 200ms, not operator-configurable in §6.5
	ReadinessWindow time.Duration // default 30s per §4.8
}

// ErrHelperMissing is returned when the configured executable can't be run.
var ErrHelperMissing = fmt.Errorf("externalmount: mount helper not runnable")

// ErrMountTimeout is returned when the mount point never became ready.
var ErrMountTimeout = fmt.Errorf("externalmount: mount point did not become ready in time")

type mount struct {
	point string
	cmd   *exec.Cmd
}

// Strategy implements materialize.Strategy for external-mount. One mount is
// launched per archive set (keyed by the session's first-volume path) and
// reused across the set's entries.
type Strategy struct {
	cfg Config

	mu     sync.Mutex
	mounts map[string]*mount
}

// New creates an externalmount Strategy.
func New(cfg Config) *Strategy {
	if cfg.ReadinessPoll <= 0 {
		cfg.ReadinessPoll = 200 * time.Millisecond
	}
	if cfg.ReadinessWindow <= 0 {
		cfg.ReadinessWindow = 30 * time.Second
	}
	if cfg.UnmountTimeout <= 0 {
		cfg.UnmountTimeout = 30 * time.Second
	}
	return &Strategy{cfg: cfg, mounts: make(map[string]*mount)}
}

// Materialize ensures session's archive set is mounted, then symlinks entry
// into targetDir under its sanitized name.
func (s *Strategy) Materialize(ctx context.Context, session *archive.Session, entry archive.Entry, targetDir, libraryID string) error {
	m, err := s.ensureMounted(ctx, session.Path())
	if err != nil {
		return err
	}

	src := filepath.Join(m.point, entry.Name)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("externalmount: create target directory: %w", err)
	}
	dst := filepath.Join(targetDir, materialize.FinalizeName(targetDir, entry.Name))

	if err := os.Symlink(src, dst); err != nil {
		return fmt.Errorf("externalmount: symlink %s: %w", entry.Name, err)
	}

	logging.Infof("externalmount: linked %s -> %s", dst, src)
	return nil
}

func (s *Strategy) ensureMounted(ctx context.Context, key string) (*mount, error) {
	s.mu.Lock()
	if m, ok := s.mounts[key]; ok {
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()

	point := filepath.Join(s.cfg.MountBase, mountDirName(key))
	if err := os.MkdirAll(point, 0o755); err != nil {
		return nil, fmt.Errorf("externalmount: create mount point: %w", err)
	}

	args := append([]string{key, point}, s.cfg.MountOptions...)
	cmd := exec.CommandContext(ctx, s.cfg.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrHelperMissing, s.cfg.Executable, err)
	}

	if err := s.waitReady(point); err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	m := &mount{point: point, cmd: cmd}
	s.mu.Lock()
	s.mounts[key] = m
	s.mu.Unlock()
	return m, nil
}

// waitReady polls point for entries up to cfg.ReadinessWindow, per §4.8.
func (s *Strategy) waitReady(point string) error {
	deadline := time.Now().Add(s.cfg.ReadinessWindow)
	for time.Now().Before(deadline) {
		entries, err := os.ReadDir(point)
		if err == nil && len(entries) > 0 {
			return nil
		}
		time.Sleep(s.cfg.ReadinessPoll)
	}
	return ErrMountTimeout
}

// ReleaseAll unmounts every mount this process launched, per §4.8's shutdown
// rule. Each release is bounded by cfg.UnmountTimeout.
func (s *Strategy) ReleaseAll() {
	s.mu.Lock()
	mounts := make([]*mount, 0, len(s.mounts))
	for _, m := range s.mounts {
		mounts = append(mounts, m)
	}
	s.mounts = make(map[string]*mount)
	s.mu.Unlock()

	for _, m := range mounts {
		s.release(m)
	}
}

func (s *Strategy) release(m *mount) {
	if m.cmd.Process != nil {
		if err := m.cmd.Process.Signal(os.Interrupt); err != nil {
			logging.Warnf("externalmount: signal mount helper for %s: %v", m.point, err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- m.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(s.cfg.UnmountTimeout):
		logging.Warnf("externalmount: unmount of %s exceeded timeout, killing helper", m.point)
		_ = m.cmd.Process.Kill()
		<-done
	}

	if err := os.RemoveAll(m.point); err != nil {
		logging.Warnf("externalmount: remove mount point %s: %v", m.point, err)
	}
}

// mountDirName derives a stable, collision-resistant mount-point directory
// name for archivePath so two sessions never race over the same directory.
func mountDirName(archivePath string) string {
	sum := sha256.Sum256([]byte(archivePath))
	return filepath.Base(archivePath) + "-" + hex.EncodeToString(sum[:])[:8]
}
