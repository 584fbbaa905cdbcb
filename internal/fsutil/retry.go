package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rarshelf/rarshelf/internal/logging"
)

// VolumeResolver maps file paths to known volume labels for metric cardinality
// control, using longest-prefix matching on absolute paths.
type VolumeResolver struct {
	mounts []volumeMount
}

type volumeMount struct {
	path string
	name string
}

// NewVolumeResolver builds a resolver from a map of volume name -> absolute path,
// e.g. {"watch:incoming": "/data/incoming", "target:incoming": "/data/library"}.
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if !strings.HasSuffix(absPath, "/") {
			absPath += "/"
		}
		mounts = append(mounts, volumeMount{path: absPath, name: name})
	}
	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})
	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume label for path, or "unknown" if unmatched.
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}
	for _, mount := range vr.mounts {
		if strings.HasPrefix(absPath+"/", mount.path) || strings.HasPrefix(absPath, mount.path) {
			return mount.name
		}
	}
	return "unknown"
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level resolver used when a
// RetryConfig does not carry its own.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures NFS-stale-handle retry behavior.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns sensible defaults for NFS-mounted watch sources.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// StatWithRetry performs os.Stat with retry on NFS stale file handle errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return retryOp("stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry performs os.Open with retry on NFS stale file handle errors.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return retryOp("open", path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}

// ReadDirWithRetry lists a directory with retry on NFS stale file handle
// errors, used by the watcher's startup enumeration and per-set volume scans.
func ReadDirWithRetry(path string, config RetryConfig) ([]os.DirEntry, error) {
	return retryOp("readdir", path, config, func() ([]os.DirEntry, error) {
		return os.ReadDir(path)
	})
}

// WriteFileWithRetry writes a file with retry on NFS stale file handle
// errors, used by the virtual-HTTP strategy to write its pointer files when
// the target directory lives on an NFS mount.
func WriteFileWithRetry(path string, data []byte, perm os.FileMode, config RetryConfig) error {
	_, err := retryOp("writefile", path, config, func() (struct{}, error) {
		return struct{}{}, os.WriteFile(path, data, perm)
	})
	return err
}

func retryOp[T any](op, path string, config RetryConfig, do func() (T, error)) (T, error) {
	start := time.Now()
	volume := config.resolveVolume(path)
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, err := do()
		if err == nil {
			if attempt > 0 {
				logging.Infof("NFS %s succeeded on retry %d for %s", op, attempt, path)
				if o := observe(); o != nil {
					o.ObserveRetrySuccess(op, volume)
				}
			}
			if o := observe(); o != nil {
				o.ObserveRetryDuration(op, volume, time.Since(start).Seconds())
			}
			return result, nil
		}

		lastErr = err
		if !isNFSStaleError(err) {
			if o := observe(); o != nil {
				o.ObserveRetryDuration(op, volume, time.Since(start).Seconds())
			}
			return result, err
		}

		if o := observe(); o != nil {
			o.ObserveStaleError(op, volume)
		}

		if attempt < config.MaxRetries {
			if o := observe(); o != nil {
				o.ObserveRetryAttempt(op, volume)
			}
			logging.Debugf("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warnf("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	if o := observe(); o != nil {
		o.ObserveRetryFailure(op, volume)
		o.ObserveRetryDuration(op, volume, time.Since(start).Seconds())
	}
	var zero T
	return zero, lastErr
}
