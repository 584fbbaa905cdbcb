// Package logging provides the process-wide structured logger.
//
// Call-site shape is deliberately flat (Debug/Info/Warn/Error/Fatal, printf-style),
// matching the rest of this codebase's terse logging idiom, backed by logrus so
// fields, levels and the rotating file sink configured from the "logging" section
// of the configuration document (§6.5) are available to every component.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	root     = logrus.New()
	initOnce sync.Once
)

// Config controls the backing logger. Level defaults to "info" when empty.
type Config struct {
	Level string
	// File, when non-empty, is the rotated log sink path (logging.max_log_size /
	// logging.backup_count from the configuration document govern rotation).
	File        string
	MaxSizeMB   int
	BackupCount int
}

// Configure installs the given configuration as the process-wide logger.
// Safe to call once at startup; later calls are no-ops beyond the first.
func Configure(cfg Config) error {
	var err error
	initOnce.Do(func() {
		err = configure(cfg)
	})
	return err
}

func configure(cfg Config) error {
	root.SetLevel(parseLevel(cfg.Level))
	root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.File == "" {
		root.SetOutput(os.Stdout)
		return nil
	}

	w, err := newRotateWriter(cfg.File, cfg.MaxSizeMB, cfg.BackupCount)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", cfg.File, err)
	}
	root.SetOutput(w)
	return nil
}

func parseLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "":
		return logrus.InfoLevel
	default:
		return logrus.InfoLevel
	}
}

// Fields is a shorthand for logrus.Fields, used by components that want to
// attach structured context (archive=, token=, source=) to a handful of lines.
type Fields = logrus.Fields

// WithFields returns an entry pre-populated with the given fields; callers
// chain .Debugf/.Infof/.Warnf/.Errorf on the result.
func WithFields(f Fields) *logrus.Entry {
	return root.WithFields(f)
}

// WithComponent is shorthand for WithFields(Fields{"component": name}).
func WithComponent(name string) *logrus.Entry {
	return root.WithField("component", name)
}

func Debugf(format string, args ...interface{}) { root.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { root.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { root.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { root.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { root.Fatalf(format, args...) }

// IsDebugEnabled reports whether debug-level messages are currently emitted.
func IsDebugEnabled() bool {
	return root.IsLevelEnabled(logrus.DebugLevel)
}
