// Package startup carries the daemon's ambient lifecycle logging: the
// startup banner, system information, directory preflight checks and
// shutdown-sequence logging. Configuration loading itself lives in
// internal/config; this package only narrates the process lifecycle around
// it, the way the teacher's own startup package narrates its HTTP server's.
package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rarshelf/rarshelf/internal/logging"
)

// Build-time variables (injected via -ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo summarizes version and build information.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// ServerConfig summarizes the endpoints LogServerStarted reports.
type ServerConfig struct {
	AdminAddr       string
	VirtualHTTPAddr string // empty when no source uses the virtual_http strategy
	StartupDuration time.Duration
}

// Announce prints the banner and system information. Call once at process
// start, before configuration is loaded.
func Announce() {
	printBanner()
	logSystemInfo()
}

// LogServerStarted logs the daemon's operational endpoints once everything
// is listening.
func LogServerStarted(cfg ServerConfig) {
	logging.Infof("------------------------------------------------------------")
	logging.Infof("RARSHELF STARTED")
	logging.Infof("------------------------------------------------------------")
	logging.Infof("  Startup time:  %v", cfg.StartupDuration)
	logging.Infof("  Admin surface: http://%s (/healthz, /readyz, /metrics)", cfg.AdminAddr)
	if cfg.VirtualHTTPAddr != "" {
		logging.Infof("  Virtual HTTP:  http://%s", cfg.VirtualHTTPAddr)
	}
	logging.Infof("  Press Ctrl+C to stop")
	logging.Infof("------------------------------------------------------------")
}

// LogShutdownInitiated logs the start of the shutdown sequence.
func LogShutdownInitiated(signal string) {
	logging.Infof("------------------------------------------------------------")
	logging.Infof("SHUTDOWN INITIATED (received %s)", signal)
	logging.Infof("------------------------------------------------------------")
}

// LogShutdownStep logs the start of one shutdown step.
func LogShutdownStep(step string) {
	logging.Debugf("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step.
func LogShutdownStepComplete(step string) {
	logging.Infof("  [OK] %s", step)
}

// LogShutdownComplete logs completion of the whole shutdown sequence.
func LogShutdownComplete() {
	logging.Infof("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and terminates the process.
func LogFatal(format string, args ...interface{}) {
	logging.Fatalf(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
 _ __ __ _ _ __ ___| |__   ___| |/ _|
| '__/ _' | '__/ __| '_ \ / _ \ | |_
| | | (_| | |  \__ \ | | |  __/ |  _|
|_|  \__,_|_|  |___/_| |_|\___|_|_|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Infof("  Version:    %s", Version)
	logging.Infof("  Commit:     %s", Commit)
	logging.Infof("  Build Time: %s", BuildTime)
	logging.Infof("  Started:    %s", time.Now().Format(time.RFC1123))
}

func logSystemInfo() {
	logging.Infof("------------------------------------------------------------")
	logging.Infof("SYSTEM INFORMATION")
	logging.Infof("------------------------------------------------------------")
	logging.Infof("  Go version:      %s", runtime.Version())
	logging.Infof("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Infof("  CPUs available:  %d", runtime.NumCPU())
	logging.Infof("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Infof("  (Container CPU limit detected)")
	}
}

// EnsureDirectory creates path if absent and verifies it is a directory.
func EnsureDirectory(path, name string) error {
	logging.Debugf("  checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s directory %s: %w", name, path, err)
		}
		logging.Debugf("    created %s directory: %s", name, path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s directory %s: %w", name, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path %s exists but is not a directory", name, path)
	}
	return nil
}

// TestWriteAccess confirms the process can write to dir.
func TestWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return fmt.Errorf("write access check for %s: %w", dir, err)
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warnf("failed to remove write-access probe file %s: %v", testFile, err)
	}
	return nil
}
