// Command rarshelfd is the daemon entrypoint: it loads configuration, wires
// the Directory Watcher, Processing Queue, Archive Reader, Materialization
// Strategies, Library Notifier and Archive Disposer together, and serves the
// admin HTTP surface until told to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rarshelf/rarshelf/internal/adminserver"
	"github.com/rarshelf/rarshelf/internal/archive"
	"github.com/rarshelf/rarshelf/internal/config"
	"github.com/rarshelf/rarshelf/internal/dedup"
	"github.com/rarshelf/rarshelf/internal/dispose"
	"github.com/rarshelf/rarshelf/internal/fsutil"
	"github.com/rarshelf/rarshelf/internal/httprange"
	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/materialize"
	"github.com/rarshelf/rarshelf/internal/materialize/externalmount"
	"github.com/rarshelf/rarshelf/internal/materialize/extract"
	"github.com/rarshelf/rarshelf/internal/materialize/virtualhttp"
	"github.com/rarshelf/rarshelf/internal/memory"
	"github.com/rarshelf/rarshelf/internal/metrics"
	"github.com/rarshelf/rarshelf/internal/notify"
	"github.com/rarshelf/rarshelf/internal/pipeline"
	"github.com/rarshelf/rarshelf/internal/queue"
	"github.com/rarshelf/rarshelf/internal/startup"
	"github.com/rarshelf/rarshelf/internal/watch"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration document (defaults to RARSHELF_CONFIG, then ./config.*, /etc/rarshelf/config.*)")
	adminAddr := flag.String("admin-addr", ":9090", "address for the admin HTTP surface (/healthz, /readyz, /metrics)")
	flag.Parse()

	startTime := time.Now()
	startup.Announce()

	memResult := memory.ConfigureFromEnv()
	if memResult.Configured {
		logging.Infof("memory: GOMEMLIMIT configured from %s", memResult.Source)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Errorf("configuration: %v", err)
		os.Exit(2)
	}

	if err := logging.Configure(logging.Config{
		Level:       cfg.Logging.Level,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxLogSize,
		BackupCount: cfg.Logging.BackupCount,
	}); err != nil {
		startup.LogFatal("logging: %v", err)
	}

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	fsutil.SetObserver(metrics.NewFilesystemObserver())

	d, err := newDaemon(cfg)
	if err != nil {
		startup.LogFatal("startup: %v", err)
	}

	if err := d.start(); err != nil {
		startup.LogFatal("startup: %v", err)
	}

	adminSrv := adminserver.New(*adminAddr, d, d)
	adminSrv.Start()

	startup.LogServerStarted(startup.ServerConfig{
		AdminAddr:       *adminAddr,
		VirtualHTTPAddr: d.virtualHTTPAddr(),
		StartupDuration: time.Since(startTime),
	})

	sig := waitForSignal()
	startup.LogShutdownInitiated(sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("stopping admin server")
	if err := adminSrv.Stop(shutdownCtx); err != nil {
		logging.Errorf("adminserver: shutdown: %v", err)
	}
	startup.LogShutdownStepComplete("admin server stopped")

	d.stop(shutdownCtx)

	startup.LogShutdownComplete()
}

func waitForSignal() os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return <-ch
}

// daemon owns every long-lived component cmd/rarshelfd wires together.
type daemon struct {
	cfg *config.Config

	watchers *watch.Set
	q        *queue.Queue
	pl       *pipeline.Pipeline
	rangeSrv *httprange.Server
	dedupIdx *dedup.Index
	mem      *memory.Monitor

	extMount *externalmount.Strategy
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	d := &daemon{cfg: cfg}

	for name, dir := range map[string]string{
		"work":    cfg.Paths.Work,
		"failed":  cfg.Paths.Failed,
		"archive": cfg.Paths.Archive,
	} {
		if dir == "" {
			continue
		}
		if err := startup.EnsureDirectory(dir, name); err != nil {
			return nil, err
		}
		if err := startup.TestWriteAccess(dir); err != nil {
			return nil, err
		}
	}

	if cfg.Options.DuplicateCheck {
		idx, err := dedup.Open(filepath.Join(cfg.Paths.Work, "dedup.sqlite"))
		if err != nil {
			return nil, fmt.Errorf("open duplicate index: %w", err)
		}
		d.dedupIdx = idx
	}

	strategies := make(map[config.ProcessingMode]materialize.Strategy)

	needsVirtualHTTP := cfg.Options.ProcessingMode == config.ModeVirtualHTTP
	needsExternalMount := cfg.Options.ProcessingMode == config.ModeExternalMount
	for _, src := range cfg.Sources() {
		switch src.Strategy {
		case config.ModeVirtualHTTP:
			needsVirtualHTTP = true
		case config.ModeExternalMount:
			needsExternalMount = true
		}
	}

	strategies[config.ModeExtract] = extract.New(cfg.Paths.Work, d.dedupIdx)

	if needsVirtualHTTP {
		d.rangeSrv = httprange.NewServer(httprange.Config{
			PortRangeLo:          cfg.VirtualHTTP.PortRange[0],
			PortRangeHi:          cfg.VirtualHTTP.PortRange[1],
			Bind:                 cfg.VirtualHTTP.Bind,
			MaxConcurrentStreams: cfg.VirtualHTTP.MaxConcurrentStreams,
			StreamChunkSize:      cfg.VirtualHTTP.StreamChunkSize,
		})
		strategies[config.ModeVirtualHTTP] = virtualhttp.New(d.rangeSrv)
	}

	if needsExternalMount {
		d.extMount = externalmount.New(externalmount.Config{
			Executable:     cfg.ExternalMount.Executable,
			MountBase:      cfg.ExternalMount.MountBase,
			MountOptions:   cfg.ExternalMount.MountOptions,
			UnmountTimeout: cfg.ExternalMount.UnmountTimeout,
		})
		strategies[config.ModeExternalMount] = d.extMount
	}

	d.pl = pipeline.New(pipeline.Config{
		Strategies:      strategies,
		Notifier:        notify.New(cfg.Plex),
		Disposer:        dispose.New(cfg.Paths.Archive),
		Quarantine:      dispose.New(cfg.Paths.Failed),
		FilterConfig:    archive.DefaultFilterConfig(),
		DeleteOnSuccess: cfg.Options.DeleteArchives,
	})

	d.mem = memory.NewMonitor(memory.DefaultConfig())

	d.q = queue.New(queue.Config{
		RetryInterval:    cfg.Options.RetryInterval,
		MaxRetryAttempts: cfg.Options.MaxRetryAttempts,
		MaxRetryAgeHours: cfg.Options.MaxRetryAgeHours,
		OnQuarantine:     d.pl.Quarantine,
	}, d.process)

	var sourceCfgs []watch.SourceConfig
	for _, src := range cfg.Sources() {
		if !src.Enabled {
			continue
		}
		sourceCfgs = append(sourceCfgs, watch.SourceConfig{
			Path:                src.Source,
			Target:              src.Target,
			LibraryID:           src.LibraryID,
			Strategy:            string(src.Strategy),
			Recursive:           src.Recursive,
			StabilizationWindow: cfg.Options.FileStabilizationTime,
			MaxFileAge:          cfg.Options.MaxFileAge,
		})
	}
	d.watchers = watch.NewSet(sourceCfgs)

	return d, nil
}

func (d *daemon) process(ctx context.Context, item *queue.Item) error {
	if !d.mem.WaitIfPaused() {
		return fmt.Errorf("daemon: shutting down, abandoning %s", item.Handle.Key())
	}
	return d.pl.Process(ctx, item)
}

func (d *daemon) start() error {
	d.mem.Start()

	if d.rangeSrv != nil {
		if err := d.rangeSrv.Start(); err != nil {
			return fmt.Errorf("start virtual-http server: %w", err)
		}
	}

	d.q.Start(context.Background())

	if err := d.watchers.Start(); err != nil {
		return fmt.Errorf("start watchers: %w", err)
	}

	go d.pump()

	return nil
}

// pump relays watcher events into the queue for the lifetime of the process.
func (d *daemon) pump() {
	for ev := range d.watchers.Events() {
		d.q.Submit(ev)
	}
}

func (d *daemon) virtualHTTPAddr() string {
	if d.rangeSrv == nil {
		return ""
	}
	return fmt.Sprintf("127.0.0.1:%d", d.rangeSrv.Port())
}

func (d *daemon) stop(ctx context.Context) {
	startup.LogShutdownStep("stopping watchers")
	d.watchers.Stop()
	startup.LogShutdownStepComplete("watchers stopped")

	startup.LogShutdownStep("draining processing queue")
	d.q.Stop()
	startup.LogShutdownStepComplete("processing queue drained")

	if d.extMount != nil {
		startup.LogShutdownStep("releasing external mounts")
		d.extMount.ReleaseAll()
		startup.LogShutdownStepComplete("external mounts released")
	}

	if d.rangeSrv != nil {
		startup.LogShutdownStep("stopping virtual-http server")
		if err := d.rangeSrv.Stop(ctx); err != nil {
			logging.Errorf("httprange: shutdown: %v", err)
		}
		startup.LogShutdownStepComplete("virtual-http server stopped")
	}

	d.mem.Stop()

	if d.dedupIdx != nil {
		if err := d.dedupIdx.Close(); err != nil {
			logging.Errorf("dedup: close: %v", err)
		}
	}
}

// Submit implements adminserver.Submitter: it groups the RAR volumes found
// directly under path and enqueues one queue item per archive set, matching
// path against the configured sources by longest path prefix to pick up that
// source's target/library/strategy.
func (d *daemon) Submit(path string) (int, error) {
	src, ok := d.sourceFor(path)
	if !ok {
		return 0, fmt.Errorf("daemon: %s does not fall under any configured source", path)
	}

	handles, err := watch.GroupVolumesAt(path)
	if err != nil {
		return 0, fmt.Errorf("daemon: scan %s: %w", path, err)
	}
	if len(handles) == 0 {
		return 0, fmt.Errorf("daemon: no archive volumes found directly under %s", path)
	}

	for _, h := range handles {
		d.q.Submit(watch.Event{Handle: h, Source: src, Reason: watch.ReasonExisting})
	}
	return len(handles), nil
}

func (d *daemon) sourceFor(path string) (watch.SourceConfig, bool) {
	var best watch.SourceConfig
	found := false
	for _, src := range d.cfg.Sources() {
		if !src.Enabled {
			continue
		}
		if !strings.HasPrefix(path, src.Source) {
			continue
		}
		if !found || len(src.Source) > len(best.Path) {
			best = watch.SourceConfig{
				Path:                src.Source,
				Target:              src.Target,
				LibraryID:           src.LibraryID,
				Strategy:            string(src.Strategy),
				Recursive:           src.Recursive,
				StabilizationWindow: d.cfg.Options.FileStabilizationTime,
				MaxFileAge:          d.cfg.Options.MaxFileAge,
			}
			found = true
		}
	}
	return best, found
}

// Status implements adminserver.StatusProvider.
func (d *daemon) Status() adminserver.Status {
	snapshot := d.q.Snapshot()
	return adminserver.Status{
		Ready:          true,
		QueueDepth:     len(snapshot),
		WatchedSources: len(d.cfg.Sources()),
	}
}
