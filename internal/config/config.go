// Package config loads and validates the configuration document described in
// SPEC_FULL.md §0/§6.5: a structured document (YAML, TOML or JSON — viper sniffs
// the extension) with paths, options, virtual_http, external_mount, plex,
// directory_pairs and logging sections.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// ProcessingMode selects the default materialization strategy for a source.
type ProcessingMode string

const (
	ModeExtract      ProcessingMode = "extract"
	ModeVirtualHTTP  ProcessingMode = "virtual_http"
	ModeExternalMount ProcessingMode = "external_mount"
)

// Paths holds the directory roles from §6.1.
type Paths struct {
	Watch   string `mapstructure:"watch"`
	Target  string `mapstructure:"target"`
	Work    string `mapstructure:"work"`
	Failed  string `mapstructure:"failed"`
	Archive string `mapstructure:"archive"`
}

// Options holds the options section of §6.5.
type Options struct {
	ProcessingMode        ProcessingMode `mapstructure:"processing_mode"`
	DeleteArchives        bool           `mapstructure:"delete_archives"`
	DuplicateCheck        bool           `mapstructure:"duplicate_check"`
	Extensions            []string       `mapstructure:"extensions"`
	FileStabilizationTime time.Duration  `mapstructure:"file_stabilization_time"`
	MaxFileAge            time.Duration  `mapstructure:"max_file_age"`
	MaxRetryAttempts      int            `mapstructure:"max_retry_attempts"`
	RetryInterval         time.Duration  `mapstructure:"retry_interval"`
	MaxRetryAgeHours      int            `mapstructure:"max_retry_age_hours"`
	ScanExistingFiles     bool           `mapstructure:"scan_existing_files"`
}

// VirtualHTTP holds the virtual_http section of §6.5/§4.7.
type VirtualHTTP struct {
	PortRange           [2]int `mapstructure:"port_range"`
	MaxConcurrentStreams int   `mapstructure:"max_concurrent_streams"`
	StreamChunkSize     int    `mapstructure:"stream_chunk_size"`
	Bind                string `mapstructure:"bind"` // "loopback" | "any"
}

// ExternalMount holds the external_mount section of §6.5/§4.8.
type ExternalMount struct {
	Executable      string        `mapstructure:"executable"`
	MountBase       string        `mapstructure:"mount_base"`
	MountOptions    []string      `mapstructure:"mount_options"`
	UnmountTimeout  time.Duration `mapstructure:"unmount_timeout"`
}

// Plex holds the plex section of §6.5/§4.9 (library-notifier target).
type Plex struct {
	Host       string `mapstructure:"host"`
	Token      string `mapstructure:"token"`
	LibraryKey string `mapstructure:"library_key"`
}

// DirectoryPair is one entry of the directory_pairs list (§6.5).
type DirectoryPair struct {
	Source    string         `mapstructure:"source"`
	Target    string         `mapstructure:"target"`
	Strategy  ProcessingMode `mapstructure:"strategy"`
	LibraryID string         `mapstructure:"library_id"`
	Enabled   bool           `mapstructure:"enabled"`
	Recursive bool           `mapstructure:"recursive"`
}

// Logging holds the logging section of §6.5.
type Logging struct {
	Level       string `mapstructure:"level"`
	MaxLogSize  int    `mapstructure:"max_log_size"`
	BackupCount int    `mapstructure:"backup_count"`
	File        string `mapstructure:"file"`
}

// Config is the fully parsed and validated configuration document.
type Config struct {
	Paths          Paths           `mapstructure:"paths"`
	Options        Options         `mapstructure:"options"`
	VirtualHTTP    VirtualHTTP     `mapstructure:"virtual_http"`
	ExternalMount  ExternalMount   `mapstructure:"external_mount"`
	Plex           Plex            `mapstructure:"plex"`
	DirectoryPairs []DirectoryPair `mapstructure:"directory_pairs"`
	Logging        Logging         `mapstructure:"logging"`
}

// setDefaults installs §6.5's documented defaults before the document is read,
// so keys the operator omits behave per spec rather than zero-valuing.
func setDefaults(v *viper.Viper) {
	v.SetDefault("options.processing_mode", string(ModeExtract))
	v.SetDefault("options.delete_archives", false)
	v.SetDefault("options.duplicate_check", true)
	v.SetDefault("options.extensions", []string{".rar"})
	v.SetDefault("options.file_stabilization_time", "10s")
	v.SetDefault("options.max_file_age", "1h")
	v.SetDefault("options.max_retry_attempts", 5)
	v.SetDefault("options.retry_interval", "60s")
	v.SetDefault("options.max_retry_age_hours", 24)
	v.SetDefault("options.scan_existing_files", true)

	v.SetDefault("virtual_http.port_range", []int{8765, 8865})
	v.SetDefault("virtual_http.max_concurrent_streams", 10)
	v.SetDefault("virtual_http.stream_chunk_size", 8192)
	v.SetDefault("virtual_http.bind", "loopback")

	v.SetDefault("external_mount.unmount_timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_log_size", 100)
	v.SetDefault("logging.backup_count", 5)
}

// Load reads the configuration document at path (or RARSHELF_CONFIG if path is
// empty), applying RARSHELF_* environment overrides, and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RARSHELF")
	v.AutomaticEnv()
	setDefaults(v)

	if path == "" {
		path = os.Getenv("RARSHELF_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rarshelf")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Paths.Watch == "" && len(cfg.DirectoryPairs) == 0 {
		return fmt.Errorf("configuration: no watch directories configured (paths.watch or directory_pairs)")
	}
	if cfg.Paths.Target == "" {
		for _, p := range cfg.DirectoryPairs {
			if p.Target == "" {
				return fmt.Errorf("configuration: directory_pairs entry for %q is missing a target", p.Source)
			}
		}
	}
	switch cfg.Options.ProcessingMode {
	case ModeExtract, ModeVirtualHTTP, ModeExternalMount, "":
	default:
		return fmt.Errorf("configuration: unrecognized options.processing_mode %q", cfg.Options.ProcessingMode)
	}
	if cfg.VirtualHTTP.PortRange[0] <= 0 || cfg.VirtualHTTP.PortRange[1] < cfg.VirtualHTTP.PortRange[0] {
		return fmt.Errorf("configuration: invalid virtual_http.port_range %v", cfg.VirtualHTTP.PortRange)
	}
	return nil
}

// Sources flattens paths+directory_pairs into per-source processing tuples,
// applying each pair's overrides to the top-level options (§6.5 "Per-source
// overrides of options.processing_mode").
func (c *Config) Sources() []DirectoryPair {
	if len(c.DirectoryPairs) > 0 {
		out := make([]DirectoryPair, len(c.DirectoryPairs))
		for i, p := range c.DirectoryPairs {
			if p.Strategy == "" {
				p.Strategy = c.Options.ProcessingMode
			}
			out[i] = p
		}
		return out
	}
	return []DirectoryPair{{
		Source:    c.Paths.Watch,
		Target:    c.Paths.Target,
		Strategy:  c.Options.ProcessingMode,
		LibraryID: c.Plex.LibraryKey,
		Enabled:   true,
		Recursive: true,
	}}
}
