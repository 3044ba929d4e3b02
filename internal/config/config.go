// Package config holds the printloop service configuration: the listen
// address, logging options, safety ceilings, and sweep override, loaded
// from an optional TOML file over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/loopfarm/printloop/internal/config/errz"
	"github.com/loopfarm/printloop/internal/fancy"
	"github.com/loopfarm/printloop/internal/gcode"
	"github.com/loopfarm/printloop/internal/job"
)

// Service defaults
const (
	DefaultListenAddr     = ":8155"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultMaxUploadBytes = 256 << 20

	DefaultHTTPReadTimeout  = 60 * time.Second
	DefaultHTTPWriteTimeout = 60 * time.Second
	DefaultHTTPIdleTimeout  = 60 * time.Second
	DefaultHTTPDrainTimeout = 30 * time.Second
)

var (
	validLogLevels  = []string{"trace", "debug", "info", "warn", "warning", "error"}
	validLogFormats = []string{"text", "json"}
)

// HTTP contains the HTTP listener timeouts.
type HTTP struct {
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	IdleTimeout  Duration `toml:"idle_timeout"`
	DrainTimeout Duration `toml:"drain_timeout"`
}

// Validate checks HTTP for any configuration errors
func (h HTTP) Validate() error {
	var errs []error

	if h.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: HTTP read timeout must be positive",
			errz.ErrInvalidValue))
	}
	if h.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: HTTP write timeout must be positive",
			errz.ErrInvalidValue))
	}
	if h.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: HTTP idle timeout must be positive",
			errz.ErrInvalidValue))
	}
	if h.DrainTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: HTTP drain timeout must be positive",
			errz.ErrInvalidValue))
	}

	return errors.Join(errs...)
}

// Limits mirrors the engine safety ceilings for TOML loading.
type Limits struct {
	MaxLoops       int   `toml:"max_loops"`
	MaxFiles       int   `toml:"max_files"`
	MaxSweepBytes  int   `toml:"max_sweep_bytes"`
	MaxOutputBytes int64 `toml:"max_output_bytes"`
}

// Engine converts the configured ceilings to the engine's Limits.
func (l Limits) Engine() gcode.Limits {
	return gcode.Limits{
		MaxLoops:       l.MaxLoops,
		MaxFiles:       l.MaxFiles,
		MaxSweepBytes:  l.MaxSweepBytes,
		MaxOutputBytes: l.MaxOutputBytes,
	}
}

// Validate checks that every ceiling is positive.
func (l Limits) Validate() error {
	var errs []error

	if l.MaxLoops < 1 {
		errs = append(errs, fmt.Errorf("%w: max_loops must be at least 1",
			errz.ErrInvalidValue))
	}
	if l.MaxFiles < 1 {
		errs = append(errs, fmt.Errorf("%w: max_files must be at least 1",
			errz.ErrInvalidValue))
	}
	if l.MaxSweepBytes < 1 {
		errs = append(errs, fmt.Errorf("%w: max_sweep_bytes must be at least 1",
			errz.ErrInvalidValue))
	}
	if l.MaxOutputBytes < 1 {
		errs = append(errs, fmt.Errorf("%w: max_output_bytes must be at least 1",
			errz.ErrInvalidValue))
	}

	return errors.Join(errs...)
}

// Config is the printloop service configuration.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	LogLevel   string `toml:"log_level"`
	LogFormat  string `toml:"log_format"`
	LogOutput  string `toml:"log_output"`

	// MaxUploadBytes bounds the multipart body accepted per request.
	MaxUploadBytes int64 `toml:"max_upload_bytes"`

	// JobHistory is how many finished jobs remain inspectable.
	JobHistory int `toml:"job_history"`

	// SweepGcode replaces the built-in sweep pattern for requests that do
	// not carry their own custom sweep. Empty keeps the default.
	SweepGcode string `toml:"sweep_gcode"`

	HTTP   HTTP   `toml:"http"`
	Limits Limits `toml:"limits"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	engineLimits := gcode.DefaultLimits()
	return &Config{
		ListenAddr:     DefaultListenAddr,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		MaxUploadBytes: DefaultMaxUploadBytes,
		JobHistory:     job.DefaultStoreSize,
		HTTP: HTTP{
			ReadTimeout:  Duration(DefaultHTTPReadTimeout),
			WriteTimeout: Duration(DefaultHTTPWriteTimeout),
			IdleTimeout:  Duration(DefaultHTTPIdleTimeout),
			DrainTimeout: Duration(DefaultHTTPDrainTimeout),
		},
		Limits: Limits{
			MaxLoops:       engineLimits.MaxLoops,
			MaxFiles:       engineLimits.MaxFiles,
			MaxSweepBytes:  engineLimits.MaxSweepBytes,
			MaxOutputBytes: engineLimits.MaxOutputBytes,
		},
	}
}

// NewConfig loads the configuration from a TOML file layered over the
// defaults. An empty path returns the defaults unchanged.
func NewConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errz.ErrFailedToLoadConfig, err)
	}

	if err := gotoml.Unmarshal(source, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errz.ErrParseToml, err)
	}

	return cfg, nil
}

// Validate checks the whole configuration, joining every field error.
func (c *Config) Validate() error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("%w: listen_addr", errz.ErrMissingRequiredField))
	}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("%w: log_level %q", errz.ErrInvalidValue, c.LogLevel))
	}
	if !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errs = append(errs, fmt.Errorf("%w: log_format %q", errz.ErrInvalidValue, c.LogFormat))
	}
	if c.MaxUploadBytes < 1 {
		errs = append(errs, fmt.Errorf("%w: max_upload_bytes must be at least 1",
			errz.ErrInvalidValue))
	}
	if c.JobHistory < 1 {
		errs = append(errs, fmt.Errorf("%w: job_history must be at least 1",
			errz.ErrInvalidValue))
	}
	if len(c.SweepGcode) > c.Limits.MaxSweepBytes {
		errs = append(errs, fmt.Errorf("%w: sweep_gcode is %d bytes, over max_sweep_bytes %d",
			errz.ErrInvalidValue, len(c.SweepGcode), c.Limits.MaxSweepBytes))
	}
	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Limits.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// String returns a one-line summary of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("printloop config (listen: %s, log: %s/%s, max loops: %d, max files: %d)",
		c.ListenAddr, c.LogLevel, c.LogFormat, c.Limits.MaxLoops, c.Limits.MaxFiles)
}

// ToTree returns a tree representation of the configuration
func (c *Config) ToTree() *fancy.ComponentTree {
	tree := fancy.NewComponentTree(fancy.RootStyle.Render("printloop"))
	tree.AddChild(fmt.Sprintf("Listen: %s", c.ListenAddr))
	tree.AddChild(fmt.Sprintf("Log: %s (%s)", c.LogLevel, c.LogFormat))

	limits := tree.AddBranch("Limits")
	limits.Child(fmt.Sprintf("Max loops: %d", c.Limits.MaxLoops))
	limits.Child(fmt.Sprintf("Max files: %d", c.Limits.MaxFiles))
	limits.Child(fmt.Sprintf("Max sweep bytes: %d", c.Limits.MaxSweepBytes))
	limits.Child(fmt.Sprintf("Max output bytes: %d", c.Limits.MaxOutputBytes))

	httpBranch := tree.AddBranch("HTTP")
	httpBranch.Child(fmt.Sprintf("Read timeout: %s", c.HTTP.ReadTimeout))
	httpBranch.Child(fmt.Sprintf("Write timeout: %s", c.HTTP.WriteTimeout))
	httpBranch.Child(fmt.Sprintf("Idle timeout: %s", c.HTTP.IdleTimeout))
	httpBranch.Child(fmt.Sprintf("Drain timeout: %s", c.HTTP.DrainTimeout))

	if c.SweepGcode != "" {
		tree.AddChild(fmt.Sprintf("Sweep override: %d bytes", len(c.SweepGcode)))
	}
	return tree
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
