package graphpack

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gobwas/glob"
	"github.com/hengadev/errsx"

	"github.com/hengadev/graphpack/internal/archive"
	"github.com/hengadev/graphpack/internal/monitoring"
	"github.com/hengadev/graphpack/internal/serialization"
)

// Config holds the settings shared by picklers and unpicklers.
//
// The zero value is usable once Validate has applied defaults. Config can be
// built in code, read from the environment with LoadConfigFromEnvironment or
// read from a YAML file with LoadConfigFile.
//
// Example:
//
//	cfg := graphpack.Config{
//	    StagingRoot: "/var/tmp/graphpack",
//	    Codec:       "cbor",
//	    Compression: "zstd",
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// StagingRoot is the directory that receives staged payloads, graph
	// blobs and extracted archives. It must exist. Default: os.TempDir().
	StagingRoot string `yaml:"staging_root"`

	// Codec names the generic value codec: "gob" (default) or "cbor".
	Codec string `yaml:"codec"`

	// Compression is the zip method for archive entries: "deflate"
	// (default), "store" or "zstd".
	Compression string `yaml:"compression"`

	// MinExternalSize keeps objects implementing Sizer inline when they
	// report fewer bytes than this. Zero externalizes everything.
	MinExternalSize int64 `yaml:"min_external_size"`

	// ExcludePatterns are glob patterns; files produced by Object.Save that
	// match one are left out of the archive.
	ExcludePatterns []string `yaml:"exclude_patterns"`

	// LedgerPath, when set, is a SQLite file recording every staged item so
	// that SweepStaging can remove them later.
	LedgerPath string `yaml:"ledger_path"`

	// SkipDigest disables verification of the blob digest on load.
	SkipDigest bool `yaml:"skip_digest"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.StagingRoot == "" {
		c.StagingRoot = os.TempDir()
	}
	if c.Codec == "" {
		c.Codec = DefaultCodec
	}
	if c.Compression == "" {
		c.Compression = DefaultCompression
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// Validate applies defaults to empty fields and checks every field. All
// problems are reported together.
func (c *Config) Validate() error {
	c.applyDefaults()

	var errs errsx.Map
	if _, err := serialization.ParseCodecType(c.Codec); err != nil {
		errs.Set("codec", fmt.Errorf("codec: %w", err))
	}
	if !archive.Compression(c.Compression).IsValid() {
		errs.Set("compression", fmt.Errorf("compression: unsupported method %q (supported: deflate, store, zstd)", c.Compression))
	}
	if c.MinExternalSize < 0 {
		errs.Set("min_external_size", fmt.Errorf("min_external_size: must not be negative, got %d", c.MinExternalSize))
	}
	for _, pattern := range c.ExcludePatterns {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs.Set(fmt.Sprintf("exclude_patterns %q", pattern), fmt.Errorf("exclude_patterns: %q: %w", pattern, err))
		}
	}
	if _, err := monitoring.ParseLogLevel(c.LogLevel); err != nil {
		errs.Set("log_level", fmt.Errorf("log_level: %w", err))
	}
	if _, err := monitoring.ParseLogFormat(c.LogFormat); err != nil {
		errs.Set("log_format", fmt.Errorf("log_format: %w", err))
	}

	if !errs.IsEmpty() {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errs.AsError())
	}
	return nil
}

func (c Config) codec() serialization.Codec {
	ct, err := serialization.ParseCodecType(c.Codec)
	if err != nil {
		ct = serialization.GOB
	}
	return ct.CreateCodec()
}

func (c Config) newLogger() *slog.Logger {
	level, _ := monitoring.ParseLogLevel(c.LogLevel)
	format, _ := monitoring.ParseLogFormat(c.LogFormat)
	return monitoring.NewLogger(monitoring.LoggerConfig{
		Level:  level,
		Format: format,
		Fields: map[string]any{"service": "graphpack", "version": Version},
	})
}
