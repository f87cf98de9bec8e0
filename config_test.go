package graphpack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateAppliesDefaults(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, os.TempDir(), cfg.StagingRoot)
	assert.Equal(t, DefaultCodec, cfg.Codec)
	assert.Equal(t, DefaultCompression, cfg.Compression)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, cfg, DefaultConfig())
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{
		Codec:           "xml",
		Compression:     "lzma",
		MinExternalSize: -1,
		ExcludePatterns: []string{"[unclosed"},
		LogLevel:        "loud",
		LogFormat:       "yaml",
	}

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	for _, field := range []string{"codec", "compression", "min_external_size", "exclude_patterns", "log_level", "log_format"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	staging := t.TempDir()
	t.Setenv(EnvStagingRoot, staging)
	t.Setenv(EnvCodec, "CBOR")
	t.Setenv(EnvCompression, "zstd")
	t.Setenv(EnvMinExternalSize, "4096")
	t.Setenv(EnvExcludePatterns, "*.tmp, cache ,")
	t.Setenv(EnvSkipDigest, "true")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLedgerPath, "")

	cfg, err := LoadConfigFromEnvironment()
	require.NoError(t, err)

	assert.Equal(t, staging, cfg.StagingRoot)
	assert.Equal(t, "CBOR", cfg.Codec)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, int64(4096), cfg.MinExternalSize)
	assert.Equal(t, []string{"*.tmp", "cache"}, cfg.ExcludePatterns)
	assert.True(t, cfg.SkipDigest)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.LedgerPath)
}

func TestLoadConfigFromEnvironment_InvalidValues(t *testing.T) {
	t.Setenv(EnvMinExternalSize, "big")
	_, err := LoadConfigFromEnvironment()
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	t.Setenv(EnvMinExternalSize, "")
	t.Setenv(EnvSkipDigest, "maybe")
	_, err = LoadConfigFromEnvironment()
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	t.Setenv(EnvSkipDigest, "")
	t.Setenv(EnvCodec, "protobuf")
	_, err = LoadConfigFromEnvironment()
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestLoadConfigFromEnvironment_EnvFile(t *testing.T) {
	// Register cleanups that restore the original state, then unset so the
	// file can provide the values.
	t.Setenv(EnvCompression, "")
	t.Setenv(EnvLedgerPath, "")
	require.NoError(t, os.Unsetenv(EnvCompression))
	require.NoError(t, os.Unsetenv(EnvLedgerPath))
	t.Setenv(EnvCodec, "gob")

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "GRAPHPACK_COMPRESSION=store\nGRAPHPACK_LEDGER_PATH=/var/lib/graphpack/ledger.db\nGRAPHPACK_CODEC=cbor\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	cfg, err := LoadConfigFromEnvironment(envFile)
	require.NoError(t, err)
	assert.Equal(t, "store", cfg.Compression)
	assert.Equal(t, "/var/lib/graphpack/ledger.db", cfg.LedgerPath)
	// Variables already set win over the file.
	assert.Equal(t, "gob", cfg.Codec)

	_, err = LoadConfigFromEnvironment(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphpack.yaml")
	content := `staging_root: ` + dir + `
codec: cbor
compression: store
min_external_size: 1024
exclude_patterns:
  - "*.tmp"
  - "*.lock"
skip_digest: true
log_level: info
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		StagingRoot:     dir,
		Codec:           "cbor",
		Compression:     "store",
		MinExternalSize: 1024,
		ExcludePatterns: []string{"*.tmp", "*.lock"},
		SkipDigest:      true,
		LogLevel:        "info",
		LogFormat:       DefaultLogFormat,
	}, cfg)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("codec: [gob"), 0o644))
	_, err = LoadConfigFile(path)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	require.NoError(t, os.WriteFile(path, []byte("compression: brotli\n"), 0o644))
	_, err = LoadConfigFile(path)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestOptions(t *testing.T) {
	root := t.TempDir()
	collector := NewInMemoryMetricsCollector()

	o, err := resolveOptions([]Option{
		WithConfig(Config{Codec: "cbor", ExcludePatterns: []string{"*.a"}}),
		WithStagingRoot(root),
		WithCompression("zstd"),
		WithMinExternalSize(10),
		WithExcludePatterns("*.b"),
		WithLedgerPath("ledger.db"),
		WithSkipDigest(true),
		WithMetricsCollector(collector),
	})
	require.NoError(t, err)

	assert.Equal(t, root, o.config.StagingRoot)
	assert.Equal(t, "cbor", o.config.Codec)
	assert.Equal(t, "zstd", o.config.Compression)
	assert.Equal(t, int64(10), o.config.MinExternalSize)
	assert.Equal(t, []string{"*.a", "*.b"}, o.config.ExcludePatterns)
	assert.Equal(t, "ledger.db", o.config.LedgerPath)
	assert.True(t, o.config.SkipDigest)
	assert.NotNil(t, o.logger)
	assert.IsType(t, &MetricsObservabilityHook{}, o.hook)

	o, err = resolveOptions(nil)
	require.NoError(t, err)
	assert.IsType(t, NoOpObservabilityHook{}, o.hook)

	for _, opt := range []Option{WithStagingRoot(" "), WithLogger(nil), WithMetricsCollector(nil), WithObservabilityHook(nil)} {
		_, err := resolveOptions([]Option{opt})
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	}
}
