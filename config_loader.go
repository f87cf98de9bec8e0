package graphpack

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromEnvironment reads configuration from GRAPHPACK_* environment
// variables and returns a validated Config.
//
// envFiles are loaded first with godotenv; variables already present in the
// environment win over values from the files. Missing files are an error so a
// typo in a path does not silently fall back to defaults.
//
// Recognized variables:
//   - GRAPHPACK_STAGING_ROOT
//   - GRAPHPACK_CODEC
//   - GRAPHPACK_COMPRESSION
//   - GRAPHPACK_MIN_EXTERNAL_SIZE
//   - GRAPHPACK_EXCLUDE_PATTERNS (comma-separated)
//   - GRAPHPACK_LEDGER_PATH
//   - GRAPHPACK_SKIP_DIGEST
//   - GRAPHPACK_LOG_LEVEL, GRAPHPACK_LOG_FORMAT
//
// Example:
//
//	cfg, err := graphpack.LoadConfigFromEnvironment(".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, err := graphpack.NewPickler("model.gpk", registry, graphpack.WithConfig(cfg))
func LoadConfigFromEnvironment(envFiles ...string) (Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, fmt.Errorf("%w: load env files: %v", ErrInvalidConfiguration, err)
		}
	}

	cfg := Config{
		StagingRoot: os.Getenv(EnvStagingRoot),
		Codec:       os.Getenv(EnvCodec),
		Compression: os.Getenv(EnvCompression),
		LedgerPath:  os.Getenv(EnvLedgerPath),
		LogLevel:    os.Getenv(EnvLogLevel),
		LogFormat:   os.Getenv(EnvLogFormat),
	}

	if v := os.Getenv(EnvMinExternalSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, EnvMinExternalSize, err)
		}
		cfg.MinExternalSize = n
	}
	if v := os.Getenv(EnvSkipDigest); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, EnvSkipDigest, err)
		}
		cfg.SkipDigest = b
	}
	cfg.ExcludePatterns = splitList(os.Getenv(EnvExcludePatterns))

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration file and returns a validated Config.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config file: %v", ErrInvalidConfiguration, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse config file %s: %v", ErrInvalidConfiguration, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
