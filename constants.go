package graphpack

import "github.com/hengadev/graphpack/internal/archive"

// Archive format constants
const (
	// ManifestEntry is the fixed name of the manifest entry in every archive.
	ManifestEntry = archive.ManifestEntry

	// FormatVersion is the manifest version written by this package.
	FormatVersion = archive.FormatVersion
)

// Environment variable names
const (
	// EnvStagingRoot is the directory used for staged payloads and extraction.
	// Default: os.TempDir()
	EnvStagingRoot = "GRAPHPACK_STAGING_ROOT"

	// EnvCodec selects the generic value codec ("gob" or "cbor").
	EnvCodec = "GRAPHPACK_CODEC"

	// EnvCompression selects the zip method ("deflate", "store" or "zstd").
	EnvCompression = "GRAPHPACK_COMPRESSION"

	// EnvMinExternalSize is the size in bytes under which objects implementing
	// Sizer stay inline.
	EnvMinExternalSize = "GRAPHPACK_MIN_EXTERNAL_SIZE"

	// EnvExcludePatterns is a comma-separated list of glob patterns matched
	// against files produced by Object.Save.
	EnvExcludePatterns = "GRAPHPACK_EXCLUDE_PATTERNS"

	// EnvLedgerPath is the SQLite file recording staged items.
	EnvLedgerPath = "GRAPHPACK_LEDGER_PATH"

	// EnvSkipDigest disables blob digest verification on load.
	EnvSkipDigest = "GRAPHPACK_SKIP_DIGEST"

	EnvLogLevel  = "GRAPHPACK_LOG_LEVEL"
	EnvLogFormat = "GRAPHPACK_LOG_FORMAT"
)

// Default values
const (
	DefaultCodec       = "gob"
	DefaultCompression = "deflate"
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
)
