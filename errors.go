package graphpack

import (
	"errors"
	"fmt"

	"github.com/hengadev/graphpack/internal/archive"
	"github.com/hengadev/graphpack/internal/ledger"
	"github.com/hengadev/graphpack/internal/serialization"
	"github.com/hengadev/graphpack/internal/staging"
)

var (
	// Staging errors
	ErrInvalidStagingRoot = staging.ErrInvalidStagingRoot
	ErrLedgerUnavailable  = ledger.ErrLedgerUnavailable

	// Archive errors
	ErrArchiveCreate      = archive.ErrArchiveCreate
	ErrArchiveWrite       = archive.ErrArchiveWrite
	ErrArchiveClosed      = archive.ErrArchiveClosed
	ErrUnsupportedArchive = archive.ErrUnsupportedArchive
	ErrUnsupportedVersion = archive.ErrUnsupportedVersion
	ErrChecksumMismatch   = archive.ErrChecksumMismatch

	// Graph errors
	ErrUnsupportedSlot = serialization.ErrUnsupportedSlot
	ErrGraphTooDeep    = serialization.ErrGraphTooDeep
	ErrUnknownTypeTag  = errors.New("unknown type tag")
	ErrUnpickling      = errors.New("unpickling failed")
	ErrObjectSave      = errors.New("object save failed")
	ErrObjectLoad      = errors.New("object reconstruction failed")

	// Registry and configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidTypeTag       = errors.New("invalid type tag")
	ErrDuplicateTypeTag     = errors.New("type tag already registered")
)

func newUnknownTypeTagError(archivePath string, tag, path string) error {
	return fmt.Errorf("%w: %q referenced by %q in %s", ErrUnknownTypeTag, tag, path, archivePath)
}

func newUnpicklingError(archivePath string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnpickling, archivePath, err)
}

func newObjectSaveError(archivePath string, tag TypeTag, name string, err error) error {
	return fmt.Errorf("%w: %s object staged as %q for %s: %w", ErrObjectSave, tag, name, archivePath, err)
}

func newObjectLoadError(archivePath string, tag TypeTag, path string, err error) error {
	return fmt.Errorf("%w: %s object at %q in %s: %w", ErrObjectLoad, tag, path, archivePath, err)
}

// IsArchiveError returns true if the error comes from creating, writing or
// reading an archive container.
func IsArchiveError(err error) bool {
	return errors.Is(err, ErrArchiveCreate) ||
		errors.Is(err, ErrArchiveWrite) ||
		errors.Is(err, ErrArchiveClosed) ||
		errors.Is(err, ErrUnsupportedArchive) ||
		errors.Is(err, ErrUnsupportedVersion)
}

// IsFormatError returns true if the input could be read but its content is
// not something the loader understands.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrUnsupportedArchive) ||
		errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrUnknownTypeTag) ||
		errors.Is(err, ErrUnpickling)
}

// IsConfigurationError returns true if the error represents a configuration problem.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrInvalidStagingRoot) ||
		errors.Is(err, ErrInvalidTypeTag) ||
		errors.Is(err, ErrDuplicateTypeTag) ||
		errors.Is(err, ErrLedgerUnavailable)
}

// IsGraphError returns true if the value handed to Dump cannot be pickled as is.
func IsGraphError(err error) bool {
	return errors.Is(err, ErrUnsupportedSlot) ||
		errors.Is(err, ErrGraphTooDeep)
}
