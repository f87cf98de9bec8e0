package archive

import (
	"errors"
	"fmt"
)

var (
	ErrArchiveCreate      = errors.New("cannot create archive")
	ErrArchiveWrite       = errors.New("archive write failed")
	ErrArchiveClosed      = errors.New("archive is closed")
	ErrUnsupportedArchive = errors.New("unsupported archive")
	ErrUnsupportedVersion = errors.New("unsupported archive version")
	ErrChecksumMismatch   = errors.New("checksum mismatch: blob may be corrupted")
)

// acceptedKinds is quoted in every ErrUnsupportedArchive so users know what
// the loader can consume.
const acceptedKinds = "file must be one of (a) a graphpack archive, (b) an externalized-callable codec archive, or (c) a plain serialized blob"

// NewUnsupportedArchiveError reports a file the loader cannot consume.
func NewUnsupportedArchiveError(path, details string) error {
	return fmt.Errorf("%w: %s: %s; %s", ErrUnsupportedArchive, path, details, acceptedKinds)
}

func newWriteError(path, entry string, err error) error {
	return fmt.Errorf("%w: %s: entry %q: %w", ErrArchiveWrite, path, entry, err)
}
