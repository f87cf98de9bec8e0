package graphpack

import (
	"fmt"
	"path/filepath"

	"github.com/hengadev/graphpack/internal/archive"
)

// ArchiveInfo describes a container without extracting it.
type ArchiveInfo struct {
	Path      string
	Version   string
	BlobEntry string
	Codec     string
	Digest    string
	// Payloads are the top-level names of externalized objects.
	Payloads []string
	// Entries lists every entry in archive order.
	Entries []string
}

// InspectArchive reads the manifest and entry list of the container at path.
// Files that are not containers fail with ErrUnsupportedArchive.
func InspectArchive(path string) (*ArchiveInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	ok, err := archive.Sniff(abs)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", abs, err)
	}
	if !ok {
		return nil, archive.NewUnsupportedArchiveError(abs, "not a zip container")
	}

	r, err := archive.OpenReader(abs)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	manifest := r.Manifest()
	blob := r.BlobInfo()
	return &ArchiveInfo{
		Path:      abs,
		Version:   manifest.Version,
		BlobEntry: manifest.BlobEntry,
		Codec:     blob.Codec,
		Digest:    blob.Digest,
		Payloads:  r.PayloadRoots(),
		Entries:   r.Entries(),
	}, nil
}
