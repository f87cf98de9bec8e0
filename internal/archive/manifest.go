package archive

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// ManifestEntry is the fixed name of the manifest entry.
	ManifestEntry = "pickle_file"

	// FormatVersion is written in the manifest entry comment.
	FormatVersion = "1.0"
)

// SupportedVersions lists the manifest versions readers understand.
var SupportedVersions = []string{FormatVersion}

// IsSupportedVersion reports whether v can be read.
func IsSupportedVersion(v string) bool {
	return slices.Contains(SupportedVersions, strings.TrimSpace(v))
}

// Manifest is the decoded manifest entry.
type Manifest struct {
	BlobEntry string
	Version   string
}

// BlobInfo is the metadata carried in the blob entry comment.
type BlobInfo struct {
	Codec  string
	Digest string
}

// String renders the blob comment, e.g. "codec=gob blake3=af13...".
func (b BlobInfo) String() string {
	var parts []string
	if b.Codec != "" {
		parts = append(parts, "codec="+b.Codec)
	}
	if b.Digest != "" {
		parts = append(parts, "blake3="+b.Digest)
	}
	return strings.Join(parts, " ")
}

// ParseBlobInfo reads a blob comment. Unknown keys are ignored; a comment
// written by another producer simply yields an empty BlobInfo.
func ParseBlobInfo(comment string) BlobInfo {
	var info BlobInfo
	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "codec":
			info.Codec = value
		case "blake3":
			info.Digest = value
		}
	}
	return info
}

func validateEntryName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty entry name")
	case name == ManifestEntry:
		return fmt.Errorf("entry name %q is reserved for the manifest", name)
	case strings.HasPrefix(name, "/") || strings.Contains(name, `\`):
		return fmt.Errorf("entry name %q must be a relative slash-separated path", name)
	case slices.Contains(strings.Split(name, "/"), ".."):
		return fmt.Errorf("entry name %q escapes the archive root", name)
	}
	return nil
}
