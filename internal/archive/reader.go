package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// maxManifestSize bounds the manifest body; it only ever holds an entry name.
const maxManifestSize = 4096

var signatures = [][]byte{
	[]byte("PK\x03\x04"), // local file header
	[]byte("PK\x05\x06"), // end of central directory (empty archive)
}

// Sniff reports whether the file at path is a zip container. It checks the
// leading signature and then that the central directory parses; anything
// else, including a blob that happens to start with "PK", is reported as not
// a container.
func Sniff(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 4)
	if _, err := io.ReadFull(f, head); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	if !slices.ContainsFunc(signatures, func(sig []byte) bool { return bytes.Equal(head, sig) }) {
		return false, nil
	}

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if _, err := zip.NewReader(f, info.Size()); err != nil {
		return false, nil
	}
	return true, nil
}

// Reader gives read access to a container with a valid manifest.
type Reader struct {
	path     string
	zr       *zip.ReadCloser
	manifest Manifest
	blob     *zip.File
}

// OpenReader opens a container and validates its manifest. It fails with
// ErrUnsupportedArchive when the manifest is missing or names an absent blob,
// and with ErrUnsupportedVersion for versions it does not understand.
func OpenReader(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, NewUnsupportedArchiveError(path, fmt.Sprintf("cannot read container: %v", err))
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	r := &Reader{path: path, zr: zr}
	if err := r.readManifest(); err != nil {
		zr.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) readManifest() error {
	var manifest *zip.File
	for _, f := range r.zr.File {
		if f.Name != ManifestEntry {
			continue
		}
		if manifest != nil {
			return NewUnsupportedArchiveError(r.path, "more than one manifest entry")
		}
		manifest = f
	}
	if manifest == nil {
		return NewUnsupportedArchiveError(r.path, "no manifest entry")
	}

	if !IsSupportedVersion(manifest.Comment) {
		return fmt.Errorf("%w: %s: version %q (supported: %s)",
			ErrUnsupportedVersion, r.path, manifest.Comment, strings.Join(SupportedVersions, ", "))
	}

	rc, err := manifest.Open()
	if err != nil {
		return NewUnsupportedArchiveError(r.path, fmt.Sprintf("cannot read manifest: %v", err))
	}
	defer rc.Close()
	body, err := io.ReadAll(io.LimitReader(rc, maxManifestSize+1))
	if err != nil {
		return NewUnsupportedArchiveError(r.path, fmt.Sprintf("cannot read manifest: %v", err))
	}
	if len(body) > maxManifestSize {
		return NewUnsupportedArchiveError(r.path, "manifest too large")
	}

	blobName := strings.TrimSpace(string(body))
	var blob *zip.File
	for _, f := range r.zr.File {
		if f.Name != blobName {
			continue
		}
		if blob != nil {
			return NewUnsupportedArchiveError(r.path, fmt.Sprintf("blob entry %q appears more than once", blobName))
		}
		blob = f
	}
	if blobName == "" || blob == nil {
		return NewUnsupportedArchiveError(r.path, fmt.Sprintf("manifest names blob %q which is not in the archive", blobName))
	}

	r.manifest = Manifest{BlobEntry: blobName, Version: strings.TrimSpace(manifest.Comment)}
	r.blob = blob
	return nil
}

// Manifest returns the decoded manifest.
func (r *Reader) Manifest() Manifest {
	return r.manifest
}

// BlobInfo returns the metadata recorded on the blob entry.
func (r *Reader) BlobInfo() BlobInfo {
	return ParseBlobInfo(r.blob.Comment)
}

// Entries returns every entry name in archive order.
func (r *Reader) Entries() []string {
	names := make([]string, 0, len(r.zr.File))
	for _, f := range r.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// PayloadRoots returns the distinct top-level names that are neither the
// manifest nor the blob, in archive order. Each one is an externalized
// object's payload.
func (r *Reader) PayloadRoots() []string {
	var roots []string
	seen := make(map[string]struct{})
	for _, f := range r.zr.File {
		if f.Name == ManifestEntry || f.Name == r.manifest.BlobEntry {
			continue
		}
		root, _, _ := strings.Cut(f.Name, "/")
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	return roots
}

// ExtractAll writes every entry below dest, which must exist. Entries whose
// path would land outside dest are rejected.
func (r *Reader) ExtractAll(dest string) error {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	for _, f := range r.zr.File {
		if err := r.extract(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) extract(f *zip.File, dest string) error {
	if f.Name == "" || strings.HasPrefix(f.Name, "/") || strings.Contains(f.Name, `\`) {
		return NewUnsupportedArchiveError(r.path, fmt.Sprintf("illegal entry name %q", f.Name))
	}
	target := filepath.Join(dest, filepath.FromSlash(f.Name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return NewUnsupportedArchiveError(r.path, fmt.Sprintf("entry %q escapes the extraction root", f.Name))
	}

	if strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("extract %s from %s: %w", f.Name, r.path, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("extract %s from %s: %w", f.Name, r.path, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("extract %s from %s: %w", f.Name, r.path, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("extract %s from %s: %w", f.Name, r.path, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s from %s: %w", f.Name, r.path, err)
	}
	return out.Close()
}

// Close releases the container.
func (r *Reader) Close() error {
	return r.zr.Close()
}
