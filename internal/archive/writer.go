package archive

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/hengadev/errsx"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the zip method used for archive entries.
type Compression string

const (
	CompressionDeflate Compression = "deflate"
	CompressionStore   Compression = "store"
	CompressionZstd    Compression = "zstd"
)

// IsValid checks if the compression is supported
func (c Compression) IsValid() bool {
	_, err := c.method()
	return err == nil
}

func (c Compression) method() (uint16, error) {
	switch c {
	case CompressionDeflate, "":
		return zip.Deflate, nil
	case CompressionStore:
		return zip.Store, nil
	case CompressionZstd:
		return zstd.ZipMethodWinZip, nil
	default:
		return 0, fmt.Errorf("unsupported compression %q", string(c))
	}
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	Compression Compression
	// Exclude holds glob patterns; files under an appended tree whose relative
	// path or base name matches one are left out of the archive.
	Exclude []string
	Logger  *slog.Logger
}

// Writer owns a container file being built. It is not safe for concurrent use.
type Writer struct {
	path     string
	file     *os.File
	zw       *zip.Writer
	method   uint16
	exclude  []glob.Glob
	entries  map[string]struct{}
	manifest bool
	closed   bool
	written  int64
	logger   *slog.Logger
}

// Create opens path for writing and returns an empty container. Nothing is
// written until the first append.
func Create(path string, opts WriterOptions) (*Writer, error) {
	method, err := opts.Compression.method()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveCreate, path, err)
	}

	exclude := make([]glob.Glob, 0, len(opts.Exclude))
	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: %s: invalid exclude pattern %q: %v", ErrArchiveCreate, path, pattern, err)
		}
		exclude = append(exclude, g)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveCreate, path, err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveCreate, abs, err)
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Writer{
		path:    abs,
		file:    f,
		zw:      zw,
		method:  method,
		exclude: exclude,
		entries: make(map[string]struct{}),
		logger:  logger,
	}, nil
}

// Path returns the absolute container path.
func (w *Writer) Path() string {
	return w.path
}

// Written returns the number of uncompressed payload bytes appended so far.
func (w *Writer) Written() int64 {
	return w.written
}

// Entries returns the names of all entries appended so far, sorted.
func (w *Writer) Entries() []string {
	names := make([]string, 0, len(w.entries))
	for name := range w.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Append copies the file or directory tree at source into the archive under
// name. Directory trees keep their relative structure below name; directory
// entries are written too so empty trees survive extraction.
func (w *Writer) Append(name, source string) error {
	if w.closed {
		return fmt.Errorf("%w: %s: append %q", ErrArchiveClosed, w.path, name)
	}
	if err := validateEntryName(name); err != nil {
		return newWriteError(w.path, name, err)
	}

	info, err := os.Stat(source)
	if err != nil {
		return newWriteError(w.path, name, err)
	}
	if !info.IsDir() {
		return w.writeFile(name, source, info, "")
	}

	if err := w.writeDir(name + "/"); err != nil {
		return err
	}
	return filepath.WalkDir(source, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return newWriteError(w.path, name, err)
		}
		rel, err := filepath.Rel(source, p)
		if err != nil {
			return newWriteError(w.path, name, err)
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		entry := name + "/" + rel

		if w.excluded(rel) {
			w.logger.Debug("excluded from archive", "entry", entry)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			return w.writeDir(entry + "/")
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return newWriteError(w.path, entry, err)
			}
			return w.writeFile(entry, p, info, "")
		default:
			w.logger.Warn("skipping non-regular file", "entry", entry, "mode", d.Type().String())
			return nil
		}
	})
}

// AppendFile copies a single file into the archive under name, attaching
// comment to the entry.
func (w *Writer) AppendFile(name, source, comment string) error {
	if w.closed {
		return fmt.Errorf("%w: %s: append %q", ErrArchiveClosed, w.path, name)
	}
	if err := validateEntryName(name); err != nil {
		return newWriteError(w.path, name, err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return newWriteError(w.path, name, err)
	}
	if info.IsDir() {
		return newWriteError(w.path, name, fmt.Errorf("%s is a directory", source))
	}
	return w.writeFile(name, source, info, comment)
}

// WriteManifest writes the manifest entry naming blob as the graph blob.
// It may be called once, and blob must already be in the archive.
func (w *Writer) WriteManifest(blob, version string) error {
	if w.closed {
		return fmt.Errorf("%w: %s: write manifest", ErrArchiveClosed, w.path)
	}
	if w.manifest {
		return newWriteError(w.path, ManifestEntry, fmt.Errorf("manifest already written"))
	}
	if _, ok := w.entries[blob]; !ok {
		return newWriteError(w.path, ManifestEntry, fmt.Errorf("blob entry %q not in archive", blob))
	}

	hdr := &zip.FileHeader{
		Name:     ManifestEntry,
		Method:   zip.Store,
		Comment:  version,
		Modified: time.Now(),
	}
	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return newWriteError(w.path, ManifestEntry, err)
	}
	if _, err := io.WriteString(fw, blob); err != nil {
		return newWriteError(w.path, ManifestEntry, err)
	}
	w.manifest = true
	w.entries[ManifestEntry] = struct{}{}
	return nil
}

// Close writes the central directory and closes the file. Appends after
// Close fail with ErrArchiveClosed, as does a second Close.
func (w *Writer) Close() error {
	if w.closed {
		return fmt.Errorf("%w: %s", ErrArchiveClosed, w.path)
	}
	w.closed = true
	if err := w.finish(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrArchiveWrite, w.path, err)
	}
	return nil
}

// Abort seals the container after a failure so that whatever was appended
// so far stays readable. It is a no-op on a closed writer.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.finish()
}

func (w *Writer) finish() error {
	var errs errsx.Map
	if err := w.zw.Close(); err != nil {
		errs.Set("finalize central directory", err)
	}
	if err := w.file.Close(); err != nil {
		errs.Set("close archive file", err)
	}
	return errs.AsError()
}

func (w *Writer) excluded(rel string) bool {
	base := path.Base(rel)
	for _, g := range w.exclude {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Writer) claim(name string) error {
	if _, dup := w.entries[name]; dup {
		return newWriteError(w.path, name, fmt.Errorf("duplicate entry"))
	}
	w.entries[name] = struct{}{}
	return nil
}

func (w *Writer) writeDir(name string) error {
	if err := w.claim(name); err != nil {
		return err
	}
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: time.Now(),
	}
	hdr.SetMode(fs.ModeDir | 0o755)
	if _, err := w.zw.CreateHeader(hdr); err != nil {
		return newWriteError(w.path, name, err)
	}
	return nil
}

func (w *Writer) writeFile(name, source string, info fs.FileInfo, comment string) error {
	if strings.HasSuffix(name, "/") {
		return newWriteError(w.path, name, fmt.Errorf("file entry cannot end with a slash"))
	}
	if err := w.claim(name); err != nil {
		return err
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return newWriteError(w.path, name, err)
	}
	hdr.Name = name
	hdr.Method = w.method
	hdr.Comment = comment

	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return newWriteError(w.path, name, err)
	}

	f, err := os.Open(source)
	if err != nil {
		return newWriteError(w.path, name, err)
	}
	defer f.Close()

	n, err := io.Copy(fw, f)
	if err != nil {
		return newWriteError(w.path, name, err)
	}
	w.written += n
	w.logger.Debug("appended archive entry", "archive", w.path, "entry", name, "bytes", n)
	return nil
}
