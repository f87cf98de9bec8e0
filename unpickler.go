package graphpack

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hengadev/graphpack/internal/archive"
	"github.com/hengadev/graphpack/internal/monitoring"
	"github.com/hengadev/graphpack/internal/serialization"
)

// Unpickler reads object graphs back from an archive or a plain graph blob.
// References are resolved through the registry's reconstructors against the
// directory the archive was extracted into.
//
// An Unpickler is not safe for concurrent use.
type Unpickler struct {
	registry *Registry
	logger   *slog.Logger
	hook     ObservabilityHook

	source *GraphSource
	codec  serialization.Codec
	file   *os.File
	dec    serialization.Decoder

	resolved int
	closed   bool
}

// NewUnpickler opens archivePath, extracting it when it is a container, and
// verifies the blob digest recorded in the archive unless disabled.
func NewUnpickler(archivePath string, registry *Registry, opts ...Option) (*Unpickler, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: registry cannot be nil", ErrInvalidConfiguration)
	}
	o, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	area, err := openStaging(o.config)
	if err != nil {
		return nil, err
	}
	defer area.close(o.logger)

	ctx := context.Background()
	start := time.Now()
	metadata := map[string]any{"archive": archivePath}
	o.hook.OnProcessStart(ctx, monitoring.OperationOpen, metadata)

	u, err := openUnpickler(ctx, archivePath, registry, o, area)
	if err != nil {
		o.hook.OnError(ctx, monitoring.OperationOpen, err, metadata)
	}
	o.hook.OnProcessComplete(ctx, monitoring.OperationOpen, time.Since(start), err, metadata)
	return u, err
}

func openUnpickler(ctx context.Context, archivePath string, registry *Registry, o *options, area *stagingArea) (*Unpickler, error) {
	src, err := openSource(ctx, archivePath, area.alloc, o.logger)
	if err != nil {
		return nil, err
	}

	if src.Kind == SourceArchive && src.Digest != "" && !o.config.SkipDigest {
		if err := archive.VerifyFile(src.BlobPath, src.Digest); err != nil {
			return nil, fmt.Errorf("verify %s: %w", src.Input, err)
		}
	}

	codec := o.config.codec()
	if src.Codec != "" {
		ct, err := serialization.ParseCodecType(src.Codec)
		if err != nil {
			return nil, archive.NewUnsupportedArchiveError(src.Input, err.Error())
		}
		codec = ct.CreateCodec()
	}

	f, err := os.Open(src.BlobPath)
	if err != nil {
		return nil, fmt.Errorf("open graph blob of %s: %w", src.Input, err)
	}

	return &Unpickler{
		registry: registry,
		logger:   o.logger.With("archive", src.Input),
		hook:     o.hook,
		source:   src,
		codec:    codec,
		file:     f,
		dec:      codec.NewDecoder(bufio.NewReader(f)),
	}, nil
}

// Source returns where the graph blob was read from.
func (u *Unpickler) Source() *GraphSource {
	return u.source
}

// Resolved returns how many references have been turned back into objects.
func (u *Unpickler) Resolved() int {
	return u.resolved
}

// Load decodes the next value and resolves every reference in it. It
// returns io.EOF once all values have been read.
func (u *Unpickler) Load(ctx context.Context) (any, error) {
	if u.closed {
		return nil, fmt.Errorf("%w: %s: load after close", ErrArchiveClosed, u.source.Input)
	}

	start := time.Now()
	metadata := map[string]any{"archive": u.source.Input, "source": u.source.Kind.String(), "codec": u.codec.Name().String()}
	u.hook.OnProcessStart(ctx, monitoring.OperationLoad, metadata)

	v, err := u.dec.Decode()
	if err == io.EOF {
		u.hook.OnProcessComplete(ctx, monitoring.OperationLoad, time.Since(start), nil, metadata)
		return nil, io.EOF
	}
	if err != nil {
		err = newUnpicklingError(u.source.Input, err)
	} else {
		v, err = serialization.Resolve(v, func(ref serialization.Reference) (any, error) {
			return u.resolve(ctx, ref)
		})
	}

	if err != nil {
		u.hook.OnError(ctx, monitoring.OperationLoad, err, metadata)
		v = nil
	}
	u.hook.OnProcessComplete(ctx, monitoring.OperationLoad, time.Since(start), err, metadata)
	return v, err
}

func (u *Unpickler) resolve(ctx context.Context, ref serialization.Reference) (any, error) {
	tag := TypeTag(ref.Tag)
	load, ok := u.registry.Reconstructor(tag)
	if !ok {
		return nil, newUnknownTypeTagError(u.source.Input, ref.Tag, ref.Path)
	}

	rel := path.Clean(ref.Path)
	if ref.Path == "" || rel == "." || path.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, "../") || strings.Contains(ref.Path, `\`) {
		return nil, newUnpicklingError(u.source.Input, fmt.Errorf("reference %s escapes the archive root", ref))
	}
	abs := filepath.Join(u.source.Root, filepath.FromSlash(rel))

	obj, err := load(tag, abs)
	if err != nil {
		return nil, newObjectLoadError(u.source.Input, tag, ref.Path, err)
	}

	u.resolved++
	u.hook.OnObject(ctx, monitoring.OperationLoad, ObjectEvent{Archive: u.source.Input, Tag: ref.Tag, Path: ref.Path})
	u.logger.Debug("reference resolved", "tag", tag, "path", abs)
	return obj, nil
}

// Close releases the graph blob. Extracted files stay under the staging root.
func (u *Unpickler) Close() error {
	if u.closed {
		return fmt.Errorf("%w: %s: unpickler already closed", ErrArchiveClosed, u.source.Input)
	}
	u.closed = true
	return u.file.Close()
}
