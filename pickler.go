package graphpack

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hengadev/errsx"

	"github.com/hengadev/graphpack/internal/archive"
	"github.com/hengadev/graphpack/internal/monitoring"
	"github.com/hengadev/graphpack/internal/serialization"
	"github.com/hengadev/graphpack/internal/staging"
)

// Pickler writes an object graph into an archive. Values the registry
// classifies are saved through their own Save method, appended to the archive
// under a fresh name and replaced by a reference in the graph blob; everything
// else goes through the generic codec.
//
// The same object met twice is saved twice. Staged files are never deleted;
// see SweepStaging.
//
// A Pickler is not safe for concurrent use.
type Pickler struct {
	path     string
	registry *Registry
	config   Config
	logger   *slog.Logger
	hook     ObservabilityHook

	area     *stagingArea
	writer   *archive.Writer
	codec    serialization.Codec
	blobName string
	blobPath string
	blobFile *os.File
	buf      *bufio.Writer
	enc      serialization.Encoder

	objects int
	err     error
	closed  bool
}

// NewPickler creates the archive at archivePath and stages the graph blob
// that Dump writes into. Nothing is readable until Close.
func NewPickler(archivePath string, registry *Registry, opts ...Option) (*Pickler, error) {
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

	w, err := archive.Create(archivePath, archive.WriterOptions{
		Compression: archive.Compression(o.config.Compression),
		Exclude:     o.config.ExcludePatterns,
		Logger:      o.logger,
	})
	if err != nil {
		area.close(o.logger)
		return nil, err
	}

	p := &Pickler{
		path:     w.Path(),
		registry: registry,
		config:   o.config,
		logger:   o.logger.With("archive", w.Path()),
		hook:     o.hook,
		area:     area,
		writer:   w,
		codec:    o.config.codec(),
	}

	name, blobPath, err := area.alloc.Reserve(context.Background(), staging.PurposeBlob, p.path)
	if err != nil {
		p.abort()
		return nil, err
	}
	f, err := os.Create(blobPath)
	if err != nil {
		p.abort()
		return nil, fmt.Errorf("stage graph blob for %s: %w", p.path, err)
	}
	p.blobName, p.blobPath, p.blobFile = name, blobPath, f
	p.buf = bufio.NewWriter(f)
	p.enc = p.codec.NewEncoder(p.buf)
	return p, nil
}

// Path returns the absolute archive path.
func (p *Pickler) Path() string {
	return p.path
}

// Objects returns how many objects have been externalized so far.
func (p *Pickler) Objects() int {
	return p.objects
}

// Dump appends v to the graph blob. It may be called several times; Load
// then returns the values in the same order.
//
// A failure seals the archive without a manifest. Every later call returns
// the same error.
func (p *Pickler) Dump(ctx context.Context, v any) error {
	if p.err != nil {
		return p.err
	}
	if p.closed {
		return fmt.Errorf("%w: %s: dump after close", ErrArchiveClosed, p.path)
	}

	start := time.Now()
	metadata := map[string]any{"archive": p.path, "codec": p.codec.Name().String()}
	p.hook.OnProcessStart(ctx, monitoring.OperationDump, metadata)

	out, err := serialization.Externalize(v, func(x any) (serialization.Reference, bool, error) {
		return p.persist(ctx, x)
	})
	if err != nil {
		err = fmt.Errorf("dump into %s: %w", p.path, err)
	} else if encErr := p.enc.Encode(out); encErr != nil {
		err = fmt.Errorf("encode graph for %s: %w", p.path, encErr)
	}

	if err != nil {
		p.fail(ctx, monitoring.OperationDump, err)
	}
	p.hook.OnProcessComplete(ctx, monitoring.OperationDump, time.Since(start), err, metadata)
	return err
}

func (p *Pickler) persist(ctx context.Context, x any) (serialization.Reference, bool, error) {
	tag, ok := p.registry.Classify(x)
	if !ok {
		return serialization.Reference{}, false, nil
	}
	obj := x.(Object)

	if limit := p.config.MinExternalSize; limit > 0 {
		if s, ok := x.(Sizer); ok && s.Size() < limit {
			p.logger.Debug("object kept inline", "tag", tag, "size", s.Size())
			return serialization.Reference{}, false, nil
		}
	}

	name, dir, err := p.area.alloc.Reserve(ctx, staging.PurposePayload, p.path)
	if err != nil {
		return serialization.Reference{}, false, err
	}
	if err := obj.Save(dir); err != nil {
		return serialization.Reference{}, false, newObjectSaveError(p.path, tag, name, err)
	}
	// An object with no state may leave nothing behind; keep an empty
	// directory so the reference still names an entry.
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return serialization.Reference{}, false, newObjectSaveError(p.path, tag, name, err)
		}
	}

	before := p.writer.Written()
	if err := p.writer.Append(name, dir); err != nil {
		return serialization.Reference{}, false, err
	}

	p.objects++
	event := ObjectEvent{Archive: p.path, Tag: string(tag), Path: name, Bytes: p.writer.Written() - before}
	p.hook.OnObject(ctx, monitoring.OperationDump, event)
	p.logger.Debug("object externalized", "tag", tag, "entry", name, "bytes", event.Bytes)

	return serialization.Reference{Tag: string(tag), Path: name}, true, nil
}

// Close flushes the graph blob, appends it to the archive, writes the
// manifest and seals the archive. A second call fails with ErrArchiveClosed;
// after a failed Dump it returns that failure.
func (p *Pickler) Close() error {
	if p.err != nil {
		return p.err
	}
	if p.closed {
		return fmt.Errorf("%w: %s: pickler already closed", ErrArchiveClosed, p.path)
	}
	p.closed = true

	ctx := context.Background()
	start := time.Now()
	metadata := map[string]any{"archive": p.path, "objects": p.objects}
	p.hook.OnProcessStart(ctx, monitoring.OperationClose, metadata)

	err := p.seal()
	if err != nil {
		p.fail(ctx, monitoring.OperationClose, err)
	} else if info, statErr := os.Stat(p.path); statErr == nil {
		metadata["archive_bytes"] = info.Size()
	}
	p.hook.OnProcessComplete(ctx, monitoring.OperationClose, time.Since(start), err, metadata)
	return err
}

func (p *Pickler) seal() error {
	if err := p.buf.Flush(); err != nil {
		return fmt.Errorf("flush graph blob for %s: %w", p.path, err)
	}
	if err := p.blobFile.Close(); err != nil {
		return fmt.Errorf("close graph blob for %s: %w", p.path, err)
	}
	p.blobFile = nil

	digest, err := archive.DigestFile(p.blobPath)
	if err != nil {
		return fmt.Errorf("digest graph blob for %s: %w", p.path, err)
	}
	info := archive.BlobInfo{Codec: p.codec.Name().String(), Digest: digest}
	if err := p.writer.AppendFile(p.blobName, p.blobPath, info.String()); err != nil {
		return err
	}
	if err := p.writer.WriteManifest(p.blobName, FormatVersion); err != nil {
		return err
	}
	if err := p.writer.Close(); err != nil {
		return err
	}

	p.area.close(p.logger)
	p.logger.Debug("archive sealed", "objects", p.objects, "entries", len(p.writer.Entries()))
	return nil
}

// fail records the first error and seals whatever has been written.
func (p *Pickler) fail(ctx context.Context, operation string, err error) {
	p.err = err
	p.closed = true
	p.hook.OnError(ctx, operation, err, map[string]any{"archive": p.path})
	p.abort()
}

func (p *Pickler) abort() {
	var errs errsx.Map
	if p.blobFile != nil {
		if err := p.blobFile.Close(); err != nil {
			errs.Set("close graph blob", err)
		}
		p.blobFile = nil
	}
	if err := p.writer.Abort(); err != nil {
		errs.Set("seal archive", err)
	}
	p.area.close(p.logger)
	if !errs.IsEmpty() {
		p.logger.Warn("cleanup after failure", "error", errs.AsError())
	}
}
