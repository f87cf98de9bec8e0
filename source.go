package graphpack

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hengadev/graphpack/internal/archive"
	"github.com/hengadev/graphpack/internal/ledger"
	"github.com/hengadev/graphpack/internal/staging"
)

// SourceKind tells how a GraphSource was obtained.
type SourceKind int

const (
	// SourcePlain is a bare graph blob read in place.
	SourcePlain SourceKind = iota
	// SourceArchive is a container extracted under the staging root.
	SourceArchive
)

func (k SourceKind) String() string {
	switch k {
	case SourcePlain:
		return "plain"
	case SourceArchive:
		return "archive"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// GraphSource locates the graph blob of an input file.
//
// For SourceArchive, Root is the directory the container was extracted into
// and references resolve below it. For SourcePlain, BlobPath is the input
// file itself and Root is its directory.
type GraphSource struct {
	Kind     SourceKind
	Input    string
	Root     string
	BlobPath string
	Version  string
	Codec    string
	Digest   string
}

// Open probes path and returns where its graph blob lives. A container is
// validated and fully extracted into a fresh directory under the staging
// root; anything else is returned as a plain blob, unchanged. Extracted
// files are left in place.
func Open(path string, opts ...Option) (*GraphSource, error) {
	o, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	area, err := openStaging(o.config)
	if err != nil {
		return nil, err
	}
	defer area.close(o.logger)
	return openSource(context.Background(), path, area.alloc, o.logger)
}

func openSource(ctx context.Context, path string, alloc *staging.Allocator, logger *slog.Logger) (*GraphSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, archive.NewUnsupportedArchiveError(abs, "is a directory")
	}

	isContainer, err := archive.Sniff(abs)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", abs, err)
	}
	if !isContainer {
		logger.Debug("reading plain graph blob", "path", abs)
		return &GraphSource{
			Kind:     SourcePlain,
			Input:    abs,
			Root:     filepath.Dir(abs),
			BlobPath: abs,
		}, nil
	}

	r, err := archive.OpenReader(abs)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	_, dir, err := alloc.Reserve(ctx, staging.PurposeExtract, abs)
	if err != nil {
		return nil, err
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create extraction directory for %s: %w", abs, err)
	}
	if err := r.ExtractAll(dir); err != nil {
		return nil, err
	}

	manifest := r.Manifest()
	blob := r.BlobInfo()
	logger.Debug("archive extracted", "archive", abs, "root", dir, "entries", len(r.Entries()), "version", manifest.Version)

	return &GraphSource{
		Kind:     SourceArchive,
		Input:    abs,
		Root:     dir,
		BlobPath: filepath.Join(dir, filepath.FromSlash(manifest.BlobEntry)),
		Version:  manifest.Version,
		Codec:    blob.Codec,
		Digest:   blob.Digest,
	}, nil
}

// stagingArea bundles the allocator with the ledger that records its names.
type stagingArea struct {
	alloc  *staging.Allocator
	ledger *ledger.Ledger
}

func openStaging(cfg Config) (*stagingArea, error) {
	if _, err := staging.ValidateRoot(cfg.StagingRoot); err != nil {
		return nil, err
	}

	area := &stagingArea{}
	var recorder staging.Recorder
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		area.ledger = l
		recorder = l
	}

	alloc, err := staging.New(cfg.StagingRoot, recorder)
	if err != nil {
		area.close(nil)
		return nil, err
	}
	area.alloc = alloc
	return area, nil
}

func (a *stagingArea) close(logger *slog.Logger) {
	if a.ledger == nil {
		return
	}
	if err := a.ledger.Close(); err != nil && logger != nil {
		logger.Warn("closing staging ledger", "error", err)
	}
	a.ledger = nil
}
