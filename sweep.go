package graphpack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hengadev/errsx"

	"github.com/hengadev/graphpack/internal/ledger"
)

// SweepStaging deletes the staged items recorded in cfg's ledger that were
// created before the cutoff, and forgets them. It returns how many items were
// removed; per-item failures are reported together and leave the item in
// the ledger for a later sweep.
//
// Picklers and unpicklers never delete what they stage. Run this only once no
// reader still needs files extracted before the cutoff.
func SweepStaging(ctx context.Context, cfg Config, before time.Time) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if cfg.LedgerPath == "" {
		return 0, fmt.Errorf("%w: no ledger path configured", ErrLedgerUnavailable)
	}

	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return 0, err
	}
	defer l.Close()

	items, err := l.Before(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	var (
		errs    errsx.Map
		removed int
	)
	for _, item := range items {
		if !filepath.IsAbs(item.Path) {
			errs.Set(item.Name, fmt.Errorf("refusing to remove relative path %q", item.Path))
			continue
		}
		if err := os.RemoveAll(item.Path); err != nil {
			errs.Set(item.Name, err)
			continue
		}
		if err := l.Forget(ctx, item.Name); err != nil {
			errs.Set(item.Name, err)
			continue
		}
		removed++
	}
	if !errs.IsEmpty() {
		return removed, fmt.Errorf("sweep staging: %w", errs.AsError())
	}
	return removed, nil
}
