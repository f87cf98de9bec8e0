// Package staging hands out collision-free names under a shared staging root.
//
// The root is shared mutable state between concurrent archive operations, in
// this process or in cooperating ones. Uniqueness is probabilistic: every name
// is a random UUID. Nothing here deletes staged items; cleanup belongs to the
// environment (see ledger and the library's SweepStaging).
package staging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidStagingRoot = errors.New("invalid staging root")

// Purpose records why a staged item was created.
type Purpose string

const (
	PurposeBlob    Purpose = "blob"
	PurposePayload Purpose = "payload"
	PurposeExtract Purpose = "extract"
)

// Item describes one staged file or directory.
type Item struct {
	Name      string
	Path      string
	Purpose   Purpose
	Archive   string
	CreatedAt time.Time
}

// Recorder keeps track of staged items for later cleanup.
type Recorder interface {
	Record(ctx context.Context, item Item) error
}

// Allocator generates staged names under a validated root.
type Allocator struct {
	root     string
	recorder Recorder
}

// New validates root and returns an allocator for it. recorder may be nil.
func New(root string, recorder Recorder) (*Allocator, error) {
	abs, err := ValidateRoot(root)
	if err != nil {
		return nil, err
	}
	return &Allocator{root: abs, recorder: recorder}, nil
}

// ValidateRoot returns the absolute form of root, failing with
// ErrInvalidStagingRoot if it does not exist or is not a directory.
func ValidateRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidStagingRoot)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidStagingRoot, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a valid path: %v", ErrInvalidStagingRoot, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidStagingRoot, abs)
	}
	return abs, nil
}

// Root returns the absolute staging root.
func (a *Allocator) Root() string {
	return a.root
}

// NewName returns a fresh name suitable for a file or directory.
func (a *Allocator) NewName() string {
	return uuid.NewString()
}

// Path returns the absolute path of name under the root.
func (a *Allocator) Path(name string) string {
	return filepath.Join(a.root, name)
}

// Reserve allocates a name and records it when a recorder is configured.
// It returns the name and its absolute path; nothing is created on disk.
func (a *Allocator) Reserve(ctx context.Context, purpose Purpose, archive string) (string, string, error) {
	name := a.NewName()
	path := a.Path(name)
	if a.recorder != nil {
		item := Item{
			Name:      name,
			Path:      path,
			Purpose:   purpose,
			Archive:   archive,
			CreatedAt: time.Now().UTC(),
		}
		if err := a.recorder.Record(ctx, item); err != nil {
			return "", "", fmt.Errorf("record staged item %s: %w", name, err)
		}
	}
	return name, path, nil
}
