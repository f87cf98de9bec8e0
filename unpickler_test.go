package graphpack

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/graphpack/internal/archive"
	"github.com/hengadev/graphpack/internal/serialization"
)

type craftOptions struct {
	version      string
	skipManifest bool
	digest       string
	codec        string
}

// craftArchive builds an archive by hand around a gob blob holding value.
func craftArchive(t *testing.T, value any, opts craftOptions) string {
	t.Helper()
	dir := t.TempDir()

	blob := filepath.Join(dir, "blob")
	f, err := os.Create(blob)
	require.NoError(t, err)
	require.NoError(t, serialization.GOBCodec{}.NewEncoder(f).Encode(value))
	require.NoError(t, f.Close())

	digest := opts.digest
	if digest == "" {
		digest, err = archive.DigestFile(blob)
		require.NoError(t, err)
	}
	codec := opts.codec
	if codec == "" {
		codec = "gob"
	}
	version := opts.version
	if version == "" {
		version = FormatVersion
	}

	out := filepath.Join(dir, "crafted.gpk")
	w, err := archive.Create(out, archive.WriterOptions{})
	require.NoError(t, err)
	require.NoError(t, w.AppendFile("graph", blob, archive.BlobInfo{Codec: codec, Digest: digest}.String()))
	if !opts.skipManifest {
		require.NoError(t, w.WriteManifest("graph", version))
	}
	require.NoError(t, w.Close())
	return out
}

func TestLoad_UnknownTypeTag(t *testing.T) {
	tests := []struct {
		name string
		tag  string
	}{
		{"known but unregistered", string(TagGraph)},
		{"outside the tag set", "Bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := map[string]any{"x": serialization.Reference{Tag: tt.tag, Path: "payload"}}
			out := craftArchive(t, value, craftOptions{})

			_, err := Load(context.Background(), out, NewTestRegistry(), WithStagingRoot(t.TempDir()))
			require.ErrorIs(t, err, ErrUnknownTypeTag)
			assert.Contains(t, err.Error(), tt.tag)
			assert.Contains(t, err.Error(), "payload")
			assert.True(t, IsFormatError(err))
		})
	}
}

func TestLoad_MissingManifest(t *testing.T) {
	out := craftArchive(t, map[string]any{"a": 1}, craftOptions{skipManifest: true})

	_, err := Load(context.Background(), out, NewTestRegistry(), WithStagingRoot(t.TempDir()))
	require.ErrorIs(t, err, ErrUnsupportedArchive)
	assert.Contains(t, err.Error(), "plain serialized blob")
	assert.True(t, IsArchiveError(err))
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	out := craftArchive(t, map[string]any{"a": 1}, craftOptions{version: "2.0"})

	_, err := Load(context.Background(), out, NewTestRegistry(), WithStagingRoot(t.TempDir()))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	assert.Contains(t, err.Error(), "2.0")
}

func TestLoad_DigestMismatch(t *testing.T) {
	out := craftArchive(t, map[string]any{"a": 1}, craftOptions{digest: "00ff"})

	_, err := Load(context.Background(), out, NewTestRegistry(), WithStagingRoot(t.TempDir()))
	require.ErrorIs(t, err, ErrChecksumMismatch)

	got, err := Load(context.Background(), out, NewTestRegistry(), WithStagingRoot(t.TempDir()), WithSkipDigest(true))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, got)
}

func TestLoad_UnknownBlobCodec(t *testing.T) {
	out := craftArchive(t, map[string]any{"a": 1}, craftOptions{codec: "pickle5"})

	_, err := Load(context.Background(), out, NewTestRegistry(), WithStagingRoot(t.TempDir()))
	require.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestLoad_ReferenceEscapingRoot(t *testing.T) {
	for _, p := range []string{"../outside", "/etc", "."} {
		t.Run(p, func(t *testing.T) {
			value := []any{serialization.Reference{Tag: string(TagColumn), Path: p}}
			out := craftArchive(t, value, craftOptions{})

			_, err := Load(context.Background(), out, NewTestRegistry(), WithStagingRoot(t.TempDir()))
			require.ErrorIs(t, err, ErrUnpickling)
		})
	}
}

func TestLoad_PlainBlobFallback(t *testing.T) {
	dir := t.TempDir()
	blob := filepath.Join(dir, "plain.bin")
	f, err := os.Create(blob)
	require.NoError(t, err)
	value := map[string]any{"name": "plain", "n": 2}
	require.NoError(t, serialization.GOBCodec{}.NewEncoder(f).Encode(value))
	require.NoError(t, f.Close())

	staging := t.TempDir()
	u, err := NewUnpickler(blob, NewTestRegistry(), WithStagingRoot(staging))
	require.NoError(t, err)
	defer u.Close()

	src := u.Source()
	assert.Equal(t, SourcePlain, src.Kind)
	assert.Equal(t, blob, src.BlobPath)
	assert.Equal(t, "plain", src.Kind.String())

	got, err := u.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, value, got)

	_, err = u.Load(context.Background())
	assert.Equal(t, io.EOF, err)

	// Nothing is extracted for a plain blob.
	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad_CorruptPlainBlob(t *testing.T) {
	tests := map[string][]byte{
		"garbage":       []byte("definitely not a gob stream"),
		"zip signature": append([]byte("PK\x03\x04"), []byte("truncated local header")...),
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "blob")
			require.NoError(t, os.WriteFile(path, content, 0o644))

			src, err := Open(path, WithStagingRoot(t.TempDir()))
			require.NoError(t, err)
			assert.Equal(t, SourcePlain, src.Kind)

			_, err = Load(context.Background(), path, NewTestRegistry(), WithStagingRoot(t.TempDir()))
			require.ErrorIs(t, err, ErrUnpickling)
		})
	}
}

func TestLoad_EmptyBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Load(context.Background(), path, NewTestRegistry(), WithStagingRoot(t.TempDir()))
	require.ErrorIs(t, err, ErrUnpickling)
}

func TestOpen_ExtractsIntoFreshDirectory(t *testing.T) {
	staging := t.TempDir()
	out := filepath.Join(t.TempDir(), "x.gpk")
	require.NoError(t, Dump(context.Background(), out, map[string]any{"o": NewMemoryObject(1)}, NewTestRegistry(), WithStagingRoot(t.TempDir())))

	first, err := Open(out, WithStagingRoot(staging))
	require.NoError(t, err)
	second, err := Open(out, WithStagingRoot(staging))
	require.NoError(t, err)

	assert.Equal(t, SourceArchive, first.Kind)
	assert.NotEqual(t, first.Root, second.Root)
	assert.Equal(t, staging, filepath.Dir(first.Root))
	assert.FileExists(t, first.BlobPath)
	assert.Equal(t, FormatVersion, first.Version)
	assert.Equal(t, "gob", first.Codec)
}

func TestOpen_MissingInput(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.gpk"), WithStagingRoot(t.TempDir()))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInspectArchive_PlainBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("plain"), 0o644))

	_, err := InspectArchive(path)
	assert.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestUnpickler_LoadAfterClose(t *testing.T) {
	out := craftArchive(t, 1, craftOptions{})
	u, err := NewUnpickler(out, NewTestRegistry(), WithStagingRoot(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, u.Close())

	_, err = u.Load(context.Background())
	assert.ErrorIs(t, err, ErrArchiveClosed)
	assert.ErrorIs(t, u.Close(), ErrArchiveClosed)
}
