package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRecorder struct {
	items []Item
	err   error
}

func (m *memoryRecorder) Record(_ context.Context, item Item) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, item)
	return nil
}

func TestValidateRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name    string
		root    string
		wantErr bool
	}{
		{"existing directory", dir, false},
		{"missing path", filepath.Join(dir, "missing"), true},
		{"regular file", file, true},
		{"empty path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, err := ValidateRoot(tt.root)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStagingRoot)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(abs))
		})
	}
}

func TestAllocator_NamesNeverRepeat(t *testing.T) {
	a, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 10000; i++ {
		name := a.NewName()
		_, dup := seen[name]
		require.False(t, dup, "name %s allocated twice", name)
		seen[name] = struct{}{}
	}
}

func TestAllocator_Reserve(t *testing.T) {
	root := t.TempDir()
	rec := &memoryRecorder{}
	a, err := New(root, rec)
	require.NoError(t, err)

	name, path, err := a.Reserve(context.Background(), PurposePayload, "/tmp/out.gl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.Root(), name), path)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "reserve must not create anything")

	require.Len(t, rec.items, 1)
	assert.Equal(t, name, rec.items[0].Name)
	assert.Equal(t, PurposePayload, rec.items[0].Purpose)
	assert.Equal(t, "/tmp/out.gl", rec.items[0].Archive)
}

func TestAllocator_ReserveRecorderFailure(t *testing.T) {
	boom := errors.New("ledger down")
	a, err := New(t.TempDir(), &memoryRecorder{err: boom})
	require.NoError(t, err)

	_, _, err = a.Reserve(context.Background(), PurposeBlob, "")
	assert.ErrorIs(t, err, boom)
}
