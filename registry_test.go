package graphpack

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeTag(t *testing.T) {
	for _, tag := range TypeTags() {
		assert.True(t, tag.Valid(), tag)
		parsed, err := ParseTypeTag(tag.String())
		require.NoError(t, err)
		assert.Equal(t, tag, parsed)
	}

	assert.Equal(t, "SFrame", string(TagTable))
	assert.Equal(t, "SArray", string(TagColumn))
	assert.Equal(t, "SGraph", string(TagGraph))
	assert.Equal(t, "Model", string(TagModel))

	assert.False(t, TypeTag("sframe").Valid())
	_, err := ParseTypeTag("Table")
	assert.ErrorIs(t, err, ErrInvalidTypeTag)
}

func TestRegistry_Register(t *testing.T) {
	memoryType := reflect.TypeFor[*MemoryObject]()

	tests := []struct {
		name    string
		kind    Kind
		wantErr error
	}{
		{
			name:    "tag outside the set",
			kind:    Kind{Tag: "Table", Types: []reflect.Type{memoryType}, Load: LoadMemoryObject},
			wantErr: ErrInvalidTypeTag,
		},
		{
			name:    "missing load function",
			kind:    Kind{Tag: TagTable, Types: []reflect.Type{memoryType}},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "neither types nor family",
			kind:    Kind{Tag: TagTable, Load: LoadMemoryObject},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "type not implementing Object",
			kind:    Kind{Tag: TagTable, Types: []reflect.Type{reflect.TypeFor[int]()}, Load: LoadMemoryObject},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "value receiver mismatch",
			kind:    Kind{Tag: TagTable, Types: []reflect.Type{reflect.TypeFor[MemoryObject]()}, Load: LoadMemoryObject},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "family is not an interface",
			kind:    Kind{Tag: TagModel, Family: memoryType, Load: LoadMemoryObject},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "family without Save",
			kind:    Kind{Tag: TagModel, Family: reflect.TypeFor[Sizer](), Load: LoadMemoryObject},
			wantErr: ErrInvalidConfiguration,
		},
		{
			name: "valid family",
			kind: Kind{Tag: TagModel, Family: reflect.TypeFor[model](), Load: loadLinearModel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.kind)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsConfigurationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_Duplicates(t *testing.T) {
	r := NewTestRegistry()

	err := r.Register(Kind{Tag: TagColumn, Types: []reflect.Type{reflect.TypeFor[*linearModel]()}, Load: loadLinearModel})
	assert.ErrorIs(t, err, ErrDuplicateTypeTag)

	err = r.Register(Kind{Tag: TagTable, Types: []reflect.Type{reflect.TypeFor[*MemoryObject]()}, Load: LoadMemoryObject})
	assert.ErrorIs(t, err, ErrDuplicateTypeTag)

	assert.Panics(t, func() {
		r.MustRegister(Kind{Tag: TagColumn, Types: []reflect.Type{reflect.TypeFor[*MemoryObject]()}, Load: LoadMemoryObject})
	})
}

func TestRegistry_Classify(t *testing.T) {
	r := NewTestRegistry()
	r.MustRegister(Kind{Tag: TagModel, Family: reflect.TypeFor[model](), Load: loadLinearModel})

	tests := []struct {
		name  string
		value any
		tag   TypeTag
		ok    bool
	}{
		{"registered type", NewMemoryObject(1), TagColumn, true},
		{"family member", &linearModel{Weight: 2}, TagModel, true},
		{"nil", nil, "", false},
		{"nil pointer", (*MemoryObject)(nil), "", false},
		{"non-pointer struct", MemoryObject{}, "", false},
		{"int", 3, "", false},
		{"map", map[string]any{"a": 1}, "", false},
		{"unregistered object", &scratchObject{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, ok := r.Classify(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.tag, tag)
		})
	}
}

func TestRegistry_ExactTypeWinsOverFamily(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Kind{Tag: TagModel, Family: reflect.TypeFor[model](), Load: loadLinearModel})
	r.MustRegister(Kind{Tag: TagGraph, Types: []reflect.Type{reflect.TypeFor[*linearModel]()}, Load: loadLinearModel})

	tag, ok := r.Classify(&linearModel{})
	require.True(t, ok)
	assert.Equal(t, TagGraph, tag)
}

func TestRegistry_Reconstructor(t *testing.T) {
	r := NewTestRegistry()

	load, ok := r.Reconstructor(TagColumn)
	require.True(t, ok)
	assert.NotNil(t, load)

	_, ok = r.Reconstructor(TagGraph)
	assert.False(t, ok)
	_, ok = r.Reconstructor("Bogus")
	assert.False(t, ok)

	assert.Equal(t, []TypeTag{TagColumn}, r.Tags())
}

func TestMemoryObject_SaveLoad(t *testing.T) {
	dir := t.TempDir() + "/obj"
	obj := NewMemoryObject(1, 2, 3)
	require.NoError(t, obj.Save(dir))

	loaded, err := LoadMemoryObject(TagColumn, dir)
	require.NoError(t, err)
	assert.True(t, obj.Equal(loaded.(*MemoryObject)))
	assert.Equal(t, int64(24), obj.Size())

	_, err = LoadMemoryObject(TagColumn, t.TempDir())
	assert.Error(t, err)
}
