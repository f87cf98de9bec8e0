package graphpack

// This file provides test utilities for users of the package and for
// examples: an in-memory externally-managed object and a registry that
// knows it.

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
)

// memoryStateFile is the single file a MemoryObject saves.
const memoryStateFile = "state.json"

func init() {
	// Objects kept inline by the minimum external size travel through the
	// generic codec and must be known to gob.
	gob.Register(&MemoryObject{})
}

// MemoryObject is a minimal externally-managed object holding a list of
// integers. Two MemoryObjects are equivalent when their states are equal.
type MemoryObject struct {
	State []int
}

// NewMemoryObject returns a MemoryObject holding a copy of state.
func NewMemoryObject(state ...int) *MemoryObject {
	return &MemoryObject{State: slices.Clone(state)}
}

// Save writes the state as JSON into dir, creating it.
func (m *MemoryObject) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(m.State)
	if err != nil {
		return fmt.Errorf("failed to marshal memory object state: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, memoryStateFile), data, 0o644)
}

// Size reports the size of the state in bytes.
func (m *MemoryObject) Size() int64 {
	return int64(len(m.State)) * 8
}

// Equal reports whether m and other hold the same state.
func (m *MemoryObject) Equal(other *MemoryObject) bool {
	if m == nil || other == nil {
		return m == other
	}
	return slices.Equal(m.State, other.State)
}

// LoadMemoryObject is the LoadFunc for MemoryObject.
func LoadMemoryObject(tag TypeTag, dir string) (Object, error) {
	data, err := os.ReadFile(filepath.Join(dir, memoryStateFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s object: %w", tag, err)
	}
	m := &MemoryObject{}
	if err := json.Unmarshal(data, &m.State); err != nil {
		return nil, fmt.Errorf("failed to decode %s object: %w", tag, err)
	}
	return m, nil
}

// NewTestRegistry returns a registry where *MemoryObject classifies as
// TagColumn.
func NewTestRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(Kind{
		Tag:   TagColumn,
		Types: []reflect.Type{reflect.TypeFor[*MemoryObject]()},
		Load:  LoadMemoryObject,
	})
	return r
}
