package graphpack

import (
	"context"
	"errors"
	"io"
)

// Dump writes v to a new archive at path in one call.
//
// Example:
//
//	registry := graphpack.NewRegistry()
//	registry.MustRegister(graphpack.Kind{
//	    Tag:   graphpack.TagTable,
//	    Types: []reflect.Type{reflect.TypeFor[*Table]()},
//	    Load:  LoadTable,
//	})
//	err := graphpack.Dump(ctx, "report.gpk", map[string]any{"rows": table}, registry)
func Dump(ctx context.Context, path string, v any, registry *Registry, opts ...Option) error {
	p, err := NewPickler(path, registry, opts...)
	if err != nil {
		return err
	}
	if err := p.Dump(ctx, v); err != nil {
		return err
	}
	return p.Close()
}

// Load reads the first value from the archive or plain blob at path.
func Load(ctx context.Context, path string, registry *Registry, opts ...Option) (any, error) {
	u, err := NewUnpickler(path, registry, opts...)
	if err != nil {
		return nil, err
	}
	v, err := u.Load(ctx)
	if errors.Is(err, io.EOF) {
		err = newUnpicklingError(u.source.Input, io.ErrUnexpectedEOF)
	}
	if closeErr := u.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// LoadAll reads every value from the archive or plain blob at path, in the
// order they were dumped.
func LoadAll(ctx context.Context, path string, registry *Registry, opts ...Option) ([]any, error) {
	u, err := NewUnpickler(path, registry, opts...)
	if err != nil {
		return nil, err
	}
	defer u.Close()

	var values []any
	for {
		v, err := u.Load(ctx)
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
}
