package serialization

import (
	"errors"
	"fmt"
	"reflect"
)

// MaxDepth bounds graph traversal. Neither codec supports cyclic graphs, so a
// walk that goes this deep is treated as a cycle.
const MaxDepth = 1000

var (
	ErrUnsupportedSlot = errors.New("value slot cannot hold a persistent reference")
	ErrGraphTooDeep    = errors.New("object graph too deep")
)

// PersistFunc is consulted for every concrete value met while walking a graph.
// It returns the reference that replaces the value, or ok=false to keep the
// value inline.
type PersistFunc func(v any) (ref Reference, ok bool, err error)

// ResolveFunc turns a persistent reference back into a live value.
type ResolveFunc func(ref Reference) (any, error)

// Externalize returns a copy of v in which every value accepted by persist is
// replaced by its Reference. Subgraphs without replacements are shared with v,
// not copied. Replacements must land in slots that can hold a Reference
// (interface-typed map values, slice elements, struct fields), otherwise
// ErrUnsupportedSlot is returned.
func Externalize(v any, persist PersistFunc) (any, error) {
	w := walker{visit: func(rv reflect.Value) (reflect.Value, bool, error) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return rv, false, nil
		}
		ref, ok, err := persist(rv.Interface())
		if err != nil || !ok {
			return rv, false, err
		}
		return reflect.ValueOf(ref), true, nil
	}}
	return w.run(v)
}

// Resolve returns a copy of v in which every Reference is replaced by the value
// resolve returns for it.
func Resolve(v any, resolve ResolveFunc) (any, error) {
	w := walker{visit: func(rv reflect.Value) (reflect.Value, bool, error) {
		if rv.Type() != referenceType {
			return rv, false, nil
		}
		obj, err := resolve(rv.Interface().(Reference))
		if err != nil {
			return rv, false, err
		}
		return reflect.ValueOf(obj), true, nil
	}}
	return w.run(v)
}

type walker struct {
	visit func(reflect.Value) (reflect.Value, bool, error)
}

func (w *walker) run(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	out, changed, err := w.walk(reflect.ValueOf(v), 0)
	if err != nil {
		return nil, err
	}
	if !changed {
		return v, nil
	}
	if !out.IsValid() {
		return nil, nil
	}
	return out.Interface(), nil
}

func (w *walker) walk(v reflect.Value, depth int) (reflect.Value, bool, error) {
	if !v.IsValid() {
		return v, false, nil
	}
	if depth > MaxDepth {
		return v, false, fmt.Errorf("%w: more than %d levels", ErrGraphTooDeep, MaxDepth)
	}

	if v.Kind() != reflect.Interface && v.CanInterface() {
		out, replaced, err := w.visit(v)
		if err != nil || replaced {
			return out, replaced, err
		}
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v, false, nil
		}
		inner, changed, err := w.walk(v.Elem(), depth+1)
		if err != nil || !changed {
			return v, false, err
		}
		out := reflect.New(v.Type()).Elem()
		if err := assign(out, inner); err != nil {
			return v, false, err
		}
		return out, true, nil

	case reflect.Pointer:
		if v.IsNil() {
			return v, false, nil
		}
		inner, changed, err := w.walk(v.Elem(), depth+1)
		if err != nil || !changed {
			return v, false, err
		}
		out := reflect.New(v.Type().Elem())
		if err := assign(out.Elem(), inner); err != nil {
			return v, false, err
		}
		return out, true, nil

	case reflect.Map:
		return w.walkMap(v, depth)

	case reflect.Slice:
		if v.IsNil() || v.Type().Elem().Kind() == reflect.Uint8 {
			return v, false, nil
		}
		return w.walkSequence(v, depth, func() reflect.Value {
			out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
			reflect.Copy(out, v)
			return out
		})

	case reflect.Array:
		return w.walkSequence(v, depth, func() reflect.Value {
			out := reflect.New(v.Type()).Elem()
			out.Set(v)
			return out
		})

	case reflect.Struct:
		return w.walkStruct(v, depth)
	}

	return v, false, nil
}

func (w *walker) walkMap(v reflect.Value, depth int) (reflect.Value, bool, error) {
	if v.IsNil() {
		return v, false, nil
	}

	type change struct {
		key, val reflect.Value
	}
	var changes []change
	iter := v.MapRange()
	for iter.Next() {
		nv, changed, err := w.walk(iter.Value(), depth+1)
		if err != nil {
			return v, false, err
		}
		if changed {
			changes = append(changes, change{key: iter.Key(), val: nv})
		}
	}
	if len(changes) == 0 {
		return v, false, nil
	}

	elem := v.Type().Elem()
	out := reflect.MakeMapWithSize(v.Type(), v.Len())
	iter = v.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value())
	}
	for _, c := range changes {
		if !c.val.IsValid() {
			out.SetMapIndex(c.key, reflect.Zero(elem))
			continue
		}
		if !c.val.Type().AssignableTo(elem) {
			return v, false, slotError(elem, c.val.Type())
		}
		out.SetMapIndex(c.key, c.val)
	}
	return out, true, nil
}

func (w *walker) walkSequence(v reflect.Value, depth int, clone func() reflect.Value) (reflect.Value, bool, error) {
	var out reflect.Value
	for i := 0; i < v.Len(); i++ {
		nv, changed, err := w.walk(v.Index(i), depth+1)
		if err != nil {
			return v, false, err
		}
		if !changed {
			continue
		}
		if !out.IsValid() {
			out = clone()
		}
		if err := assign(out.Index(i), nv); err != nil {
			return v, false, err
		}
	}
	if !out.IsValid() {
		return v, false, nil
	}
	return out, true, nil
}

func (w *walker) walkStruct(v reflect.Value, depth int) (reflect.Value, bool, error) {
	t := v.Type()
	var out reflect.Value
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		nv, changed, err := w.walk(v.Field(i), depth+1)
		if err != nil {
			return v, false, err
		}
		if !changed {
			continue
		}
		if !out.IsValid() {
			out = reflect.New(t).Elem()
			out.Set(v)
		}
		if err := assign(out.Field(i), nv); err != nil {
			return v, false, fmt.Errorf("field %s.%s: %w", t.Name(), t.Field(i).Name, err)
		}
	}
	if !out.IsValid() {
		return v, false, nil
	}
	return out, true, nil
}

func assign(dst, src reflect.Value) error {
	if !src.IsValid() {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if !src.Type().AssignableTo(dst.Type()) {
		return slotError(dst.Type(), src.Type())
	}
	dst.Set(src)
	return nil
}

func slotError(slot, value reflect.Type) error {
	return fmt.Errorf("%w: %s is not assignable to %s", ErrUnsupportedSlot, value, slot)
}
