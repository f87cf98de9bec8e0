package graphpack

import (
	"fmt"
	"reflect"
	"sync"
)

// Kind registers one externally-managed kind.
//
// Types lists the concrete types that classify as Tag. Family, when set, must
// be an interface type; any value implementing it classifies as Tag too, which
// covers kinds with many implementations such as trained models.
type Kind struct {
	Tag    TypeTag
	Types  []reflect.Type
	Family reflect.Type
	Load   LoadFunc
}

type family struct {
	iface reflect.Type
	tag   TypeTag
}

// Registry maps Go types to type tags and type tags to reconstructors. Kinds
// are registered explicitly, usually at startup. A Registry is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	kinds    map[TypeTag]Kind
	exact    map[reflect.Type]TypeTag
	families []family
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[TypeTag]Kind),
		exact: make(map[reflect.Type]TypeTag),
	}
}

// Register adds a kind. It fails with ErrInvalidTypeTag for tags outside the
// closed set and ErrDuplicateTypeTag when the tag or one of the types is
// already registered.
func (r *Registry) Register(k Kind) error {
	if !k.Tag.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTypeTag, string(k.Tag))
	}
	if k.Load == nil {
		return fmt.Errorf("%w: kind %s has no load function", ErrInvalidConfiguration, k.Tag)
	}
	if len(k.Types) == 0 && k.Family == nil {
		return fmt.Errorf("%w: kind %s names neither types nor a family", ErrInvalidConfiguration, k.Tag)
	}
	for _, t := range k.Types {
		if t == nil || !t.Implements(objectType) {
			return fmt.Errorf("%w: kind %s: type %v does not implement Object", ErrInvalidConfiguration, k.Tag, t)
		}
	}
	if k.Family != nil {
		if k.Family.Kind() != reflect.Interface {
			return fmt.Errorf("%w: kind %s: family %v is not an interface", ErrInvalidConfiguration, k.Tag, k.Family)
		}
		if !k.Family.Implements(objectType) {
			return fmt.Errorf("%w: kind %s: family %v does not embed Object", ErrInvalidConfiguration, k.Tag, k.Family)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.kinds[k.Tag]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTypeTag, k.Tag)
	}
	for _, t := range k.Types {
		if other, dup := r.exact[t]; dup {
			return fmt.Errorf("%w: type %v already classifies as %s", ErrDuplicateTypeTag, t, other)
		}
	}

	r.kinds[k.Tag] = k
	for _, t := range k.Types {
		r.exact[t] = k.Tag
	}
	if k.Family != nil {
		r.families = append(r.families, family{iface: k.Family, tag: k.Tag})
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(k Kind) {
	if err := r.Register(k); err != nil {
		panic(err)
	}
}

// Classify returns the tag of v's concrete type, checking exact types before
// families in registration order. Nil values are never classified.
func (r *Registry) Classify(v any) (TypeTag, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return "", false
		}
	}

	t := rv.Type()
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tag, ok := r.exact[t]; ok {
		return tag, true
	}
	for _, f := range r.families {
		if t.Implements(f.iface) {
			return f.tag, true
		}
	}
	return "", false
}

// Reconstructor returns the load function registered for tag.
func (r *Registry) Reconstructor(tag TypeTag) (LoadFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[tag]
	if !ok {
		return nil, false
	}
	return k.Load, true
}

// Tags returns the registered tags in the order of the closed tag set.
func (r *Registry) Tags() []TypeTag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var tags []TypeTag
	for _, t := range typeTags {
		if _, ok := r.kinds[t]; ok {
			tags = append(tags, t)
		}
	}
	return tags
}
