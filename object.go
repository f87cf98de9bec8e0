package graphpack

import "reflect"

// Object is an externally-managed value that persists itself to a directory.
// Save receives a path that does not exist yet and may create any number of
// files below it.
type Object interface {
	Save(dir string) error
}

// Sizer is implemented by objects that can report their approximate size in
// bytes. Objects smaller than the configured minimum external size are kept
// inline in the graph blob instead of being externalized.
type Sizer interface {
	Size() int64
}

// LoadFunc rebuilds an object of the given tag from the directory that its
// Save call produced.
type LoadFunc func(tag TypeTag, path string) (Object, error)

var objectType = reflect.TypeFor[Object]()
