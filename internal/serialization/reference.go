package serialization

import (
	"fmt"
	"reflect"
)

// Reference is the persistent id written into a graph blob in place of an
// externally-managed object: the object's type tag and the relative path of its
// saved payload inside the archive.
type Reference struct {
	Tag  string `cbor:"tag"`
	Path string `cbor:"path"`
}

// String returns a printable form of the reference
func (r Reference) String() string {
	return fmt.Sprintf("(%s, %s)", r.Tag, r.Path)
}

var referenceType = reflect.TypeOf(Reference{})
