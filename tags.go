package graphpack

import (
	"fmt"
	"slices"
	"strings"
)

// TypeTag identifies the kind of an externally-managed object inside an
// archive. The set is closed; the string values are part of the archive
// format.
type TypeTag string

const (
	TagTable  TypeTag = "SFrame"
	TagColumn TypeTag = "SArray"
	TagGraph  TypeTag = "SGraph"
	TagModel  TypeTag = "Model"
)

var typeTags = []TypeTag{TagTable, TagColumn, TagGraph, TagModel}

// TypeTags returns every known tag.
func TypeTags() []TypeTag {
	return slices.Clone(typeTags)
}

// Valid reports whether t belongs to the closed set of tags.
func (t TypeTag) Valid() bool {
	return slices.Contains(typeTags, t)
}

func (t TypeTag) String() string {
	return string(t)
}

// ParseTypeTag returns the tag whose wire value is s.
func ParseTypeTag(s string) (TypeTag, error) {
	t := TypeTag(s)
	if !t.Valid() {
		names := make([]string, len(typeTags))
		for i, tag := range typeTags {
			names[i] = string(tag)
		}
		return "", fmt.Errorf("%w: %q (known: %s)", ErrInvalidTypeTag, s, strings.Join(names, ", "))
	}
	return t, nil
}
