package serialization

import (
	"fmt"
	"strings"
)

// CodecType names a generic value codec
type CodecType string

const (
	// GOB uses the encoding/gob package; concrete Go types survive the round trip
	GOB CodecType = "gob"
	// CBOR uses deterministic CBOR; values come back in generic shapes
	CBOR CodecType = "cbor"
)

// IsValid checks if the codec type is supported
func (c CodecType) IsValid() bool {
	switch c {
	case GOB, CBOR:
		return true
	default:
		return false
	}
}

// CreateCodec creates a new instance of the codec
func (c CodecType) CreateCodec() Codec {
	switch c {
	case GOB:
		return GOBCodec{}
	case CBOR:
		return CBORCodec{}
	default:
		return nil
	}
}

// String returns the string representation of the codec type
func (c CodecType) String() string {
	return string(c)
}

// ParseCodecType parses a codec name, case-insensitively
func ParseCodecType(s string) (CodecType, error) {
	ct := CodecType(strings.ToLower(strings.TrimSpace(s)))
	if !ct.IsValid() {
		return "", fmt.Errorf("unsupported codec type: %s (supported: %s)", s, strings.Join(SupportedCodecTypes(), ", "))
	}
	return ct, nil
}

// SupportedCodecTypes returns all supported codec names
func SupportedCodecTypes() []string {
	return []string{string(GOB), string(CBOR)}
}
