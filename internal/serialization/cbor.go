package serialization

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// ReferenceTagNumber is the CBOR tag number wrapping an encoded Reference.
const ReferenceTagNumber = 0x67706b72

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	tags := cbor.NewTagSet()
	err := tags.Add(
		cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
		reflect.TypeOf(Reference{}),
		ReferenceTagNumber,
	)
	if err != nil {
		panic("serialization: CBOR tag registration failed: " + err.Error())
	}

	cborEncMode, err = cbor.CoreDetEncOptions().EncModeWithTags(tags)
	if err != nil {
		panic("serialization: CBOR encoder initialization failed: " + err.Error())
	}

	cborDecMode, err = cbor.DecOptions{
		// Graphs decoded into any must come back with string-keyed maps, the
		// shape the rest of the library walks.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecModeWithTags(tags)
	if err != nil {
		panic("serialization: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORCodec implements the Codec interface with deterministic CBOR.
// Decoded values take CBOR's generic shapes: maps become map[string]any, arrays
// []any, non-negative integers uint64. Structs come back as maps. Use it when the
// blob has to be readable by tools that do not share the Go type registry.
type CBORCodec struct{}

func (c CBORCodec) Name() CodecType {
	return CBOR
}

func (c CBORCodec) NewEncoder(w io.Writer) Encoder {
	return cborEncMode.NewEncoder(w)
}

func (c CBORCodec) NewDecoder(r io.Reader) Decoder {
	return &cborDecoder{dec: cborDecMode.NewDecoder(r)}
}

type cborDecoder struct {
	dec *cbor.Decoder
}

func (d *cborDecoder) Decode() (any, error) {
	var v any
	if err := d.dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
