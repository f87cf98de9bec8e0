package serialization

import (
	"encoding/gob"
	"io"
)

// referenceGobName is the name Reference is registered under. It is part of the
// blob format and must not change.
const referenceGobName = "graphpack.Reference"

func init() {
	gob.RegisterName(referenceGobName, Reference{})
	// Generic containers travel inside interface values and must be registered
	// for gob to rebuild them.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// GOBCodec implements the Codec interface using the encoding/gob package.
// It keeps concrete Go types intact across a round trip (an int stays an int,
// a registered struct comes back as that struct), which makes it the default.
// Custom types carried inside interface values must be registered with
// gob.Register by the caller, exactly as with plain gob.
type GOBCodec struct{}

func (g GOBCodec) Name() CodecType {
	return GOB
}

func (g GOBCodec) NewEncoder(w io.Writer) Encoder {
	return &gobEncoder{enc: gob.NewEncoder(w)}
}

func (g GOBCodec) NewDecoder(r io.Reader) Decoder {
	return &gobDecoder{dec: gob.NewDecoder(r)}
}

type gobEncoder struct {
	enc *gob.Encoder
}

// Encode sends v as an interface value so the concrete type is transmitted.
func (e *gobEncoder) Encode(v any) error {
	return e.enc.Encode(&v)
}

type gobDecoder struct {
	dec *gob.Decoder
}

func (d *gobDecoder) Decode() (any, error) {
	var v any
	if err := d.dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
