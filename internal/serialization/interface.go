package serialization

import "io"

// Codec defines the generic value codec that object graphs are written with.
//
// Values are encoded one after another on a single stream. Codecs know nothing
// about externally-managed objects: the persistent-reference mechanism runs
// before encoding (Externalize) and after decoding (Resolve), so the only thing
// a codec must guarantee is that Reference values survive a round trip.
type Codec interface {
	// Name identifies the codec in archive metadata.
	Name() CodecType

	// NewEncoder returns an encoder writing consecutive values to w.
	NewEncoder(w io.Writer) Encoder

	// NewDecoder returns a decoder reading consecutive values from r.
	// Decode returns io.EOF once the stream is exhausted.
	NewDecoder(r io.Reader) Decoder
}

// Encoder writes values to an underlying stream.
type Encoder interface {
	Encode(v any) error
}

// Decoder reads values from an underlying stream.
type Decoder interface {
	Decode() (any, error)
}
