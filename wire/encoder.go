package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Encoder handles low-level protobuf wire format encoding
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0),
	}
}

// NewEncoderSize creates an encoder with room for n bytes.
func NewEncoderSize(n int) *Encoder {
	return &Encoder{
		buf: make([]byte, 0, n),
	}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears the encoder buffer
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// WriteTag writes a field tag.
func (e *Encoder) WriteTag(num FieldNumber, typ WireType) {
	e.buf = protowire.AppendTag(e.buf, protowire.Number(num), protowire.Type(typ))
}

// WriteRaw appends already encoded bytes.
func (e *Encoder) WriteRaw(b []byte) {
	e.buf = append(e.buf, b...)
}

// TagSize returns the encoded size of a tag for the given field number.
func TagSize(num FieldNumber) int {
	return protowire.SizeTag(protowire.Number(num))
}
