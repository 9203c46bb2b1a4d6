package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// DECODER METHODS

// ReadFixed32 decodes a 32-bit little-endian value
func (d *Decoder) ReadFixed32() (uint32, error) {
	v, n := protowire.ConsumeFixed32(d.window())
	if n < 0 {
		return 0, parseError(n)
	}
	d.pos += n
	return v, nil
}

// ReadFixed64 decodes a 64-bit little-endian value
func (d *Decoder) ReadFixed64() (uint64, error) {
	v, n := protowire.ConsumeFixed64(d.window())
	if n < 0 {
		return 0, parseError(n)
	}
	d.pos += n
	return v, nil
}

// ReadSfixed32 decodes a signed 32-bit fixed-width value
func (d *Decoder) ReadSfixed32() (int32, error) {
	v, err := d.ReadFixed32()
	return int32(v), err
}

// ReadSfixed64 decodes a signed 64-bit fixed-width value
func (d *Decoder) ReadSfixed64() (int64, error) {
	v, err := d.ReadFixed64()
	return int64(v), err
}

// ReadFloat decodes a 32-bit float from fixed32 data
func (d *Decoder) ReadFloat() (float32, error) {
	v, err := d.ReadFixed32()
	return math.Float32frombits(v), err
}

// ReadDouble decodes a 64-bit float from fixed64 data
func (d *Decoder) ReadDouble() (float64, error) {
	v, err := d.ReadFixed64()
	return math.Float64frombits(v), err
}

// ENCODER METHODS

// WriteFixed32 encodes a 32-bit fixed-width value
func (e *Encoder) WriteFixed32(v uint32) {
	e.buf = protowire.AppendFixed32(e.buf, v)
}

// WriteFixed64 encodes a 64-bit fixed-width value
func (e *Encoder) WriteFixed64(v uint64) {
	e.buf = protowire.AppendFixed64(e.buf, v)
}

// WriteSfixed32 encodes a signed 32-bit fixed-width value
func (e *Encoder) WriteSfixed32(v int32) {
	e.WriteFixed32(uint32(v))
}

// WriteSfixed64 encodes a signed 64-bit fixed-width value
func (e *Encoder) WriteSfixed64(v int64) {
	e.WriteFixed64(uint64(v))
}

// WriteFloat encodes a 32-bit float as fixed32
func (e *Encoder) WriteFloat(v float32) {
	e.WriteFixed32(math.Float32bits(v))
}

// WriteDouble encodes a 64-bit float as fixed64
func (e *Encoder) WriteDouble(v float64) {
	e.WriteFixed64(math.Float64bits(v))
}

// UTILITY FUNCTIONS

// Fixed32Size returns the size of a fixed32 value (always 4 bytes)
func Fixed32Size() int {
	return protowire.SizeFixed32()
}

// Fixed64Size returns the size of a fixed64 value (always 8 bytes)
func Fixed64Size() int {
	return protowire.SizeFixed64()
}
