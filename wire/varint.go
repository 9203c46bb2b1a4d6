package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// DECODER METHODS

// ReadVarint decodes a varint from the current position
func (d *Decoder) ReadVarint() (uint64, error) {
	v, n := protowire.ConsumeVarint(d.window())
	if n < 0 {
		return 0, parseError(n)
	}
	d.pos += n
	return v, nil
}

// ReadInt32 decodes a varint as int32, keeping the low 32 bits
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadVarint()
	return int32(v), err
}

// ReadInt64 decodes a varint as int64
func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadVarint()
	return int64(v), err
}

// ReadUint32 decodes a varint as uint32
func (d *Decoder) ReadUint32() (uint32, error) {
	v, err := d.ReadVarint()
	return uint32(v), err
}

// ReadUint64 decodes a varint as uint64
func (d *Decoder) ReadUint64() (uint64, error) {
	return d.ReadVarint()
}

// ReadSint32 decodes a zigzag-encoded signed varint as int32
func (d *Decoder) ReadSint32() (int32, error) {
	v, err := d.ReadVarint()
	return DecodeZigZag32(v), err
}

// ReadSint64 decodes a zigzag-encoded signed varint as int64
func (d *Decoder) ReadSint64() (int64, error) {
	v, err := d.ReadVarint()
	return DecodeZigZag64(v), err
}

// ReadBool decodes a varint as bool
func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.ReadVarint()
	return protowire.DecodeBool(v), err
}

// ReadEnum decodes a varint as a raw enum number. No domain check is made.
func (d *Decoder) ReadEnum() (int32, error) {
	return d.ReadInt32()
}

// ENCODER METHODS

// WriteVarint encodes a uint64 as varint
func (e *Encoder) WriteVarint(v uint64) {
	e.buf = protowire.AppendVarint(e.buf, v)
}

// WriteInt32 encodes an int32 as varint. Negative values take ten bytes.
func (e *Encoder) WriteInt32(v int32) {
	e.WriteVarint(uint64(int64(v)))
}

// WriteInt64 encodes an int64 as varint
func (e *Encoder) WriteInt64(v int64) {
	e.WriteVarint(uint64(v))
}

// WriteUint32 encodes a uint32 as varint
func (e *Encoder) WriteUint32(v uint32) {
	e.WriteVarint(uint64(v))
}

// WriteUint64 encodes a uint64 as varint
func (e *Encoder) WriteUint64(v uint64) {
	e.WriteVarint(v)
}

// WriteSint32 encodes a signed int32 with zigzag encoding
func (e *Encoder) WriteSint32(v int32) {
	e.WriteVarint(EncodeZigZag32(v))
}

// WriteSint64 encodes a signed int64 with zigzag encoding
func (e *Encoder) WriteSint64(v int64) {
	e.WriteVarint(EncodeZigZag64(v))
}

// WriteBool encodes a bool as varint
func (e *Encoder) WriteBool(v bool) {
	e.WriteVarint(protowire.EncodeBool(v))
}

// WriteEnum encodes an enum value as varint
func (e *Encoder) WriteEnum(v int32) {
	e.WriteInt32(v)
}

// UTILITY FUNCTIONS

// DecodeZigZag32 decodes a zigzag-encoded 32-bit integer
func DecodeZigZag32(encoded uint64) int32 {
	return int32(protowire.DecodeZigZag(encoded & 0xFFFFFFFF))
}

// DecodeZigZag64 decodes a zigzag-encoded 64-bit integer
func DecodeZigZag64(encoded uint64) int64 {
	return protowire.DecodeZigZag(encoded)
}

// EncodeZigZag32 encodes a signed 32-bit integer using zigzag encoding
func EncodeZigZag32(v int32) uint64 {
	return protowire.EncodeZigZag(int64(v))
}

// EncodeZigZag64 encodes a signed 64-bit integer using zigzag encoding
func EncodeZigZag64(v int64) uint64 {
	return protowire.EncodeZigZag(v)
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v uint64) int {
	return protowire.SizeVarint(v)
}

// Int32Size returns the varint size of an int32, which is sign extended to 64 bits.
func Int32Size(v int32) int {
	return protowire.SizeVarint(uint64(int64(v)))
}
