package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// DECODER METHODS

// ReadBytes decodes a length-delimited byte array. The result is a copy, so it
// stays valid after the input buffer is reused.
func (d *Decoder) ReadBytes() ([]byte, error) {
	raw, err := d.ReadRawBytes()
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	return data, nil
}

// ReadString decodes a length-delimited string
func (d *Decoder) ReadString() (string, error) {
	raw, err := d.ReadRawBytes()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadRawBytes decodes a length-delimited byte array without copying (shares buffer)
func (d *Decoder) ReadRawBytes() ([]byte, error) {
	v, n := protowire.ConsumeBytes(d.window())
	if n < 0 {
		return nil, parseError(n)
	}
	d.pos += n
	return v, nil
}

// ReadLength decodes the varint length prefix of a length-delimited value and
// checks that the payload fits in the current window.
func (d *Decoder) ReadLength() (uint64, error) {
	length, err := d.ReadVarint()
	if err != nil {
		return 0, err
	}
	if length > uint64(d.Remaining()) {
		return 0, ErrTruncated
	}
	return length, nil
}

// ENCODER METHODS

// WriteBytes encodes a byte array as length-delimited
func (e *Encoder) WriteBytes(data []byte) {
	e.buf = protowire.AppendBytes(e.buf, data)
}

// WriteString encodes a string as length-delimited bytes
func (e *Encoder) WriteString(s string) {
	e.buf = protowire.AppendString(e.buf, s)
}

// UTILITY FUNCTIONS

// BytesSize returns the size needed to encode a length-delimited payload of n bytes
func BytesSize(n int) int {
	return protowire.SizeBytes(n)
}
