package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Decoder handles low-level protobuf wire format decoding.
//
// Reads never cross the current limit. PushLimit narrows the readable window to a
// length-delimited region (a nested message or a packed run) and PopLimit restores
// the enclosing one; EOF reports the end of the innermost window.
type Decoder struct {
	buf      []byte
	pos      int
	limit    int // absolute end of the current window
	tagStart int // offset of the most recently read tag
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		buf:   data,
		pos:   0,
		limit: len(data),
	}
}

// Pos returns the absolute read offset.
func (d *Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread bytes in the current window.
func (d *Decoder) Remaining() int { return d.limit - d.pos }

// EOF reports whether the current window is exhausted.
func (d *Decoder) EOF() bool { return d.pos >= d.limit }

// PushLimit bounds subsequent reads to the next n bytes and returns the previous
// limit, to be handed back to PopLimit once the region is consumed.
func (d *Decoder) PushLimit(n uint64) (int, error) {
	if n > uint64(d.limit-d.pos) {
		return 0, ErrLimitExceeded
	}
	old := d.limit
	d.limit = d.pos + int(n)
	return old, nil
}

// PopLimit restores a limit returned by PushLimit.
func (d *Decoder) PopLimit(old int) {
	d.limit = old
}

func (d *Decoder) window() []byte {
	return d.buf[d.pos:d.limit]
}

// ReadTag reads a field tag and splits it into field number and wire type.
func (d *Decoder) ReadTag() (FieldNumber, WireType, error) {
	num, typ, n := protowire.ConsumeTag(d.window())
	if n < 0 {
		return 0, 0, parseError(n)
	}
	d.tagStart = d.pos
	d.pos += n
	return FieldNumber(num), WireType(typ), nil
}

// ReadUnknown consumes the value of a field whose tag was just returned by ReadTag
// and returns the raw encoding of the whole field, tag included. Groups are skipped
// up to their matching end marker. The returned slice aliases the input buffer.
func (d *Decoder) ReadUnknown(num FieldNumber, typ WireType) ([]byte, error) {
	n := protowire.ConsumeFieldValue(protowire.Number(num), protowire.Type(typ), d.window())
	if n < 0 {
		return nil, parseError(n)
	}
	d.pos += n
	return d.buf[d.tagStart:d.pos], nil
}

// SkipField consumes the value of a field without returning it.
func (d *Decoder) SkipField(num FieldNumber, typ WireType) error {
	_, err := d.ReadUnknown(num, typ)
	return err
}
