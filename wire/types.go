package wire

import (
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int8

const (
	WireVarint     WireType = WireType(protowire.VarintType)     // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = WireType(protowire.Fixed64Type)    // fixed64, sfixed64, double
	WireBytes      WireType = WireType(protowire.BytesType)      // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = WireType(protowire.StartGroupType) // deprecated group start, only ever skipped
	WireEndGroup   WireType = WireType(protowire.EndGroupType)   // deprecated group end, only ever skipped
	WireFixed32    WireType = WireType(protowire.Fixed32Type)    // fixed32, sfixed32, float
)

func (t WireType) String() string {
	switch t {
	case WireVarint:
		return "varint"
	case WireFixed64:
		return "fixed64"
	case WireBytes:
		return "bytes"
	case WireStartGroup:
		return "start_group"
	case WireEndGroup:
		return "end_group"
	case WireFixed32:
		return "fixed32"
	default:
		return "wiretype(" + strconv.Itoa(int(t)) + ")"
	}
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

// Valid field numbers are 1..2^29-1.
const (
	MinFieldNumber FieldNumber = FieldNumber(protowire.MinValidNumber)
	MaxFieldNumber FieldNumber = FieldNumber(protowire.MaxValidNumber)
)

// IsValid reports whether n can appear in a tag.
func (n FieldNumber) IsValid() bool {
	return protowire.Number(n).IsValid()
}

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(protowire.EncodeTag(protowire.Number(fieldNumber), protowire.Type(wireType)))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	num, typ := protowire.DecodeTag(uint64(tag))
	return FieldNumber(num), WireType(typ)
}
