// Package dynamic holds protobuf messages whose shape is only known at run time.
//
// A Message is built from a schema.Message and a Resolver (normally a
// *registry.Registry), filled by MergeFrom and written back by EncodeTo or
// Marshal. Values are a closed set of types; nested messages are owned by the
// field that holds them, so a decoded Message is always a finite tree.
//
// Nothing in this package synchronizes. Distinct Message trees may be decoded and
// encoded concurrently; a single tree must not be.
package dynamic

import (
	"bytes"
	"math"
)

// Value is one field value. The implementations are exactly Bool, I32, I64, U32,
// U64, F32, F64, Bytes, String, Enum and *Message.
type Value interface {
	isValue()
}

type (
	// Bool carries bool fields.
	Bool bool
	// I32 carries int32, sint32 and sfixed32 fields.
	I32 int32
	// I64 carries int64, sint64 and sfixed64 fields.
	I64 int64
	// U32 carries uint32 and fixed32 fields.
	U32 uint32
	// U64 carries uint64 and fixed64 fields.
	U64 uint64
	// F32 carries float fields.
	F32 float32
	// F64 carries double fields.
	F64 float64
	// Bytes carries bytes fields.
	Bytes []byte
	// String carries string fields. Decoded strings are valid UTF-8.
	String string
	// Enum carries the raw number of an enum field, whether or not the enum
	// declares it.
	Enum int32
)

func (Bool) isValue()     {}
func (I32) isValue()      {}
func (I64) isValue()      {}
func (U32) isValue()      {}
func (U64) isValue()      {}
func (F32) isValue()      {}
func (F64) isValue()      {}
func (Bytes) isValue()    {}
func (String) isValue()   {}
func (Enum) isValue()     {}
func (*Message) isValue() {}

// Equal reports whether two values are of the same kind and hold the same data.
// Floats compare by bit pattern, so NaN equals an identical NaN.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case I32:
		b, ok := b.(I32)
		return ok && a == b
	case I64:
		b, ok := b.(I64)
		return ok && a == b
	case U32:
		b, ok := b.(U32)
		return ok && a == b
	case U64:
		b, ok := b.(U64)
		return ok && a == b
	case F32:
		b, ok := b.(F32)
		return ok && math.Float32bits(float32(a)) == math.Float32bits(float32(b))
	case F64:
		b, ok := b.(F64)
		return ok && math.Float64bits(float64(a)) == math.Float64bits(float64(b))
	case Bytes:
		b, ok := b.(Bytes)
		return ok && bytes.Equal(a, b)
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Enum:
		b, ok := b.(Enum)
		return ok && a == b
	case *Message:
		b, ok := b.(*Message)
		return ok && a.Equal(b)
	default:
		return false
	}
}

// isZero reports whether v is the implicit default of its kind. Such values are
// left off the wire when they sit in a singular field. Messages are never zero.
func isZero(v Value) bool {
	switch v := v.(type) {
	case Bool:
		return !bool(v)
	case I32:
		return v == 0
	case I64:
		return v == 0
	case U32:
		return v == 0
	case U64:
		return v == 0
	case F32:
		return math.Float32bits(float32(v)) == 0
	case F64:
		return math.Float64bits(float64(v)) == 0
	case Bytes:
		return len(v) == 0
	case String:
		return v == ""
	case Enum:
		return v == 0
	default:
		return false
	}
}

// Clone returns a deep copy of v. Bytes are copied and messages cloned; other
// values are immutable and returned as is.
func Clone(v Value) Value {
	switch v := v.(type) {
	case Bytes:
		if v == nil {
			return v
		}
		return Bytes(append([]byte{}, v...))
	case *Message:
		return v.Clone()
	default:
		return v
	}
}
