package dynamic

import (
	"github.com/anirudhraja/protodyn/schema"
	"github.com/anirudhraja/protodyn/wire"
)

// ComputeSize returns the encoded size of m and caches it, along with the sizes of
// every nested message, for the write pass that must follow immediately.
func (m *Message) ComputeSize() int {
	n := 0
	for _, f := range m.fields {
		n += f.size()
	}
	n += len(m.unknown)
	m.size = n
	return n
}

// size is the tagged size of every value the field writes.
func (f *Field) size() int {
	tag := wire.TagSize(wire.FieldNumber(f.number))
	if f.repeated {
		n := 0
		for _, v := range f.values {
			if v != nil {
				n += tag + valueSize(f.kind, v)
			}
		}
		return n
	}
	if f.omitsSingular() {
		return 0
	}
	return tag + valueSize(f.kind, f.value)
}

// valueSize is the untagged size of v written as kind. Nested messages are sized
// recursively and include their length prefix.
func valueSize(kind schema.Kind, v Value) int {
	switch v := v.(type) {
	case Bool:
		return 1
	case I32:
		switch kind {
		case schema.Sint32Kind:
			return wire.VarintSize(wire.EncodeZigZag32(int32(v)))
		case schema.Sfixed32Kind:
			return wire.Fixed32Size()
		default:
			return wire.Int32Size(int32(v))
		}
	case I64:
		switch kind {
		case schema.Sint64Kind:
			return wire.VarintSize(wire.EncodeZigZag64(int64(v)))
		case schema.Sfixed64Kind:
			return wire.Fixed64Size()
		default:
			return wire.VarintSize(uint64(v))
		}
	case U32:
		if kind == schema.Fixed32Kind {
			return wire.Fixed32Size()
		}
		return wire.VarintSize(uint64(v))
	case U64:
		if kind == schema.Fixed64Kind {
			return wire.Fixed64Size()
		}
		return wire.VarintSize(uint64(v))
	case F32:
		return wire.Fixed32Size()
	case F64:
		return wire.Fixed64Size()
	case Bytes:
		return wire.BytesSize(len(v))
	case String:
		return wire.BytesSize(len(v))
	case Enum:
		return wire.Int32Size(int32(v))
	case *Message:
		return wire.BytesSize(v.ComputeSize())
	default:
		return 0
	}
}

