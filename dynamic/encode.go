package dynamic

import (
	"io"

	"github.com/anirudhraja/protodyn/schema"
	"github.com/anirudhraja/protodyn/wire"
)

// EncodeTo writes m to e: known fields in ascending number order, then the
// preserved unknown bytes. Sizes are recomputed first, so m may have been mutated
// since the last call; it must not be mutated while EncodeTo runs.
func (m *Message) EncodeTo(e *wire.Encoder) error {
	m.ComputeSize()
	return m.writeFields(e)
}

// Marshal returns the encoding of m in a new buffer.
func (m *Message) Marshal() ([]byte, error) {
	e := wire.NewEncoderSize(m.ComputeSize())
	if err := m.writeFields(e); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// WriteTo writes the encoding of m to w.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	b, err := m.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// writeFields emits the fields using the sizes cached by the last ComputeSize.
func (m *Message) writeFields(e *wire.Encoder) error {
	start := e.Len()
	for _, f := range m.fields {
		if err := f.write(e); err != nil {
			return err
		}
	}
	e.WriteRaw(m.unknown)
	if e.Len()-start != m.size {
		return ErrSizeMismatch
	}
	return nil
}

func (f *Field) write(e *wire.Encoder) error {
	num := wire.FieldNumber(f.number)
	if f.repeated {
		for _, v := range f.values {
			if v == nil {
				continue
			}
			if err := writeValue(e, num, f.kind, v); err != nil {
				return err
			}
		}
		return nil
	}
	if f.omitsSingular() {
		return nil
	}
	return writeValue(e, num, f.kind, f.value)
}

// writeValue writes one tagged value in the encoding of kind.
func writeValue(e *wire.Encoder, num wire.FieldNumber, kind schema.Kind, v Value) error {
	switch v := v.(type) {
	case Bool:
		e.WriteTag(num, wire.WireVarint)
		e.WriteBool(bool(v))
	case I32:
		switch kind {
		case schema.Sint32Kind:
			e.WriteTag(num, wire.WireVarint)
			e.WriteSint32(int32(v))
		case schema.Sfixed32Kind:
			e.WriteTag(num, wire.WireFixed32)
			e.WriteSfixed32(int32(v))
		default:
			e.WriteTag(num, wire.WireVarint)
			e.WriteInt32(int32(v))
		}
	case I64:
		switch kind {
		case schema.Sint64Kind:
			e.WriteTag(num, wire.WireVarint)
			e.WriteSint64(int64(v))
		case schema.Sfixed64Kind:
			e.WriteTag(num, wire.WireFixed64)
			e.WriteSfixed64(int64(v))
		default:
			e.WriteTag(num, wire.WireVarint)
			e.WriteInt64(int64(v))
		}
	case U32:
		if kind == schema.Fixed32Kind {
			e.WriteTag(num, wire.WireFixed32)
			e.WriteFixed32(uint32(v))
		} else {
			e.WriteTag(num, wire.WireVarint)
			e.WriteUint32(uint32(v))
		}
	case U64:
		if kind == schema.Fixed64Kind {
			e.WriteTag(num, wire.WireFixed64)
			e.WriteFixed64(uint64(v))
		} else {
			e.WriteTag(num, wire.WireVarint)
			e.WriteUint64(uint64(v))
		}
	case F32:
		e.WriteTag(num, wire.WireFixed32)
		e.WriteFloat(float32(v))
	case F64:
		e.WriteTag(num, wire.WireFixed64)
		e.WriteDouble(float64(v))
	case Bytes:
		e.WriteTag(num, wire.WireBytes)
		e.WriteBytes(v)
	case String:
		e.WriteTag(num, wire.WireBytes)
		e.WriteString(string(v))
	case Enum:
		e.WriteTag(num, wire.WireVarint)
		e.WriteEnum(int32(v))
	case *Message:
		e.WriteTag(num, wire.WireBytes)
		e.WriteVarint(uint64(v.size))
		return v.writeFields(e)
	}
	return nil
}
