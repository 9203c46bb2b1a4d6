package dynamic

import (
	"unicode/utf8"

	"github.com/anirudhraja/protodyn/schema"
	"github.com/anirudhraja/protodyn/wire"
)

// DefaultRecursionLimit bounds message nesting while decoding.
const DefaultRecursionLimit = 10000

// MergeOptions configures decoding. The zero value preserves unknown fields and
// applies DefaultRecursionLimit.
type MergeOptions struct {
	// RecursionLimit is the deepest message nesting accepted. Zero means
	// DefaultRecursionLimit.
	RecursionLimit int
	// DiscardUnknown drops fields the schema does not declare instead of
	// keeping their bytes for re-encoding.
	DiscardUnknown bool
}

// MergeFrom decodes fields from d until the end of d's current limit and merges
// them into m: singular fields are replaced, repeated fields appended to, and a
// nested message already present in a singular field is merged into rather than
// replaced.
//
// The first error stops decoding and is returned as is. Fields decoded before it
// stay in m; use Unmarshal to decode into a fresh message instead.
func (m *Message) MergeFrom(types Resolver, md *schema.Message, d *wire.Decoder) error {
	return MergeOptions{}.Merge(m, types, md, d)
}

// Merge is MergeFrom with options.
func (o MergeOptions) Merge(m *Message, types Resolver, md *schema.Message, d *wire.Decoder) error {
	mg := &merger{
		types:          types,
		discardUnknown: o.DiscardUnknown,
		depth:          o.RecursionLimit,
	}
	if mg.depth <= 0 {
		mg.depth = DefaultRecursionLimit
	}
	return mg.message(m, md, d)
}

// Unmarshal decodes data into a new message of type md.
func Unmarshal(types Resolver, md *schema.Message, data []byte) (*Message, error) {
	return MergeOptions{}.Unmarshal(types, md, data)
}

// Unmarshal decodes data into a new message of type md. On error the partial
// message is dropped.
func (o MergeOptions) Unmarshal(types Resolver, md *schema.Message, data []byte) (*Message, error) {
	m := New(types, md)
	if err := o.Merge(m, types, md, wire.NewDecoder(data)); err != nil {
		return nil, err
	}
	return m, nil
}

type merger struct {
	types          Resolver
	discardUnknown bool
	depth          int // remaining nesting allowance
}

// message runs the tag loop for one message scope.
func (mg *merger) message(m *Message, md *schema.Message, d *wire.Decoder) error {
	for !d.EOF() {
		num, wt, err := d.ReadTag()
		if err != nil {
			return err
		}

		fd := md.FieldByNumber(int32(num))
		if fd == nil {
			raw, err := d.ReadUnknown(num, wt)
			if err != nil {
				return err
			}
			if !mg.discardUnknown {
				m.unknown = append(m.unknown, raw...)
			}
			continue
		}

		f := m.ensureField(mg.types, md, fd)
		if err := mg.field(f, md, fd, d, wt); err != nil {
			return err
		}
	}
	return nil
}

// field decodes one occurrence of fd, which may carry several values when packed.
func (mg *merger) field(f *Field, md *schema.Message, fd *schema.Field, d *wire.Decoder, wt wire.WireType) error {
	rt := mg.types.ResolveType(md, fd)
	switch rt.Kind {
	case schema.BoolKind,
		schema.Int32Kind, schema.Sint32Kind, schema.Uint32Kind,
		schema.Int64Kind, schema.Sint64Kind, schema.Uint64Kind,
		schema.Fixed32Kind, schema.Sfixed32Kind, schema.Fixed64Kind, schema.Sfixed64Kind,
		schema.FloatKind, schema.DoubleKind:
		return mergePackable(f, fd, rt.Kind, d, wt)
	case schema.BytesKind, schema.StringKind:
		if wt != wire.WireBytes {
			return wireTypeError(fd, rt.Kind, wt)
		}
		v, err := readScalar(rt.Kind, d)
		if err != nil {
			return err
		}
		f.put(v)
		return nil
	case schema.EnumKind:
		if wt != wire.WireVarint {
			return wireTypeError(fd, rt.Kind, wt)
		}
		n, err := d.ReadEnum()
		if err != nil {
			return err
		}
		f.put(Enum(n))
		return nil
	case schema.MessageKind:
		return mg.mergeMessage(f, fd, rt.Message, d, wt)
	case schema.GroupKind:
		return ErrUnsupportedGroup
	case schema.UnresolvedEnumKind:
		return &UnresolvedTypeError{Field: fd.Name, Name: rt.Name, Enum: true}
	case schema.UnresolvedMessageKind:
		return &UnresolvedTypeError{Field: fd.Name, Name: rt.Name}
	default:
		return &UnresolvedTypeError{Field: fd.Name, Name: rt.Name}
	}
}

// mergePackable accepts a single value in the kind's own wire type or, for
// repeated fields, a packed run (length-delimited). A singular field has no
// packed encoding, so a length-delimited payload there is a *WireTypeError like
// any other mismatch: decoding fails fast rather than guessing how many values
// the run holds or storing the field as unknown.
func mergePackable(f *Field, fd *schema.Field, kind schema.Kind, d *wire.Decoder, wt wire.WireType) error {
	switch {
	case wt == wire.WireBytes && f.repeated:
		n, err := d.ReadVarint()
		if err != nil {
			return err
		}
		old, err := d.PushLimit(n)
		if err != nil {
			return err
		}
		for !d.EOF() {
			v, err := readScalar(kind, d)
			if err != nil {
				d.PopLimit(old)
				return err
			}
			f.put(v)
		}
		d.PopLimit(old)
		return nil
	case wt == scalarWireType(kind):
		v, err := readScalar(kind, d)
		if err != nil {
			return err
		}
		f.put(v)
		return nil
	default:
		return wireTypeError(fd, kind, wt)
	}
}

func (mg *merger) mergeMessage(f *Field, fd *schema.Field, md *schema.Message, d *wire.Decoder, wt wire.WireType) error {
	if wt != wire.WireBytes {
		return wireTypeError(fd, schema.MessageKind, wt)
	}
	if mg.depth <= 0 {
		return ErrRecursionLimit
	}
	n, err := d.ReadVarint()
	if err != nil {
		return err
	}
	old, err := d.PushLimit(n)
	if err != nil {
		return err
	}

	var child *Message
	existing := false
	if !f.repeated {
		child, existing = f.value.(*Message)
	}
	if !existing {
		child = New(mg.types, md)
	}

	mg.depth--
	err = mg.message(child, md, d)
	mg.depth++
	d.PopLimit(old)
	if err != nil {
		return err
	}
	if !existing {
		f.put(child)
	}
	return nil
}

// readScalar reads one non-message value in its unpacked encoding.
func readScalar(kind schema.Kind, d *wire.Decoder) (Value, error) {
	switch kind {
	case schema.BoolKind:
		v, err := d.ReadBool()
		return Bool(v), err
	case schema.Int32Kind:
		v, err := d.ReadInt32()
		return I32(v), err
	case schema.Sint32Kind:
		v, err := d.ReadSint32()
		return I32(v), err
	case schema.Sfixed32Kind:
		v, err := d.ReadSfixed32()
		return I32(v), err
	case schema.Uint32Kind:
		v, err := d.ReadUint32()
		return U32(v), err
	case schema.Fixed32Kind:
		v, err := d.ReadFixed32()
		return U32(v), err
	case schema.Int64Kind:
		v, err := d.ReadInt64()
		return I64(v), err
	case schema.Sint64Kind:
		v, err := d.ReadSint64()
		return I64(v), err
	case schema.Sfixed64Kind:
		v, err := d.ReadSfixed64()
		return I64(v), err
	case schema.Uint64Kind:
		v, err := d.ReadUint64()
		return U64(v), err
	case schema.Fixed64Kind:
		v, err := d.ReadFixed64()
		return U64(v), err
	case schema.FloatKind:
		v, err := d.ReadFloat()
		return F32(v), err
	case schema.DoubleKind:
		v, err := d.ReadDouble()
		return F64(v), err
	case schema.BytesKind:
		v, err := d.ReadBytes()
		return Bytes(v), err
	case schema.StringKind:
		raw, err := d.ReadRawBytes()
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, ErrInvalidUTF8
		}
		return String(raw), nil
	case schema.EnumKind:
		v, err := d.ReadEnum()
		return Enum(v), err
	default:
		return nil, &UnresolvedTypeError{Name: kind.String()}
	}
}

// scalarWireType is the unpacked wire type of a kind.
func scalarWireType(kind schema.Kind) wire.WireType {
	switch kind {
	case schema.Fixed32Kind, schema.Sfixed32Kind, schema.FloatKind:
		return wire.WireFixed32
	case schema.Fixed64Kind, schema.Sfixed64Kind, schema.DoubleKind:
		return wire.WireFixed64
	case schema.BytesKind, schema.StringKind, schema.MessageKind:
		return wire.WireBytes
	case schema.GroupKind:
		return wire.WireStartGroup
	default:
		return wire.WireVarint
	}
}

func wireTypeError(fd *schema.Field, kind schema.Kind, wt wire.WireType) error {
	return &WireTypeError{Field: fd.Number, Name: fd.Name, Kind: kind, WireType: wt}
}
