package schema

// Kind is the resolved type of a field slot: every declared field type maps to
// exactly one Kind once type names have been looked up. Decoding and encoding
// switch over this closed set.
type Kind int

const (
	InvalidKind Kind = iota
	BoolKind
	Int32Kind
	Sint32Kind
	Uint32Kind
	Int64Kind
	Sint64Kind
	Uint64Kind
	Fixed32Kind
	Sfixed32Kind
	Fixed64Kind
	Sfixed64Kind
	FloatKind
	DoubleKind
	BytesKind
	StringKind
	EnumKind
	MessageKind
	GroupKind
	UnresolvedEnumKind
	UnresolvedMessageKind
)

var kindNames = [...]string{
	InvalidKind:           "invalid",
	BoolKind:              "bool",
	Int32Kind:             "int32",
	Sint32Kind:            "sint32",
	Uint32Kind:            "uint32",
	Int64Kind:             "int64",
	Sint64Kind:            "sint64",
	Uint64Kind:            "uint64",
	Fixed32Kind:           "fixed32",
	Sfixed32Kind:          "sfixed32",
	Fixed64Kind:           "fixed64",
	Sfixed64Kind:          "sfixed64",
	FloatKind:             "float",
	DoubleKind:            "double",
	BytesKind:             "bytes",
	StringKind:            "string",
	EnumKind:              "enum",
	MessageKind:           "message",
	GroupKind:             "group",
	UnresolvedEnumKind:    "unresolved enum",
	UnresolvedMessageKind: "unresolved message",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// IsPackable reports whether repeated values of the kind may be packed into a
// single length-delimited run.
func (k Kind) IsPackable() bool {
	return k >= BoolKind && k <= DoubleKind
}

// PrimitiveKinds maps primitive type names to their Kind.
var PrimitiveKinds = map[PrimitiveType]Kind{
	TypeDouble:   DoubleKind,
	TypeFloat:    FloatKind,
	TypeInt64:    Int64Kind,
	TypeUint64:   Uint64Kind,
	TypeInt32:    Int32Kind,
	TypeFixed64:  Fixed64Kind,
	TypeFixed32:  Fixed32Kind,
	TypeBool:     BoolKind,
	TypeString:   StringKind,
	TypeBytes:    BytesKind,
	TypeUint32:   Uint32Kind,
	TypeSfixed32: Sfixed32Kind,
	TypeSfixed64: Sfixed64Kind,
	TypeSint32:   Sint32Kind,
	TypeSint64:   Sint64Kind,
}

// ResolvedType is the outcome of resolving a field's declared type.
//
// Enum is set for EnumKind, Message for MessageKind. Name carries the declared
// type name for the unresolved kinds so the failure can be reported when a value
// for the field is first decoded.
type ResolvedType struct {
	Kind    Kind
	Enum    *Enum
	Message *Message
	Name    string
}
