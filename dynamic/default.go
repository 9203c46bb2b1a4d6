package dynamic

import (
	"strconv"

	"github.com/anirudhraja/protodyn/schema"
)

// defaultValue parses a declared default for the resolved kind. A default that
// does not parse is treated as absent.
func defaultValue(rt schema.ResolvedType, text string) Value {
	switch rt.Kind {
	case schema.BoolKind:
		if b, err := strconv.ParseBool(text); err == nil {
			return Bool(b)
		}
	case schema.Int32Kind, schema.Sint32Kind, schema.Sfixed32Kind:
		if n, err := strconv.ParseInt(text, 0, 32); err == nil {
			return I32(n)
		}
	case schema.Uint32Kind, schema.Fixed32Kind:
		if n, err := strconv.ParseUint(text, 0, 32); err == nil {
			return U32(n)
		}
	case schema.Int64Kind, schema.Sint64Kind, schema.Sfixed64Kind:
		if n, err := strconv.ParseInt(text, 0, 64); err == nil {
			return I64(n)
		}
	case schema.Uint64Kind, schema.Fixed64Kind:
		if n, err := strconv.ParseUint(text, 0, 64); err == nil {
			return U64(n)
		}
	case schema.FloatKind:
		if f, err := strconv.ParseFloat(text, 32); err == nil {
			return F32(f)
		}
	case schema.DoubleKind:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return F64(f)
		}
	case schema.StringKind:
		return String(text)
	case schema.BytesKind:
		return Bytes(text)
	case schema.EnumKind:
		if rt.Enum != nil {
			if v := rt.Enum.ValueByName(text); v != nil {
				return Enum(v.Number)
			}
		}
		if n, err := strconv.ParseInt(text, 0, 32); err == nil {
			return Enum(n)
		}
	}
	return nil
}
