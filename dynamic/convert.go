package dynamic

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/anirudhraja/protodyn/schema"
)

// UnknownKey is the map key that carries unknown-field bytes in ToMap output and
// FromMap input.
const UnknownKey = "__unknown"

// MapOptions configures ToMap.
type MapOptions struct {
	// UseJSONNames keys the map by JSON names instead of proto field names.
	UseJSONNames bool
	// EmitDefaults includes absent and zero-valued fields with their zero value.
	EmitDefaults bool
	// IncludeUnknown stores unknown-field bytes under UnknownKey.
	IncludeUnknown bool
}

// ToMap renders m as a generic map: scalars as Go values, enums by value name
// when the enum declares the number, nested messages as maps, map fields as
// map[string]interface{} keyed by the formatted key, wrapper fields as their inner
// value, and Timestamp and Duration as their JSON text forms.
func ToMap(types Resolver, md *schema.Message, m *Message) map[string]interface{} {
	return MapOptions{}.ToMap(types, md, m)
}

// ToMap is the package-level ToMap with options.
func (o MapOptions) ToMap(types Resolver, md *schema.Message, m *Message) map[string]interface{} {
	out := make(map[string]interface{})
	for _, fd := range md.AllFields() {
		key := fd.Name
		if o.UseJSONNames && fd.JsonName != "" {
			key = fd.JsonName
		}
		rt := types.ResolveType(md, fd)

		f := m.Get(fd.Number)
		if f == nil || f.isEmpty() {
			if o.EmitDefaults {
				out[key] = o.defaultFor(fd, rt)
			}
			continue
		}
		switch {
		case fd.Type.Kind == schema.KindMap:
			out[key] = o.mapEntries(types, rt.Message, f.values)
		case f.repeated:
			list := make([]interface{}, len(f.values))
			for i, v := range f.values {
				list[i] = o.toInterface(types, fd, rt, v)
			}
			out[key] = list
		default:
			out[key] = o.toInterface(types, fd, rt, f.value)
		}
	}
	if o.IncludeUnknown && len(m.unknown) > 0 {
		out[UnknownKey] = append([]byte{}, m.unknown...)
	}
	return out
}

func (o MapOptions) toInterface(types Resolver, fd *schema.Field, rt schema.ResolvedType, v Value) interface{} {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case I32:
		return int32(v)
	case I64:
		return int64(v)
	case U32:
		return uint32(v)
	case U64:
		return uint64(v)
	case F32:
		if s, ok := nonFinite(float64(v)); ok {
			return s
		}
		return float32(v)
	case F64:
		if s, ok := nonFinite(float64(v)); ok {
			return s
		}
		return float64(v)
	case Bytes:
		return []byte(v)
	case String:
		return string(v)
	case Enum:
		if rt.Enum != nil {
			if ev := rt.Enum.ValueByNumber(int32(v)); ev != nil {
				return ev.Name
			}
		}
		return int32(v)
	case *Message:
		return o.messageInterface(types, fd, rt.Message, v)
	default:
		return nil
	}
}

// nonFinite returns the JSON spelling of NaN and the infinities, which JSON
// numbers cannot carry. FromMap reads these strings back.
func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	default:
		return "", false
	}
}

func (o MapOptions) messageInterface(types Resolver, fd *schema.Field, md *schema.Message, m *Message) interface{} {
	if md == nil {
		return nil
	}
	if fd != nil && fd.Type.Kind == schema.KindWrapper {
		inner := md.FieldByNumber(1)
		irt := types.ResolveType(md, inner)
		if f := m.Get(1); f != nil && f.value != nil {
			return o.toInterface(types, inner, irt, f.value)
		}
		return zeroInterface(irt)
	}
	switch md.FullName {
	case timestampName:
		return formatTimestamp(int64Of(m, 1), int32Of(m, 2))
	case durationName:
		return formatDuration(int64Of(m, 1), int32Of(m, 2))
	}
	return o.ToMap(types, md, m)
}

// mapEntries renders repeated entry messages as a map keyed by the formatted key.
func (o MapOptions) mapEntries(types Resolver, entry *schema.Message, values []Value) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	if entry == nil {
		return out
	}
	keyFd, valFd := entry.FieldByNumber(1), entry.FieldByNumber(2)
	keyRt, valRt := types.ResolveType(entry, keyFd), types.ResolveType(entry, valFd)
	for _, v := range values {
		em, ok := v.(*Message)
		if !ok {
			continue
		}
		key := zeroInterface(keyRt)
		if f := em.Get(1); f != nil && f.value != nil {
			key = o.toInterface(types, keyFd, keyRt, f.value)
		}
		var val interface{}
		if f := em.Get(2); f != nil && f.value != nil {
			val = o.toInterface(types, valFd, valRt, f.value)
		} else if valRt.Kind == schema.MessageKind {
			val = o.messageInterface(types, valFd, valRt.Message, New(types, valRt.Message))
		} else {
			val = zeroInterface(valRt)
		}
		out[fmt.Sprint(key)] = val
	}
	return out
}

func (o MapOptions) defaultFor(fd *schema.Field, rt schema.ResolvedType) interface{} {
	switch {
	case fd.Type.Kind == schema.KindMap:
		return map[string]interface{}{}
	case fd.IsRepeated():
		return []interface{}{}
	default:
		return zeroInterface(rt)
	}
}

// zeroInterface is the ToMap rendering of a kind's zero value. Messages have none.
func zeroInterface(rt schema.ResolvedType) interface{} {
	switch rt.Kind {
	case schema.BoolKind:
		return false
	case schema.Int32Kind, schema.Sint32Kind, schema.Sfixed32Kind:
		return int32(0)
	case schema.Int64Kind, schema.Sint64Kind, schema.Sfixed64Kind:
		return int64(0)
	case schema.Uint32Kind, schema.Fixed32Kind:
		return uint32(0)
	case schema.Uint64Kind, schema.Fixed64Kind:
		return uint64(0)
	case schema.FloatKind:
		return float32(0)
	case schema.DoubleKind:
		return float64(0)
	case schema.StringKind:
		return ""
	case schema.BytesKind:
		return []byte{}
	case schema.EnumKind:
		if rt.Enum != nil {
			if ev := rt.Enum.ValueByNumber(0); ev != nil {
				return ev.Name
			}
		}
		return int32(0)
	default:
		return nil
	}
}

func int64Of(m *Message, number int32) int64 {
	if f := m.Get(number); f != nil {
		if v, ok := f.value.(I64); ok {
			return int64(v)
		}
	}
	return 0
}

func int32Of(m *Message, number int32) int32 {
	if f := m.Get(number); f != nil {
		if v, ok := f.value.(I32); ok {
			return int32(v)
		}
	}
	return 0
}

// FromMap builds a message of type md from a generic map such as one produced by
// ToMap or by decoding JSON. Keys may be proto or JSON field names; keys that
// name no field are ignored. Errors carry the path of the offending field.
func FromMap(types Resolver, md *schema.Message, data map[string]interface{}) (*Message, error) {
	m := New(types, md)
	if err := fillMessage(types, md, m, data); err != nil {
		return nil, err
	}
	return m, nil
}

func fillMessage(types Resolver, md *schema.Message, m *Message, data map[string]interface{}) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw := data[k]
		if raw == nil {
			continue
		}
		if k == UnknownKey {
			b, err := coerceToBytes(raw)
			if err != nil {
				return wrapWithField(err, k)
			}
			m.unknown = append(m.unknown, b...)
			continue
		}
		fd := md.FieldByName(k)
		if fd == nil {
			continue // Skip unknown fields
		}
		f := m.ensureField(types, md, fd)
		if err := setField(types, md, fd, f, raw); err != nil {
			return wrapWithField(err, k)
		}
	}
	return nil
}

func setField(types Resolver, md *schema.Message, fd *schema.Field, f *Field, raw interface{}) error {
	rt := types.ResolveType(md, fd)
	if fd.Type.Kind == schema.KindMap {
		return setMapField(types, rt.Message, f, raw)
	}
	if !f.repeated {
		v, err := valueFrom(types, fd, rt, raw)
		if err != nil {
			return err
		}
		f.value = v
		return nil
	}

	elems, err := toSlice(raw)
	if err != nil {
		return err
	}
	f.Clear()
	for i, e := range elems {
		v, err := valueFrom(types, fd, rt, e)
		if err != nil {
			return wrapWithField(err, fmt.Sprintf("[%d]", i))
		}
		f.put(v)
	}
	return nil
}

// setMapField fills a map field with one entry message per key, in key order.
func setMapField(types Resolver, entry *schema.Message, f *Field, raw interface{}) error {
	if entry == nil {
		return newFieldError("map field has no entry type")
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map {
		return newFieldError("map field value must be a map, got %T", raw)
	}
	keyFd, valFd := entry.FieldByNumber(1), entry.FieldByNumber(2)
	keyRt, valRt := types.ResolveType(entry, keyFd), types.ResolveType(entry, valFd)

	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})

	f.Clear()
	for _, k := range keys {
		name := fmt.Sprint(k.Interface())
		em := New(types, entry)
		kv, err := valueFrom(types, keyFd, keyRt, k.Interface())
		if err != nil {
			return wrapWithField(err, name)
		}
		em.ensureField(types, entry, keyFd).value = kv
		if raw := rv.MapIndex(k).Interface(); raw != nil {
			vv, err := valueFrom(types, valFd, valRt, raw)
			if err != nil {
				return wrapWithField(err, name)
			}
			em.ensureField(types, entry, valFd).value = vv
		}
		f.put(em)
	}
	return nil
}

// valueFrom converts one generic value to the Value type of rt.
func valueFrom(types Resolver, fd *schema.Field, rt schema.ResolvedType, raw interface{}) (Value, error) {
	switch rt.Kind {
	case schema.BoolKind:
		b, err := coerceToBool(raw)
		return Bool(b), err
	case schema.Int32Kind, schema.Sint32Kind, schema.Sfixed32Kind:
		n, err := coerceToInt64(raw)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("value %d overflows int32", n)
		}
		return I32(n), nil
	case schema.Int64Kind, schema.Sint64Kind, schema.Sfixed64Kind:
		n, err := coerceToInt64(raw)
		return I64(n), err
	case schema.Uint32Kind, schema.Fixed32Kind:
		n, err := coerceToUint64(raw)
		if err != nil {
			return nil, err
		}
		if n > math.MaxUint32 {
			return nil, fmt.Errorf("value %d overflows uint32", n)
		}
		return U32(n), nil
	case schema.Uint64Kind, schema.Fixed64Kind:
		n, err := coerceToUint64(raw)
		return U64(n), err
	case schema.FloatKind:
		x, err := coerceToFloat64(raw)
		return F32(x), err
	case schema.DoubleKind:
		x, err := coerceToFloat64(raw)
		return F64(x), err
	case schema.StringKind:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return String(s), nil
	case schema.BytesKind:
		b, err := coerceToBytes(raw)
		return Bytes(b), err
	case schema.EnumKind:
		n, err := coerceToEnum(rt.Enum, raw)
		return Enum(n), err
	case schema.MessageKind:
		return messageFrom(types, fd, rt.Message, raw)
	case schema.UnresolvedEnumKind:
		return nil, &UnresolvedTypeError{Field: fd.Name, Name: rt.Name, Enum: true}
	case schema.UnresolvedMessageKind:
		return nil, &UnresolvedTypeError{Field: fd.Name, Name: rt.Name}
	default:
		return nil, fmt.Errorf("unsupported field type %s", rt.Kind)
	}
}

func messageFrom(types Resolver, fd *schema.Field, md *schema.Message, raw interface{}) (Value, error) {
	if md == nil {
		return nil, fmt.Errorf("field %s has no message type", fd.Name)
	}
	data, isMap := raw.(map[string]interface{})

	if !isMap && fd != nil && fd.Type.Kind == schema.KindWrapper {
		inner := md.FieldByNumber(1)
		v, err := valueFrom(types, inner, types.ResolveType(md, inner), raw)
		if err != nil {
			return nil, err
		}
		w := New(types, md)
		w.ensureField(types, md, inner).value = v
		return w, nil
	}

	if s, ok := raw.(string); ok {
		var sec int64
		var nanos int32
		var err error
		switch md.FullName {
		case timestampName:
			sec, nanos, err = parseTimestamp(s)
		case durationName:
			sec, nanos, err = parseDuration(s)
		default:
			return nil, fmt.Errorf("expected object for %s, got string", md.FullName)
		}
		if err != nil {
			return nil, err
		}
		m := New(types, md)
		m.ensureField(types, md, md.FieldByNumber(1)).value = I64(sec)
		m.ensureField(types, md, md.FieldByNumber(2)).value = I32(nanos)
		return m, nil
	}

	if !isMap {
		return nil, fmt.Errorf("expected object for %s, got %T", md.FullName, raw)
	}
	m := New(types, md)
	if err := fillMessage(types, md, m, data); err != nil {
		return nil, err
	}
	return m, nil
}
