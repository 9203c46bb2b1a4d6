package dynamic

import (
	"github.com/anirudhraja/protodyn/schema"
)

// Field is one field slot of a Message: either a singular slot holding at most one
// Value or a repeated slot holding an ordered sequence.
//
// The Field records the resolved kind of its slot so the encoder can tell, for
// example, an I32 of an int32 field (plain varint) from one of a sint32 field
// (zigzag) or an sfixed32 field (four bytes).
type Field struct {
	number   int32
	kind     schema.Kind
	repeated bool
	value    Value   // singular slot, nil when absent
	values   []Value // repeated slot

	// explicit is set for fields with a declared default. Their value is
	// written even when it is the kind's zero, so that decoding restores it
	// instead of the default.
	explicit bool
}

// NewSingular creates a singular field holding v, which may be nil.
func NewSingular(number int32, kind schema.Kind, v Value) *Field {
	return &Field{number: number, kind: kind, value: v}
}

// NewRepeated creates a repeated field holding vs.
func NewRepeated(number int32, kind schema.Kind, vs ...Value) *Field {
	return &Field{number: number, kind: kind, repeated: true, values: vs}
}

// newField creates the empty or defaulted slot for a schema field.
func newField(types Resolver, md *schema.Message, fd *schema.Field) *Field {
	rt := types.ResolveType(md, fd)
	if fd.IsRepeated() {
		return NewRepeated(fd.Number, rt.Kind)
	}
	f := NewSingular(fd.Number, rt.Kind, nil)
	if fd.HasDefault() {
		f.value = defaultValue(rt, fd.DefaultValue)
		f.explicit = true
	}
	return f
}

// Number returns the field number.
func (f *Field) Number() int32 { return f.number }

// Kind returns the resolved kind of the slot.
func (f *Field) Kind() schema.Kind { return f.kind }

// IsRepeated reports whether the field holds a sequence.
func (f *Field) IsRepeated() bool { return f.repeated }

// Get returns the value of a singular field and whether one is present.
func (f *Field) Get() (Value, bool) {
	return f.value, f.value != nil
}

// Values returns the elements of a repeated field. The slice is shared with the
// field.
func (f *Field) Values() []Value {
	return f.values
}

// Len returns the number of values held: 0 or 1 for singular fields.
func (f *Field) Len() int {
	if f.repeated {
		return len(f.values)
	}
	if f.value == nil {
		return 0
	}
	return 1
}

// Set replaces the content of the field with v: the singular slot, or the whole
// sequence of a repeated field.
func (f *Field) Set(v Value) {
	if f.repeated {
		f.values = []Value{v}
		return
	}
	f.value = v
}

// Append adds v to a repeated field. On a singular field it replaces the slot,
// which is what decoding a second occurrence does.
func (f *Field) Append(v Value) {
	f.put(v)
}

// Clear empties the field.
func (f *Field) Clear() {
	f.value = nil
	f.values = nil
}

// put stores a decoded value: appended when repeated, replacing otherwise.
func (f *Field) put(v Value) {
	if f.repeated {
		f.values = append(f.values, v)
		return
	}
	f.value = v
}

// Clone returns a deep copy of the field.
func (f *Field) Clone() *Field {
	c := &Field{number: f.number, kind: f.kind, repeated: f.repeated, explicit: f.explicit}
	if f.value != nil {
		c.value = Clone(f.value)
	}
	if f.values != nil {
		c.values = make([]Value, len(f.values))
		for i, v := range f.values {
			c.values[i] = Clone(v)
		}
	}
	return c
}

// Equal reports whether both fields hold equal content. A singular slot holding
// its kind's zero value equals an absent one, since the two encode identically,
// unless the field has a declared default.
func (f *Field) Equal(o *Field) bool {
	if f.repeated != o.repeated {
		return false
	}
	if f.repeated {
		if len(f.values) != len(o.values) {
			return false
		}
		for i := range f.values {
			if !Equal(f.values[i], o.values[i]) {
				return false
			}
		}
		return true
	}
	a, b := f.value, o.value
	if a == nil || b == nil {
		return f.omitsSingular() && o.omitsSingular()
	}
	return Equal(a, b)
}

// isEmpty reports whether the field contributes nothing to the encoding.
func (f *Field) isEmpty() bool {
	if f.repeated {
		for _, v := range f.values {
			if v != nil {
				return false
			}
		}
		return true
	}
	return f.omitsSingular()
}

// omitsSingular reports whether the singular slot is left off the wire.
func (f *Field) omitsSingular() bool {
	return f.value == nil || (!f.explicit && isZero(f.value))
}
