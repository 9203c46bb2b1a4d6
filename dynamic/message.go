package dynamic

import (
	"bytes"
	"sort"

	"github.com/anirudhraja/protodyn/schema"
)

// Resolver resolves the declared type of a field. *registry.Registry implements
// it. Resolution never fails outright: unknown type names come back as
// UnresolvedEnumKind or UnresolvedMessageKind and are reported when a value for
// the field is decoded.
type Resolver interface {
	ResolveType(md *schema.Message, fd *schema.Field) schema.ResolvedType
}

// Message is a dynamic protobuf message: known fields ordered by ascending field
// number, the raw bytes of fields the schema does not declare, and the encoded
// size computed by the last size pass.
type Message struct {
	fields  []*Field // ascending by number
	unknown []byte
	size    int
}

// New creates a message with one slot per schema field: repeated fields empty,
// singular fields holding their declared default or nothing.
func New(types Resolver, md *schema.Message) *Message {
	all := md.AllFields()
	m := &Message{fields: make([]*Field, 0, len(all))}
	for _, fd := range all {
		m.insert(newField(types, md, fd))
	}
	return m
}

func (m *Message) search(number int32) int {
	return sort.Search(len(m.fields), func(i int) bool { return m.fields[i].number >= number })
}

// Get returns the field with the given number, or nil.
func (m *Message) Get(number int32) *Field {
	i := m.search(number)
	if i < len(m.fields) && m.fields[i].number == number {
		return m.fields[i]
	}
	return nil
}

// insert adds f, replacing any field with the same number.
func (m *Message) insert(f *Field) {
	i := m.search(f.number)
	if i < len(m.fields) && m.fields[i].number == f.number {
		m.fields[i] = f
		return
	}
	m.fields = append(m.fields, nil)
	copy(m.fields[i+1:], m.fields[i:])
	m.fields[i] = f
}

// ensureField returns the slot for fd, creating it when the message was not built
// from md.
func (m *Message) ensureField(types Resolver, md *schema.Message, fd *schema.Field) *Field {
	if f := m.Get(fd.Number); f != nil {
		return f
	}
	f := newField(types, md, fd)
	m.insert(f)
	return f
}

// SetField installs f, replacing the field with the same number.
func (m *Message) SetField(f *Field) {
	m.insert(f)
}

// Fields returns the fields in ascending number order.
func (m *Message) Fields() []*Field {
	out := make([]*Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Range calls fn for each field in ascending number order until fn returns false.
func (m *Message) Range(fn func(*Field) bool) {
	for _, f := range m.fields {
		if !fn(f) {
			return
		}
	}
}

// Unknown returns the preserved bytes of undeclared fields, in the order they were
// read.
func (m *Message) Unknown() []byte {
	return m.unknown
}

// SetUnknown replaces the preserved unknown-field bytes.
func (m *Message) SetUnknown(b []byte) {
	m.unknown = b
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := &Message{fields: make([]*Field, len(m.fields))}
	for i, f := range m.fields {
		c.fields[i] = f.Clone()
	}
	if m.unknown != nil {
		c.unknown = append([]byte{}, m.unknown...)
	}
	return c
}

// Equal reports whether two messages hold the same fields and unknown bytes.
// Fields that would encode to nothing match missing fields.
func (m *Message) Equal(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	if !bytes.Equal(m.unknown, o.unknown) {
		return false
	}
	i, j := 0, 0
	for i < len(m.fields) || j < len(o.fields) {
		switch {
		case j == len(o.fields) || (i < len(m.fields) && m.fields[i].number < o.fields[j].number):
			if !m.fields[i].isEmpty() {
				return false
			}
			i++
		case i == len(m.fields) || o.fields[j].number < m.fields[i].number:
			if !o.fields[j].isEmpty() {
				return false
			}
			j++
		default:
			if !m.fields[i].Equal(o.fields[j]) {
				return false
			}
			i++
			j++
		}
	}
	return true
}
