package dynamic

import (
	"errors"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/anirudhraja/protodyn/schema"
	"github.com/anirudhraja/protodyn/wire"
)

func TestMergeFrom_Scenario(t *testing.T) {
	fx := newFixture(t)
	md := fx.message(t, "dyn.Scenario")
	data := []byte{0x08, 0x2A, 0x12, 0x02, 0x61, 0x62, 0x12, 0x02, 0x63, 0x64}

	m := New(fx.reg, md)
	if err := m.MergeFrom(fx.reg, md, wire.NewDecoder(data)); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	td.Cmp(t, get(t, md, m, "id"), I32(42))
	td.Cmp(t, m.Get(2).Values(), []Value{String("ab"), String("cd")})
	td.Cmp(t, len(m.Unknown()), 0)

	td.Cmp(t, mustMarshal(t, m), data)
}

func TestMergeFrom_WireTypeMismatch(t *testing.T) {
	fx := newFixture(t)
	scenario := fx.message(t, "dyn.Scenario")
	scalars := fx.message(t, "dyn.Scalars")

	tests := []struct {
		name  string
		md    *schema.Message
		data  []byte
		field int32
		kind  schema.Kind
		wt    wire.WireType
	}{
		{"int32 as length-delimited", scenario, []byte{0x0A, 0x01, 0x00}, 1, schema.Int32Kind, wire.WireBytes},
		{"singular int32 as packed run", scenario, []byte{0x0A, 0x02, 0x01, 0x02}, 1, schema.Int32Kind, wire.WireBytes},
		{"int32 as fixed32", scenario, []byte{0x0D, 0x01, 0x00, 0x00, 0x00}, 1, schema.Int32Kind, wire.WireFixed32},
		{"string as varint", scenario, []byte{0x10, 0x01}, 2, schema.StringKind, wire.WireVarint},
		{"sfixed32 as varint", scalars, []byte{0x20, 0x01}, 4, schema.Sfixed32Kind, wire.WireVarint},
		{"double as fixed32", scalars, []byte{0x6D, 0x00, 0x00, 0x00, 0x00}, 13, schema.DoubleKind, wire.WireFixed32},
		{"enum as length-delimited", scalars, []byte{0x82, 0x01, 0x01, 0x01}, 16, schema.EnumKind, wire.WireBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(fx.reg, tt.md)
			err := m.MergeFrom(fx.reg, tt.md, wire.NewDecoder(tt.data))

			var wte *WireTypeError
			if !errors.As(err, &wte) {
				t.Fatalf("expected *WireTypeError, got %v", err)
			}
			td.Cmp(t, wte.Field, tt.field)
			td.Cmp(t, wte.Kind, tt.kind)
			td.Cmp(t, wte.WireType, tt.wt)
			td.Cmp(t, m.Get(tt.field).Len(), 0)
		})
	}
}

func TestMergeFrom_PackedAndUnpacked(t *testing.T) {
	fx := newFixture(t)
	md := fx.message(t, "dyn.Repeats")

	packed := []byte{0x0A, 0x03, 0x01, 0x02, 0x03}
	unpacked := []byte{0x08, 0x01, 0x08, 0x02, 0x08, 0x03}
	want := []Value{I32(1), I32(2), I32(3)}

	for name, data := range map[string][]byte{"packed": packed, "unpacked": unpacked} {
		t.Run(name, func(t *testing.T) {
			m, err := Unmarshal(fx.reg, md, data)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			td.Cmp(t, m.Get(1).Values(), want)
		})
	}

	t.Run("mixed", func(t *testing.T) {
		data := append(append([]byte{}, packed...), 0x08, 0x04)
		m, err := Unmarshal(fx.reg, md, data)
		if err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		td.Cmp(t, m.Get(1).Values(), []Value{I32(1), I32(2), I32(3), I32(4)})
	})

	t.Run("packed zigzag and doubles", func(t *testing.T) {
		data := []byte{
			0x12, 0x02, 0x01, 0x04, // zigzags: -1, 2
			0x1A, 0x08, 0, 0, 0, 0, 0, 0, 0xF0, 0x3F, // doubles: 1.0
		}
		m, err := Unmarshal(fx.reg, md, data)
		if err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		td.Cmp(t, m.Get(2).Values(), []Value{I64(-1), I64(2)})
		td.Cmp(t, m.Get(3).Values(), []Value{F64(1)})
	})

	t.Run("truncated run", func(t *testing.T) {
		_, err := Unmarshal(fx.reg, md, []byte{0x0A, 0x02, 0x01, 0x80})
		if !errors.Is(err, wire.ErrTruncated) {
			t.Fatalf("expected ErrTruncated, got %v", err)
		}
	})
}

func TestMergeFrom_UnknownFields(t *testing.T) {
	fx := newFixture(t)
	md := fx.message(t, "dyn.Scenario")
	data := []byte{
		0x08, 0x2A,
		0x48, 0x07, // field 9, varint
		0x12, 0x02, 0x61, 0x62,
		0x4B, 0x08, 0x01, 0x4C, // field 9, group
	}

	m, err := Unmarshal(fx.reg, md, data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	td.Cmp(t, m.Unknown(), []byte{0x48, 0x07, 0x4B, 0x08, 0x01, 0x4C})

	// Known fields come first, unknown bytes follow in arrival order.
	td.Cmp(t, mustMarshal(t, m), []byte{0x08, 0x2A, 0x12, 0x02, 0x61, 0x62, 0x48, 0x07, 0x4B, 0x08, 0x01, 0x4C})

	t.Run("discard", func(t *testing.T) {
		m, err := MergeOptions{DiscardUnknown: true}.Unmarshal(fx.reg, md, data)
		if err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		td.Cmp(t, len(m.Unknown()), 0)
		td.Cmp(t, get(t, md, m, "id"), I32(42))
	})

	t.Run("unterminated group", func(t *testing.T) {
		_, err := Unmarshal(fx.reg, md, []byte{0x4B, 0x08, 0x01})
		if err == nil {
			t.Fatal("expected an error for an unterminated group")
		}
	})
}

func TestMergeFrom_SingularLastWins(t *testing.T) {
	fx := newFixture(t)
	md := fx.message(t, "dyn.Scenario")

	m, err := Unmarshal(fx.reg, md, []byte{0x08, 0x01, 0x08, 0x02})
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	td.Cmp(t, get(t, md, m, "id"), I32(2))

	// A second merge overwrites singular fields and appends to repeated ones.
	m2 := New(fx.reg, md)
	for _, chunk := range [][]byte{{0x08, 0x01, 0x12, 0x01, 0x61}, {0x08, 0x05, 0x12, 0x01, 0x62}} {
		if err := m2.MergeFrom(fx.reg, md, wire.NewDecoder(chunk)); err != nil {
			t.Fatalf("MergeFrom: %v", err)
		}
	}
	td.Cmp(t, get(t, md, m2, "id"), I32(5))
	td.Cmp(t, m2.Get(2).Values(), []Value{String("a"), String("b")})
}

func TestMergeFrom_NestedMessageMerges(t *testing.T) {
	fx := newFixture(t)
	md := fx.message(t, "dyn.Node")

	m := New(fx.reg, md)
	if err := m.MergeFrom(fx.reg, md, wire.NewDecoder([]byte{0x12, 0x03, 0x0A, 0x01, 0x61})); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	first, ok := get(t, md, m, "child").(*Message)
	if !ok {
		t.Fatal("child not decoded")
	}

	// child { at { seconds: 5 } }
	if err := m.MergeFrom(fx.reg, md, wire.NewDecoder([]byte{0x12, 0x04, 0x2A, 0x02, 0x08, 0x05})); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	child := get(t, md, m, "child").(*Message)
	if child != first {
		t.Fatal("nested message was replaced instead of merged")
	}
	td.Cmp(t, get(t, md, child, "name"), String("a"))

	at, ok := get(t, md, child, "at").(*Message)
	if !ok {
		t.Fatal("timestamp not decoded")
	}
	td.Cmp(t, at.Get(1).Len(), 1)
	v, _ := at.Get(1).Get()
	td.Cmp(t, v, I64(5))
}

func TestMergeFrom_RepeatedMessages(t *testing.T) {
	fx := newFixture(t)
	md := fx.message(t, "dyn.Repeats")
	scenario := fx.message(t, "dyn.Scenario")

	data := []byte{0x32, 0x02, 0x08, 0x01, 0x32, 0x02, 0x08, 0x02}
	m, err := Unmarshal(fx.reg, md, data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	items := m.Get(6).Values()
	td.Cmp(t, len(items), 2)
	td.Cmp(t, get(t, scenario, items[0].(*Message), "id"), I32(1))
	td.Cmp(t, get(t, scenario, items[1].(*Message), "id"), I32(2))
	td.Cmp(t, mustMarshal(t, m), data)
}

func TestMergeFrom_RecursionLimit(t *testing.T) {
	fx := newFixture(t)
	md := fx.message(t, "dyn.Node")
	// Three nested children: child { child { child { name: "x" } } }.
	data := []byte{0x12, 0x07, 0x12, 0x05, 0x12, 0x03, 0x0A, 0x01, 0x78}

	_, err := MergeOptions{RecursionLimit: 2}.Unmarshal(fx.reg, md, data)
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("expected ErrRecursionLimit, got %v", err)
	}

	m, err := MergeOptions{RecursionLimit: 3}.Unmarshal(fx.reg, md, data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	td.Cmp(t, mustMarshal(t, m), data)
}

func TestMergeFrom_Errors(t *testing.T) {
	fx := newFixture(t)
	scenario := fx.message(t, "dyn.Scenario")
	node := fx.message(t, "dyn.Node")
	legacy := fx.message(t, "legacy.Defaults")

	tests := []struct {
		name string
		md   *schema.Message
		data []byte
		want error
	}{
		{"truncated tag value", scenario, []byte{0x08}, wire.ErrTruncated},
		{"truncated varint", scenario, []byte{0x08, 0x80}, wire.ErrTruncated},
		{"truncated string", scenario, []byte{0x12, 0x05, 0x61}, wire.ErrTruncated},
		{"message longer than input", node, []byte{0x12, 0x05, 0x0A}, wire.ErrLimitExceeded},
		{"field number zero", scenario, []byte{0x00, 0x01}, wire.ErrFieldNumber},
		{"invalid utf-8", scenario, []byte{0x12, 0x01, 0xFF}, ErrInvalidUTF8},
		{"group field", legacy, []byte{0x23, 0x28, 0x01, 0x24}, ErrUnsupportedGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Unmarshal(fx.reg, tt.md, tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if m != nil {
				t.Error("Unmarshal returned a message along with an error")
			}
		})
	}
}

func TestMergeFrom_UnresolvedType(t *testing.T) {
	fx := newFixture(t)
	md := &schema.Message{
		Name:     "Broken",
		FullName: "broken.Broken",
		Fields: []*schema.Field{
			{Name: "ref", Number: 1, Label: schema.LabelOptional, Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "broken.Missing"}, OneofIndex: -1},
			{Name: "state", Number: 2, Label: schema.LabelOptional, Type: schema.FieldType{Kind: schema.KindEnum, EnumType: "broken.State"}, OneofIndex: -1},
			{Name: "ok", Number: 3, Label: schema.LabelOptional, Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt32}, OneofIndex: -1},
		},
	}

	// Unresolved fields only fail once a value for them shows up.
	m, err := Unmarshal(fx.reg, md, []byte{0x18, 0x01})
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	td.Cmp(t, get(t, md, m, "ok"), I32(1))

	tests := []struct {
		name     string
		data     []byte
		enum     bool
		typeName string
	}{
		{"message", []byte{0x0A, 0x00}, false, "broken.Missing"},
		{"enum", []byte{0x10, 0x01}, true, "broken.State"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(fx.reg, md, tt.data)
			var ute *UnresolvedTypeError
			if !errors.As(err, &ute) {
				t.Fatalf("expected *UnresolvedTypeError, got %v", err)
			}
			td.Cmp(t, ute.Enum, tt.enum)
			td.Cmp(t, ute.Name, tt.typeName)
		})
	}
}

func TestMergeFrom_Enums(t *testing.T) {
	fx := newFixture(t)
	scalars := fx.message(t, "dyn.Scalars")
	repeats := fx.message(t, "dyn.Repeats")

	// Numbers the enum does not declare are kept as is.
	data := []byte{0x80, 0x01, 0x63}
	m, err := Unmarshal(fx.reg, scalars, data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	td.Cmp(t, get(t, scalars, m, "color"), Enum(99))
	td.Cmp(t, mustMarshal(t, m), data)

	// Repeated enums are read one varint per tag.
	m, err = Unmarshal(fx.reg, repeats, []byte{0x20, 0x01, 0x20, 0x02})
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	td.Cmp(t, m.Get(4).Values(), []Value{Enum(1), Enum(2)})

	_, err = Unmarshal(fx.reg, repeats, []byte{0x22, 0x02, 0x01, 0x02})
	var wte *WireTypeError
	if !errors.As(err, &wte) {
		t.Fatalf("expected *WireTypeError for a packed enum run, got %v", err)
	}
}

func TestNew_Proto2Defaults(t *testing.T) {
	fx := newFixture(t)
	md := fx.message(t, "legacy.Defaults")

	m := New(fx.reg, md)
	td.Cmp(t, get(t, md, m, "count"), I32(7))
	td.Cmp(t, get(t, md, m, "name"), String("anon"))
	td.Cmp(t, get(t, md, m, "mode"), Enum(1))
	td.Cmp(t, get(t, md, m, "offset"), I64(-3))
	td.Cmp(t, get(t, md, m, "extra"), nil)

	// Decoded values replace the defaults.
	if err := m.MergeFrom(fx.reg, md, wire.NewDecoder([]byte{0x08, 0x09})); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	td.Cmp(t, get(t, md, m, "count"), I32(9))
	td.Cmp(t, get(t, md, m, "name"), String("anon"))
}

func TestMergeFrom_IntoEmptyMessage(t *testing.T) {
	fx := newFixture(t)
	md := fx.message(t, "dyn.Scenario")

	// Fields are created on demand when the message was not built by New.
	m := &Message{}
	if err := m.MergeFrom(fx.reg, md, wire.NewDecoder([]byte{0x12, 0x01, 0x7A})); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	td.Cmp(t, len(m.Fields()), 1)
	td.Cmp(t, m.Get(2).Values(), []Value{String("z")})
}
