package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestDecoder_ReadTag(t *testing.T) {
	d := NewDecoder([]byte{0x08, 0x96, 0x01, 0x12, 0x00})

	num, typ, err := d.ReadTag()
	if err != nil || num != 1 || typ != WireVarint {
		t.Fatalf("ReadTag = %d, %s, %v", num, typ, err)
	}
	v, err := d.ReadVarint()
	if err != nil || v != 150 {
		t.Fatalf("ReadVarint = %d, %v", v, err)
	}
	num, typ, err = d.ReadTag()
	if err != nil || num != 2 || typ != WireBytes {
		t.Fatalf("ReadTag = %d, %s, %v", num, typ, err)
	}
	if b, err := d.ReadRawBytes(); err != nil || len(b) != 0 {
		t.Fatalf("ReadRawBytes = %v, %v", b, err)
	}
	if !d.EOF() {
		t.Fatalf("expected EOF at %d", d.Pos())
	}
}

func TestDecoder_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(d *Decoder) error
		want error
	}{
		{
			name: "truncated varint",
			data: []byte{0x80},
			read: func(d *Decoder) error { _, err := d.ReadVarint(); return err },
			want: ErrTruncated,
		},
		{
			name: "varint overflow",
			data: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02},
			read: func(d *Decoder) error { _, err := d.ReadVarint(); return err },
			want: ErrOverflow,
		},
		{
			name: "field number zero",
			data: []byte{0x00},
			read: func(d *Decoder) error { _, _, err := d.ReadTag(); return err },
			want: ErrFieldNumber,
		},
		{
			name: "truncated fixed32",
			data: []byte{0x01, 0x02, 0x03},
			read: func(d *Decoder) error { _, err := d.ReadFixed32(); return err },
			want: ErrTruncated,
		},
		{
			name: "truncated fixed64",
			data: []byte{0x01, 0x02, 0x03, 0x04},
			read: func(d *Decoder) error { _, err := d.ReadDouble(); return err },
			want: ErrTruncated,
		},
		{
			name: "length past end",
			data: []byte{0x05, 0x61},
			read: func(d *Decoder) error { _, err := d.ReadRawBytes(); return err },
			want: ErrTruncated,
		},
		{
			name: "length past window",
			data: []byte{0x05, 0x61},
			read: func(d *Decoder) error { _, err := d.ReadLength(); return err },
			want: ErrTruncated,
		},
		{
			name: "reserved wire type",
			data: []byte{0x0E, 0x00},
			read: func(d *Decoder) error {
				num, typ, err := d.ReadTag()
				if err != nil {
					return err
				}
				return d.SkipField(num, typ)
			},
			want: ErrReservedWireType,
		},
		{
			name: "mismatched end group",
			data: []byte{0x0B, 0x14},
			read: func(d *Decoder) error {
				num, typ, err := d.ReadTag()
				if err != nil {
					return err
				}
				_, err = d.ReadUnknown(num, typ)
				return err
			},
			want: ErrEndGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(NewDecoder(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecoder_Limits(t *testing.T) {
	// Field 1 holds a two byte message {1: 1}; field 2 follows it.
	d := NewDecoder([]byte{0x0A, 0x02, 0x08, 0x01, 0x10, 0x02})

	if _, _, err := d.ReadTag(); err != nil {
		t.Fatal(err)
	}
	n, err := d.ReadLength()
	if err != nil {
		t.Fatal(err)
	}
	old, err := d.PushLimit(n)
	if err != nil {
		t.Fatal(err)
	}
	if d.Remaining() != 2 {
		t.Fatalf("Remaining = %d, want 2", d.Remaining())
	}
	if num, _, err := d.ReadTag(); err != nil || num != 1 {
		t.Fatalf("nested ReadTag = %d, %v", num, err)
	}
	if v, err := d.ReadVarint(); err != nil || v != 1 {
		t.Fatalf("nested ReadVarint = %d, %v", v, err)
	}
	if !d.EOF() {
		t.Fatal("expected nested window to be exhausted")
	}
	if _, err := d.ReadVarint(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("read past window: got %v, want ErrTruncated", err)
	}
	d.PopLimit(old)

	if d.EOF() {
		t.Fatal("outer window exhausted early")
	}
	if num, _, err := d.ReadTag(); err != nil || num != 2 {
		t.Fatalf("outer ReadTag = %d, %v", num, err)
	}

	if _, err := NewDecoder([]byte{0x01}).PushLimit(2); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("PushLimit past end: got %v, want ErrLimitExceeded", err)
	}
}

func TestDecoder_ReadUnknown(t *testing.T) {
	data := []byte{
		0x48, 0x07, // 9: varint 7
		0x53, 0x28, 0x01, 0x54, // 10: group {5: 1}
		0x5D, 0x01, 0x02, 0x03, 0x04, // 11: fixed32
	}
	d := NewDecoder(data)

	var got [][]byte
	for !d.EOF() {
		num, typ, err := d.ReadTag()
		if err != nil {
			t.Fatal(err)
		}
		raw, err := d.ReadUnknown(num, typ)
		if err != nil {
			t.Fatalf("field %d: %v", num, err)
		}
		got = append(got, raw)
	}
	want := [][]byte{data[0:2], data[2:6], data[6:11]}
	if len(got) != len(want) {
		t.Fatalf("got %d fields, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("field %d = % x, want % x", i, got[i], want[i])
		}
	}
}

func TestDecoder_Scalars(t *testing.T) {
	e := NewEncoder()
	e.WriteInt32(-1)
	e.WriteSint32(math.MinInt32)
	e.WriteSint64(-3)
	e.WriteUint32(math.MaxUint32)
	e.WriteBool(true)
	e.WriteEnum(-2)
	e.WriteSfixed32(-7)
	e.WriteSfixed64(math.MinInt64)
	e.WriteFloat(1.5)
	e.WriteDouble(-0.25)
	e.WriteString("héllo")
	e.WriteBytes([]byte{0xDE, 0xAD})

	d := NewDecoder(e.Bytes())
	check := func(name string, got, want interface{}, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
	}
	i32, err := d.ReadInt32()
	check("int32", i32, int32(-1), err)
	s32, err := d.ReadSint32()
	check("sint32", s32, int32(math.MinInt32), err)
	s64, err := d.ReadSint64()
	check("sint64", s64, int64(-3), err)
	u32, err := d.ReadUint32()
	check("uint32", u32, uint32(math.MaxUint32), err)
	b, err := d.ReadBool()
	check("bool", b, true, err)
	en, err := d.ReadEnum()
	check("enum", en, int32(-2), err)
	sf32, err := d.ReadSfixed32()
	check("sfixed32", sf32, int32(-7), err)
	sf64, err := d.ReadSfixed64()
	check("sfixed64", sf64, int64(math.MinInt64), err)
	f, err := d.ReadFloat()
	check("float", f, float32(1.5), err)
	db, err := d.ReadDouble()
	check("double", db, -0.25, err)
	s, err := d.ReadString()
	check("string", s, "héllo", err)
	raw, err := d.ReadBytes()
	if err != nil || !bytes.Equal(raw, []byte{0xDE, 0xAD}) {
		t.Fatalf("bytes = % x, %v", raw, err)
	}
	if !d.EOF() {
		t.Fatalf("%d bytes left over", d.Remaining())
	}
}

func TestDecoder_ReadBytesCopies(t *testing.T) {
	data := []byte{0x02, 0x61, 0x62}

	copied, err := NewDecoder(data).ReadBytes()
	if err != nil {
		t.Fatal(err)
	}
	shared, err := NewDecoder(data).ReadRawBytes()
	if err != nil {
		t.Fatal(err)
	}
	data[1] = 'z'
	if string(copied) != "ab" {
		t.Errorf("ReadBytes result changed with its input: %q", copied)
	}
	if string(shared) != "zb" {
		t.Errorf("ReadRawBytes should alias its input, got %q", shared)
	}
}
