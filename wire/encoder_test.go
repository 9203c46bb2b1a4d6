package wire

import (
	"bytes"
	"math"
	"testing"
)

func TestEncoder_Encodings(t *testing.T) {
	tests := []struct {
		name  string
		write func(e *Encoder)
		want  []byte
	}{
		{"tag", func(e *Encoder) { e.WriteTag(1, WireVarint) }, []byte{0x08}},
		{"large tag", func(e *Encoder) { e.WriteTag(MaxFieldNumber, WireFixed32) }, []byte{0xFD, 0xFF, 0xFF, 0xFF, 0x0F}},
		{"varint 300", func(e *Encoder) { e.WriteUint32(300) }, []byte{0xAC, 0x02}},
		{"negative int32", func(e *Encoder) { e.WriteInt32(-1) }, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
		{"sint32 -1", func(e *Encoder) { e.WriteSint32(-1) }, []byte{0x01}},
		{"sint64 1", func(e *Encoder) { e.WriteSint64(1) }, []byte{0x02}},
		{"bool", func(e *Encoder) { e.WriteBool(true) }, []byte{0x01}},
		{"fixed32", func(e *Encoder) { e.WriteFixed32(1) }, []byte{0x01, 0x00, 0x00, 0x00}},
		{"sfixed64 -1", func(e *Encoder) { e.WriteSfixed64(-1) }, bytes.Repeat([]byte{0xFF}, 8)},
		{"negative zero", func(e *Encoder) { e.WriteDouble(math.Copysign(0, -1)) }, []byte{0, 0, 0, 0, 0, 0, 0, 0x80}},
		{"string", func(e *Encoder) { e.WriteString("hi") }, []byte{0x02, 'h', 'i'}},
		{"empty bytes", func(e *Encoder) { e.WriteBytes(nil) }, []byte{0x00}},
		{"raw", func(e *Encoder) { e.WriteRaw([]byte{0x48, 0x07}) }, []byte{0x48, 0x07}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEncoder()
			tt.write(e)
			if !bytes.Equal(e.Bytes(), tt.want) {
				t.Fatalf("got % x, want % x", e.Bytes(), tt.want)
			}
			if e.Len() != len(tt.want) {
				t.Fatalf("Len = %d, want %d", e.Len(), len(tt.want))
			}
		})
	}
}

func TestEncoder_Sizes(t *testing.T) {
	for _, v := range []int32{0, 1, 127, 128, -1, math.MaxInt32, math.MinInt32} {
		e := NewEncoder()
		e.WriteInt32(v)
		if got := Int32Size(v); got != e.Len() {
			t.Errorf("Int32Size(%d) = %d, wrote %d", v, got, e.Len())
		}
	}
	for _, v := range []uint64{0, 127, 128, 1 << 35, math.MaxUint64} {
		e := NewEncoder()
		e.WriteVarint(v)
		if got := VarintSize(v); got != e.Len() {
			t.Errorf("VarintSize(%d) = %d, wrote %d", v, got, e.Len())
		}
	}
	for _, num := range []FieldNumber{1, 15, 16, 2047, 2048, MaxFieldNumber} {
		e := NewEncoder()
		e.WriteTag(num, WireBytes)
		if got := TagSize(num); got != e.Len() {
			t.Errorf("TagSize(%d) = %d, wrote %d", num, got, e.Len())
		}
	}
	if BytesSize(200) != 202 {
		t.Errorf("BytesSize(200) = %d, want 202", BytesSize(200))
	}
	if Fixed32Size() != 4 || Fixed64Size() != 8 {
		t.Errorf("fixed sizes = %d, %d", Fixed32Size(), Fixed64Size())
	}
}

func TestEncoder_SizedBufferAndReset(t *testing.T) {
	e := NewEncoderSize(16)
	if cap(e.Bytes()) != 16 {
		t.Fatalf("cap = %d, want 16", cap(e.Bytes()))
	}
	e.WriteString("abc")
	e.Reset()
	if e.Len() != 0 {
		t.Fatalf("Len after Reset = %d", e.Len())
	}
	e.WriteUint64(1)
	if !bytes.Equal(e.Bytes(), []byte{0x01}) {
		t.Fatalf("got % x after Reset", e.Bytes())
	}
}

func TestZigZag(t *testing.T) {
	tests := []struct {
		v       int64
		encoded uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{math.MaxInt32, 0xFFFFFFFE},
		{math.MinInt32, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		if got := EncodeZigZag32(int32(tt.v)); got != tt.encoded {
			t.Errorf("EncodeZigZag32(%d) = %d, want %d", tt.v, got, tt.encoded)
		}
		if got := DecodeZigZag32(tt.encoded); int64(got) != tt.v {
			t.Errorf("DecodeZigZag32(%d) = %d, want %d", tt.encoded, got, tt.v)
		}
		if got := DecodeZigZag64(EncodeZigZag64(tt.v)); got != tt.v {
			t.Errorf("zigzag64 round trip of %d = %d", tt.v, got)
		}
	}
	if got := EncodeZigZag64(math.MinInt64); got != math.MaxUint64 {
		t.Errorf("EncodeZigZag64(MinInt64) = %d", got)
	}
}

func TestTagRoundTrip(t *testing.T) {
	tag := MakeTag(12345, WireFixed64)
	num, typ := ParseTag(tag)
	if num != 12345 || typ != WireFixed64 {
		t.Fatalf("ParseTag = %d, %s", num, typ)
	}
	if FieldNumber(0).IsValid() || !FieldNumber(1).IsValid() || (MaxFieldNumber + 1).IsValid() {
		t.Fatal("IsValid disagrees with the field number range")
	}
	if WireType(7).String() != "wiretype(7)" || WireStartGroup.String() != "start_group" {
		t.Fatalf("unexpected names %q %q", WireType(7).String(), WireStartGroup.String())
	}
}
