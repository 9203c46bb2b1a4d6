package dynamic

import (
	"context"
	"testing"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/anirudhraja/protodyn/registry"
	"github.com/anirudhraja/protodyn/schema"
)

const dynProto = `syntax = "proto3";
package dyn;

import "google/protobuf/wrappers.proto";
import "google/protobuf/timestamp.proto";
import "google/protobuf/duration.proto";

enum Color {
  COLOR_UNSPECIFIED = 0;
  RED = 1;
  GREEN = 2;
}

message Scenario {
  int32 id = 1;
  repeated string names = 2;
}

message Scalars {
  bool b = 1;
  int32 i32 = 2;
  sint32 s32 = 3;
  sfixed32 sf32 = 4;
  uint32 u32 = 5;
  fixed32 f32 = 6;
  int64 i64 = 7;
  sint64 s64 = 8;
  sfixed64 sf64 = 9;
  uint64 u64 = 10;
  fixed64 f64 = 11;
  float fl = 12;
  double db = 13;
  bytes raw = 14;
  string str = 15;
  Color color = 16;
}

message Repeats {
  repeated int32 ints = 1;
  repeated sint64 zigzags = 2;
  repeated double doubles = 3;
  repeated Color colors = 4 [packed = false];
  repeated string strs = 5;
  repeated Scenario items = 6;
}

message Node {
  string name = 1;
  Node child = 2;
  map<string, int32> counts = 3;
  google.protobuf.StringValue label = 4;
  google.protobuf.Timestamp at = 5;
  repeated Node children = 6;
  string display_name = 7;
  google.protobuf.Duration ttl = 8;
}
`

const legacyProto = `syntax = "proto2";
package legacy;

message Defaults {
  enum Mode {
    SLOW = 0;
    FAST = 1;
  }
  optional int32 count = 1 [default = 7];
  optional string name = 2 [default = "anon"];
  optional Mode mode = 3 [default = FAST];
  optional group Extra = 4 {
    optional int32 x = 5;
  }
  optional sint64 offset = 6 [default = -3];
}
`

// fixture is a registry loaded with the test schemas plus the linked
// descriptors, for comparing against dynamicpb.
type fixture struct {
	reg   *registry.Registry
	files map[string]protoreflect.FileDescriptor
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	sources := map[string]string{"dyn.proto": dynProto, "legacy.proto": legacyProto}
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(sources),
		}),
	}
	compiled, err := compiler.Compile(context.Background(), "dyn.proto", "legacy.proto")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	fx := &fixture{reg: registry.NewRegistry(nil), files: make(map[string]protoreflect.FileDescriptor)}
	for _, f := range compiled {
		fx.files[f.Path()] = f
		fx.reg.AddFiles(f)
	}
	return fx
}

func (fx *fixture) message(t testing.TB, name string) *schema.Message {
	t.Helper()
	md, err := fx.reg.GetMessage(name)
	if err != nil {
		t.Fatal(err)
	}
	return md
}

// descriptor finds a top level message descriptor of dyn.proto.
func (fx *fixture) descriptor(t testing.TB, name protoreflect.Name) protoreflect.MessageDescriptor {
	t.Helper()
	md := fx.files["dyn.proto"].Messages().ByName(name)
	if md == nil {
		t.Fatalf("no descriptor %s", name)
	}
	return md
}

// set stores v in the singular field named name.
func set(t *testing.T, md *schema.Message, m *Message, name string, v Value) {
	t.Helper()
	fd := md.FieldByName(name)
	if fd == nil {
		t.Fatalf("%s has no field %s", md.FullName, name)
	}
	f := m.Get(fd.Number)
	if f == nil {
		t.Fatalf("field %s not materialized", name)
	}
	f.Set(v)
}

// get returns the value of the singular field named name, or nil.
func get(t *testing.T, md *schema.Message, m *Message, name string) Value {
	t.Helper()
	fd := md.FieldByName(name)
	if fd == nil {
		t.Fatalf("%s has no field %s", md.FullName, name)
	}
	f := m.Get(fd.Number)
	if f == nil {
		return nil
	}
	v, _ := f.Get()
	return v
}

func mustMarshal(t testing.TB, m *Message) []byte {
	t.Helper()
	b, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return b
}
