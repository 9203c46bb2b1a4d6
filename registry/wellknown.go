package registry

import (
	"sort"
	"strings"

	"github.com/anirudhraja/protodyn/schema"
)

// wellKnownFiles describes the google.protobuf types that .proto sources may use
// without the registry having their files: the wrappers, Timestamp, Duration and
// Empty.
func wellKnownFiles() []*schema.ProtoFile {
	wrappers := &schema.ProtoFile{Name: "google/protobuf/wrappers.proto", Package: "google.protobuf", Syntax: "proto3"}
	names := make([]string, 0, len(schema.WrapperPrimitives))
	for w := range schema.WrapperPrimitives {
		names = append(names, string(w))
	}
	sort.Strings(names)
	for _, name := range names {
		prim := schema.WrapperPrimitives[schema.WrapperType(name)]
		wrappers.Messages = append(wrappers.Messages, &schema.Message{
			Name:   strings.TrimPrefix(name, "google.protobuf."),
			Fields: []*schema.Field{primitiveField("value", 1, prim)},
		})
	}

	secondsNanos := func(name string) *schema.Message {
		return &schema.Message{
			Name: name,
			Fields: []*schema.Field{
				primitiveField("seconds", 1, schema.TypeInt64),
				primitiveField("nanos", 2, schema.TypeInt32),
			},
		}
	}

	return []*schema.ProtoFile{
		wrappers,
		{Name: "google/protobuf/timestamp.proto", Package: "google.protobuf", Syntax: "proto3", Messages: []*schema.Message{secondsNanos("Timestamp")}},
		{Name: "google/protobuf/duration.proto", Package: "google.protobuf", Syntax: "proto3", Messages: []*schema.Message{secondsNanos("Duration")}},
		{Name: "google/protobuf/empty.proto", Package: "google.protobuf", Syntax: "proto3", Messages: []*schema.Message{{Name: "Empty"}}},
	}
}

func primitiveField(name string, number int32, prim schema.PrimitiveType) *schema.Field {
	return &schema.Field{
		Name:       name,
		Number:     number,
		Label:      schema.LabelOptional,
		Type:       schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: prim},
		OneofIndex: -1,
	}
}
