package registry

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/anirudhraja/protodyn/schema"
)

// Compile compiles the given .proto files, found under ProtoDirectories, with
// protocompile and registers them with their imports. Standard google/protobuf
// imports are always available.
func (r *Registry) Compile(ctx context.Context, files ...string) error {
	return r.compile(ctx, &protocompile.SourceResolver{ImportPaths: r.ProtoDirectories}, files)
}

// CompileSources compiles files whose contents are given in sources, keyed by
// import path.
func (r *Registry) CompileSources(ctx context.Context, sources map[string]string, files ...string) error {
	return r.compile(ctx, &protocompile.SourceResolver{Accessor: protocompile.SourceAccessorFromMap(sources)}, files)
}

func (r *Registry) compile(ctx context.Context, resolver protocompile.Resolver, files []string) error {
	compiler := protocompile.Compiler{Resolver: protocompile.WithStandardImports(resolver)}
	compiled, err := compiler.Compile(ctx, files...)
	if err != nil {
		return fmt.Errorf("failed to compile %v: %w", files, err)
	}
	fds := make([]protoreflect.FileDescriptor, 0, len(compiled))
	for _, f := range compiled {
		fds = append(fds, f)
	}
	r.AddFiles(fds...)
	return nil
}

// LoadDescriptorSetFile reads a serialized FileDescriptorSet, as written by
// protoc --descriptor_set_out or buf build, and registers its files.
func (r *Registry) LoadDescriptorSetFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read descriptor set: %w", err)
	}
	set := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(data, set); err != nil {
		return fmt.Errorf("failed to decode descriptor set %s: %w", path, err)
	}
	return r.LoadDescriptorSet(set)
}

// LoadDescriptorSet registers every file of set. The set must be closed under
// imports.
func (r *Registry) LoadDescriptorSet(set *descriptorpb.FileDescriptorSet) error {
	files, err := protodesc.NewFiles(set)
	if err != nil {
		return fmt.Errorf("invalid descriptor set: %w", err)
	}
	var fds []protoreflect.FileDescriptor
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		fds = append(fds, fd)
		return true
	})
	r.AddFiles(fds...)
	return nil
}

// AddFiles registers already linked file descriptors and, transitively, their
// imports.
func (r *Registry) AddFiles(fds ...protoreflect.FileDescriptor) {
	visited := make(map[string]struct{})
	var files []*schema.ProtoFile

	var walk func(fd protoreflect.FileDescriptor)
	walk = func(fd protoreflect.FileDescriptor) {
		if _, ok := visited[fd.Path()]; ok {
			return
		}
		visited[fd.Path()] = struct{}{}
		if r.hasFile(fd.Path()) {
			return
		}
		imports := fd.Imports()
		for i := 0; i < imports.Len(); i++ {
			walk(imports.Get(i).FileDescriptor)
		}
		files = append(files, convertFileDescriptor(fd))
	}
	for _, fd := range fds {
		walk(fd)
	}
	r.addFiles(files)
}

func convertFileDescriptor(fd protoreflect.FileDescriptor) *schema.ProtoFile {
	pf := &schema.ProtoFile{
		Name:    fd.Path(),
		Package: string(fd.Package()),
		Syntax:  fd.Syntax().String(),
	}
	imports := fd.Imports()
	for i := 0; i < imports.Len(); i++ {
		imp := imports.Get(i)
		pf.Imports = append(pf.Imports, &schema.Import{Path: imp.Path(), Public: imp.IsPublic, Weak: imp.IsWeak})
	}
	msgs := fd.Messages()
	for i := 0; i < msgs.Len(); i++ {
		pf.Messages = append(pf.Messages, convertMessageDescriptor(msgs.Get(i)))
	}
	enums := fd.Enums()
	for i := 0; i < enums.Len(); i++ {
		pf.Enums = append(pf.Enums, convertEnumDescriptor(enums.Get(i)))
	}
	return pf
}

func convertMessageDescriptor(md protoreflect.MessageDescriptor) *schema.Message {
	msg := &schema.Message{
		Name:     string(md.Name()),
		FullName: string(md.FullName()),
		MapEntry: md.IsMapEntry(),
	}

	// Synthetic oneofs of proto3 optional fields are not groups.
	groupIndex := make(map[protoreflect.FullName]int32)
	oneofs := md.Oneofs()
	for i := 0; i < oneofs.Len(); i++ {
		od := oneofs.Get(i)
		if od.IsSynthetic() {
			continue
		}
		groupIndex[od.FullName()] = int32(len(msg.OneofGroups))
		msg.OneofGroups = append(msg.OneofGroups, &schema.Oneof{Name: string(od.Name())})
	}

	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		f := convertFieldDescriptor(fd)
		if od := fd.ContainingOneof(); od != nil && !od.IsSynthetic() {
			idx := groupIndex[od.FullName()]
			f.OneofIndex = idx
			msg.OneofGroups[idx].Fields = append(msg.OneofGroups[idx].Fields, f)
			continue
		}
		msg.Fields = append(msg.Fields, f)
	}

	nested := md.Messages()
	for i := 0; i < nested.Len(); i++ {
		msg.NestedTypes = append(msg.NestedTypes, convertMessageDescriptor(nested.Get(i)))
	}
	enums := md.Enums()
	for i := 0; i < enums.Len(); i++ {
		msg.NestedEnums = append(msg.NestedEnums, convertEnumDescriptor(enums.Get(i)))
	}
	return msg
}

func convertFieldDescriptor(fd protoreflect.FieldDescriptor) *schema.Field {
	f := &schema.Field{
		Name:       string(fd.Name()),
		Number:     int32(fd.Number()),
		JsonName:   fd.JSONName(),
		OneofIndex: -1,
	}
	switch fd.Cardinality() {
	case protoreflect.Repeated:
		f.Label = schema.LabelRepeated
	case protoreflect.Required:
		f.Label = schema.LabelRequired
	default:
		f.Label = schema.LabelOptional
	}

	if fd.IsMap() {
		key, value := descriptorFieldType(fd.MapKey()), descriptorFieldType(fd.MapValue())
		f.Type = schema.FieldType{
			Kind:        schema.KindMap,
			MessageType: string(fd.Message().FullName()),
			MapKey:      &key,
			MapValue:    &value,
		}
	} else {
		f.Type = descriptorFieldType(fd)
	}
	if fd.HasDefault() {
		f.DefaultValue = formatDefault(fd)
	}
	return f
}

// descriptorFieldType converts a field's type. References are written with a
// leading dot so qualify treats them as absolute.
func descriptorFieldType(fd protoreflect.FieldDescriptor) schema.FieldType {
	switch fd.Kind() {
	case protoreflect.EnumKind:
		return schema.FieldType{Kind: schema.KindEnum, EnumType: "." + string(fd.Enum().FullName())}
	case protoreflect.MessageKind:
		name := string(fd.Message().FullName())
		if _, ok := schema.WrapperPrimitives[schema.WrapperType(name)]; ok {
			return schema.FieldType{Kind: schema.KindWrapper, MessageType: name, WrapperType: schema.WrapperType(name)}
		}
		return schema.FieldType{Kind: schema.KindMessage, MessageType: "." + name}
	case protoreflect.GroupKind:
		return schema.FieldType{Kind: schema.KindGroup, MessageType: "." + string(fd.Message().FullName())}
	default:
		// protoreflect kind names match the .proto scalar type names.
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.PrimitiveType(fd.Kind().String())}
	}
}

// formatDefault renders a declared default in the text form schema.Field expects.
func formatDefault(fd protoreflect.FieldDescriptor) string {
	v := fd.Default()
	switch fd.Kind() {
	case protoreflect.EnumKind:
		if ev := fd.DefaultEnumValue(); ev != nil {
			return string(ev.Name())
		}
		return strconv.FormatInt(int64(v.Enum()), 10)
	case protoreflect.BytesKind:
		return string(v.Bytes())
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	default:
		return fmt.Sprint(v.Interface())
	}
}

func convertEnumDescriptor(ed protoreflect.EnumDescriptor) *schema.Enum {
	enum := &schema.Enum{Name: string(ed.Name()), FullName: string(ed.FullName())}
	values := ed.Values()
	for i := 0; i < values.Len(); i++ {
		v := values.Get(i)
		enum.Values = append(enum.Values, &schema.EnumValue{Name: string(v.Name()), Number: int32(v.Number()), JsonName: string(v.Name())})
	}
	if opts, ok := ed.Options().(*descriptorpb.EnumOptions); ok && opts.GetAllowAlias() {
		enum.AllowAlias = true
	}
	return enum
}
