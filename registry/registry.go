package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/protodyn/schema"
)

// Registry allows us to store the schema of the protobuf messages. We look this up
// when we need to parse or marshal a message.
//
// A Registry may be read from many goroutines at once. Loads take an exclusive
// lock and only ever add types; schema structs are not modified once registered.
type Registry struct {
	// ProtoDirectories are the roots import paths are resolved against.
	ProtoDirectories []string
	// Logger receives debug output about loaded files and unresolved names.
	Logger zerolog.Logger

	mu       sync.RWMutex
	repo     *schema.ProtoRepo
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
	names    map[string]struct{}        // every registered type name
}

// NewRegistry returns a registry that resolves imports against protoDirectories
// and already holds the built-in well-known types.
func NewRegistry(protoDirectories []string) *Registry {
	r := &Registry{
		ProtoDirectories: protoDirectories,
		Logger:           zerolog.Nop(),
		repo:             &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)},
		messages:         make(map[string]*schema.Message),
		enums:            make(map[string]*schema.Enum),
		names:            make(map[string]struct{}),
	}
	r.addFiles(wellKnownFiles())
	return r
}

// hasFile reports whether a file with this name has been registered.
func (r *Registry) hasFile(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.repo.ProtoFiles[name]
	return ok
}

// addFiles registers every type of files and resolves their field types. Names are
// registered first so files may refer to each other in any order.
func (r *Registry) addFiles(files []*schema.ProtoFile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []*schema.Message
	for _, f := range files {
		r.repo.ProtoFiles[f.Name] = f
		for _, msg := range f.Messages {
			added = r.registerMessage(f.Package, msg, added)
		}
		for _, enum := range f.Enums {
			r.registerEnum(getFullName(f.Package, enum.Name), enum)
		}
		r.Logger.Debug().
			Str("file", f.Name).
			Str("package", f.Package).
			Int("messages", len(f.Messages)).
			Int("enums", len(f.Enums)).
			Msg("registered proto file")
	}

	for _, msg := range added {
		r.buildDefinitions(msg)
	}
}

// registerMessage registers msg and its nested types under scope, returning the
// list of messages registered so far.
func (r *Registry) registerMessage(scope string, msg *schema.Message, added []*schema.Message) []*schema.Message {
	msg.FullName = getFullName(scope, msg.Name)
	r.messages[msg.FullName] = msg
	r.names[msg.FullName] = struct{}{}
	added = append(added, msg)

	for _, nested := range msg.NestedTypes {
		added = r.registerMessage(msg.FullName, nested, added)
	}
	for _, enum := range msg.NestedEnums {
		r.registerEnum(getFullName(msg.FullName, enum.Name), enum)
	}
	return added
}

func (r *Registry) registerEnum(fullName string, enum *schema.Enum) {
	enum.FullName = fullName
	r.enums[fullName] = enum
	r.names[fullName] = struct{}{}
}

// buildDefinitions qualifies the type names of msg's fields, distinguishes enum
// references from message references and synthesizes map entry messages.
func (r *Registry) buildDefinitions(msg *schema.Message) {
	for _, fd := range msg.AllFields() {
		if fd.JsonName == "" {
			fd.JsonName = toLowerCamel(fd.Name)
		}
		switch fd.Type.Kind {
		case schema.KindMap:
			if fd.Type.MessageType == "" {
				entry := r.mapEntryMessage(msg, fd)
				fd.Type.MessageType = entry.FullName
			}
		case schema.KindMessage, schema.KindEnum, schema.KindGroup:
			r.qualify(&fd.Type, msg.FullName)
		}
	}
}

// qualify rewrites a referenced type name to its fully qualified form. Names that
// cannot be found are left as written and reported by ResolveType.
func (r *Registry) qualify(t *schema.FieldType, scope string) {
	name := t.MessageType
	if t.Kind == schema.KindEnum {
		name = t.EnumType
	}
	full, err := getReferencedType(name, scope, r.names)
	if err != nil {
		r.Logger.Debug().Str("scope", scope).Str("type", name).Msg("unresolved type reference")
		return
	}

	if _, ok := r.enums[full]; ok && t.Kind != schema.KindGroup {
		t.Kind = schema.KindEnum
		t.EnumType = full
		t.MessageType = ""
		return
	}
	if t.Kind == schema.KindEnum {
		t.Kind = schema.KindMessage
		t.EnumType = ""
	}
	t.MessageType = full
	if _, ok := schema.WrapperPrimitives[schema.WrapperType(full)]; ok && t.Kind == schema.KindMessage {
		t.Kind = schema.KindWrapper
		t.WrapperType = schema.WrapperType(full)
	}
}

// mapEntryMessage creates the synthetic entry type of a map field declared in
// .proto text: a nested message named after the field with key = 1, value = 2.
func (r *Registry) mapEntryMessage(parent *schema.Message, fd *schema.Field) *schema.Message {
	entryName := toUpperCamel(fd.Name) + "Entry"
	fullName := getFullName(parent.FullName, entryName)
	if msg, exists := r.messages[fullName]; exists {
		return msg
	}

	key := &schema.Field{Name: "key", Number: 1, Label: schema.LabelOptional, JsonName: "key", OneofIndex: -1}
	value := &schema.Field{Name: "value", Number: 2, Label: schema.LabelOptional, JsonName: "value", OneofIndex: -1}
	if fd.Type.MapKey != nil {
		key.Type = *fd.Type.MapKey
	}
	if fd.Type.MapValue != nil {
		value.Type = *fd.Type.MapValue
	}
	switch value.Type.Kind {
	case schema.KindMessage, schema.KindEnum:
		r.qualify(&value.Type, parent.FullName)
	}

	entry := &schema.Message{
		Name:     entryName,
		FullName: fullName,
		Fields:   []*schema.Field{key, value},
		MapEntry: true,
	}
	parent.NestedTypes = append(parent.NestedTypes, entry)
	r.messages[fullName] = entry
	r.names[fullName] = struct{}{}
	return entry
}

// ResolveType resolves the declared type of fd, a field of md. It never fails:
// names that are not registered resolve to an unresolved kind carrying the name.
func (r *Registry) ResolveType(md *schema.Message, fd *schema.Field) schema.ResolvedType {
	switch fd.Type.Kind {
	case schema.KindPrimitive:
		return schema.ResolvedType{Kind: schema.PrimitiveKinds[fd.Type.PrimitiveType]}
	case schema.KindGroup:
		return schema.ResolvedType{Kind: schema.GroupKind, Name: fd.Type.MessageType}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	switch fd.Type.Kind {
	case schema.KindEnum:
		if e, ok := r.enums[fd.Type.EnumType]; ok {
			return schema.ResolvedType{Kind: schema.EnumKind, Enum: e}
		}
		return schema.ResolvedType{Kind: schema.UnresolvedEnumKind, Name: fd.Type.EnumType}
	case schema.KindWrapper:
		if m, ok := r.messages[string(fd.Type.WrapperType)]; ok {
			return schema.ResolvedType{Kind: schema.MessageKind, Message: m}
		}
		return schema.ResolvedType{Kind: schema.UnresolvedMessageKind, Name: string(fd.Type.WrapperType)}
	case schema.KindMessage, schema.KindMap:
		if m, ok := r.messages[fd.Type.MessageType]; ok {
			return schema.ResolvedType{Kind: schema.MessageKind, Message: m}
		}
		if e, ok := r.enums[fd.Type.MessageType]; ok {
			return schema.ResolvedType{Kind: schema.EnumKind, Enum: e}
		}
		return schema.ResolvedType{Kind: schema.UnresolvedMessageKind, Name: fd.Type.MessageType}
	default:
		return schema.ResolvedType{Kind: schema.InvalidKind, Name: string(fd.Type.Kind)}
	}
}

func getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// GetMessage retrieves a message definition by name
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.TrimPrefix(name, ".")
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}

	// Try without package prefix
	for _, fullName := range sortedKeys(r.messages) {
		if strings.HasSuffix(fullName, "."+name) {
			return r.messages[fullName], nil
		}
	}

	return nil, fmt.Errorf("message not found: %s", name)
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.TrimPrefix(name, ".")
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}

	// Try without package prefix
	for _, fullName := range sortedKeys(r.enums) {
		if strings.HasSuffix(fullName, "."+name) {
			return r.enums[fullName], nil
		}
	}

	return nil, fmt.Errorf("enum not found: %s", name)
}

// ListMessages returns all registered message names, sorted.
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names, sorted.
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enums)
}

// ListFiles returns the names of all registered files, sorted.
func (r *Registry) ListFiles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.repo.ProtoFiles)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
