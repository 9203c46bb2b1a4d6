// Package protodyn reads and writes protobuf messages whose schema is only known
// at run time. Schemas come from .proto files, compiled sources or descriptor
// sets; messages are held as dynamic.Message trees or plain maps.
package protodyn

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/protodyn/dynamic"
	"github.com/anirudhraja/protodyn/registry"
	"github.com/anirudhraja/protodyn/schema"
	"github.com/anirudhraja/protodyn/wire"
)

var _ dynamic.Resolver = (*registry.Registry)(nil)

// ErrUnknownType is returned when a message type is not registered.
var ErrUnknownType = errors.New("message type not found")

// ===== SCHEMA-AWARE API =====

// Protodyn provides schema-aware protobuf operations without generated code.
//
// Loading schemas and reading or writing messages may happen concurrently.
type Protodyn struct {
	registry *registry.Registry

	// DecodeOptions controls unknown fields and nesting depth for Parse,
	// Decode and Merge.
	DecodeOptions dynamic.MergeOptions
	// MapOptions controls how Parse and ToMap render messages.
	MapOptions dynamic.MapOptions
}

// New creates a Protodyn whose imports resolve against protoDirectories.
func New(protoDirectories ...string) *Protodyn {
	return &Protodyn{
		registry: registry.NewRegistry(protoDirectories),
	}
}

// SetLogger sends schema loading diagnostics to logger.
func (p *Protodyn) SetLogger(logger zerolog.Logger) {
	p.registry.Logger = logger
}

// LoadSchema loads a .proto file and its imports.
func (p *Protodyn) LoadSchema(protoFile string) error {
	return p.registry.LoadSchema(protoFile)
}

// LoadDir loads every .proto file under dir.
func (p *Protodyn) LoadDir(dir string) error {
	return p.registry.LoadDir(dir)
}

// Compile compiles .proto files with full validation and loads them.
func (p *Protodyn) Compile(ctx context.Context, files ...string) error {
	return p.registry.Compile(ctx, files...)
}

// LoadDescriptorSet loads a serialized FileDescriptorSet file.
func (p *Protodyn) LoadDescriptorSet(path string) error {
	return p.registry.LoadDescriptorSetFile(path)
}

// Descriptor returns the schema of messageType.
func (p *Protodyn) Descriptor(messageType string) (*schema.Message, error) {
	msg, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, messageType)
	}
	return msg, nil
}

// NewMessage returns an empty message of messageType holding its defaults.
func (p *Protodyn) NewMessage(messageType string) (*dynamic.Message, error) {
	msg, err := p.Descriptor(messageType)
	if err != nil {
		return nil, err
	}
	return dynamic.New(p.registry, msg), nil
}

// Decode decodes protobuf bytes into a new message of messageType.
func (p *Protodyn) Decode(data []byte, messageType string) (*dynamic.Message, error) {
	msg, err := p.Descriptor(messageType)
	if err != nil {
		return nil, err
	}
	return p.DecodeOptions.Unmarshal(p.registry, msg, data)
}

// Merge decodes protobuf bytes into m, an existing message of messageType.
func (p *Protodyn) Merge(m *dynamic.Message, data []byte, messageType string) error {
	msg, err := p.Descriptor(messageType)
	if err != nil {
		return err
	}
	return p.DecodeOptions.Merge(m, p.registry, msg, wire.NewDecoder(data))
}

// Parse decodes protobuf bytes and renders the message as a map.
func (p *Protodyn) Parse(data []byte, messageType string) (map[string]interface{}, error) {
	msg, err := p.Descriptor(messageType)
	if err != nil {
		return nil, err
	}
	m, err := p.DecodeOptions.Unmarshal(p.registry, msg, data)
	if err != nil {
		return nil, err
	}
	return p.MapOptions.ToMap(p.registry, msg, m), nil
}

// Marshal encodes a map to protobuf bytes using schema information.
func (p *Protodyn) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	m, err := p.FromMap(data, messageType)
	if err != nil {
		return nil, err
	}
	return m.Marshal()
}

// ToMap renders m, a message of messageType, as a map.
func (p *Protodyn) ToMap(m *dynamic.Message, messageType string) (map[string]interface{}, error) {
	msg, err := p.Descriptor(messageType)
	if err != nil {
		return nil, err
	}
	return p.MapOptions.ToMap(p.registry, msg, m), nil
}

// FromMap builds a message of messageType from a map.
func (p *Protodyn) FromMap(data map[string]interface{}, messageType string) (*dynamic.Message, error) {
	msg, err := p.Descriptor(messageType)
	if err != nil {
		return nil, err
	}
	return dynamic.FromMap(p.registry, msg, data)
}

// Unmarshal decodes protobuf bytes into a Go struct using reflection. The
// message type is the struct's type name; fields match by json tag, then by
// name ignoring case.
func (p *Protodyn) Unmarshal(data []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}

	messageType := rv.Elem().Type().Name()
	result, err := p.Parse(data, messageType)
	if err != nil {
		return err
	}

	return p.mapToStruct(result, rv.Elem())
}

// mapToStruct maps parsed result to struct fields
func (p *Protodyn) mapToStruct(data map[string]interface{}, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		if value, ok := lookupField(data, field); ok {
			if err := p.setFieldValue(fieldValue, value); err != nil {
				return fmt.Errorf("failed to set field %s: %w", field.Name, err)
			}
		}
	}
	return nil
}

func lookupField(data map[string]interface{}, field reflect.StructField) (interface{}, bool) {
	if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag != "" && tag != "-" {
		if value, ok := data[tag]; ok {
			return value, true
		}
	}
	if value, ok := data[field.Name]; ok {
		return value, true
	}
	for key, value := range data {
		if strings.EqualFold(strings.ReplaceAll(key, "_", ""), field.Name) {
			return value, true
		}
	}
	return nil, false
}

// setFieldValue sets a struct field with type conversion
func (p *Protodyn) setFieldValue(fieldValue reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	if sourceValue.Type().AssignableTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue)
		return nil
	}

	if fieldValue.Kind() == reflect.Struct {
		if nested, ok := value.(map[string]interface{}); ok {
			return p.mapToStruct(nested, fieldValue)
		}
	}

	if fieldValue.Kind() == reflect.Slice {
		if list, ok := value.([]interface{}); ok {
			out := reflect.MakeSlice(fieldValue.Type(), len(list), len(list))
			for i, elem := range list {
				if err := p.setFieldValue(out.Index(i), elem); err != nil {
					return fmt.Errorf("index %d: %w", i, err)
				}
			}
			fieldValue.Set(out)
			return nil
		}
	}

	// Enum names do not convert to integers, nor integers to strings.
	if (sourceValue.Kind() == reflect.String) != (fieldValue.Kind() == reflect.String) {
		return fmt.Errorf("cannot convert %T to %s", value, fieldValue.Type())
	}
	if sourceValue.Type().ConvertibleTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue.Convert(fieldValue.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, fieldValue.Type())
}

// ===== REGISTRY ACCESS =====

func (p *Protodyn) GetRegistry() *registry.Registry { return p.registry }
func (p *Protodyn) ListMessages() []string          { return p.registry.ListMessages() }
func (p *Protodyn) ListEnums() []string             { return p.registry.ListEnums() }
func (p *Protodyn) ListFiles() []string             { return p.registry.ListFiles() }
