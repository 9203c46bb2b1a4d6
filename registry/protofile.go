package registry

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protodyn/schema"
)

// parsedFile is one .proto file read by go-protoparser.
type parsedFile struct {
	path  string
	proto *protoparserparser.Proto
}

// LoadSchema parses protoFile, found under ProtoDirectories, together with every
// file it imports, and registers their types. Imports of google/protobuf files are
// served by the built-in well-known types.
func (r *Registry) LoadSchema(protoFile string) error {
	parsed, err := r.getAllProtoInfo(protoFile)
	if err != nil {
		return err
	}
	files := make([]*schema.ProtoFile, 0, len(parsed))
	for _, p := range parsed {
		pf, err := convertProto(p.path, p.proto)
		if err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", p.path, err)
		}
		files = append(files, pf)
	}
	r.addFiles(files)
	return nil
}

// LoadDir loads every .proto file below dir. dir is searched before
// ProtoDirectories when imports are resolved.
func (r *Registry) LoadDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	var protos []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Skip directories and non-proto files
		if d.IsDir() || !strings.HasSuffix(path, ".proto") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		protos = append(protos, rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	search := r.ProtoDirectories
	r.ProtoDirectories = append([]string{dir}, search...)
	defer func() { r.ProtoDirectories = search }()
	for _, p := range protos {
		if err := r.LoadSchema(p); err != nil {
			return err
		}
	}
	return nil
}

// getAllProtoInfo uses DFS to fetch all the files from all directories passed and
// returns the parsed files, imports before the files importing them.
func (r *Registry) getAllProtoInfo(protoFile string) ([]parsedFile, error) {
	visited := make(map[string]struct{}) // to make sure we don't end up in a loop
	result := make([]parsedFile, 0)

	var dfs func(protoFile string) error
	dfs = func(protoFile string) error {
		if _, ok := visited[protoFile]; ok {
			return nil
		}
		visited[protoFile] = struct{}{}
		if r.hasFile(protoFile) {
			return nil
		}

		protoBytes, err := os.ReadFile(protoFile)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		parsedBody, err := protoparser.Parse(bytes.NewBuffer(protoBytes))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", protoFile, err)
		}
		for _, body := range parsedBody.ProtoBody {
			imp, ok := body.(*protoparserparser.Import)
			if !ok {
				continue
			}
			importPath := strings.Trim(imp.Location, `"`)
			if strings.HasPrefix(importPath, "google/protobuf/") {
				continue
			}
			fullImportPath, err := r.findIfProtoExists(importPath)
			if err != nil {
				return err
			}
			if err = dfs(fullImportPath); err != nil {
				return err
			}
		}
		result = append(result, parsedFile{path: protoFile, proto: parsedBody})
		return nil
	}

	// run dfs on the input proto path
	protoPath, err := r.findIfProtoExists(protoFile)
	if err != nil {
		return nil, err
	}
	if err := dfs(protoPath); err != nil {
		return nil, err
	}
	r.Logger.Debug().Str("file", protoPath).Int("files", len(result)).Msg("parsed proto sources")
	return result, nil
}

// convertProto turns a parsed file into the schema model. Type references stay
// as written until the registry qualifies them.
func convertProto(name string, p *protoparserparser.Proto) (*schema.ProtoFile, error) {
	pf := &schema.ProtoFile{Name: name, Syntax: "proto3"}
	if p.Syntax != nil && p.Syntax.ProtobufVersion != "" {
		pf.Syntax = p.Syntax.ProtobufVersion
	}
	for _, body := range p.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			pf.Package = b.Name
		case *protoparserparser.Import:
			pf.Imports = append(pf.Imports, &schema.Import{Path: strings.Trim(b.Location, `"`)})
		case *protoparserparser.Message:
			msg, err := convertMessage(b.MessageName, b.MessageBody)
			if err != nil {
				return nil, err
			}
			pf.Messages = append(pf.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			pf.Enums = append(pf.Enums, enum)
		}
	}
	return pf, nil
}

func convertMessage(name string, body []protoparserparser.Visitee) (*schema.Message, error) {
	msg := &schema.Message{Name: name}
	for _, item := range body {
		switch b := item.(type) {
		case *protoparserparser.Field:
			fd, err := newField(b.FieldName, b.FieldNumber, fieldLabel(b.IsRepeated, b.IsRequired), typeFromName(b.Type), b.FieldOptions)
			if err != nil {
				return nil, err
			}
			msg.Fields = append(msg.Fields, fd)
		case *protoparserparser.MapField:
			key, value := typeFromName(b.KeyType), typeFromName(b.Type)
			ft := schema.FieldType{Kind: schema.KindMap, MapKey: &key, MapValue: &value}
			fd, err := newField(b.MapName, b.FieldNumber, schema.LabelRepeated, ft, b.FieldOptions)
			if err != nil {
				return nil, err
			}
			msg.Fields = append(msg.Fields, fd)
		case *protoparserparser.Oneof:
			group := &schema.Oneof{Name: b.OneofName}
			for _, of := range b.OneofFields {
				fd, err := newField(of.FieldName, of.FieldNumber, schema.LabelOptional, typeFromName(of.Type), of.FieldOptions)
				if err != nil {
					return nil, err
				}
				fd.OneofIndex = int32(len(msg.OneofGroups))
				group.Fields = append(group.Fields, fd)
			}
			msg.OneofGroups = append(msg.OneofGroups, group)
		case *protoparserparser.GroupField:
			ft := schema.FieldType{Kind: schema.KindGroup, MessageType: b.GroupName}
			fd, err := newField(strings.ToLower(b.GroupName), b.FieldNumber, fieldLabel(b.IsRepeated, b.IsRequired), ft, nil)
			if err != nil {
				return nil, err
			}
			msg.Fields = append(msg.Fields, fd)
			nested, err := convertMessage(b.GroupName, b.MessageBody)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *protoparserparser.Message:
			nested, err := convertMessage(b.MessageName, b.MessageBody)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, enum)
		}
	}
	return msg, nil
}

func newField(name, number string, label schema.FieldLabel, ft schema.FieldType, opts []*protoparserparser.FieldOption) (*schema.Field, error) {
	n, err := strconv.ParseInt(number, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid number %q", name, number)
	}
	fd := &schema.Field{Name: name, Number: int32(n), Label: label, Type: ft, OneofIndex: -1}
	for _, opt := range opts {
		switch opt.OptionName {
		case "default":
			fd.DefaultValue = unquote(opt.Constant)
		case "json_name":
			fd.JsonName = unquote(opt.Constant)
		}
	}
	return fd, nil
}

func convertEnum(e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName}
	for _, item := range e.EnumBody {
		switch b := item.(type) {
		case *protoparserparser.EnumField:
			n, err := strconv.ParseInt(b.Number, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("enum %s: invalid number %q for %s", e.EnumName, b.Number, b.Ident)
			}
			enum.Values = append(enum.Values, &schema.EnumValue{Name: b.Ident, Number: int32(n), JsonName: b.Ident})
		case *protoparserparser.Option:
			if b.OptionName == "allow_alias" && b.Constant == "true" {
				enum.AllowAlias = true
			}
		}
	}
	return enum, nil
}

func fieldLabel(repeated, required bool) schema.FieldLabel {
	switch {
	case repeated:
		return schema.LabelRepeated
	case required:
		return schema.LabelRequired
	default:
		return schema.LabelOptional
	}
}

// typeFromName classifies a type as written in a field declaration. Every
// non-scalar starts as a message reference; qualify turns enum references into
// KindEnum.
func typeFromName(t string) schema.FieldType {
	if _, ok := schema.PrimitiveKinds[schema.PrimitiveType(t)]; ok {
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.PrimitiveType(t)}
	}
	return schema.FieldType{Kind: schema.KindMessage, MessageType: t}
}

// unquote strips the quotes of a string constant and resolves its escapes.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		if s[0] == '\'' {
			s = `"` + strings.ReplaceAll(s[1:len(s)-1], `"`, `\"`) + `"`
		}
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}
