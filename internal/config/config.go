// Package config loads protodyn settings from a TOML file and PROTODYN_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/anirudhraja/protodyn/dynamic"
)

// Config controls where schemas come from, how messages are decoded and
// rendered, and how the inspector runs.
type Config struct {
	// ProtoPaths are the import roots for .proto files.
	ProtoPaths []string
	// SchemaFiles are .proto files, relative to ProtoPaths, loaded at start.
	SchemaFiles []string
	// DescriptorSets are serialized FileDescriptorSet files loaded at start.
	DescriptorSets []string
	// Compile loads SchemaFiles with the full compiler instead of the parser.
	Compile bool

	// Listen is the inspector's address.
	Listen   string
	LogLevel string
	LogJSON  bool

	RecursionLimit int
	DiscardUnknown bool
	EmitDefaults   bool
	JSONNames      bool
	IncludeUnknown bool
}

type fileConfig struct {
	ProtoPaths     []string `toml:"proto_paths"`
	SchemaFiles    []string `toml:"schema_files"`
	DescriptorSets []string `toml:"descriptor_sets"`
	Compile        bool     `toml:"compile"`
	Listen         string   `toml:"listen"`
	LogLevel       string   `toml:"log_level"`
	LogJSON        bool     `toml:"log_json"`
	RecursionLimit int      `toml:"recursion_limit"`
	DiscardUnknown bool     `toml:"discard_unknown"`
	EmitDefaults   bool     `toml:"emit_defaults"`
	JSONNames      bool     `toml:"json_names"`
	IncludeUnknown bool     `toml:"include_unknown"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		ProtoPaths:     []string{"."},
		Listen:         "127.0.0.1:7070",
		LogLevel:       "info",
		RecursionLimit: dynamic.DefaultRecursionLimit,
	}
}

// Load reads path, when not empty, over Default and then applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) decodeFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %s", undecoded[0])
	}

	// Relative paths in the file are relative to the file.
	base := filepath.Dir(path)
	if meta.IsDefined("proto_paths") {
		cfg.ProtoPaths = resolvePaths(base, raw.ProtoPaths)
	}
	if meta.IsDefined("schema_files") {
		cfg.SchemaFiles = normalize(raw.SchemaFiles)
	}
	if meta.IsDefined("descriptor_sets") {
		cfg.DescriptorSets = resolvePaths(base, raw.DescriptorSets)
	}
	if meta.IsDefined("compile") {
		cfg.Compile = raw.Compile
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_json") {
		cfg.LogJSON = raw.LogJSON
	}
	if meta.IsDefined("recursion_limit") {
		if raw.RecursionLimit <= 0 {
			return fmt.Errorf("recursion_limit must be positive, got %d", raw.RecursionLimit)
		}
		cfg.RecursionLimit = raw.RecursionLimit
	}
	if meta.IsDefined("discard_unknown") {
		cfg.DiscardUnknown = raw.DiscardUnknown
	}
	if meta.IsDefined("emit_defaults") {
		cfg.EmitDefaults = raw.EmitDefaults
	}
	if meta.IsDefined("json_names") {
		cfg.JSONNames = raw.JSONNames
	}
	if meta.IsDefined("include_unknown") {
		cfg.IncludeUnknown = raw.IncludeUnknown
	}
	return nil
}

// applyEnv overrides settings from PROTODYN_* variables. List variables use the
// OS path list separator.
func (cfg *Config) applyEnv(lookup func(string) (string, bool)) error {
	lists := map[string]*[]string{
		"PROTODYN_PROTO_PATHS":     &cfg.ProtoPaths,
		"PROTODYN_SCHEMA_FILES":    &cfg.SchemaFiles,
		"PROTODYN_DESCRIPTOR_SETS": &cfg.DescriptorSets,
	}
	for name, dst := range lists {
		if v, ok := lookup(name); ok {
			*dst = normalize(filepath.SplitList(v))
		}
	}

	strs := map[string]*string{
		"PROTODYN_LISTEN":    &cfg.Listen,
		"PROTODYN_LOG_LEVEL": &cfg.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	bools := map[string]*bool{
		"PROTODYN_COMPILE":         &cfg.Compile,
		"PROTODYN_LOG_JSON":        &cfg.LogJSON,
		"PROTODYN_DISCARD_UNKNOWN": &cfg.DiscardUnknown,
		"PROTODYN_EMIT_DEFAULTS":   &cfg.EmitDefaults,
		"PROTODYN_JSON_NAMES":      &cfg.JSONNames,
		"PROTODYN_INCLUDE_UNKNOWN": &cfg.IncludeUnknown,
	}
	for name, dst := range bools {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = b
	}

	if v, ok := lookup("PROTODYN_RECURSION_LIMIT"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return fmt.Errorf("parse PROTODYN_RECURSION_LIMIT: invalid value %q", v)
		}
		cfg.RecursionLimit = n
	}
	return nil
}

// MergeOptions returns the decode settings.
func (cfg Config) MergeOptions() dynamic.MergeOptions {
	return dynamic.MergeOptions{RecursionLimit: cfg.RecursionLimit, DiscardUnknown: cfg.DiscardUnknown}
}

// MapOptions returns the map rendering settings.
func (cfg Config) MapOptions() dynamic.MapOptions {
	return dynamic.MapOptions{UseJSONNames: cfg.JSONNames, EmitDefaults: cfg.EmitDefaults, IncludeUnknown: cfg.IncludeUnknown}
}

func resolvePaths(base string, in []string) []string {
	out := normalize(in)
	for i, p := range out {
		if !filepath.IsAbs(p) {
			out[i] = filepath.Join(base, p)
		}
	}
	return out
}

func normalize(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		v := strings.TrimSpace(s)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
