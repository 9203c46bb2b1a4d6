// Command protodyn decodes, encodes and serves protobuf messages described by
// .proto files or descriptor sets loaded at run time.
//
// Usage:
//
//	protodyn [flags] decode   -type pkg.Msg < msg.bin > msg.json
//	protodyn [flags] encode   -type pkg.Msg < msg.json > msg.bin
//	protodyn [flags] reencode -type pkg.Msg < msg.bin > out.bin
//	protodyn [flags] list
//	protodyn [flags] serve
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protodyn"
	"github.com/anirudhraja/protodyn/internal/config"
	"github.com/anirudhraja/protodyn/internal/inspect"
	"github.com/anirudhraja/protodyn/internal/logging"
)

var errUsage = errors.New("usage: protodyn [-config file] [-type name] decode|encode|reencode|list|serve")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "protodyn: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("protodyn", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a TOML config file")
	messageType := fs.String("type", "", "fully qualified message type")
	listen := fs.String("listen", "", "inspector address, overrides the config")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	command := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	logger, err := logging.New("protodyn", stderr, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}

	p, err := load(ctx, cfg, logger)
	if err != nil {
		return err
	}

	switch command {
	case "list":
		for _, name := range p.ListMessages() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	case "serve":
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		return inspect.New(cfg.Listen, p, logger).ListenAndServe(ctx)
	case "decode", "encode", "reencode":
		if *messageType == "" {
			return fmt.Errorf("%s needs -type", command)
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	input, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var out []byte
	switch command {
	case "decode":
		out, err = decode(p, input, *messageType)
	case "encode":
		out, err = encode(p, input, *messageType)
	case "reencode":
		out, err = reencode(p, input, *messageType, logger)
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

// load builds a Protodyn from the schema sources named by cfg.
func load(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*protodyn.Protodyn, error) {
	p := protodyn.New(cfg.ProtoPaths...)
	p.SetLogger(logger)
	p.DecodeOptions = cfg.MergeOptions()
	p.MapOptions = cfg.MapOptions()

	if cfg.Compile && len(cfg.SchemaFiles) > 0 {
		if err := p.Compile(ctx, cfg.SchemaFiles...); err != nil {
			return nil, err
		}
	} else {
		for _, file := range cfg.SchemaFiles {
			if err := p.LoadSchema(file); err != nil {
				return nil, err
			}
		}
	}
	for _, set := range cfg.DescriptorSets {
		if err := p.LoadDescriptorSet(set); err != nil {
			return nil, err
		}
	}
	logger.Debug().
		Int("messages", len(p.ListMessages())).
		Int("files", len(p.ListFiles())).
		Msg("schemas loaded")
	return p, nil
}

func decode(p *protodyn.Protodyn, input []byte, messageType string) ([]byte, error) {
	out, err := p.Parse(input, messageType)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func encode(p *protodyn.Protodyn, input []byte, messageType string) ([]byte, error) {
	var values map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("invalid JSON input: %w", err)
	}
	return p.Marshal(values, messageType)
}

func reencode(p *protodyn.Protodyn, input []byte, messageType string, logger zerolog.Logger) ([]byte, error) {
	m, err := p.Decode(input, messageType)
	if err != nil {
		return nil, err
	}
	if n := len(m.Unknown()); n > 0 {
		logger.Info().Int("bytes", n).Str("type", messageType).Msg("kept unknown fields")
	}
	return m.Marshal()
}
