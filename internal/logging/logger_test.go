package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("protodyn", &buf, "warn", true)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info().Msg("dropped")
	logger.Warn().Str("file", "a.proto").Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["app"] != "protodyn" || entry["file"] != "a.proto" || entry["message"] != "kept" {
		t.Fatalf("unexpected entry: %#v", entry)
	}

	// The global logger is replaced too.
	buf.Reset()
	log.Warn().Msg("global")
	if !strings.Contains(buf.String(), `"global"`) {
		t.Fatalf("global logger not installed: %q", buf.String())
	}
}

func TestNewConsoleDefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("protodyn", &buf, "", false)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New("protodyn", &bytes.Buffer{}, "loud", false); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}
