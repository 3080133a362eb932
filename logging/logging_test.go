package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "warn", "json", false)
	if err != nil {
		t.Fatal(err)
	}

	log.Info().Msg("hidden")
	log.Warn().Str("path", "/x").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["message"] != "shown" || entry["path"] != "/x" || entry["level"] != "warn" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "", "console", false)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug().Msg("too quiet")
	log.Info().Msg("scan finished")

	out := buf.String()
	if strings.Contains(out, "too quiet") || !strings.Contains(out, "scan finished") {
		t.Errorf("console output = %q", out)
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud", "json", false); err == nil {
		t.Error("New() accepted an unknown level")
	}
	if _, err := New(&bytes.Buffer{}, "info", "xml", false); err == nil {
		t.Error("New() accepted an unknown format")
	}
}
