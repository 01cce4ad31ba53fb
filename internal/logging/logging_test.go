package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Info("hidden message")
	log.Warn("visible message", "chapter", "Intro")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("expected info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "Intro") {
		t.Errorf("expected warning with attrs, got %q", out)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Debug("resolved path", "path", "/tmp/x")

	out := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"path"`) || !strings.Contains(out, "/tmp/x") {
		t.Errorf("expected JSON record, got %q", out)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud", "text"); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("expected error for invalid format")
	}
}
