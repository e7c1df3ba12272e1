package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_HasComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelDebug, "text", &buf)

	logger := New("form-filler")
	logger.Info("hello")

	output := buf.String()
	if !strings.Contains(output, "component=form-filler") {
		t.Errorf("expected component=form-filler in output, got: %s", output)
	}
	if !strings.Contains(output, "hello") {
		t.Errorf("expected 'hello' in output, got: %s", output)
	}
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelInfo, "json", &buf)

	logger := New("json-test")
	logger.Info("json check")

	output := buf.String()
	if !strings.Contains(output, `"level":"INFO"`) {
		t.Errorf("expected JSON level field, got: %s", output)
	}
	if !strings.Contains(output, `"component":"json-test"`) {
		t.Errorf("expected JSON component field, got: %s", output)
	}
}

func TestInit_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	Init(slog.LevelWarn, "text", &buf)

	logger := New("gate-test")
	logger.Info("should be suppressed")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should be suppressed") {
		t.Error("Info message should be suppressed at Warn level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("Warn message should appear at Warn level")
	}
}

func TestInitWithFile_WritesLogFile(t *testing.T) {
	dir := t.TempDir()
	f, err := InitWithFile(slog.LevelInfo, "text", dir, "batch")
	if err != nil {
		t.Fatalf("InitWithFile: %v", err)
	}
	defer f.Close()

	New("file-test").Info("persisted line")

	matches, err := filepath.Glob(filepath.Join(dir, "batch_*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one batch_*.log in %s, got %v (err=%v)", dir, matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "persisted line") {
		t.Errorf("log file missing entry, got: %s", data)
	}
}
