package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(Config{JSON: true, Output: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.Named("gate").Debug("hidden")
	l.Named("gate").Info("gate check failed", zap.Duration("took", 1500*time.Millisecond))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line without debug, got %d: %q", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["step"] != "gate check failed" {
		t.Fatalf("expected message under step, got %v", entry)
	}
	if entry["component"] != "gate" {
		t.Fatalf("expected component gate, got %v", entry["component"])
	}
	if entry["took"] != "1.5s" {
		t.Fatalf("expected readable duration, got %v", entry["took"])
	}
}

func TestNewDebugLevel(t *testing.T) {
	t.Parallel()

	l, err := New(Config{Debug: true, Output: Stderr})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug level enabled")
	}
}
