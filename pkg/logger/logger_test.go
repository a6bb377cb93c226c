package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	log, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level must be enabled")
	}

	log, err = NewLogger("")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) || !log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("default level must be info")
	}
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewLogger_WritesToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.log")
	log, err := NewLogger("info", path)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("log line missing: %s", data)
	}
}
