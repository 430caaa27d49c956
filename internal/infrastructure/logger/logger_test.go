package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := Init(Options{Env: "test", Level: "debug", FilePath: path, MaxSizeMB: 1}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { Log = nil })

	Debug("hello file", zap.String("k", "v"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"message":"hello file"`) {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestInitFallsBackToInfo(t *testing.T) {
	if err := Init(Options{Level: "not-a-level"}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { Log = nil })

	if Log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be disabled on an invalid level")
	}
	if !Log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be enabled")
	}
}

func TestHelpersAreNilSafe(t *testing.T) {
	Log = nil
	Info("ignored")
	Warn("ignored")
	Error("ignored")
	Debug("ignored")
	Sync()
}
