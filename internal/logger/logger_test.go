package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger(t *testing.T, cfg *Config) (*FileLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.LogFilePath = logPath
	cfg.Level = LevelDebug

	l, err := NewFileLogger(cfg)
	if err != nil {
		t.Fatalf("NewFileLogger() error: %v", err)
	}
	return l, logPath
}

func TestLogLevelsAndFields(t *testing.T) {
	l, logPath := testLogger(t, nil)

	l.Debug("debug message", String("key", "value"))
	l.Info("info message", Int("count", 42))
	l.Warn("warn message", Bool("flag", true))
	l.Error("error message", errors.New("boom"), Any("extra", 1))
	l.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	for _, want := range []string{
		"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]",
		"key=value", "count=42", "flag=true", "extra=1",
		`error="boom"`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("log output missing %q", want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	l, logPath := testLogger(t, nil)
	l.SetLevel(LevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if strings.Contains(content, "debug message") || strings.Contains(content, "info message") {
		t.Error("messages below the level should be filtered")
	}
	if !strings.Contains(content, "warn message") {
		t.Error("warn message should be present")
	}
}

func TestRotationCreatesBackup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFileSize = 100
	cfg.MaxBackups = 2
	l, logPath := testLogger(t, cfg)

	for i := 0; i < 20; i++ {
		l.Info("a message long enough to push the file past the rotation threshold")
	}
	l.Close()

	if _, err := os.Stat(logPath + ".1"); os.IsNotExist(err) {
		t.Error("no backup file after rotation")
	}
}

func TestRotateFailureKeepsLogging(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	cfg := DefaultConfig()
	cfg.LogFilePath = filepath.Join(sub, "test.log")
	cfg.Level = LevelDebug

	l, err := NewFileLogger(cfg)
	if err != nil {
		t.Fatalf("NewFileLogger() error: %v", err)
	}

	// Pull the directory out from under the logger so reopening fails.
	if err := os.RemoveAll(sub); err != nil {
		t.Fatal(err)
	}
	if err := l.rotate(); err == nil {
		t.Error("rotate() should fail when the log directory is gone")
	}

	// Must not panic; output degrades to stderr.
	l.Info("still logging after failed rotation")
	if err := l.Close(); err != nil {
		t.Errorf("Close() after failed rotation: %v", err)
	}
}

func TestGlobalLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "global.log")
	cfg := DefaultConfig()
	cfg.LogFilePath = logPath
	cfg.Level = LevelDebug

	if err := Init(cfg); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	Info("global info")
	Error("global error", errors.New("global boom"))
	Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "global info") || !strings.Contains(string(data), "global boom") {
		t.Errorf("global logger output incomplete: %s", data)
	}
}

func TestUninitializedGlobalIsNoop(t *testing.T) {
	SetGlobalLogger(nil)

	// Must not panic.
	Debug("x")
	Info("x")
	Warn("x")
	Error("x", nil)

	if GetLogger() == nil {
		t.Error("GetLogger() must return a noop logger, never nil")
	}
}

func TestErrFieldNil(t *testing.T) {
	f := Err(nil)
	if f.Key != "error" || f.Value != nil {
		t.Errorf("Err(nil) = %+v", f)
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %s, want %s", tt.level, got, tt.want)
		}
	}
}
