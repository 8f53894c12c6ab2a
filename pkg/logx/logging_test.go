package logx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	svc, log := New(Config{
		Level: "DEBUG",
		File:  FileConfig{Enabled: true, Path: path},
	})

	log.Info("bridge started", String("addr", "127.0.0.1:0"))
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `"message":"bridge started"`) {
		t.Fatalf("message missing from log output: %s", out)
	}
	if !strings.Contains(out, `"addr":"127.0.0.1:0"`) {
		t.Fatalf("field missing from log output: %s", out)
	}
}

func TestApplyChangesLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	svc, log := New(Config{
		Level: "INFO",
		File:  FileConfig{Enabled: true, Path: path},
	})

	log.Debug("below threshold")
	svc.Apply(Config{
		Level: "DEBUG",
		File:  FileConfig{Enabled: true, Path: path},
	})
	log.Debug("now visible")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(b)
	if strings.Contains(out, "below threshold") {
		t.Fatalf("debug line logged at info level: %s", out)
	}
	if !strings.Contains(out, "now visible") {
		t.Fatalf("debug line missing after level change: %s", out)
	}
}

func TestZeroValueLoggerIsSafe(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero value must report IsZero")
	}
	// Must not panic.
	l.Info("dropped", String("k", "v"))

	if Nop().IsZero() {
		t.Fatalf("Nop is a real (discarding) logger, not a zero value")
	}
}
