package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelWarn)
	l.out.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	l.Info("hidden")
	l.Warn("shown %d", 1)
	if got := buf.String(); got != "2024-03-01 09:30:00 [WARN] shown 1\n" {
		t.Fatalf("unexpected output %q", got)
	}

	l.SetLevel(LevelDebug)
	if l.GetLevel() != LevelDebug {
		t.Fatalf("expected debug level, got %s", l.GetLevel())
	}
}

func TestNamedLoggersShareOutput(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriter(&buf, LevelDebug)
	sync := root.Named("blist").Named("sync")

	sync.Error("row %d lost", 3)
	if !strings.Contains(buf.String(), "[ERROR] blist.sync: row 3 lost") {
		t.Fatalf("expected component prefix, got %q", buf.String())
	}

	root.SetLevel(LevelError)
	buf.Reset()
	sync.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected child to follow parent level, got %q", buf.String())
	}
}

func TestWriterLogsEachLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelInfo).Named("plugin")

	n, err := l.Writer(LevelWarn).Write([]byte("first\n\nsecond\n"))
	if err != nil || n != 14 {
		t.Fatalf("expected 14 bytes written, got %d %v", n, err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "[WARN] plugin: first") || !strings.HasSuffix(lines[1], "[WARN] plugin: second") {
		t.Fatalf("expected two warning lines, got %q", buf.String())
	}

	buf.Reset()
	l.Writer(LevelDebug).Write([]byte("hidden\n"))
	if buf.Len() != 0 {
		t.Fatalf("expected debug lines filtered, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"debug": LevelDebug, "warn": LevelWarn, "error": LevelError, "loud": LevelInfo} {
		if got := ParseLevel(in); got != want {
			t.Fatalf("expected %s for %q, got %s", want, in, got)
		}
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "buddylist.log")
	l, err := New(Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	l.Info("hello")
	if err := l.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] hello") {
		t.Fatalf("expected message in file, got %q", data)
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	SetDefault(nil)
	Error("dropped")

	var buf bytes.Buffer
	SetDefault(NewWriter(&buf, LevelDebug))
	Debug("one")
	Warn("two")
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
}
