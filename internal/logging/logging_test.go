package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"lorachat/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"weird":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSONToStderr(t *testing.T) {
	var buf bytes.Buffer
	l, c, err := newWithStderr(config.LogConfig{Level: "info"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close()
	l.Debug().Msg("hidden")
	l.Info().Str("k", "v").Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, `"message":"shown"`) || !strings.Contains(out, `"service":"lorachat"`) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestNew_RotatingFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "logs", "lorachat.log")
	var buf bytes.Buffer
	l, c, err := newWithStderr(config.LogConfig{Level: "debug", File: file, MaxSizeMB: 1}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Debug().Msg("to-file")
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "to-file") {
		t.Fatalf("log file missing line: %q", string(b))
	}
}
