package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"":            zap.NewAtomicLevelAt(zap.InfoLevel),
		"production":  zap.NewAtomicLevelAt(zap.InfoLevel),
		"Development": zap.NewAtomicLevelAt(zap.DebugLevel),
		"warn":        zap.NewAtomicLevelAt(zap.WarnLevel),
		"ERROR":       zap.NewAtomicLevelAt(zap.ErrorLevel),
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got.Level() != want.Level() {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got.Level(), want.Level())
		}
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewWritesConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("hidden")
	log.Info("loaded publications file", zap.Int("publications", 3))
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "INFO") || !strings.Contains(out, `"publications": 3`) {
		t.Fatalf("unexpected log output: %q", out)
	}
}
