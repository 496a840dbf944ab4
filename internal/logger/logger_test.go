package logger

import (
	"path/filepath"
	"testing"

	"github.com/samvad-hq/samvad-query-probe/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v want %v", in, got, want)
		}
	}
}

func TestZapLoggerWritesStructuredField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapLogger(zap.New(core))

	log.InfoObj("response summary", "summary", map[string]any{"entries": 3})

	entries := logs.FilterMessage("response summary").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["summary"]; !ok {
		t.Fatalf("summary field missing: %#v", entries[0].ContextMap())
	}
}

func TestInitWithLogFile(t *testing.T) {
	cfg := &config.Config{
		AppName:  "probe-test",
		LogLevel: "debug",
		LogFile:  filepath.Join(t.TempDir(), "probe.log"),
	}
	log, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { S = nil })

	log.DebugObj("init check", "ok", true)
	InfoObj("package helper", "ok", true)
	if S == nil {
		t.Fatalf("package logger not set")
	}
}

func TestEnsure(t *testing.T) {
	if _, ok := Ensure(nil).(NopLogger); !ok {
		t.Fatalf("Ensure(nil) should return NopLogger")
	}
}
