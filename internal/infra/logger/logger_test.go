package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New(Config{Development: true, Level: "WARN", Encoding: "console"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info to be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("expected error to be enabled at warn level")
	}
	_ = Sync(l)
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNew_ServiceFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l, err := New(Config{Development: true, Service: "shortlink", Env: "test"},
		zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	l.Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["service"] != "shortlink" || fields["env"] != "test" {
		t.Fatalf("unexpected context fields: %v", fields)
	}
}
