package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLoggerAcceptsConfiguredLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "", " Info "} {
		logger, err := NewLogger(level)
		if err != nil {
			t.Fatalf("expected level %q to build, got %v", level, err)
		}
		if logger == nil {
			t.Fatalf("expected a logger for level %q", level)
		}
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("verbose"); err == nil {
		t.Fatalf("expected an error for unknown log level")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	level, err := parseLevel("")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if level != zapcore.InfoLevel {
		t.Fatalf("expected info level, got %v", level)
	}
}
