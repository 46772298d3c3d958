package telemetry

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestSetupLogger_InstallsDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	SetupLogger("json", "debug")

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be enabled")
	}

	SetupLogger("text", "error")

	if slog.Default().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected warn level to be disabled at error level")
	}
}
