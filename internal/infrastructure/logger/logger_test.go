package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.level); got != tt.want {
			t.Errorf("parseLevel(%q) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestNewAppliesLevel(t *testing.T) {
	log := New(Config{Level: "error", Format: "json"})
	if log.GetLevel() != zerolog.ErrorLevel {
		t.Fatalf("GetLevel() = %s, want error", log.GetLevel())
	}

	log = New(Config{Level: "debug", Format: "console"})
	if log.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("GetLevel() = %s, want debug", log.GetLevel())
	}
}
