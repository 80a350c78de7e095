package logging

import (
	"log/slog"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected *slog.Level
	}{
		{"debug", levelPtr(slog.LevelDebug)},
		{"info", levelPtr(slog.LevelInfo)},
		{"warn", levelPtr(slog.LevelWarn)},
		{"warning", levelPtr(slog.LevelWarn)},
		{"error", levelPtr(slog.LevelError)},
		{"DEBUG", levelPtr(slog.LevelDebug)},
		{"Error", levelPtr(slog.LevelError)},
		{"bogus", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if (got == nil) != (tt.expected == nil) {
				t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			if got != nil && *got != *tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, *tt.expected)
			}
		})
	}
}

func TestRingBuffer_Wraparound(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := range 5 {
		rb.Write(LogEntry{
			Timestamp: time.Now(),
			Level:     "info",
			Module:    "test",
			Message:   string(rune('a' + i)),
		})
	}

	if rb.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", rb.Count())
	}

	entries := rb.ReadAll()
	if len(entries) != 3 {
		t.Fatalf("ReadAll() returned %d entries, want 3", len(entries))
	}

	// Oldest two entries were overwritten; c, d, e remain in order.
	want := []string{"c", "d", "e"}
	for i, entry := range entries {
		if entry.Message != want[i] {
			t.Errorf("entry[%d].Message = %q, want %q", i, entry.Message, want[i])
		}
	}
}

func TestRingBuffer_Empty(t *testing.T) {
	rb := NewRingBuffer(4)
	if got := rb.ReadAll(); got != nil {
		t.Errorf("ReadAll() on empty buffer = %v, want nil", got)
	}
}

func TestGetLogger_ModuleLevels(t *testing.T) {
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"chatty": "error",
		},
	})

	if logger := GetLogger("chatty"); logger == nil {
		t.Fatal("GetLogger returned nil")
	}

	mutex.RLock()
	levelVar := moduleLevelVars["chatty"]
	mutex.RUnlock()

	if levelVar == nil {
		t.Fatal("no level var registered for module")
	}
	if levelVar.Level() != slog.LevelError {
		t.Errorf("module level = %v, want %v", levelVar.Level(), slog.LevelError)
	}
}

func TestSetModuleLevels_Runtime(t *testing.T) {
	Initialize(Config{Level: "info", Format: "text"})
	GetLogger("switcher")

	SetModuleLevels(map[string]string{"switcher": "debug"})

	mutex.RLock()
	levelVar := moduleLevelVars["switcher"]
	mutex.RUnlock()

	if levelVar.Level() != slog.LevelDebug {
		t.Errorf("module level = %v, want %v", levelVar.Level(), slog.LevelDebug)
	}
}

func TestGetLogger_SameInstance(t *testing.T) {
	a := GetLogger("capture")
	b := GetLogger("capture")
	if a != b {
		t.Error("GetLogger returned different instances for the same module")
	}
}

func levelPtr(l slog.Level) *slog.Level { return &l }
