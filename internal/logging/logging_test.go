package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/sirupsen/logrus"
)

func jsonLogger(buf *bytes.Buffer) *logrus.Logger {
	return newWithOutput(config.LogConfig{Level: "debug", Format: "json"}, buf)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew_LevelFallback(t *testing.T) {
	l := New(config.LogConfig{Level: "nonsense"})
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level, got %s", l.GetLevel())
	}
}

func TestRecognitionAttempt_Fields(t *testing.T) {
	var buf bytes.Buffer
	RecognitionAttempt(jsonLogger(&buf), 42, 87.456, true, logrus.Fields{"action": "check_in"})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	if got["component"] != Component {
		t.Errorf("expected component %q, got %v", Component, got["component"])
	}
	if got["employee_id"] != float64(42) {
		t.Errorf("expected employee_id 42, got %v", got["employee_id"])
	}
	if got["confidence"] != 87.46 {
		t.Errorf("expected rounded confidence 87.46, got %v", got["confidence"])
	}
	if got["level"] != "info" {
		t.Errorf("expected info level, got %v", got["level"])
	}
}

func TestRecognitionAttempt_FailureIsWarning(t *testing.T) {
	var buf bytes.Buffer
	RecognitionAttempt(jsonLogger(&buf), 0, 12, false, nil)

	lines := decodeLines(t, &buf)
	if lines[0]["level"] != "warning" {
		t.Errorf("expected warning level, got %v", lines[0]["level"])
	}
	if _, ok := lines[0]["employee_id"]; ok {
		t.Error("employee_id should be omitted when unknown")
	}
}

func TestSystemError(t *testing.T) {
	var buf bytes.Buffer
	SystemError(jsonLogger(&buf), "decode", errors.New("boom"), logrus.Fields{"employee_id": 3})

	got := decodeLines(t, &buf)[0]
	if got["error"] != "boom" || got["error_type"] != "decode" {
		t.Errorf("unexpected entry: %v", got)
	}
}

func TestTimed_Fast(t *testing.T) {
	var buf bytes.Buffer
	Timed(jsonLogger(&buf), "verify")()

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected start and completion lines, got %d", len(lines))
	}
	if lines[1]["msg"] != "completed" {
		t.Errorf("expected completed, got %v", lines[1]["msg"])
	}
}
