package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	logger.Info("test message", "key", "value")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v", entry["key"])
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatConsole, Output: &buf})

	logger.Info("console line")
	if !strings.Contains(buf.String(), "console line") {
		t.Errorf("Output missing message: %s", buf.String())
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("Info must be suppressed at warn level: %s", buf.String())
	}

	logger.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("Warn must pass at warn level")
	}
}

func TestParseLevel_UnknownDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: Level("verbose"), Format: FormatJSON, Output: &buf})

	logger.Debug("suppressed")
	if buf.Len() != 0 {
		t.Error("Unknown level must default to info, hiding debug")
	}
	logger.Info("emitted")
	if buf.Len() == 0 {
		t.Error("Info must pass at defaulted level")
	}
}

func TestLogPoll(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	LogPoll(logger, 3, 24, 150, "sess-1")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if entry["stations"] != float64(3) {
		t.Errorf("stations = %v", entry["stations"])
	}
	if entry["kpis"] != float64(24) {
		t.Errorf("kpis = %v", entry["kpis"])
	}
	if entry["session_id"] != "sess-1" {
		t.Errorf("session_id = %v", entry["session_id"])
	}
}

func TestLogFetchError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	LogFetchError(logger, "eta", 2, 1440, errors.New("timeout"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if entry["station"] != "eta" {
		t.Errorf("station = %v", entry["station"])
	}
	if entry["error"] != "timeout" {
		t.Errorf("error = %v", entry["error"])
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v", entry["level"])
	}
}
