// Package logging tests for structured JSON logging.
package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestInit verifies logger initialization.
func TestInit(t *testing.T) {
	reset()
	defer reset()

	var buf bytes.Buffer
	Init(&buf, LevelInfo)

	logger := Get()
	if logger == nil {
		t.Fatal("Get() returned nil after Init()")
	}
	if logger.minLevel != LevelInfo {
		t.Errorf("minLevel = %v, want LevelInfo", logger.minLevel)
	}
}

// TestInit_idempotent verifies Init is idempotent.
func TestInit_idempotent(t *testing.T) {
	reset()
	defer reset()

	var buf1, buf2 bytes.Buffer
	Init(&buf1, LevelInfo)
	first := Get()

	Init(&buf2, LevelDebug)
	if Get() != first {
		t.Error("Second Init() should be ignored")
	}

	Info("hello")
	if buf1.Len() == 0 {
		t.Error("expected output in first writer")
	}
	if buf2.Len() != 0 {
		t.Error("expected no output in second writer")
	}
}

// TestLogger_fields verifies message, level, context and error fields.
func TestLogger_fields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)

	l.Info("Item added to offline queue", map[string]interface{}{"item_id": "abc", "endpoint": "create-expense"})
	l.Error("Failed to persist queue", errors.New("disk full"), map[string]interface{}{"key": "offline_queue"})
	l.ErrorWithCode("Store write failed", "STORE_WRITE_FAILED", errors.New("locked"))

	entries := decodeLines(t, &buf)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	if entries[0]["message"] != "Item added to offline queue" {
		t.Errorf("message = %v", entries[0]["message"])
	}
	if entries[0]["level"] != "info" {
		t.Errorf("level = %v, want info", entries[0]["level"])
	}
	if entries[0]["item_id"] != "abc" {
		t.Errorf("item_id = %v, want abc", entries[0]["item_id"])
	}
	if _, ok := entries[0]["timestamp"]; !ok {
		t.Error("timestamp field missing")
	}

	if entries[1]["error"] != "disk full" {
		t.Errorf("error = %v, want disk full", entries[1]["error"])
	}
	if entries[2]["code"] != "STORE_WRITE_FAILED" {
		t.Errorf("code = %v", entries[2]["code"])
	}
}

// TestLogger_minLevel verifies messages below the minimum level are dropped.
func TestLogger_minLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error", nil)

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["message"] != "warn" || entries[1]["message"] != "error" {
		t.Errorf("unexpected messages: %v, %v", entries[0]["message"], entries[1]["message"])
	}
}

// TestLogger_mergesContexts verifies multiple context maps are merged.
func TestLogger_mergesContexts(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)

	l.Info("drain", map[string]interface{}{"synced": 2}, map[string]interface{}{"remaining": 1})

	entries := decodeLines(t, &buf)
	if entries[0]["synced"] != float64(2) || entries[0]["remaining"] != float64(1) {
		t.Errorf("contexts not merged: %v", entries[0])
	}
}

// TestParseLevel verifies config strings map to levels.
func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
