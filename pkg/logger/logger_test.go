package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerWritesServiceAndFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "federation-worker", Output: &buf})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"message_id": "abc",
		"direction":  "outbox",
	})
	logg.Info(ctx, "message processed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["service"] != "federation-worker" {
		t.Fatalf("unexpected service field %q", entry["service"])
	}
	if entry["message_id"] != "abc" {
		t.Fatalf("expected message_id field, got %v", entry["message_id"])
	}
	if entry["direction"] != "outbox" {
		t.Fatalf("expected direction field, got %v", entry["direction"])
	}
}

func TestLoggerFieldsDoNotLeakAcrossContexts(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	_ = logg.WithField(context.Background(), "calendar_id", "42")
	logg.Info(context.Background(), "plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if _, ok := entry["calendar_id"]; ok {
		t.Fatal("field attached to a derived context leaked into the base logger")
	}
}

func TestLoggerErrorIncludesError(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "delivery failed", errors.New("connection refused"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["error"] != "connection refused" {
		t.Fatalf("expected error field, got %v", entry["error"])
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", got)
	}
	if got := ParseLevel(""); got != zerolog.InfoLevel {
		t.Fatalf("expected info default, got %v", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %v", got)
	}
}
