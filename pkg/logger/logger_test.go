package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := bytes.TrimSpace(buf.Bytes())
	var payload map[string]any
	if err := json.Unmarshal(line, &payload); err != nil {
		t.Fatalf("decode log line %q: %v", line, err)
	}
	return payload
}

func TestInfoIncludesServiceAndContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "sync-core", Output: &buf})

	ctx := logg.WithUserID(context.Background(), "u1")
	ctx = logg.WithField(ctx, "cart_lines", 3)
	logg.Info(ctx, "cart loaded")

	payload := decodeLine(t, &buf)
	if payload["service"] != "sync-core" {
		t.Fatalf("expected service field, got %v", payload["service"])
	}
	if payload["user_id"] != "u1" {
		t.Fatalf("expected user_id field, got %v", payload["user_id"])
	}
	if payload["cart_lines"] != float64(3) {
		t.Fatalf("expected cart_lines field, got %v", payload["cart_lines"])
	}
	if payload["message"] != "cart loaded" {
		t.Fatalf("expected message, got %v", payload["message"])
	}
}

func TestErrorCarriesErrAndStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "sync-core", Output: &buf})

	logg.Error(context.Background(), "load failed", errors.New("gateway timeout"))

	payload := decodeLine(t, &buf)
	if payload["error"] != "gateway timeout" {
		t.Fatalf("expected error field, got %v", payload["error"])
	}
	if payload["stack"] == nil || payload["stack"] == "" {
		t.Fatal("expected stack field")
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "sync-core", Level: zerolog.InfoLevel, Output: &buf})

	logg.Debug(context.Background(), "noisy")
	if buf.Len() != 0 {
		t.Fatalf("expected debug suppressed at info level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("warn") != zerolog.WarnLevel {
		t.Fatal("expected warn level")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("expected default info level for empty value")
	}
	if ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("expected default info level for unknown value")
	}
}
