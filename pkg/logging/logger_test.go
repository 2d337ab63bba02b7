// Copyright (C) 2025 Stackwright Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}

	for _, tt := range tests {
		got := tt.level.toSlogLevel()
		if got != tt.want {
			t.Errorf("toSlogLevel(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "test-service",
		Quiet:   true,
	})

	logger.Info("file log entry", "key", "value")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	wantName := "test-service_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, wantName))
	if err != nil {
		t.Fatalf("expected log file %s: %v", wantName, err)
	}
	if !strings.Contains(string(data), "file log entry") {
		t.Errorf("log file missing message, got: %s", data)
	}
	if !strings.Contains(string(data), `"service":"test-service"`) {
		t.Errorf("log file missing service attribute, got: %s", data)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "filter-test",
		Quiet:   true,
	})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	wantName := "filter-test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, wantName))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if strings.Contains(string(data), "info message") {
		t.Error("info message should be filtered at LevelWarn")
	}
	if !strings.Contains(string(data), "warn message") {
		t.Error("warn message should be present")
	}
}

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "with-test",
		Quiet:   true,
	})

	child := logger.With("procedure", "replace")
	child.Info("child entry")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	wantName := "with-test_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, wantName))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), `"procedure":"replace"`) {
		t.Errorf("child logger attribute missing, got: %s", data)
	}
}

func TestLogger_Exporter(t *testing.T) {
	exporter := NewBufferedExporter()

	logger := New(Config{
		Level:    LevelInfo,
		Service:  "export-test",
		Quiet:    true,
		Exporter: exporter,
	})

	logger.Info("exported message", "snapshot_id", "abc")

	// Export is asynchronous
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(exporter.Entries()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 exported entry, got %d", len(entries))
	}
	if entries[0].Message != "exported message" {
		t.Errorf("unexpected message: %q", entries[0].Message)
	}
	if entries[0].Service != "export-test" {
		t.Errorf("unexpected service: %q", entries[0].Service)
	}
	if entries[0].Attrs["snapshot_id"] != "abc" {
		t.Errorf("unexpected attrs: %v", entries[0].Attrs)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("Default() returned nil")
	}
	if logger.config.Service != "stackwright" {
		t.Errorf("expected service 'stackwright', got %q", logger.config.Service)
	}
	_ = logger.Close()
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir available")
	}

	got := expandPath("~/.stackwright/logs")
	want := filepath.Join(home, ".stackwright/logs")
	if got != want {
		t.Errorf("expandPath = %q, want %q", got, want)
	}

	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("absolute path should be unchanged, got %q", got)
	}
}

func TestArgsToMap(t *testing.T) {
	m := argsToMap([]any{"key1", "value1", "key2", 123})
	if m["key1"] != "value1" {
		t.Errorf("expected value1, got %v", m["key1"])
	}
	if m["key2"] != 123 {
		t.Errorf("expected 123, got %v", m["key2"])
	}

	// Odd trailing arg is dropped
	m = argsToMap([]any{"key1", "value1", "dangling"})
	if len(m) != 1 {
		t.Errorf("expected 1 entry, got %d", len(m))
	}
}

func TestNopExporter(t *testing.T) {
	var e NopExporter
	if err := e.Export(context.Background(), LogEntry{}); err != nil {
		t.Errorf("Export: %v", err)
	}
	if err := e.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
