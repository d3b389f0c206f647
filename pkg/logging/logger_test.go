// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

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
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"trace", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevel_slogLevel(t *testing.T) {
	if LevelDebug.slogLevel() != slog.LevelDebug || LevelError.slogLevel() != slog.LevelError {
		t.Error("known levels must map to their slog counterparts")
	}
	if Level(42).slogLevel() != slog.LevelInfo {
		t.Error("unknown level should map to Info")
	}
}

func TestNew_WritesToWriterWithService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "superopt", Writer: &buf})

	logger.Debug("hidden")
	logger.Info("search started", "epochs", 10)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %q", out)
	}
	for _, want := range []string{"search started", "epochs=10", "service=superopt"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, JSON: true, Writer: &buf})

	logger.Warn("timeout", "pc", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "timeout" || rec["level"] != "WARN" || rec["pc"] != float64(3) {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Config{Writer: &buf})
	child := parent.With("run_id", "abc")

	child.Error("failed")
	parent.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "run_id=abc") {
		t.Errorf("child record missing attribute: %q", lines[0])
	}
	if strings.Contains(lines[1], "run_id") {
		t.Errorf("parent record picked up child attribute: %q", lines[1])
	}
}

func TestLogger_FileLogging(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	logger := New(Config{Service: "superopt-test", LogDir: dir, Writer: &console})

	logger.Info("to both", "k", "v")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	path := filepath.Join(dir, "superopt-test_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to both"`) {
		t.Errorf("file log missing record: %q", data)
	}
	if !strings.Contains(console.String(), "to both") {
		t.Errorf("console missing record: %q", console.String())
	}
}

func TestLogger_QuietWithoutFileDiscards(t *testing.T) {
	logger := New(Config{Quiet: true})
	logger.Info("nowhere")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger.Slog() == nil {
		t.Fatal("Default().Slog() is nil")
	}
	if logger.config.Service != "superopt" || logger.config.Level != LevelInfo {
		t.Errorf("unexpected default config %+v", logger.config)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q", got)
	}
}
