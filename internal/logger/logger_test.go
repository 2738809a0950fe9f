package logger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func reset() {
	globalLogger = nil
	accessLog = false
	once = sync.Once{}
}

func TestGet_Uninitialized(t *testing.T) {
	reset()
	if Get() == nil {
		t.Fatal("Get() returned nil before Init")
	}
	// Package-level helpers must not panic without Init.
	Info("not initialized", zap.String("k", "v"))
}

func TestInit(t *testing.T) {
	reset()
	if err := Init(Config{Level: "info", Format: "json", AccessLog: true}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := Init(Config{Level: "debug"}); err != nil {
		t.Errorf("Init() second call error = %v", err)
	}
	if !AccessLogEnabled() {
		t.Error("AccessLogEnabled() = false, want true")
	}
	if Get().Core().Enabled(zapcore.DebugLevel) {
		t.Error("second Init call changed the level")
	}
}

func TestInit_InvalidLevel(t *testing.T) {
	reset()
	if err := Init(Config{Level: "loud", Format: "text"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !Get().Core().Enabled(zapcore.InfoLevel) || Get().Core().Enabled(zapcore.DebugLevel) {
		t.Error("invalid level should default to info")
	}
}

func TestInit_WithFile(t *testing.T) {
	reset()
	file := filepath.Join(t.TempDir(), "logs", "reportpdf.log")

	if err := Init(Config{Level: "info", Format: "json", File: file}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Info("written to file", zap.String("page", "page1.html"))
	_ = Sync()

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"ERROR", zapcore.ErrorLevel, false},
		{"nope", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
