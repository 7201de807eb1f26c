package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"prebuild/internal/config"
	"prebuild/internal/logging"
	"prebuild/internal/services"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("provisioning started", logging.String("platform", "linux"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, content)
	}
	if record["msg"] != "provisioning started" || record["platform"] != "linux" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsolePrefixesComponentAndStage(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithStage(services.WithRunID(context.Background(), "run-1"), "deps")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "fetch")).Info("downloading", logging.String("artifact", "ffmpeg"))

	line := buf.String()
	if !strings.Contains(line, "fetch [deps] downloading") {
		t.Fatalf("expected component and stage prefix, got %q", line)
	}
	if strings.Contains(line, "run-1") {
		t.Fatalf("run id should stay out of console lines, got %q", line)
	}
	if !strings.Contains(line, "artifact=ffmpeg") {
		t.Fatalf("expected artifact attribute, got %q", line)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "download failed", "fetch_failed", logging.Error(errors.New("connection refused")))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldEventType] != "fetch_failed" {
		t.Fatalf("expected event_type, got %v", record)
	}
	if record[logging.FieldImpact] == nil || record[logging.FieldErrorHint] == nil {
		t.Fatalf("expected impact and hint defaults, got %v", record)
	}
	if record["error"] != "connection refused" {
		t.Fatalf("expected error string, got %v", record["error"])
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithArtifact(services.WithStage(services.WithRunID(context.Background(), "abc"), "sidecar"), "ollama")
	fields := logging.ContextFields(ctx)
	if len(fields) != 3 {
		t.Fatalf("expected three fields, got %v", fields)
	}
	if fields[0].Key != logging.FieldRunID || fields[1].Key != logging.FieldStage || fields[2].Key != logging.FieldArtifact {
		t.Fatalf("unexpected field order: %v", fields)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := logging.NewProgressSampler(25)
	var emitted []float64
	for _, pct := range []float64{0, 5, 24, 25, 30, 60, 99, 100, 100} {
		if s.ShouldLog(pct) {
			emitted = append(emitted, pct)
		}
	}
	want := []float64{0, 25, 60, 99, 100}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted %v, want %v", emitted, want)
		}
	}
	if s.ShouldLog(-1) {
		t.Fatal("unknown progress should not log")
	}
}
