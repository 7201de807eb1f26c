package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"prebuild/internal/services"
)

func TestInvocationString(t *testing.T) {
	inv := services.Invocation{Binary: "install_name_tool", Args: []string{"-change", "a b", "c"}}
	got := inv.String()
	if got != `install_name_tool -change "a b" c` {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestOutputCapturesStdout(t *testing.T) {
	runner := services.RunnerFunc(func(ctx context.Context, inv services.Invocation) error {
		_, _ = inv.Stdout.Write([]byte("deno 1.46.0\n"))
		return nil
	})
	out, err := services.Output(context.Background(), runner, services.Invocation{Binary: "deno", Args: []string{"--version"}})
	if err != nil {
		t.Fatalf("Output returned error: %v", err)
	}
	if !strings.Contains(string(out), "deno 1.46.0") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	err := services.ExecRunner{}.Run(context.Background(), services.Invocation{Binary: "clearly-not-present-binary"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound marker, got %v", err)
	}
}

func TestExecRunnerStreamsOutputAndEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "stub")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho \"value=$PREBUILD_TEST\"\necho \"arg=$1\"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	var lines []string
	err := services.ExecRunner{}.Run(context.Background(), services.Invocation{
		Binary:   script,
		Args:     []string{"hello world"},
		Env:      []string{"PREBUILD_TEST=42"},
		OnOutput: func(line string) { lines = append(lines, line) },
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "value=42") || !strings.Contains(joined, "arg=hello world") {
		t.Fatalf("unexpected output lines: %v", lines)
	}
}
