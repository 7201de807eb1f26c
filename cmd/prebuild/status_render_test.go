package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"prebuild/internal/deps"
	"prebuild/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("sidecar", statusError, "download failed", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "sidecar:", "[ERROR] download failed")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("deps", statusOK, "fetched", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestToolLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "apt-get", Available: false, Detail: `binary "apt-get" not found`},
		{Name: "bun", Available: true, Command: "bun", Detail: "/usr/local/bin/bun"},
		{Name: "deno", Available: false, Optional: true, Detail: `binary "deno" not found`},
	}
	lines := toolLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ERROR]") {
		t.Fatalf("expected error for missing required tool, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (/usr/local/bin/bun)") {
		t.Fatalf("expected ready detail, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN]") {
		t.Fatalf("expected warn for optional tool, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing tools: apt-get") {
		t.Fatalf("expected missing summary, got %q", lines[3])
	}
}

func TestArtifactRows(t *testing.T) {
	rows := artifactRows([]preflight.Artifact{
		{Kind: preflight.KindDependency, Name: "ffmpeg", Path: "/w/ffmpeg", Present: true},
		{Kind: preflight.KindDependency, Name: "openblas", Path: "/w/openblas", Gated: true},
		{Kind: preflight.KindSidecar, Name: "ollama x86_64", Path: "/w/ollama"},
	})
	states := []string{rows[0][2], rows[1][2], rows[2][2]}
	if strings.Join(states, ",") != "present,not requested,missing" {
		t.Fatalf("unexpected states %v", states)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 5); got != "ab..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Fatalf("truncate short = %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
