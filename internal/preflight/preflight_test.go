package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"prebuild/internal/config"
	"prebuild/internal/features"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll(t *testing.T) {
	if got := RunAll(nil); got != nil {
		t.Fatalf("expected nil for nil config, got %v", got)
	}

	cfg := config.Default()
	cfg.Paths.ProjectDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.CacheDir = filepath.Join(t.TempDir(), "missing")

	results := RunAll(&cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Cache directory" {
		t.Fatalf("unexpected failures: %#v", failed)
	}
}

func TestArtifactStatus(t *testing.T) {
	workDir := t.TempDir()
	table := manifest.Platform{
		Dependencies: []manifest.Dependency{
			{Name: "ffmpeg"},
			{Name: "openblas", RequireFeature: "openblas"},
			{Name: "clblast", SkipFeature: "cuda"},
		},
		StagedCopies: []manifest.StagedCopy{{Name: "ffmpeg", Source: "ffmpeg/bin/ffmpeg"}},
		Sidecar:      manifest.Sidecar{Name: "ollama"},
	}
	if err := os.MkdirAll(filepath.Join(workDir, "ffmpeg"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := ArtifactStatus(workDir, platform.Windows, table, features.Parse([]string{"cuda"}))
	byName := make(map[string]Artifact, len(got))
	for _, a := range got {
		byName[a.Name] = a
	}
	if !byName["ffmpeg"].Present {
		t.Fatalf("ffmpeg should be present: %#v", byName["ffmpeg"])
	}
	if !byName["openblas"].Gated || !byName["clblast"].Gated {
		t.Fatalf("feature gates not applied: %#v", got)
	}
	if _, ok := byName["ffmpeg x86_64"]; ok {
		t.Fatal("staged copies only apply on macOS")
	}
	if a := byName["ollama x86_64"]; a.Path != filepath.Join(workDir, "ollama-x86_64-pc-windows-msvc.exe") {
		t.Fatalf("unexpected sidecar path %q", a.Path)
	}

	missing := MissingArtifacts(got)
	for _, a := range missing {
		if a.Gated || a.Present {
			t.Fatalf("unexpected missing entry %#v", a)
		}
	}
	// binary, deno, ollama for the single windows arch
	if len(missing) != 3 {
		t.Fatalf("expected 3 missing artifacts, got %#v", missing)
	}
}

func TestArtifactStatusMacOSCoversBothArchs(t *testing.T) {
	table := manifest.Platform{StagedCopies: []manifest.StagedCopy{{Name: "ffmpeg"}}}
	got := ArtifactStatus(t.TempDir(), platform.MacOS, table, features.Parse(nil))
	copies := 0
	for _, a := range got {
		if a.Kind == KindCopy {
			copies++
		}
	}
	if copies != 2 {
		t.Fatalf("expected ffmpeg copies for both archs, got %d", copies)
	}
}
