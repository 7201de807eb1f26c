package locator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"prebuild/internal/logging"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

// fakeInspector maps file contents to architectures.
type fakeInspector struct{}

func (fakeInspector) Archs(path string) ([]platform.Arch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch string(data) {
	case "arm64":
		return []platform.Arch{platform.ARM64}, nil
	case "x86_64":
		return []platform.Arch{platform.X86_64}, nil
	case "universal":
		return []platform.Arch{platform.ARM64, platform.X86_64}, nil
	default:
		return nil, ErrUnknownFormat
	}
}

func writeBinary(t *testing.T, path, arch string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(arch), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestSelectPicksNewestMatchingArch(t *testing.T) {
	base := t.TempDir()
	now := time.Now()
	writeBinary(t, filepath.Join(base, "a"), "x86_64", now.Add(-time.Hour))
	writeBinary(t, filepath.Join(base, "b"), "x86_64", now)
	writeBinary(t, filepath.Join(base, "c"), "arm64", now.Add(time.Hour))

	sel := Select(base, []string{"a", "b", "c", "missing"}, platform.X86_64, fakeInspector{})
	if !sel.Found || sel.Path != filepath.Join(base, "b") {
		t.Fatalf("Select = %+v", sel)
	}
	if len(sel.Rejected) != 2 {
		t.Fatalf("expected arm64 and missing candidates rejected, got %+v", sel.Rejected)
	}
}

func TestSelectTieKeepsFirst(t *testing.T) {
	base := t.TempDir()
	stamp := time.Now().Truncate(time.Second)
	writeBinary(t, filepath.Join(base, "first"), "arm64", stamp)
	writeBinary(t, filepath.Join(base, "second"), "arm64", stamp)

	sel := Select(base, []string{"first", "second"}, platform.ARM64, fakeInspector{})
	if sel.Path != filepath.Join(base, "first") {
		t.Fatalf("tie must keep the first candidate, got %s", sel.Path)
	}
}

func TestSelectUniversalMatchesBothArchs(t *testing.T) {
	base := t.TempDir()
	writeBinary(t, filepath.Join(base, "fat"), "universal", time.Now())
	for _, arch := range []platform.Arch{platform.ARM64, platform.X86_64} {
		if sel := Select(base, []string{"fat"}, arch, fakeInspector{}); !sel.Found {
			t.Fatalf("universal binary must match %s", arch)
		}
	}
}

func TestSelectNoMatchIsNotAnError(t *testing.T) {
	sel := Select(t.TempDir(), []string{"nothing/here"}, platform.X86_64, fakeInspector{})
	if sel.Found || sel.Path != "" {
		t.Fatalf("Select = %+v", sel)
	}
}

func TestHeaderInspectorReadsTestBinary(t *testing.T) {
	want := map[string]platform.Arch{"amd64": platform.X86_64, "arm64": platform.ARM64}[runtime.GOARCH]
	if want == platform.ArchUnknown {
		t.Skipf("no mapping for %s", runtime.GOARCH)
	}
	exe, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	archs, err := HeaderInspector{}.Archs(exe)
	if err != nil {
		t.Fatalf("Archs: %v", err)
	}
	if len(archs) != 1 || archs[0] != want {
		t.Fatalf("Archs = %v, want [%s]", archs, want)
	}
}

func TestHeaderInspectorRejectsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := (HeaderInspector{}).Archs(path); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestStageAllCopiesPerArch(t *testing.T) {
	project := t.TempDir()
	workDir := filepath.Join(project, "src-tauri")
	now := time.Now()
	writeBinary(t, filepath.Join(project, "target", "aarch64-apple-darwin", "release", "screenpipe"), "arm64", now)
	writeBinary(t, filepath.Join(project, "target", "x86_64-apple-darwin", "release", "screenpipe"), "x86_64", now)

	table := manifest.Platform{Binary: map[string][]string{
		"arm64":  {"../target/aarch64-apple-darwin/release/screenpipe"},
		"x86_64": {"../target/x86_64-apple-darwin/release/screenpipe"},
	}}
	s := NewStager(workDir, logging.NewNop(), WithInspector(fakeInspector{}))
	out := s.StageAll(context.Background(), platform.MacOS, table)
	if out.Status != stage.StatusSuccess {
		t.Fatalf("StageAll = %+v", out)
	}
	for arch, triple := range map[string]string{"arm64": "aarch64-apple-darwin", "x86_64": "x86_64-apple-darwin"} {
		path := filepath.Join(workDir, "screenpipe-"+triple)
		data, err := os.ReadFile(path)
		if err != nil || string(data) != arch {
			t.Fatalf("staged %s = %q %v", triple, data, err)
		}
		if runtime.GOOS != "windows" {
			info, _ := os.Stat(path)
			if info.Mode().Perm() != 0o755 {
				t.Fatalf("staged %s mode = %v", triple, info.Mode().Perm())
			}
		}
	}
}

func TestStageMissingBinaryIsRecoverable(t *testing.T) {
	s := NewStager(t.TempDir(), logging.NewNop(), WithInspector(fakeInspector{}))
	out := s.Stage(context.Background(), platform.Linux, platform.X86_64, []string{"../target/release/screenpipe"})
	if out.Status != stage.StatusRecoverable || !errors.Is(out.Reason, services.ErrNotFound) {
		t.Fatalf("Stage = %+v", out)
	}
}

func TestStageReportsCandidatesForOtherArch(t *testing.T) {
	project := t.TempDir()
	workDir := filepath.Join(project, "src-tauri")
	writeBinary(t, filepath.Join(project, "target", "release", "screenpipe"), "arm64", time.Now())
	s := NewStager(workDir, logging.NewNop(), WithInspector(fakeInspector{}))
	out := s.Stage(context.Background(), platform.Linux, platform.X86_64, []string{
		"../target/release/screenpipe",
		"../target/x86_64-unknown-linux-gnu/release/screenpipe",
	})
	if out.Status != stage.StatusRecoverable || !errors.Is(out.Reason, services.ErrNotFound) {
		t.Fatalf("Stage = %+v", out)
	}
	if msg := out.Reason.Error(); !strings.Contains(msg, "no candidate matches x86_64 (1 missing, 1 unusable)") {
		t.Fatalf("unexpected reason %q", msg)
	}
}

func TestStageReplacesStaleCopyExactly(t *testing.T) {
	project := t.TempDir()
	workDir := filepath.Join(project, "src-tauri")
	writeBinary(t, filepath.Join(project, "target", "release", "screenpipe"), "x86_64", time.Now())
	staged := StagedPath(workDir, platform.Linux, platform.X86_64)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(staged, []byte("previous build output"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStager(workDir, logging.NewNop(), WithInspector(fakeInspector{}))
	out := s.Stage(context.Background(), platform.Linux, platform.X86_64, []string{"../target/release/screenpipe"})
	if out.Status != stage.StatusSuccess {
		t.Fatalf("Stage = %+v", out)
	}
	data, err := os.ReadFile(staged)
	if err != nil || string(data) != "x86_64" {
		t.Fatalf("staged = %q %v", data, err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(workDir, ".*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestStageDisabled(t *testing.T) {
	s := NewStager(t.TempDir(), logging.NewNop(), Disabled(true))
	if out := s.StageAll(context.Background(), platform.Linux, manifest.Platform{}); out.Status != stage.StatusSkipped {
		t.Fatalf("StageAll = %+v", out)
	}
}

func readOnlyWorkDir(t *testing.T) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("needs an unprivileged unix user")
	}
	project := t.TempDir()
	writeBinary(t, filepath.Join(project, "bin", "screenpipe"), "x86_64", time.Now())
	workDir := filepath.Join(project, "src-tauri")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(workDir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(workDir, 0o755) })
	return project, workDir
}

func TestStagePermissionFallsBackToElevatedCopy(t *testing.T) {
	_, workDir := readOnlyWorkDir(t)
	var calls int
	s := NewStager(workDir, logging.NewNop(), WithInspector(fakeInspector{}),
		WithElevatedCopy(func(_ context.Context, _ services.Runner, src, dst string) error {
			calls++
			if err := os.Chmod(workDir, 0o755); err != nil {
				return err
			}
			data, err := os.ReadFile(src)
			if err != nil {
				return err
			}
			return os.WriteFile(dst, data, 0o755)
		}))
	out := s.Stage(context.Background(), platform.Linux, platform.X86_64, []string{"../bin/screenpipe"})
	if out.Status != stage.StatusSuccess || calls != 1 {
		t.Fatalf("Stage = %+v, elevated calls = %d", out, calls)
	}
}

func TestStagePermissionFailureIsFatal(t *testing.T) {
	_, workDir := readOnlyWorkDir(t)
	s := NewStager(workDir, logging.NewNop(), WithInspector(fakeInspector{}),
		WithElevatedCopy(func(context.Context, services.Runner, string, string) error {
			return services.Wrap(services.ErrPermission, "", "elevated copy", "denied", nil)
		}))
	out := s.Stage(context.Background(), platform.Linux, platform.X86_64, []string{"../bin/screenpipe"})
	if !out.IsFatal() || !errors.Is(out.Reason, services.ErrPermission) {
		t.Fatalf("Stage = %+v", out)
	}
}
