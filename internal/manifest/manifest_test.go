package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"prebuild/internal/platform"
	"prebuild/internal/services"
)

func TestEmbeddedManifestLoads(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	win, err := m.For(platform.Windows)
	if err != nil {
		t.Fatalf("For(windows): %v", err)
	}
	names := make([]string, 0, len(win.Dependencies))
	for _, dep := range win.Dependencies {
		names = append(names, dep.Name)
	}
	if got := strings.Join(names, ","); got != "ffmpeg,onnxruntime-win-x64-gpu-1.19.2,openblas,clblast" {
		t.Fatalf("unexpected windows dependencies: %s", got)
	}
	openblas, ok := win.Dependency("openblas")
	if !ok || openblas.RequireFeature != "openblas" || len(openblas.Relocations) != 2 {
		t.Fatalf("unexpected openblas entry: %+v", openblas)
	}
	clblast, _ := win.Dependency("clblast")
	if clblast.Layout != LayoutNested || clblast.InnerFormat != Format7z || clblast.SkipFeature != "cuda" {
		t.Fatalf("unexpected clblast entry: %+v", clblast)
	}
	if len(win.VcpkgPackages) != 2 {
		t.Fatalf("unexpected vcpkg packages: %v", win.VcpkgPackages)
	}

	mac, _ := m.For(platform.MacOS)
	if len(mac.Candidates(platform.ARM64)) != 2 || len(mac.Candidates(platform.X86_64)) != 2 {
		t.Fatalf("unexpected macOS candidates: %v", mac.Binary)
	}
	if mac.Sidecar.Format != FormatRaw || len(mac.Dylib.Libraries) != 2 {
		t.Fatalf("unexpected macOS sidecar or dylib config: %+v", mac)
	}

	linux, _ := m.For(platform.Linux)
	if len(linux.AptPackages) != 16 || len(linux.Sidecar.Prune) != 9 {
		t.Fatalf("unexpected linux table: apt=%d prune=%d", len(linux.AptPackages), len(linux.Sidecar.Prune))
	}
	if len(linux.Dependencies) != 0 {
		t.Fatalf("linux installs media libraries through apt, got %v", linux.Dependencies)
	}
}

func TestForReturnsCopies(t *testing.T) {
	m, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	first, _ := m.For(platform.Windows)
	first.Dependencies[0].Name = "mutated"
	first.Binary["x86_64"][0] = "mutated"
	first.Dependencies[0].Relocations[0].Dest = "mutated"

	second, _ := m.For(platform.Windows)
	if second.Dependencies[0].Name != "ffmpeg" {
		t.Fatal("dependency slice shared between callers")
	}
	if second.Binary["x86_64"][0] == "mutated" {
		t.Fatal("binary candidates shared between callers")
	}
	if second.Dependencies[0].Relocations[0].Dest != "lib" {
		t.Fatal("relocations shared between callers")
	}
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"unknown format": `
[[linux.dependencies]]
name = "x"
archive = "x"
url = "https://example.com/x.rar"
format = "rar"
layout = "toplevel"
`,
		"escaping relocation": `
[[linux.dependencies]]
name = "x"
archive = "x"
url = "https://example.com/x.zip"
format = "zip"
layout = "into"
[[linux.dependencies.relocations]]
source = "../outside"
dest = "lib"
op = "copy"
`,
		"unknown op": `
[[linux.dependencies]]
name = "x"
archive = "x"
url = "https://example.com/x.zip"
format = "zip"
layout = "into"
[[linux.dependencies.relocations]]
source = "a"
dest = "b"
op = "link"
`,
		"nested without inner": `
[[linux.dependencies]]
name = "x"
archive = "x"
url = "https://example.com/x.zip"
format = "zip"
layout = "nested"
`,
		"unknown arch": `
[linux.binary]
riscv64 = ["a"]
`,
		"unknown key": `
[linux]
packages = ["a"]
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
		})
	}
}

func TestLoadFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.toml")
	doc := `
[[linux.dependencies]]
name = "models"
archive = "models-v1"
url = "https://example.com/models-v1.tar.gz"
format = "tar.gz"
layout = "toplevel"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	linux, _ := m.For(platform.Linux)
	if dep, ok := linux.Dependency("models"); !ok || dep.Format.Extension() != ".tar.gz" {
		t.Fatalf("unexpected override: %+v", linux)
	}
	if _, err := Resolve(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing file, got %v", err)
	}
}
