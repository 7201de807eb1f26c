package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ulikunitz/xz"

	"prebuild/internal/manifest"
	"prebuild/internal/services"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]manifest.Format{
		"ffmpeg-7.0-windows-desktop-vs2022-default.7z?viasf=1": manifest.Format7z,
		"OpenBLAS-0.3.26-x64.zip":                               manifest.FormatZip,
		"ollama-linux-amd64.tgz":                                manifest.FormatTarGz,
		"ffmpeg-7.0-macOS-default.tar.xz":                       manifest.FormatTarXz,
		"ollama-darwin":                                         manifest.FormatRaw,
	}
	for name, want := range cases {
		if got := DetectFormat(name); got != want {
			t.Fatalf("DetectFormat(%q) = %q, want %q", name, got, want)
		}
	}
}

type entry struct {
	name string
	body string
	mode int64
	link string
}

func writeZip(t *testing.T, path string, entries []entry) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func tarBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: e.mode, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.mode == 0 {
			hdr.Mode = 0o644
		}
		if e.link != "" {
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if e.link == "" {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeTarGz(t *testing.T, path string, entries []entry) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(tarBytes(t, entries)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeTarXz(t *testing.T, path string, entries []entry) {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(tarBytes(t, entries)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "onnx.zip")
	writeZip(t, src, []entry{
		{name: "onnxruntime-win-x64-gpu-1.19.2/"},
		{name: "onnxruntime-win-x64-gpu-1.19.2/lib/onnxruntime.dll", body: "dll"},
	})
	dest := filepath.Join(dir, "out")
	if err := Extract(context.Background(), manifest.FormatZip, src, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "onnxruntime-win-x64-gpu-1.19.2", "lib", "onnxruntime.dll"))
	if err != nil || string(got) != "dll" {
		t.Fatalf("unexpected extracted file: %q %v", got, err)
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	writeZip(t, src, []entry{{name: "../escape.txt", body: "x"}})
	err := Extract(context.Background(), manifest.FormatZip, src, filepath.Join(dir, "out"))
	if !errors.Is(err, ErrUnsafePath) || !errors.Is(err, services.ErrExtract) {
		t.Fatalf("expected unsafe path extraction error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "escape.txt")); statErr == nil {
		t.Fatal("traversal entry was written")
	}
}

func TestExtractTarGzPreservesModesAndLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks and modes need a unix host")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "ollama.tgz")
	writeTarGz(t, src, []entry{
		{name: "bin/ollama", body: "#!", mode: 0o755},
		{name: "lib/ollama/libcudart.so.12.4.99", body: "so"},
		{name: "lib/ollama/libcudart.so.12", link: "libcudart.so.12.4.99"},
	})
	dest := filepath.Join(dir, "out")
	if err := Extract(context.Background(), manifest.FormatTarGz, src, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	info, err := os.Stat(filepath.Join(dest, "bin", "ollama"))
	if err != nil || info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("expected executable bit preserved: %v %v", info, err)
	}
	link, err := os.Readlink(filepath.Join(dest, "lib", "ollama", "libcudart.so.12"))
	if err != nil || link != "libcudart.so.12.4.99" {
		t.Fatalf("expected symlink, got %q %v", link, err)
	}
}

func TestExtractTarRejectsEscapingSymlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.tgz")
	writeTarGz(t, src, []entry{{name: "lib/passwd", link: "../../../etc/passwd"}})
	err := Extract(context.Background(), manifest.FormatTarGz, src, filepath.Join(dir, "out"))
	if !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected unsafe symlink error, got %v", err)
	}
}

func TestExtractTarRejectsSymlinkChains(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need a unix host")
	}
	cases := map[string][]entry{
		"write through chained links": {
			{name: "x", link: "."},
			{name: "x/y", link: ".."},
			{name: "x/y/evil", body: "owned"},
		},
		"link resolved after extraction": {
			{name: "a", link: "m/.."},
			{name: "m", link: "."},
		},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "chain.tgz")
			writeTarGz(t, src, entries)
			dest := filepath.Join(dir, "a", "dest")
			err := Extract(context.Background(), manifest.FormatTarGz, src, dest)
			if !errors.Is(err, ErrUnsafePath) {
				t.Fatalf("expected unsafe path error, got %v", err)
			}
			if _, statErr := os.Stat(filepath.Join(dir, "a", "evil")); statErr == nil {
				t.Fatal("file written outside destination")
			}
		})
	}
}

func TestExtractTarXz(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ffmpeg.tar.xz")
	writeTarXz(t, src, []entry{{name: "ffmpeg-7.0-macOS-default/bin/ffmpeg", body: "macho", mode: 0o755}})
	dest := filepath.Join(dir, "out")
	if err := Extract(context.Background(), manifest.FormatTarXz, src, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "ffmpeg-7.0-macOS-default", "bin", "ffmpeg")); err != nil {
		t.Fatalf("expected ffmpeg binary: %v", err)
	}
}

func TestExtractCorrupt7z(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.7z")
	if err := os.WriteFile(src, []byte("not a 7z archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Extract(context.Background(), manifest.Format7z, src, filepath.Join(dir, "out")); !errors.Is(err, services.ErrExtract) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractRawIsRejected(t *testing.T) {
	if err := Extract(context.Background(), manifest.FormatRaw, "x", t.TempDir()); !errors.Is(err, services.ErrExtract) {
		t.Fatalf("expected raw format to be rejected, got %v", err)
	}
}

func TestExtractHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.zip")
	writeZip(t, src, []entry{{name: "a.txt", body: "a"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Extract(ctx, manifest.FormatZip, src, filepath.Join(dir, "out")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
