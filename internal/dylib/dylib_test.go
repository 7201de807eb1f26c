package dylib

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"prebuild/internal/logging"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

var templates = []string{
	"screenpipe-vision/lib/libscreenpipe_{arch}.dylib",
	"screenpipe-vision/lib/libscreenpipe.dylib",
}

// fakeBinary simulates install_name_tool edits against in-memory load commands.
type fakeBinary struct {
	libs   []string
	rpaths []string
	calls  []string
}

func (f *fakeBinary) Loads(string) ([]string, []string, error) {
	return slices.Clone(f.libs), slices.Clone(f.rpaths), nil
}

func (f *fakeBinary) Run(_ context.Context, inv services.Invocation) error {
	f.calls = append(f.calls, strings.Join(inv.Args[:len(inv.Args)-1], " "))
	switch inv.Args[0] {
	case "-change":
		i := slices.Index(f.libs, inv.Args[1])
		if i < 0 {
			return errors.New("no such load command")
		}
		f.libs[i] = inv.Args[2]
	case "-add_rpath":
		if slices.Contains(f.rpaths, inv.Args[1]) {
			return errors.New("would duplicate path")
		}
		f.rpaths = append(f.rpaths, inv.Args[1])
	}
	return nil
}

func TestPlanPackaged(t *testing.T) {
	invs := Plan("./screenpipe-aarch64-apple-darwin", References(templates, platform.ARM64), Packaged)
	want := []string{
		"install_name_tool -change screenpipe-vision/lib/libscreenpipe_arm64.dylib @rpath/../Frameworks/libscreenpipe_arm64.dylib ./screenpipe-aarch64-apple-darwin",
		"install_name_tool -change screenpipe-vision/lib/libscreenpipe.dylib @rpath/../Frameworks/libscreenpipe.dylib ./screenpipe-aarch64-apple-darwin",
	}
	if len(invs) != len(want) {
		t.Fatalf("Plan returned %d invocations", len(invs))
	}
	for i, inv := range invs {
		if inv.String() != want[i] {
			t.Fatalf("invocation %d = %q, want %q", i, inv.String(), want[i])
		}
	}
}

func TestPlanDevAddsRpath(t *testing.T) {
	invs := Plan("bin", References(templates, platform.X86_64), Dev)
	if len(invs) != 3 {
		t.Fatalf("Plan returned %d invocations", len(invs))
	}
	if invs[0].Args[2] != "@executable_path/../Frameworks/libscreenpipe_x86_64.dylib" {
		t.Fatalf("dev rewrite target = %q", invs[0].Args[2])
	}
	if got := strings.Join(invs[2].Args, " "); got != "-add_rpath @executable_path/../Frameworks bin" {
		t.Fatalf("rpath invocation = %q", got)
	}
}

func TestPatchIsIdempotent(t *testing.T) {
	fake := &fakeBinary{libs: []string{
		"/usr/lib/libSystem.B.dylib",
		"screenpipe-vision/lib/libscreenpipe_arm64.dylib",
		"screenpipe-vision/lib/libscreenpipe.dylib",
	}}
	p := NewPatcher(fake, fake, logging.NewNop())
	refs := References(templates, platform.ARM64)

	edits, err := p.Patch(context.Background(), "bin", refs, Dev)
	if err != nil || edits != 3 {
		t.Fatalf("first Patch = %d, %v", edits, err)
	}
	edits, err = p.Patch(context.Background(), "bin", refs, Dev)
	if err != nil || edits != 0 {
		t.Fatalf("second Patch = %d, %v (calls %v)", edits, err, fake.calls)
	}
	if !slices.Contains(fake.libs, "@executable_path/../Frameworks/libscreenpipe.dylib") {
		t.Fatalf("libs after patch = %v", fake.libs)
	}
	if len(fake.rpaths) != 1 {
		t.Fatalf("rpath must be added once, got %v", fake.rpaths)
	}
}

func TestPatchStagedOutcomes(t *testing.T) {
	dir := t.TempDir()
	arm := filepath.Join(dir, "screenpipe-aarch64-apple-darwin")
	if err := os.WriteFile(arm, []byte("macho"), 0o755); err != nil {
		t.Fatal(err)
	}
	fake := &fakeBinary{libs: []string{"screenpipe-vision/lib/libscreenpipe_arm64.dylib"}}
	p := NewPatcher(fake, fake, logging.NewNop())
	binaries := map[platform.Arch]string{
		platform.ARM64:  arm,
		platform.X86_64: filepath.Join(dir, "screenpipe-x86_64-apple-darwin"),
	}

	out := p.PatchStaged(context.Background(), binaries, templates, Packaged)
	if out.Status != stage.StatusSuccess {
		t.Fatalf("PatchStaged = %+v", out)
	}
	if len(fake.calls) != 1 || !strings.HasPrefix(fake.calls[0], "-change screenpipe-vision/lib/libscreenpipe_arm64.dylib @rpath/") {
		t.Fatalf("calls = %v", fake.calls)
	}
	if again := p.PatchStaged(context.Background(), binaries, templates, Packaged); again.Status != stage.StatusSkipped {
		t.Fatalf("second PatchStaged = %+v", again)
	}
}

func TestPatchToolFailureIsRecoverable(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "screenpipe-x86_64-apple-darwin")
	if err := os.WriteFile(bin, []byte("macho"), 0o755); err != nil {
		t.Fatal(err)
	}
	fake := &fakeBinary{libs: []string{"screenpipe-vision/lib/libscreenpipe.dylib"}}
	failing := services.RunnerFunc(func(context.Context, services.Invocation) error {
		return errors.New("install_name_tool: not found")
	})
	p := NewPatcher(failing, fake, logging.NewNop())
	out := p.PatchStaged(context.Background(), map[platform.Arch]string{platform.X86_64: bin}, templates, Packaged)
	if out.Status != stage.StatusRecoverable || !errors.Is(out.Reason, services.ErrExternalTool) {
		t.Fatalf("PatchStaged = %+v", out)
	}
}

func TestMachOInspectorRejectsNonMachO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("not a binary"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := (MachOInspector{}).Loads(path); err == nil {
		t.Fatal("expected an error for a non Mach-O file")
	}
}
