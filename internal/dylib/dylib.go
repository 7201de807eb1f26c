package dylib

import (
	"context"
	"debug/macho"
	"errors"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"prebuild/internal/logging"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

// Mode selects how the packaged app bundle resolves the vision libraries.
type Mode int

const (
	// Packaged binaries resolve through @rpath inside the app bundle.
	Packaged Mode = iota
	// Dev binaries run straight out of the build tree and resolve relative to the executable.
	Dev
)

func (m Mode) String() string {
	if m == Dev {
		return "dev"
	}
	return "packaged"
}

const (
	tool          = "install_name_tool"
	frameworksRel = "../Frameworks"
)

// ModeFor maps the dev flag to a Mode.
func ModeFor(dev bool) Mode {
	if dev {
		return Dev
	}
	return Packaged
}

// References expands library templates for arch. "{arch}" becomes arm64 or x86_64.
func References(templates []string, arch platform.Arch) []string {
	refs := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		refs = append(refs, strings.ReplaceAll(tmpl, "{arch}", arch.String()))
	}
	return refs
}

// Plan lists the install_name_tool invocations that rewrite refs in binary.
// It does not look at the binary; Patcher filters it against the current
// load commands.
func Plan(binary string, refs []string, mode Mode) []services.Invocation {
	prefix := "@rpath/" + frameworksRel
	if mode == Dev {
		prefix = "@executable_path/" + frameworksRel
	}
	invs := make([]services.Invocation, 0, len(refs)+1)
	for _, ref := range refs {
		invs = append(invs, services.Invocation{
			Binary: tool,
			Args:   []string{"-change", ref, prefix + "/" + path.Base(ref), binary},
		})
	}
	if mode == Dev {
		invs = append(invs, services.Invocation{
			Binary: tool,
			Args:   []string{"-add_rpath", "@executable_path/" + frameworksRel, binary},
		})
	}
	return invs
}

// LoadInspector reports a binary's imported libraries and rpath entries.
type LoadInspector interface {
	Loads(path string) (libs, rpaths []string, err error)
}

// MachOInspector reads load commands with debug/macho. Universal binaries
// report the union over all slices.
type MachOInspector struct{}

// Loads implements LoadInspector.
func (MachOInspector) Loads(binary string) ([]string, []string, error) {
	if fat, err := macho.OpenFat(binary); err == nil {
		defer fat.Close()
		var libs, rpaths []string
		for _, arch := range fat.Arches {
			l, r, err := loads(arch.File)
			if err != nil {
				return nil, nil, err
			}
			libs = appendUnique(libs, l...)
			rpaths = appendUnique(rpaths, r...)
		}
		return libs, rpaths, nil
	} else if !errors.Is(err, macho.ErrNotFat) {
		return nil, nil, err
	}
	f, err := macho.Open(binary)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return loads(f)
}

func loads(f *macho.File) ([]string, []string, error) {
	libs, err := f.ImportedLibraries()
	if err != nil {
		return nil, nil, err
	}
	var rpaths []string
	for _, load := range f.Loads {
		if r, ok := load.(*macho.Rpath); ok {
			rpaths = append(rpaths, r.Path)
		}
	}
	return libs, rpaths, nil
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// Patcher applies load path rewrites with install_name_tool.
type Patcher struct {
	runner    services.Runner
	inspector LoadInspector
	logger    *slog.Logger
}

// NewPatcher constructs a Patcher. Nil arguments select the real tool and reader.
func NewPatcher(runner services.Runner, inspector LoadInspector, logger *slog.Logger) *Patcher {
	if runner == nil {
		runner = services.ExecRunner{}
	}
	if inspector == nil {
		inspector = MachOInspector{}
	}
	return &Patcher{runner: runner, inspector: inspector, logger: logging.NewComponentLogger(logger, "dylib")}
}

// Patch rewrites refs in binary for mode. Only references the binary still
// imports are changed and the rpath is added once, so repeated runs are
// no-ops. It returns the number of edits made.
func (p *Patcher) Patch(ctx context.Context, binary string, refs []string, mode Mode) (int, error) {
	logger := logging.WithContext(ctx, p.logger)
	plan := Plan(binary, refs, mode)

	libs, rpaths, err := p.inspector.Loads(binary)
	if err != nil {
		logging.WarnWithContext(logger, "could not read load commands; applying full plan", "dylib_inspect_failed",
			logging.String("binary", binary),
			logging.Error(err),
			logging.String(logging.FieldImpact, "re-running may report duplicate rpath errors"),
		)
	} else {
		plan = slices.DeleteFunc(plan, func(inv services.Invocation) bool {
			switch inv.Args[0] {
			case "-change":
				return !slices.Contains(libs, inv.Args[1])
			case "-add_rpath":
				return slices.Contains(rpaths, inv.Args[1])
			}
			return false
		})
	}

	for i, inv := range plan {
		logger.Debug("patching load path", logging.String("command", inv.String()))
		if err := p.runner.Run(ctx, inv); err != nil {
			return i, services.Wrap(services.ErrExternalTool, "", tool, binary, err)
		}
	}
	return len(plan), nil
}

// PatchStaged patches every staged binary for the given paths keyed by
// architecture. Missing binaries are skipped; failures are recoverable.
func (p *Patcher) PatchStaged(ctx context.Context, binaries map[platform.Arch]string, templates []string, mode Mode) stage.Outcome {
	logger := logging.WithContext(ctx, p.logger)
	var outcomes []stage.Outcome
	for _, arch := range []platform.Arch{platform.ARM64, platform.X86_64} {
		binary, ok := binaries[arch]
		if !ok {
			continue
		}
		if _, err := os.Stat(binary); err != nil {
			logger.Info("staged binary absent; not patching", logging.String("binary", binary))
			outcomes = append(outcomes, stage.Skipped(filepath.Base(binary)+" not staged"))
			continue
		}
		edits, err := p.Patch(ctx, binary, References(templates, arch), mode)
		if err != nil {
			logging.WarnWithContext(logger, "dylib patch failed", "dylib_patch_failed",
				logging.String("binary", binary),
				logging.String("mode", mode.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "install the Xcode command line tools"),
				logging.String(logging.FieldImpact, "the app may fail to load its vision libraries"),
			)
			outcomes = append(outcomes, stage.Recoverable(err))
			continue
		}
		if edits == 0 {
			outcomes = append(outcomes, stage.Skipped(filepath.Base(binary)+" already patched"))
			continue
		}
		logger.Info("dylib paths updated", logging.String("binary", binary), logging.String("mode", mode.String()), logging.Int("edits", edits))
		outcomes = append(outcomes, stage.Success("patched "+filepath.Base(binary)))
	}
	if len(outcomes) == 0 {
		return stage.Skipped("no staged binaries")
	}
	return stage.Merge(outcomes...)
}
