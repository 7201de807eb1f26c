package locator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"prebuild/internal/fileutil"
	"prebuild/internal/logging"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

// AppBinary is the base name of the application executable.
const AppBinary = "screenpipe"

// Stager copies the freshest matching app binary into the staging directory
// as screenpipe-<triple>.
type Stager struct {
	workDir   string
	inspector Inspector
	runner    services.Runner
	logger    *slog.Logger
	disabled  bool
	elevated  func(ctx context.Context, runner services.Runner, src, dst string) error
}

// StagerOption customizes a Stager.
type StagerOption func(*Stager)

// WithInspector replaces the executable header reader.
func WithInspector(inspector Inspector) StagerOption {
	return func(s *Stager) {
		if inspector != nil {
			s.inspector = inspector
		}
	}
}

// WithRunner sets the runner used for the elevated copy fallback.
func WithRunner(runner services.Runner) StagerOption {
	return func(s *Stager) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// WithElevatedCopy replaces the privileged copy fallback (useful for tests).
func WithElevatedCopy(fn func(ctx context.Context, runner services.Runner, src, dst string) error) StagerOption {
	return func(s *Stager) {
		if fn != nil {
			s.elevated = fn
		}
	}
}

// Disabled turns staging into a no-op, as requested by SKIP_SCREENPIPE_SETUP.
func Disabled(disabled bool) StagerOption {
	return func(s *Stager) {
		s.disabled = disabled
	}
}

// NewStager constructs a Stager writing into workDir.
func NewStager(workDir string, logger *slog.Logger, opts ...StagerOption) *Stager {
	s := &Stager{
		workDir:   workDir,
		inspector: HeaderInspector{},
		runner:    services.ExecRunner{},
		logger:    logging.NewComponentLogger(logger, "binary"),
		elevated:  platform.ElevatedCopy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StagedPath returns where the app binary for arch is staged.
func StagedPath(workDir string, id platform.ID, arch platform.Arch) string {
	return filepath.Join(workDir, platform.SidecarName(AppBinary, id, arch))
}

// StageAll stages the binary for every target architecture of id.
func (s *Stager) StageAll(ctx context.Context, id platform.ID, table manifest.Platform) stage.Outcome {
	if s.disabled {
		s.logger.Info("binary staging disabled by environment")
		return stage.Skipped("binary staging disabled")
	}
	archs := platform.TargetArchs(id)
	outcomes := make([]stage.Outcome, 0, len(archs))
	for _, arch := range archs {
		out := s.Stage(ctx, id, arch, table.Candidates(arch))
		outcomes = append(outcomes, out)
		if out.IsFatal() {
			break
		}
	}
	return stage.Merge(outcomes...)
}

// Stage locates and copies the binary for one architecture. A missing binary
// is recoverable. A permission failure that survives the elevated copy is fatal.
func (s *Stager) Stage(ctx context.Context, id platform.ID, arch platform.Arch, candidates []string) stage.Outcome {
	if s.disabled {
		return stage.Skipped("binary staging disabled")
	}
	ctx = services.WithArtifact(ctx, platform.SidecarName(AppBinary, id, arch))
	logger := logging.WithContext(ctx, s.logger)

	sel := Select(s.workDir, candidates, arch, s.inspector)
	for _, rejected := range sel.Rejected {
		logger.Debug("binary candidate rejected", logging.String("path", rejected.Path), logging.String("reason", rejected.Reason))
	}
	if !sel.Found {
		err := services.Wrap(services.ErrNotFound, "", "locate app binary", arch.String(),
			fmt.Errorf("no candidate matches %s (%d missing, %d unusable)", arch, sel.Missing(), len(sel.Rejected)-sel.Missing()))
		logging.WarnWithContext(logger, "app binary not found", "binary_not_found",
			logging.Strings("candidates", candidates),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "build the app with cargo build --release first"),
			logging.String(logging.FieldImpact, "package will not contain the app binary for "+arch.String()),
		)
		return stage.Recoverable(err)
	}

	dst := StagedPath(s.workDir, id, arch)
	logger.Info("staging app binary",
		logging.String("source", sel.Path),
		logging.String("dest", dst),
		logging.String("modified", sel.ModTime.Format("2006-01-02 15:04:05")),
	)
	if err := fileutil.CopyFileVerified(sel.Path, dst, fileutil.ExecutableMode); err != nil {
		if !services.IsPermission(err) {
			wrapped := services.Wrap(services.ErrExternalTool, "", "copy app binary", dst, err)
			logging.WarnWithContext(logger, "app binary copy failed", "binary_copy_failed", logging.Error(wrapped))
			return stage.Recoverable(wrapped)
		}
		logging.WarnWithContext(logger, "permission denied copying app binary; retrying elevated", "binary_copy_elevated",
			logging.Error(err),
			logging.String(logging.FieldImpact, "an elevation prompt may appear"),
		)
		if err := s.elevated(ctx, s.runner, sel.Path, dst); err != nil {
			logging.ErrorWithContext(logger, "elevated copy failed", "binary_copy_fatal",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun from an elevated shell or fix permissions on "+s.workDir),
			)
			return stage.Fatal(err)
		}
	}
	if err := fileutil.MakeExecutable(dst); err != nil {
		return stage.Recoverable(services.Wrap(services.ErrPermission, "", "chmod", dst, err))
	}
	return stage.Success("staged " + filepath.Base(dst))
}
