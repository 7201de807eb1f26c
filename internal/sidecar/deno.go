package sidecar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"prebuild/internal/config"
	"prebuild/internal/logging"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

const denoBinary = "deno"

// Deno installs the Deno runtime when needed and stages it for packaging.
type Deno struct {
	workDir    string
	runner     services.Runner
	downloader Downloader
	logger     *slog.Logger
	lookPath   func(string) (string, error)
	elevated   CopyFunc
}

// DenoOption customizes a Deno installer.
type DenoOption func(*Deno)

// WithLookPath replaces the PATH lookup used as the last resort.
func WithLookPath(fn func(string) (string, error)) DenoOption {
	return func(d *Deno) {
		if fn != nil {
			d.lookPath = fn
		}
	}
}

// WithElevatedCopy replaces the privileged copy fallback.
func WithElevatedCopy(fn CopyFunc) DenoOption {
	return func(d *Deno) {
		d.elevated = fn
	}
}

// NewDeno constructs a Deno installer staging into workDir.
func NewDeno(workDir string, runner services.Runner, downloader Downloader, logger *slog.Logger, opts ...DenoOption) *Deno {
	if runner == nil {
		runner = services.ExecRunner{}
	}
	d := &Deno{
		workDir:    workDir,
		runner:     runner,
		downloader: downloader,
		logger:     logging.NewComponentLogger(logger, "deno"),
		lookPath:   exec.LookPath,
		elevated:   platform.ElevatedCopy,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ensure stages deno-<triple> for every packaged architecture. Every failure
// is recoverable.
func (d *Deno) Ensure(ctx context.Context, id platform.ID, def manifest.Deno) stage.Outcome {
	ctx = services.WithArtifact(ctx, denoBinary)
	logger := logging.WithContext(ctx, d.logger)

	dests := targets(d.workDir, denoBinary, id)
	if allExist(dests) {
		logger.Info("deno already staged")
		return stage.Skipped("deno already staged")
	}

	if d.installed(ctx) {
		logger.Info("deno already installed")
	} else if err := d.install(ctx, def); err != nil {
		logging.WarnWithContext(logger, "deno installation failed", "deno_install_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install deno manually"),
			logging.String(logging.FieldImpact, "looking for an existing deno binary"),
		)
	}

	src, err := d.locate(def)
	if err != nil {
		logging.WarnWithContext(logger, "deno binary not found", "deno_not_found",
			logging.Strings("candidates", def.Candidates),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure deno is installed and on PATH"),
			logging.String(logging.FieldImpact, "package will not contain deno"),
		)
		return stage.Recoverable(err)
	}

	for _, dst := range dests {
		if err := copyExecutable(ctx, d.runner, d.elevated, src, dst); err != nil {
			wrapped := services.Wrap(services.ErrExternalTool, "", "stage deno", dst, err)
			logging.WarnWithContext(logger, "deno copy failed", "deno_copy_failed",
				logging.Error(wrapped),
				logging.String(logging.FieldImpact, "package will not contain deno"),
			)
			return stage.Recoverable(wrapped)
		}
		logger.Info("deno staged", logging.String("source", src), logging.String("dest", dst))
	}
	return stage.Success("staged deno from " + src)
}

func (d *Deno) installed(ctx context.Context) bool {
	err := d.runner.Run(ctx, services.Invocation{
		Binary:   denoBinary,
		Args:     []string{"--version"},
		OnOutput: func(string) {},
	})
	return err == nil
}

func (d *Deno) install(ctx context.Context, def manifest.Deno) error {
	logger := logging.WithContext(ctx, d.logger)
	if len(def.Install) > 0 {
		inv := services.Invocation{Binary: def.Install[0], Args: def.Install[1:]}
		logger.Info("installing deno", logging.String("command", inv.String()))
		return d.runner.Run(ctx, inv)
	}
	if def.ScriptURL == "" {
		return services.Wrap(services.ErrConfiguration, "", "install deno", "no installer configured", nil)
	}
	dir, err := os.MkdirTemp("", "deno-install-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	script := filepath.Join(dir, "install.sh")
	if err := d.downloader.Download(ctx, def.ScriptURL, script, false); err != nil {
		return err
	}
	inv := services.Invocation{Binary: "sh", Args: []string{script}}
	logger.Info("installing deno", logging.String("command", inv.String()), logging.String("url", def.ScriptURL))
	return d.runner.Run(ctx, inv)
}

// locate returns the first existing candidate, then falls back to PATH.
func (d *Deno) locate(def manifest.Deno) (string, error) {
	for _, candidate := range def.Candidates {
		path, err := config.ExpandPath(filepath.FromSlash(candidate))
		if err != nil {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	path, err := d.lookPath(denoBinary)
	if err == nil {
		return path, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return "", services.Wrap(services.ErrNotFound, "", "locate deno", fmt.Sprintf("%d candidates and PATH", len(def.Candidates)), err)
	}
	return "", services.Wrap(services.ErrNotFound, "", "locate deno", "", err)
}
