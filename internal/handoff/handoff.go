package handoff

import (
	"context"
	"io"
	"log/slog"
	"os"

	"prebuild/internal/features"
	"prebuild/internal/logging"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

// Options configures the terminal stage.
type Options struct {
	Platform   platform.ID
	Exports    Exports
	ProjectDir string
	// StartDir is the directory the tool was started from, used for the cd hint.
	StartDir string
	// CIEnvFile selects CI mode when non-empty.
	CIEnvFile string
	Action    features.Action
	// Bun is the launcher used for chained packaging runs.
	Bun string
}

// Handoff delivers the build environment to CI, a developer, or the
// packaging tool itself.
type Handoff struct {
	runner services.Runner
	out    io.Writer
	logger *slog.Logger
	getenv func(string) string
}

// New constructs a Handoff printing hints to out.
func New(runner services.Runner, out io.Writer, logger *slog.Logger) *Handoff {
	if runner == nil {
		runner = services.ExecRunner{}
	}
	if out == nil {
		out = os.Stdout
	}
	return &Handoff{runner: runner, out: out, logger: logging.NewComponentLogger(logger, "handoff"), getenv: os.Getenv}
}

// Run performs CI mode or interactive mode, then chains into packaging when
// an action was requested. A failed CI env write is recoverable; a failed
// chained packaging run is fatal.
func (h *Handoff) Run(ctx context.Context, opts Options) stage.Outcome {
	logger := logging.WithContext(ctx, h.logger)
	var outcomes []stage.Outcome

	if opts.CIEnvFile != "" {
		vars := CIVars(opts.Platform, opts.Exports)
		for _, v := range vars {
			logger.Info("adding CI environment variable", logging.String("name", v.Key), logging.String("value", v.Value))
		}
		if err := WriteCIEnv(opts.CIEnvFile, vars); err != nil {
			wrapped := services.Wrap(services.ErrConfiguration, "", "write CI env", opts.CIEnvFile, err)
			logging.WarnWithContext(logger, "could not write CI environment file", "ci_env_write_failed",
				logging.Error(wrapped),
				logging.String(logging.FieldImpact, "later CI steps will not see the dependency paths"),
			)
			outcomes = append(outcomes, stage.Recoverable(wrapped))
		} else {
			outcomes = append(outcomes, stage.Success("wrote CI environment"))
		}
	} else {
		Hints(h.out, opts.Platform, opts.Exports, opts.StartDir, opts.ProjectDir)
		outcomes = append(outcomes, stage.Success("printed build hints"))
	}

	if opts.Action != features.ActionNone {
		if err := h.Chain(ctx, opts); err != nil {
			logging.ErrorWithContext(logger, "packaging run failed", "packaging_failed",
				logging.String("action", opts.Action.String()),
				logging.Error(err),
			)
			return stage.Fatal(err)
		}
		outcomes = append(outcomes, stage.Success("packaging "+opts.Action.SubCommand()+" finished"))
	}
	return stage.Merge(outcomes...)
}

// Chain runs bun install and then the packaging tool's dev or build
// sub-command in the project directory with the build variables set.
func (h *Handoff) Chain(ctx context.Context, opts Options) error {
	bun := opts.Bun
	if bun == "" {
		bun = "bun"
	}
	vars := BuildVars(opts.Platform, opts.Exports, h.getenv(EnvPath))
	env := make([]string, 0, len(vars))
	for _, v := range vars {
		env = append(env, v.String())
	}
	steps := []services.Invocation{
		{Binary: bun, Args: []string{"install"}, Dir: opts.ProjectDir, Env: env},
		{Binary: bun, Args: []string{"x", "tauri", opts.Action.SubCommand()}, Dir: opts.ProjectDir, Env: env},
	}
	logger := logging.WithContext(ctx, h.logger)
	for _, inv := range steps {
		logger.Info("running packaging step", logging.String("command", inv.String()), logging.String("dir", inv.Dir))
		if err := h.runner.Run(ctx, inv); err != nil {
			return services.Wrap(services.ErrExternalTool, "", "packaging", inv.String(), err)
		}
	}
	return nil
}
